package domain

import (
	"strings"
	"time"
)

// User is a storefront customer, keyed by lower-cased email.
type User struct {
	Email            string    `json:"email" dynamodbav:"email"`
	Name             string    `json:"name" dynamodbav:"name"`
	Birthday         *string   `json:"birthday" dynamodbav:"birthday"`
	Phone            *string   `json:"phone" dynamodbav:"phone"`
	VerificationCode *string   `json:"verification_code" dynamodbav:"verification_code"`
	CodeCreatedAt    *string   `json:"code_created_at" dynamodbav:"code_created_at"`
	Verified         bool      `json:"verified" dynamodbav:"verified"`
	CreatedAt        time.Time `json:"created_at" dynamodbav:"created_at"`
}

type CreateUserRequest struct {
	Name             string  `json:"name" validate:"required"`
	Email            string  `json:"email" validate:"required"`
	Birthday         *string `json:"birthday"`
	Phone            *string `json:"phone"`
	VerificationCode *string `json:"verification_code"`
	CodeCreatedAt    *string `json:"code_created_at"` // client timestamp, RFC 3339 or Unix millis
}

type UpdateVerificationRequest struct {
	Email            string  `json:"email" validate:"required"`
	VerificationCode *string `json:"verification_code"`
	CodeCreatedAt    *string `json:"code_created_at"`
}

type VerifyUserRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required"`
}

// NormalizeEmail is applied before every lookup, write or comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
