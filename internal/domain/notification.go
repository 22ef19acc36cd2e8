package domain

import "time"

type VerificationEmailRequest struct {
	Email string `json:"email" validate:"required"`
	Name  string `json:"name"`
	Code  string `json:"code" validate:"required"`
}

// OrderNotification is the order summary the storefront posts after checkout.
// Field names follow the storefront's camelCase payload.
type OrderNotification struct {
	Email      string     `json:"email" validate:"required"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	Items      []LineItem `json:"items" validate:"required"`
	GrandTotal Money      `json:"grandTotal"`
	CreatedAt  *time.Time `json:"createdAt"`
}

type SendOrderEmailsRequest struct {
	Order *OrderNotification `json:"order" validate:"required"`
}
