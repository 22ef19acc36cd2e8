package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/tamales-preorder/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
// PK: email (lower-cased).
type UserRepo struct {
	client    API
	tableName string
}

func NewUserRepo(client API, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("email", email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Upsert writes profile and code fields in one UpdateItem; verified and
// created_at are only set when the item is new.
func (r *UserRepo) Upsert(ctx context.Context, u *domain.User) error {
	ue, err := buildUpdateExpr(
		map[string]interface{}{
			"name":              u.Name,
			"birthday":          u.Birthday,
			"phone":             u.Phone,
			"verification_code": u.VerificationCode,
			"code_created_at":   u.CodeCreatedAt,
		},
		map[string]interface{}{
			"verified":   false,
			"created_at": u.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("email", u.Email),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *UserRepo) UpdateVerification(ctx context.Context, email string, code, codeCreatedAt *string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"verification_code": code,
		"code_created_at":   codeCreatedAt,
	}, nil)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("email", email),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(email)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	return nil
}

// MarkVerified sets verified only when the stored code equals code.
func (r *UserRepo) MarkVerified(ctx context.Context, email, code string) (*domain.User, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("email", email),
		UpdateExpression:    aws.String("SET verified = :t"),
		ConditionExpression: aws.String("attribute_exists(email) AND verification_code = :c"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
			":c": &types.AttributeValueMemberS{Value: code},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("no user with that code: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Attributes, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
