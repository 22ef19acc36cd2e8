package dynamo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tamales-preorder/internal/domain"
)

// --- mock ---

type mockAPI struct{ mock.Mock }

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}
func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}
func (m *mockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}
func (m *mockAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}
func (m *mockAPI) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.ScanOutput)
	return out, args.Error(1)
}
func (m *mockAPI) BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.BatchGetItemOutput)
	return out, args.Error(1)
}
func (m *mockAPI) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.TransactWriteItemsOutput)
	return out, args.Error(1)
}

func strPtr(s string) *string { return &s }

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func sampleOrder() *domain.Order {
	return &domain.Order{
		UserEmail: "a@b.com",
		UserName:  strPtr("Ana"),
		Items: []domain.LineItem{
			{ID: 1, Name: "Pork", Qty: 2, Total: domain.MoneyFromInt(20)},
			{ID: 3, Name: "Rajas", Qty: 1, Total: domain.MoneyFromInt(12)},
			{ID: 1, Name: "Pork", Qty: 1, Total: domain.MoneyFromInt(10)},
		},
		GrandTotal: domain.MoneyFromInt(42),
		CreatedAt:  time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC),
	}
}

func counterReturns(api *mockAPI, id string) {
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return aws.ToString(in.TableName) == "counters"
	})).Return(&dynamodb.UpdateItemOutput{
		Attributes: map[string]types.AttributeValue{"value": n(id)},
	}, nil)
}

func inventoryHas(api *mockAPI, ids ...string) {
	var rows []map[string]types.AttributeValue
	for _, id := range ids {
		rows = append(rows, map[string]types.AttributeValue{"tamale_id": n(id)})
	}
	api.On("BatchGetItem", mock.Anything, mock.Anything).Return(&dynamodb.BatchGetItemOutput{
		Responses: map[string][]map[string]types.AttributeValue{"inventory": rows},
	}, nil)
}

// --- users ---

func TestUserRepo_GetByEmail_NotFound(t *testing.T) {
	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := NewUserRepo(api, "users").GetByEmail(context.Background(), "a@b.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_GetByEmail_Found(t *testing.T) {
	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{
		Item: map[string]types.AttributeValue{
			"email":    s("a@b.com"),
			"name":     s("Ana"),
			"phone":    &types.AttributeValueMemberNULL{Value: true},
			"verified": &types.AttributeValueMemberBOOL{Value: true},
		},
	}, nil)

	u, err := NewUserRepo(api, "users").GetByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
	assert.Nil(t, u.Phone)
	assert.True(t, u.Verified)
}

func TestUserRepo_Upsert_KeepsVerifiedAndCreatedAt(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(&dynamodb.UpdateItemOutput{}, nil)

	err := NewUserRepo(api, "users").Upsert(context.Background(), &domain.User{
		Email: "a@b.com", Name: "Ana", CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	in := api.Calls[0].Arguments.Get(1).(*dynamodb.UpdateItemInput)
	assert.Nil(t, in.ConditionExpression)
	expr := aws.ToString(in.UpdateExpression)
	for placeholder, field := range in.ExpressionAttributeNames {
		guarded := strings.Contains(expr, "if_not_exists("+placeholder+",")
		switch field {
		case "verified", "created_at":
			assert.True(t, guarded, field)
		default:
			assert.False(t, guarded, field)
		}
	}
}

func TestUserRepo_UpdateVerification_MissingUser(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{})

	err := NewUserRepo(api, "users").UpdateVerification(context.Background(), "a@b.com", strPtr("123456"), nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_MarkVerified_WrongCode(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{})

	_, err := NewUserRepo(api, "users").MarkVerified(context.Background(), "a@b.com", "000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_MarkVerified_ReturnsUpdatedUser(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		c, ok := in.ExpressionAttributeValues[":c"].(*types.AttributeValueMemberS)
		return ok && c.Value == "123456"
	})).Return(&dynamodb.UpdateItemOutput{
		Attributes: map[string]types.AttributeValue{
			"email":    s("a@b.com"),
			"name":     s("Ana"),
			"verified": &types.AttributeValueMemberBOOL{Value: true},
		},
	}, nil)

	u, err := NewUserRepo(api, "users").MarkVerified(context.Background(), "a@b.com", "123456")
	require.NoError(t, err)
	assert.True(t, u.Verified)
}

// --- orders ---

func TestOrderRepo_Create_WritesOrderAndTrackedDecrements(t *testing.T) {
	api := &mockAPI{}
	inventoryHas(api, "1")
	counterReturns(api, "7")
	api.On("TransactWriteItems", mock.Anything, mock.Anything).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	id, err := NewOrderRepo(api, "orders", "inventory", "counters").Create(context.Background(), sampleOrder(), true)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	var in *dynamodb.TransactWriteItemsInput
	for _, c := range api.Calls {
		if c.Method == "TransactWriteItems" {
			in = c.Arguments.Get(1).(*dynamodb.TransactWriteItemsInput)
		}
	}
	require.NotNil(t, in)
	require.Len(t, in.TransactItems, 2, "order put plus one tracked item")
	require.NotNil(t, in.TransactItems[0].Put)

	upd := in.TransactItems[1].Update
	require.NotNil(t, upd)
	assert.Equal(t, "remaining >= :q", aws.ToString(upd.ConditionExpression))
	assert.Equal(t, n("3"), upd.ExpressionAttributeValues[":q"], "duplicate lines are summed")
}

func TestOrderRepo_Create_Oversold(t *testing.T) {
	api := &mockAPI{}
	inventoryHas(api, "1", "3")
	counterReturns(api, "8")
	api.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	})

	_, err := NewOrderRepo(api, "orders", "inventory", "counters").Create(context.Background(), sampleOrder(), true)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorContains(t, err, "item 3")
}

func TestOrderRepo_Create_WithoutTracking(t *testing.T) {
	api := &mockAPI{}
	counterReturns(api, "9")
	api.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		return len(in.TransactItems) == 1
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	_, err := NewOrderRepo(api, "orders", "inventory", "counters").Create(context.Background(), sampleOrder(), false)
	require.NoError(t, err)
	api.AssertNotCalled(t, "BatchGetItem", mock.Anything, mock.Anything)
}

func TestOrderRepo_ListByEmail_DecodesRecords(t *testing.T) {
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToString(in.IndexName) == OrdersByEmailIndex && !aws.ToBool(in.ScanIndexForward)
	})).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{{
			"id":          n("7"),
			"user_email":  s("a@b.com"),
			"user_name":   s("Ana"),
			"user_phone":  &types.AttributeValueMemberNULL{Value: true},
			"items":       s(`[{"id":1,"name":"Pork","qty":2,"total":20}]`),
			"grand_total": s("20.50"),
			"created_at":  s("2025-01-20T09:00:00.000000Z"),
		}},
	}, nil)

	orders, err := NewOrderRepo(api, "orders", "inventory", "counters").ListByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, int64(7), o.ID)
	assert.Equal(t, "20.50", o.GrandTotal.Format())
	assert.Equal(t, 2, o.Items[0].Qty)
	assert.Nil(t, o.UserPhone)
	assert.Equal(t, 2025, o.CreatedAt.Year())
}

func TestOrderRepo_ListByEmail_EmptyIsNotNil(t *testing.T) {
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)

	orders, err := NewOrderRepo(api, "orders", "inventory", "counters").ListByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestOrderRepo_DeleteOwned_WrongOwner(t *testing.T) {
	api := &mockAPI{}
	api.On("DeleteItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

	err := NewOrderRepo(api, "orders", "inventory", "counters").DeleteOwned(context.Background(), 7, "x@y.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.EqualError(t, err, "Order not found or unauthorized")
}

// --- inventory ---

func TestInventoryRepo_All_FollowsPagination(t *testing.T) {
	api := &mockAPI{}
	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return in.ExclusiveStartKey == nil
	})).Return(&dynamodb.ScanOutput{
		Items:            []map[string]types.AttributeValue{{"tamale_id": n("1"), "remaining": n("12")}},
		LastEvaluatedKey: map[string]types.AttributeValue{"tamale_id": n("1")},
	}, nil).Once()
	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return in.ExclusiveStartKey != nil
	})).Return(&dynamodb.ScanOutput{
		Items: []map[string]types.AttributeValue{{"tamale_id": n("2"), "remaining": n("0")}},
	}, nil).Once()

	inv, err := NewInventoryRepo(api, "inventory").All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Inventory{1: 12, 2: 0}, inv)
}

func TestInventoryRepo_All_Error(t *testing.T) {
	api := &mockAPI{}
	api.On("Scan", mock.Anything, mock.Anything).Return(nil, errors.New("ResourceNotFoundException"))

	_, err := NewInventoryRepo(api, "inventory").All(context.Background())
	assert.ErrorContains(t, err, "scan inventory")
}
