package dynamo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/tamales-preorder/internal/domain"
)

// createdAtLayout is fixed width so the GSI sort key orders lexically.
const createdAtLayout = "2006-01-02T15:04:05.000000Z"

const orderCounter = "orders"

// orderRecord is the stored shape of an order. Items travel as a JSON string
// and the grand total as a decimal string so no precision is lost.
type orderRecord struct {
	ID         int64   `dynamodbav:"id"`
	UserEmail  string  `dynamodbav:"user_email"`
	UserName   *string `dynamodbav:"user_name"`
	UserPhone  *string `dynamodbav:"user_phone"`
	Items      string  `dynamodbav:"items"`
	GrandTotal string  `dynamodbav:"grand_total"`
	CreatedAt  string  `dynamodbav:"created_at"`
}

func toRecord(id int64, o *domain.Order) (orderRecord, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return orderRecord{}, fmt.Errorf("marshal items: %w", err)
	}
	return orderRecord{
		ID:         id,
		UserEmail:  o.UserEmail,
		UserName:   o.UserName,
		UserPhone:  o.UserPhone,
		Items:      string(items),
		GrandTotal: o.GrandTotal.String(),
		CreatedAt:  o.CreatedAt.UTC().Format(createdAtLayout),
	}, nil
}

func (rec orderRecord) toDomain() (domain.Order, error) {
	o := domain.Order{
		ID:        rec.ID,
		UserEmail: rec.UserEmail,
		UserName:  rec.UserName,
		UserPhone: rec.UserPhone,
	}
	if err := json.Unmarshal([]byte(rec.Items), &o.Items); err != nil {
		return o, fmt.Errorf("decode items of order %d: %w", rec.ID, err)
	}
	total, err := domain.NewMoney(rec.GrandTotal)
	if err != nil {
		return o, fmt.Errorf("decode total of order %d: %w", rec.ID, err)
	}
	o.GrandTotal = total
	o.CreatedAt, err = time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		return o, fmt.Errorf("decode created_at of order %d: %w", rec.ID, err)
	}
	return o, nil
}

// OrderRepo provides typed DynamoDB operations for the orders table.
// PK: id (N). GSI: user_email-created_at-index.
type OrderRepo struct {
	client         API
	tableName      string
	inventoryTable string
	countersTable  string
}

func NewOrderRepo(client API, tableName, inventoryTable, countersTable string) *OrderRepo {
	return &OrderRepo{
		client:         client,
		tableName:      tableName,
		inventoryTable: inventoryTable,
		countersTable:  countersTable,
	}
}

// Create writes o and, when trackInventory is set, decrements every tracked
// item in a single TransactWriteItems call. Any oversold line cancels the
// whole transaction with domain.ErrConflict.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order, trackInventory bool) (int64, error) {
	var (
		tracked []int64
		qty     map[int64]int
	)
	if trackInventory {
		var ids []int64
		ids, qty = domain.QuantitiesByItem(o.Items)
		var err error
		tracked, err = r.trackedItems(ctx, ids)
		if err != nil {
			return 0, err
		}
	}

	id, err := r.nextID(ctx)
	if err != nil {
		return 0, err
	}
	rec, err := toRecord(id, o)
	if err != nil {
		return 0, err
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return 0, fmt.Errorf("marshal order: %w", err)
	}

	writes := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		},
	}}
	for _, itemID := range tracked {
		writes = append(writes, types.TransactWriteItem{
			Update: &types.Update{
				TableName:           aws.String(r.inventoryTable),
				Key:                 numKey("tamale_id", itemID),
				UpdateExpression:    aws.String("SET remaining = remaining - :q"),
				ConditionExpression: aws.String("remaining >= :q"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":q": &types.AttributeValueMemberN{Value: strconv.Itoa(qty[itemID])},
				},
			},
		})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
	if idx, ok := transactionConditionFailed(err); ok {
		if idx == 0 {
			return 0, fmt.Errorf("order id %d already taken: %w", id, domain.ErrConflict)
		}
		return 0, domain.Conflict(fmt.Sprintf("insufficient inventory for item %d", tracked[idx-1]))
	}
	if err != nil {
		return 0, fmt.Errorf("write order: %w", err)
	}
	return id, nil
}

// trackedItems returns the subset of ids that have an inventory row, in the
// order given.
func (r *OrderRepo) trackedItems(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, numKey("tamale_id", id))
	}
	found := make(map[int64]bool, len(ids))
	request := map[string]types.KeysAndAttributes{
		r.inventoryTable: {
			Keys:                 keys,
			ProjectionExpression: aws.String("tamale_id"),
			ConsistentRead:       aws.Bool(true),
		},
	}
	for len(request) > 0 {
		out, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
		if err != nil {
			return nil, fmt.Errorf("read inventory: %w", err)
		}
		for _, av := range out.Responses[r.inventoryTable] {
			var row inventoryRow
			if err := attributevalue.UnmarshalMap(av, &row); err != nil {
				return nil, fmt.Errorf("unmarshal inventory: %w", err)
			}
			found[row.TamaleID] = true
		}
		request = out.UnprocessedKeys
	}
	var tracked []int64
	for _, id := range ids {
		if found[id] {
			tracked = append(tracked, id)
		}
	}
	return tracked, nil
}

// nextID atomically increments the orders counter.
func (r *OrderRepo) nextID(ctx context.Context) (int64, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.countersTable),
		Key:                      strKey("name", orderCounter),
		UpdateExpression:         aws.String("ADD #v :one"),
		ExpressionAttributeNames: map[string]string{"#v": "value"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("next order id: %w", err)
	}
	var id int64
	if err := attributevalue.Unmarshal(out.Attributes["value"], &id); err != nil {
		return 0, fmt.Errorf("decode order id: %w", err)
	}
	return id, nil
}

// ListByEmail queries the email GSI newest first, following pagination.
func (r *OrderRepo) ListByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	orders := []domain.Order{}
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(OrdersByEmailIndex),
			KeyConditionExpression: aws.String("user_email = :e"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":e": &types.AttributeValueMemberS{Value: email},
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("query orders: %w", err)
		}
		var recs []orderRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		for _, rec := range recs {
			o, err := rec.toDomain()
			if err != nil {
				return nil, err
			}
			orders = append(orders, o)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return orders, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// DeleteOwned removes the order only when it belongs to email.
func (r *OrderRepo) DeleteOwned(ctx context.Context, id int64, email string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 numKey("id", id),
		ConditionExpression: aws.String("user_email = :e"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e": &types.AttributeValueMemberS{Value: email},
		},
	})
	if isConditionFailed(err) {
		return domain.NotFound("Order not found or unauthorized")
	}
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}
