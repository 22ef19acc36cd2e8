package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/tamales-preorder/internal/domain"
)

type inventoryRow struct {
	TamaleID  int64 `dynamodbav:"tamale_id"`
	Remaining int   `dynamodbav:"remaining"`
}

// InventoryRepo reads the inventory table. PK: tamale_id (N).
type InventoryRepo struct {
	client    API
	tableName string
}

func NewInventoryRepo(client API, tableName string) *InventoryRepo {
	return &InventoryRepo{client: client, tableName: tableName}
}

func (r *InventoryRepo) All(ctx context.Context) (domain.Inventory, error) {
	inv := domain.Inventory{}
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		var rows []inventoryRow
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &rows); err != nil {
			return nil, fmt.Errorf("unmarshal inventory: %w", err)
		}
		for _, row := range rows {
			inv[row.TamaleID] = row.Remaining
		}
		if len(out.LastEvaluatedKey) == 0 {
			return inv, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
