package dynamo

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// numKey builds a DynamoDB primary key map with a single number attribute.
func numKey(name string, value int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberN{Value: strconv.FormatInt(value, 10)},
	}
}

// updateExpr is a built SET expression with its placeholder maps.
type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts field->value maps into a DynamoDB SET expression.
// Fields in setIfAbsent are written only when the attribute does not exist
// yet. Keys are sorted so the expression is deterministic.
func buildUpdateExpr(set, setIfAbsent map[string]interface{}) (updateExpr, error) {
	ue := updateExpr{
		Names:  make(map[string]string),
		Values: make(map[string]types.AttributeValue),
	}
	var clauses []string
	i := 0
	add := func(fields map[string]interface{}, format string) error {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			nameKey := fmt.Sprintf("#f%d", i)
			valueKey := fmt.Sprintf(":v%d", i)
			av, err := attributevalue.Marshal(fields[k])
			if err != nil {
				return fmt.Errorf("marshal field %s: %w", k, err)
			}
			ue.Names[nameKey] = k
			ue.Values[valueKey] = av
			clauses = append(clauses, fmt.Sprintf(format, nameKey, nameKey, valueKey))
			i++
		}
		return nil
	}
	if err := add(set, "%[1]s = %[3]s"); err != nil {
		return updateExpr{}, err
	}
	if err := add(setIfAbsent, "%[1]s = if_not_exists(%[2]s, %[3]s)"); err != nil {
		return updateExpr{}, err
	}
	if i == 0 {
		return updateExpr{}, fmt.Errorf("no fields to update")
	}
	ue.Expr = "SET " + strings.Join(clauses, ", ")
	return ue, nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// transactionConditionFailed reports whether a TransactWriteItems call was
// canceled because one of its condition expressions failed.
func transactionConditionFailed(err error) (int, bool) {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return 0, false
	}
	for i, reason := range tce.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return i, true
		}
	}
	return 0, false
}
