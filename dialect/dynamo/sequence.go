package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/grid/grid"
)

// NextValue advances a sequence with a single atomic UpdateItem. The item
// for key is seeded with initialValue by if_not_exists, so the first caller
// receives initialValue and the stored counter always holds the next value.
func (d *Dialect) NextValue(ctx context.Context, key grid.RowKey, value *grid.IntegralValue, increment, initialValue int64) error {
	if increment <= 0 {
		return grid.ErrInvalidIncrement
	}
	if err := d.ensureTable(ctx, key.Table()); err != nil {
		return fmt.Errorf("next value %s: %w", key, err)
	}

	result, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(d.TableName(key.Table())),
		Key:              itemKey(key.Ref()),
		UpdateExpression: aws.String(sequenceUpdateExpr),
		ExpressionAttributeNames: map[string]string{
			"#value": d.config.SequenceAttribute,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":initial":   &types.AttributeValueMemberN{Value: strconv.FormatInt(initialValue, 10)},
			":increment": &types.AttributeValueMemberN{Value: strconv.FormatInt(increment, 10)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return fmt.Errorf("next value %s: %w", key, err)
	}

	n, ok := result.Attributes[d.config.SequenceAttribute].(*types.AttributeValueMemberN)
	if !ok {
		return fmt.Errorf("next value %s: missing %q in response", key, d.config.SequenceAttribute)
	}
	next, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return fmt.Errorf("next value %s: %w", key, err)
	}
	value.Set(next - increment)
	return nil
}
