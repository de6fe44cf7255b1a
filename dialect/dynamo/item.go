package dynamo

import (
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/grid/internal/keycodec"
)

// Reserved attributes.
const (
	// attrID is the partition key of every grid table.
	attrID = "_id"

	// attrRowKey lists the column names forming an association row's key.
	attrRowKey = "_rk"
)

func isReserved(column string) bool {
	return column == attrID || column == attrRowKey
}

// itemKey builds the primary key for an item id.
func itemKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrID: &types.AttributeValueMemberS{Value: id},
	}
}

// encodeItem marshals columns into a DynamoDB item carrying id.
func encodeItem(id string, columns map[string]any) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, len(columns)+1)
	for column, v := range columns {
		if isReserved(column) {
			return nil, fmt.Errorf("%w: %q", ErrReservedColumn, column)
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal column %q: %w", column, err)
		}
		item[column] = av
	}
	item[attrID] = &types.AttributeValueMemberS{Value: id}
	return item, nil
}

// decodeItem converts a DynamoDB item into grid columns, dropping reserved
// attributes. Numbers decode as int64 when integral, else float64.
func decodeItem(item map[string]types.AttributeValue) (map[string]any, error) {
	columns := make(map[string]any, len(item))
	for name, av := range item {
		if isReserved(name) {
			continue
		}
		v, err := decodeValue(av)
		if err != nil {
			return nil, fmt.Errorf("decode column %q: %w", name, err)
		}
		columns[name] = v
	}
	return columns, nil
}

func decodeValue(av types.AttributeValue) (any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		return keycodec.Number(v.Value)
	case *types.AttributeValueMemberBOOL:
		return v.Value, nil
	case *types.AttributeValueMemberB:
		return v.Value, nil
	case *types.AttributeValueMemberSS:
		return append([]string(nil), v.Value...), nil
	case *types.AttributeValueMemberBS:
		return append([][]byte(nil), v.Value...), nil
	case *types.AttributeValueMemberNS:
		out := make([]any, len(v.Value))
		for i, s := range v.Value {
			n, err := keycodec.Number(s)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case *types.AttributeValueMemberL:
		out := make([]any, len(v.Value))
		for i, elem := range v.Value {
			d, err := decodeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = d
		}
		return out, nil
	case *types.AttributeValueMemberM:
		out := make(map[string]any, len(v.Value))
		for k, elem := range v.Value {
			d, err := decodeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = d
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported attribute value %T", av)
	}
}

// rowKeyNames returns the row key column names recorded on an item. Items
// written by other tools carry none; their row key is every column, sorted.
func rowKeyNames(item map[string]types.AttributeValue, columns map[string]any) []string {
	if l, ok := item[attrRowKey].(*types.AttributeValueMemberL); ok {
		names := make([]string, 0, len(l.Value))
		for _, v := range l.Value {
			if s, ok := v.(*types.AttributeValueMemberS); ok {
				names = append(names, s.Value)
			}
		}
		return names
	}
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
