package stream

import (
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/grid/internal/keycodec"
)

// ConvertImage converts a DynamoDB stream image into grid column values.
// Numbers convert to int64 when integral, else float64.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) (map[string]any, error) {
	result := make(map[string]any, len(image))
	for k, v := range image {
		value, err := attributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		result[k] = value
	}
	return result, nil
}

func attributeValue(v events.DynamoDBAttributeValue) (any, error) {
	switch v.DataType() {
	case events.DataTypeNull:
		return nil, nil
	case events.DataTypeString:
		return v.String(), nil
	case events.DataTypeNumber:
		return keycodec.Number(v.Number())
	case events.DataTypeBoolean:
		return v.Boolean(), nil
	case events.DataTypeBinary:
		return v.Binary(), nil
	case events.DataTypeStringSet:
		return v.StringSet(), nil
	case events.DataTypeBinarySet:
		return v.BinarySet(), nil
	case events.DataTypeNumberSet:
		set := v.NumberSet()
		out := make([]any, len(set))
		for i, s := range set {
			n, err := keycodec.Number(s)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case events.DataTypeList:
		list := v.List()
		out := make([]any, len(list))
		for i, elem := range list {
			value, err := attributeValue(elem)
			if err != nil {
				return nil, err
			}
			out[i] = value
		}
		return out, nil
	case events.DataTypeMap:
		return ConvertImage(v.Map())
	default:
		return nil, fmt.Errorf("unsupported stream attribute type %d", v.DataType())
	}
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}
