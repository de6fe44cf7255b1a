package stream

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/grid/grid"
)

// --- getStringAttr Tests ---

func TestGetStringAttr_ExistingString(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"name": events.NewStringAttribute("test-value"),
	}
	assert.Equal(t, "test-value", getStringAttr(image, "name"))
}

func TestGetStringAttr_MissingKey(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"other": events.NewStringAttribute("value"),
	}
	assert.Equal(t, "", getStringAttr(image, "name"))
}

func TestGetStringAttr_NilImage(t *testing.T) {
	var image map[string]events.DynamoDBAttributeValue
	assert.Equal(t, "", getStringAttr(image, "name"))
}

func TestGetStringAttr_NumberAttribute(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"name": events.NewNumberAttribute("12"),
	}
	assert.Equal(t, "", getStringAttr(image, "name"))
}

func TestGetStringAttr_UnicodeValue(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"name": events.NewStringAttribute("日本語テスト"),
	}
	assert.Equal(t, "日本語テスト", getStringAttr(image, "name"))
}

// --- ConvertImage Tests ---

func TestConvertImage_Scalars(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"name":    events.NewStringAttribute("Ada"),
		"age":     events.NewNumberAttribute("36"),
		"score":   events.NewNumberAttribute("12.5"),
		"active":  events.NewBooleanAttribute(true),
		"note":    events.NewNullAttribute(),
		"payload": events.NewBinaryAttribute([]byte{1, 2}),
	}

	columns, err := ConvertImage(image)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":    "Ada",
		"age":     int64(36),
		"score":   12.5,
		"active":  true,
		"note":    nil,
		"payload": []byte{1, 2},
	}, columns)
}

func TestConvertImage_Nested(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"tags": events.NewListAttribute([]events.DynamoDBAttributeValue{
			events.NewStringAttribute("a"),
			events.NewNumberAttribute("1"),
		}),
		"address": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
			"city": events.NewStringAttribute("London"),
		}),
		"codes": events.NewStringSetAttribute([]string{"x", "y"}),
		"sizes": events.NewNumberSetAttribute([]string{"1", "2.5"}),
	}

	columns, err := ConvertImage(image)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", int64(1)}, columns["tags"])
	assert.Equal(t, map[string]any{"city": "London"}, columns["address"])
	assert.Equal(t, []string{"x", "y"}, columns["codes"])
	assert.Equal(t, []any{int64(1), 2.5}, columns["sizes"])
}

func TestConvertImage_BadNumber(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"n": events.NewNumberAttribute("not-a-number"),
	}
	_, err := ConvertImage(image)
	assert.Error(t, err)
}

func TestConvertImage_Empty(t *testing.T) {
	columns, err := ConvertImage(nil)
	require.NoError(t, err)
	assert.Empty(t, columns)
}

// --- entityID Tests ---

func TestEntityID_FromKey(t *testing.T) {
	id, ok, err := entityID(events.DynamoDBStreamRecord{
		Keys: map[string]events.DynamoDBAttributeValue{
			"_id": events.NewStringAttribute(`42`),
		},
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	id, ok, err = entityID(events.DynamoDBStreamRecord{
		Keys: map[string]events.DynamoDBAttributeValue{
			"_id": events.NewStringAttribute(`"acct-1"`),
		},
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "acct-1", id)
}

func TestEntityID_FromOldImage(t *testing.T) {
	id, ok, err := entityID(events.DynamoDBStreamRecord{
		OldImage: map[string]events.DynamoDBAttributeValue{
			"id": events.NewStringAttribute("acct-1"),
		},
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "acct-1", id)
}

func TestEntityID_Missing(t *testing.T) {
	_, ok, err := entityID(events.DynamoDBStreamRecord{})
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestEntityID_SkipsRowItems(t *testing.T) {
	assoc := grid.NewAssociationKey("Account", []string{"owner_id"}, []any{42})
	row := grid.NewRowKey("Account", []string{"owner_id", "item"}, []any{42, "x"})

	tests := []struct {
		name   string
		change events.DynamoDBStreamRecord
	}{
		{
			name: "row item id",
			change: events.DynamoDBStreamRecord{
				Keys: map[string]events.DynamoDBAttributeValue{
					"_id": events.NewStringAttribute(assoc.Ref() + "#" + row.Ref()),
				},
			},
		},
		{
			name: "trailing value",
			change: events.DynamoDBStreamRecord{
				Keys: map[string]events.DynamoDBAttributeValue{
					"_id": events.NewStringAttribute(`42 43`),
				},
			},
		},
		{
			name: "row key attribute",
			change: events.DynamoDBStreamRecord{
				Keys: map[string]events.DynamoDBAttributeValue{
					"_id": events.NewStringAttribute(`"acct-1"`),
				},
				OldImage: map[string]events.DynamoDBAttributeValue{
					"_id": events.NewStringAttribute(`"acct-1"`),
					"_rk": events.NewListAttribute([]events.DynamoDBAttributeValue{
						events.NewStringAttribute("owner_id"),
					}),
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok, err := entityID(tt.change)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, id)
		})
	}
}

func TestEntityID_TrailingWhitespace(t *testing.T) {
	id, ok, err := entityID(events.DynamoDBStreamRecord{
		Keys: map[string]events.DynamoDBAttributeValue{
			"_id": events.NewStringAttribute("7 \n"),
		},
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}

// --- gridTable Tests ---

func TestGridTable(t *testing.T) {
	h := NewHandler(nil, nil, "shop.", nil)
	arn := "arn:aws:dynamodb:us-east-1:123456789012:table/shop.Account/stream/2024-01-01T00:00:00.000"

	table, ok := h.gridTable(arn)
	assert.True(t, ok)
	assert.Equal(t, "Account", table)

	_, ok = h.gridTable("arn:aws:dynamodb:us-east-1:123456789012:table/other.Account/stream/x")
	assert.False(t, ok)

	_, ok = h.gridTable("not-an-arn")
	assert.False(t, ok)

	_, ok = h.gridTable("arn:aws:dynamodb:us-east-1:123456789012:table/shop./stream/x")
	assert.False(t, ok)
}
