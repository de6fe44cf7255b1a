package sqlite

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/jacentio/grid/grid"
	"github.com/jacentio/grid/internal/keycodec"
)

// storedRowKey is the JSON form of a row key in grid_rows.row_key.
type storedRowKey struct {
	Names  []string `json:"names"`
	Values []any    `json:"values"`
}

// binaryTag marks a JSON object holding a base64 encoded byte slice.
const binaryTag = "$b"

func marshalDoc(columns map[string]any) (string, error) {
	tagged := make(map[string]any, len(columns))
	for k, v := range columns {
		tagged[k] = tagBinary(v)
	}
	b, err := json.Marshal(tagged)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(b), nil
}

// unmarshalDoc decodes a stored document. Numbers decode as int64 when
// integral, else float64.
func unmarshalDoc(doc string) (map[string]any, error) {
	var columns map[string]any
	if err := decodeJSON(doc, &columns); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if columns == nil {
		columns = map[string]any{}
	}
	for k, v := range columns {
		columns[k] = untagBinary(keycodec.Normalize(v))
	}
	return columns, nil
}

// tagBinary wraps byte slices as {"$b": base64} so they decode back to
// []byte instead of plain strings.
func tagBinary(v any) any {
	switch val := v.(type) {
	case []byte:
		return map[string]any{binaryTag: base64.StdEncoding.EncodeToString(val)}
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = tagBinary(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = tagBinary(elem)
		}
		return out
	default:
		return v
	}
}

func untagBinary(v any) any {
	switch val := v.(type) {
	case []any:
		for i, elem := range val {
			val[i] = untagBinary(elem)
		}
		return val
	case map[string]any:
		if len(val) == 1 {
			if s, ok := val[binaryTag].(string); ok {
				if b, err := base64.StdEncoding.DecodeString(s); err == nil {
					return b
				}
			}
		}
		for k, elem := range val {
			val[k] = untagBinary(elem)
		}
		return val
	default:
		return v
	}
}

func marshalRowKey(key grid.RowKey) (string, error) {
	b, err := json.Marshal(storedRowKey{Names: key.ColumnNames(), Values: key.ColumnValues()})
	if err != nil {
		return "", fmt.Errorf("marshal row key: %w", err)
	}
	return string(b), nil
}

// unmarshalRowKey rebuilds a row key against table.
func unmarshalRowKey(table, raw string) (grid.RowKey, error) {
	var stored storedRowKey
	if err := decodeJSON(raw, &stored); err != nil {
		return grid.RowKey{}, fmt.Errorf("unmarshal row key: %w", err)
	}
	if len(stored.Names) != len(stored.Values) {
		return grid.RowKey{}, fmt.Errorf("unmarshal row key: %d names, %d values", len(stored.Names), len(stored.Values))
	}
	for i, v := range stored.Values {
		stored.Values[i] = keycodec.Normalize(v)
	}
	return grid.NewRowKey(table, stored.Names, stored.Values), nil
}

func decodeJSON(raw string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	return dec.Decode(v)
}
