// Package keycodec provides canonical encodings and hashes for grid keys.
package keycodec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Encode returns the canonical text form of v.
// Strings are NFC normalized and map keys are sorted, so two values that
// compare equal after a backend round trip encode identically. Numerically
// equal integers and floats (42, int64(42), 42.0) share one encoding.
func Encode(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(canonical(v)); err != nil {
		// Channels, funcs and NaN have no JSON form.
		return fmt.Sprintf("%T:%v", v, v)
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}))
}

// Join builds a reference from a table name and encoded components.
func Join(table string, parts ...string) string {
	var b bytes.Buffer
	b.WriteString(Encode(table))
	for _, p := range parts {
		b.WriteByte('|')
		b.WriteString(p)
	}
	return b.String()
}

// Hash computes the 64-bit FNV-1a hash of a reference.
func Hash(ref string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(ref))
	return h.Sum64()
}

// Number parses a decimal number, preferring int64 when the value is integral.
func Number(s string) (any, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", s, err)
	}
	return f, nil
}

// Normalize rewrites json.Number values produced by a decoder with UseNumber
// into int64 or float64, descending into slices and maps.
func Normalize(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := Number(val.String()); err == nil {
			return n
		}
		return val.String()
	case []any:
		for i, elem := range val {
			val[i] = Normalize(elem)
		}
		return val
	case map[string]any:
		for k, elem := range val {
			val[k] = Normalize(elem)
		}
		return val
	default:
		return v
	}
}

func canonical(v any) any {
	switch val := v.(type) {
	case string:
		return norm.NFC.String(val)
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = norm.NFC.String(s)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = canonical(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[norm.NFC.String(k)] = canonical(elem)
		}
		return out
	default:
		return v
	}
}
