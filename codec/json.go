// Package codec bridges wire formats and the canonical value vocabulary.
// Decoders produce exactly the shapes the validator consumes (string-keyed
// maps, []any, json.Number literals); encoders lower coerced outputs back
// to shapes the format can carry.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// DecodeJSON reads one JSON document into the canonical input vocabulary.
// Numbers stay as json.Number so integer and decimal coercion see the
// exact source literal, not a float approximation.
func DecodeJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// UnmarshalJSON is DecodeJSON over a byte slice.
func UnmarshalJSON(data []byte) (any, error) {
	return DecodeJSON(bytes.NewReader(data))
}

// EncodeJSON writes a validated output tree as JSON. Container shapes JSON
// cannot carry are lowered first: sets become sorted arrays and any-keyed
// maps get stringified keys. Decimals marshal as quoted strings so no
// precision is lost in transit.
func EncodeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(lower(v, false))
}

// MarshalJSON is EncodeJSON into a byte slice.
func MarshalJSON(v any) ([]byte, error) {
	return json.Marshal(lower(v, false))
}

// lower rewrites output containers into format-safe shapes. yamlMode also
// flattens json.Number and decimal values, which YAML has no native
// encoding for.
func lower(v any, yamlMode bool) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = lower(e, yamlMode)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = lower(e, yamlMode)
		}
		return out
	case map[any]struct{}:
		elems := make([]any, 0, len(t))
		for k := range t {
			elems = append(elems, lower(k, yamlMode))
		}
		sort.Slice(elems, func(i, j int) bool {
			return fmt.Sprint(elems[i]) < fmt.Sprint(elems[j])
		})
		return elems
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = lower(e, yamlMode)
		}
		return out
	case json.Number:
		if !yamlMode {
			return t
		}
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case decimal.Decimal:
		if yamlMode {
			return t.String()
		}
		return t
	default:
		return v
	}
}
