package codec_test

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	granite "github.com/graniteware/granite"
	"github.com/graniteware/granite/codec"
	"github.com/shopspring/decimal"
)

func TestDecodeJSON_PreservesNumberLiterals(t *testing.T) {
	v, err := codec.UnmarshalJSON([]byte(`{"price": 19.99, "qty": 3}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := v.(map[string]any)
	if _, ok := m["price"].(json.Number); !ok {
		t.Fatalf("want json.Number, got %T", m["price"])
	}
	if m["price"].(json.Number).String() != "19.99" {
		t.Fatalf("literal lost: %v", m["price"])
	}
}

func TestRoundTrip_ThroughValidator(t *testing.T) {
	s := granite.MustCompile(map[string]any{
		"+Type": "Object",
		"Price": "Decimal",
		"Tags":  map[string]any{"+Type": "Set", "+ValueType": "String"},
	})
	in, err := codec.UnmarshalJSON([]byte(`{"Price": 19.99, "Tags": ["b", "a", "b"]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := s.Validate(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := codec.MarshalJSON(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, `"19.99"`) {
		t.Fatalf("decimal should marshal quoted: %s", got)
	}
	if !strings.Contains(got, `["a","b"]`) {
		t.Fatalf("set should marshal as a sorted array: %s", got)
	}
}

func TestDecodeYAML_FeedsValidator(t *testing.T) {
	src := "Name: alice\nAge: 30\n"
	in, err := codec.UnmarshalYAML([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := granite.MustCompile(map[string]any{
		"+Type": "Object",
		"Name":  "String",
		"Age":   "Integer",
	})
	out, err := s.Validate(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(map[string]any)["Age"] != int64(30) {
		t.Fatalf("want 30, got %v", out)
	}
}

func TestEncodeYAML_LowersDecimalsAndSets(t *testing.T) {
	data, err := codec.MarshalYAML(map[string]any{
		"price": decimal.RequireFromString("1.50"),
		"tags":  map[any]struct{}{"x": {}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "1.50") {
		t.Fatalf("decimal string lost: %s", got)
	}
	if !strings.Contains(got, "- x") {
		t.Fatalf("set should lower to a sequence: %s", got)
	}
}

func TestMarshalJSON_StringifiesAnyKeyedMaps(t *testing.T) {
	data, err := codec.MarshalJSON(map[any]any{int64(1): "one"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"1":"one"}` {
		t.Fatalf("unexpected encoding: %s", data)
	}
}
