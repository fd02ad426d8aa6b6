package granite

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// Type tags understood by the default compiler.
const (
	TypeType    = "Type" // passthrough / any
	TypeBoolean = "Boolean"
	TypeInteger = "Integer"
	TypeDecimal = "Decimal"
	TypeFloat   = "Float"
	TypeEnum    = "Enum"
	TypeString  = "String"
	TypeEmail   = "Email"
	TypeObject  = "Object"
	TypeMap     = "Map"
	TypeSet     = "Set"
	TypeList    = "List"
)

// Node is the canonical, immutable description of one constrained type,
// produced by normalization. A Node tree is built once per schema and then
// shared read-only by arbitrarily many plan executions.
type Node struct {
	Type     string
	Nullable bool

	// Label and Help are documentation only; validation never reads them.
	Label string
	Help  string

	// Default is substituted (deep-cloned per use) when the input is null.
	// nil means no default.
	Default any

	// Source is an optional provenance tag, diagnostic only.
	Source string

	// Integer/Decimal/Float bounds. Stored as decimals so one comparison
	// path serves all three numeric kinds.
	MinValue *decimal.Decimal
	MaxValue *decimal.Decimal

	// String/Email constraints. List reuses MinLength/MaxLength for its
	// element-count bounds and adds Length for an exact count.
	MinLength *int
	MaxLength *int
	Length    *int
	Strip     bool
	Regex     *regexp.Regexp
	RegexSrc  string

	// Enum allowed values, as normalized scalars.
	Values []any

	// Object fields in deterministic (name-sorted) order, plus the
	// unknown-key policy.
	Fields      []ObjectField
	AllowExtra  bool
	fieldByName map[string]*Node

	// Map key/value types; Set and List use ValueType only.
	KeyType   *Node
	ValueType *Node
}

// ObjectField pairs a declared field name with its child node.
type ObjectField struct {
	Name string
	Node *Node
}

// joinPath extends a diagnostic path with one segment. The root path is
// empty so top-level fields render as plain names ("Name", "Tags/+ValueType").
func joinPath(base, seg string) string {
	if base == "" {
		return seg
	}
	return base + "/" + seg
}
