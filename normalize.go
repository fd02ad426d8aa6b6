package granite

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// attrs is the raw attribute mapping of one schema fragment. Handlers pop
// the keys they understand; anything left over after normalization is a
// declaration fault.
type attrs struct{ m map[string]any }

func newAttrs(src map[string]any) *attrs {
	m := make(map[string]any, len(src))
	for k, v := range src {
		m[k] = v
	}
	return &attrs{m: m}
}

func (a *attrs) pop(key string) (any, bool) {
	v, ok := a.m[key]
	if ok {
		delete(a.m, key)
	}
	return v, ok
}

func (a *attrs) remaining() []string {
	keys := make([]string, 0, len(a.m))
	for k := range a.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalize turns one raw schema fragment into a canonical Node. The
// fragment is either a bare "TypeName"/"TypeName?" string or a mapping of
// reserved (+Key) and field attributes.
func (c *Compiler) normalize(path string, raw any) (*Node, error) {
	var src map[string]any
	switch t := raw.(type) {
	case string:
		if name, ok := strings.CutSuffix(t, "?"); ok {
			src = map[string]any{"+Type": name, "+None": true}
		} else {
			src = map[string]any{"+Type": t}
		}
	case map[string]any:
		src = t
	default:
		return nil, schemaErrf(path, "schema fragment must be a string or a mapping, not %T", raw)
	}

	a := newAttrs(src)
	n := &Node{}

	if v, ok := a.pop("+Source"); ok && v != nil {
		s, err := stringAttr(path, "+Source", v)
		if err != nil {
			return nil, err
		}
		n.Source = s
	}

	tv, ok := a.pop("+Type")
	if !ok {
		return nil, schemaErrf(path, "missing `+Type`")
	}
	tag, ok := tv.(string)
	if !ok {
		return nil, schemaErrf(path, "`+Type` must be a string, not %T", tv)
	}
	if name, suffixed := strings.CutSuffix(tag, "?"); suffixed {
		tag = name
		n.Nullable = true
		if _, dup := a.m["+None"]; dup {
			return nil, schemaErrf(path, "`+Type` ended with `?` yet `+None` was specified anyway")
		}
	} else if v, has := a.pop("+None"); has {
		n.Nullable = truthy(v)
	}
	n.Type = tag

	// Label defaults to the last path segment, like the original.
	n.Label = lastSegment(path)
	if v, has := a.pop("+Label"); has && v != nil {
		s, err := stringAttr(path, "+Label", v)
		if err != nil {
			return nil, err
		}
		n.Label = s
	}
	if v, has := a.pop("+Help"); has && v != nil {
		s, err := stringAttr(path, "+Help", v)
		if err != nil {
			return nil, err
		}
		n.Help = s
	}

	h, ok := c.handlers[tag]
	if !ok {
		return nil, schemaErrf(path, "unrecognized type `%s`", tag)
	}
	if err := h.normalize(c, path, a, n); err != nil {
		return nil, err
	}

	// Cloned so sibling nodes never alias a shared default value.
	if v, has := a.pop("+Default"); has {
		n.Default = deepCopy(v)
	}

	if extra := a.remaining(); len(extra) > 0 {
		return nil, schemaErrf(path, "unrecognized attributes for type `%s`: %s", tag, strings.Join(extra, ", "))
	}
	return n, nil
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ---- per-type attribute normalization ----

func normalizeType(_ *Compiler, _ string, _ *attrs, _ *Node) error { return nil }

func normalizeBoolean(_ *Compiler, _ string, _ *attrs, _ *Node) error { return nil }

func normalizeNumber(_ *Compiler, path string, a *attrs, n *Node) error {
	var err error
	if n.MaxValue, err = popDecimalAttr(path, a, "+MaxValue"); err != nil {
		return err
	}
	if n.MinValue, err = popDecimalAttr(path, a, "+MinValue"); err != nil {
		return err
	}
	return nil
}

func normalizeEnum(_ *Compiler, path string, a *attrs, n *Node) error {
	v, ok := a.pop("+Values")
	if !ok {
		return schemaErrf(path, "missing `+Values` for type `Enum`")
	}
	vals, ok := v.([]any)
	if !ok || len(vals) == 0 {
		return schemaErrf(path, "`+Values` must be a non-empty sequence, not %T", v)
	}
	n.Values = append([]any(nil), vals...)
	return nil
}

func normalizeString(_ *Compiler, path string, a *attrs, n *Node) error {
	var err error
	if n.MaxLength, err = popIntAttr(path, a, "+MaxLength"); err != nil {
		return err
	}
	if n.MinLength, err = popIntAttr(path, a, "+MinLength"); err != nil {
		return err
	}
	n.Strip = true
	if v, ok := a.pop("+Strip"); ok {
		n.Strip = v != nil && truthy(v)
	}
	if v, ok := a.pop("+Regex"); ok && v != nil {
		src, serr := stringAttr(path, "+Regex", v)
		if serr != nil {
			return serr
		}
		// Match anchored at the start, like the original's re.match.
		re, cerr := regexp.Compile(`\A(?:` + src + `)`)
		if cerr != nil {
			return schemaErrf(path, "invalid `+Regex`: %v", cerr)
		}
		n.Regex = re
		n.RegexSrc = src
	}
	return nil
}

func normalizeObject(c *Compiler, path string, a *attrs, n *Node) error {
	if v, ok := a.pop("+Extra"); ok {
		n.AllowExtra = v != nil && truthy(v)
	}
	names := make([]string, 0, len(a.m))
	for k := range a.m {
		if !strings.HasPrefix(k, "+") {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	n.Fields = make([]ObjectField, 0, len(names))
	n.fieldByName = make(map[string]*Node, len(names))
	for _, name := range names {
		raw, _ := a.pop(name)
		child, err := c.normalize(joinPath(path, name), raw)
		if err != nil {
			return err
		}
		n.Fields = append(n.Fields, ObjectField{Name: name, Node: child})
		n.fieldByName[name] = child
	}
	return nil
}

func normalizeMap(c *Compiler, path string, a *attrs, n *Node) error {
	var err error
	if n.KeyType, err = popChildType(c, path, a, "+KeyType"); err != nil {
		return err
	}
	n.ValueType, err = popChildType(c, path, a, "+ValueType")
	return err
}

func normalizeSet(c *Compiler, path string, a *attrs, n *Node) error {
	var err error
	n.ValueType, err = popChildType(c, path, a, "+ValueType")
	return err
}

func normalizeList(c *Compiler, path string, a *attrs, n *Node) error {
	var err error
	if n.Length, err = popIntAttr(path, a, "+Length"); err != nil {
		return err
	}
	if n.MaxLength, err = popIntAttr(path, a, "+MaxLength"); err != nil {
		return err
	}
	if n.MinLength, err = popIntAttr(path, a, "+MinLength"); err != nil {
		return err
	}
	n.ValueType, err = popChildType(c, path, a, "+ValueType")
	return err
}

func popChildType(c *Compiler, path string, a *attrs, key string) (*Node, error) {
	raw, ok := a.pop(key)
	if !ok {
		return nil, schemaErrf(path, "missing `%s`", key)
	}
	return c.normalize(joinPath(path, key), raw)
}

// ---- attribute value coercion ----

func stringAttr(path, name string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", schemaErrf(path, "`%s` must be a string, not %T", name, v)
	}
	return s, nil
}

func popIntAttr(path string, a *attrs, name string) (*int, error) {
	v, ok := a.pop(name)
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case int:
		return &t, nil
	case int64:
		i := int(t)
		return &i, nil
	case float64:
		i := int(t)
		if float64(i) != t {
			return nil, schemaErrf(path, "`%s` must be an integer, got %v", name, t)
		}
		return &i, nil
	case json.Number:
		i64, err := t.Int64()
		if err != nil {
			return nil, schemaErrf(path, "`%s` must be an integer, got %v", name, t)
		}
		i := int(i64)
		return &i, nil
	case string:
		if t == "" {
			return nil, nil
		}
		var i int
		if _, err := fmt.Sscanf(t, "%d", &i); err != nil {
			return nil, schemaErrf(path, "`%s` must be an integer, got %q", name, t)
		}
		return &i, nil
	default:
		return nil, schemaErrf(path, "`%s` must be an integer, not %T", name, v)
	}
}

func popDecimalAttr(path string, a *attrs, name string) (*decimal.Decimal, error) {
	v, ok := a.pop(name)
	if !ok || v == nil {
		return nil, nil
	}
	d, err := toDecimal(v)
	if err != nil {
		return nil, schemaErrf(path, "`%s` must be numeric, got %v", name, v)
	}
	return &d, nil
}

// toDecimal converts any supported numeric representation to a decimal.
func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int8:
		return decimal.NewFromInt(int64(t)), nil
	case int16:
		return decimal.NewFromInt(int64(t)), nil
	case int32:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case uint:
		return decimal.NewFromUint64(uint64(t)), nil
	case uint64:
		return decimal.NewFromUint64(t), nil
	case float32:
		return toDecimal(float64(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Decimal{}, fmt.Errorf("not a finite number: %v", t)
		}
		return decimal.NewFromFloat(t), nil
	case json.Number:
		return decimal.NewFromString(t.String())
	case string:
		if t == "" {
			return decimal.Decimal{}, fmt.Errorf("empty string is not numeric")
		}
		return decimal.NewFromString(t)
	default:
		return decimal.Decimal{}, fmt.Errorf("not numeric: %T", v)
	}
}
