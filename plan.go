package granite

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// planFn is one compiled node: it coerces a single input value, recording
// any fault in the report and answering ok=false so siblings and ancestors
// keep going. fc carries the key/value attribution the enclosing container
// wants on fault records. Recursion depth is a genuine call frame here;
// nothing is shared between invocations except the read-only closure state.
type planFn func(r *report, path string, in any, fc faultCtx) (any, bool)

// faultCtx is the container-supplied context stamped onto Issue records.
type faultCtx struct {
	key   any
	value any
}

// report is the per-invocation error aggregator. It also tracks the last
// node entered so an execution fault can say where it happened.
type report struct {
	issues Issues
	path   string
	input  any
}

func (r *report) fail(path, code, msg string, fc faultCtx) {
	if path == "" {
		path = "<Data>"
	}
	r.issues = append(r.issues, Issue{Path: path, Code: code, Message: msg, Key: fc.key, Value: fc.value})
}

// compilePlan lowers one Node into its closure. Step order per node:
// default substitution, null handling, then the type handler's own
// coercion/constraint body.
func (c *Compiler) compilePlan(n *Node) planFn {
	body := c.handlers[n.Type].compile(c, n)
	def := n.Default
	nullable := n.Nullable
	return func(r *report, path string, in any, fc faultCtx) (any, bool) {
		r.path, r.input = path, in
		if in == nil {
			if def != nil {
				in = deepCopy(def)
			} else if nullable {
				return nil, true
			} else {
				r.fail(path, CodeNull, "value must not be null", fc)
				return undef, false
			}
		}
		return body(r, path, in, fc)
	}
}

// ---- scalar handlers ----

func compileType(_ *Compiler, _ *Node) planFn {
	return func(_ *report, _ string, in any, _ faultCtx) (any, bool) { return in, true }
}

func compileBoolean(_ *Compiler, _ *Node) planFn {
	return func(_ *report, _ string, in any, _ faultCtx) (any, bool) { return truthy(in), true }
}

func compileInteger(_ *Compiler, n *Node) planFn {
	min, max := n.MinValue, n.MaxValue
	return func(r *report, path string, in any, fc faultCtx) (any, bool) {
		i, err := coerceInt64(in)
		if err != nil {
			r.fail(path, CodeInvalidType, err.Error(), fc)
			return undef, false
		}
		if !checkRange(r, path, decimal.NewFromInt(i), min, max, fc) {
			return undef, false
		}
		return i, true
	}
}

func compileDecimal(_ *Compiler, n *Node) planFn {
	min, max := n.MinValue, n.MaxValue
	return func(r *report, path string, in any, fc faultCtx) (any, bool) {
		d, err := toDecimal(in)
		if err != nil {
			r.fail(path, CodeInvalidType, fmt.Sprintf("cannot convert %v to decimal", in), fc)
			return undef, false
		}
		if !checkRange(r, path, d, min, max, fc) {
			return undef, false
		}
		return d, true
	}
}

func compileFloat(_ *Compiler, n *Node) planFn {
	min, max := n.MinValue, n.MaxValue
	return func(r *report, path string, in any, fc faultCtx) (any, bool) {
		f, err := coerceFloat64(in)
		if err != nil {
			r.fail(path, CodeInvalidType, err.Error(), fc)
			return undef, false
		}
		// NaN and the infinities are valid floats but have no decimal
		// form; range comparisons against them are vacuous anyway.
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return f, true
		}
		if !checkRange(r, path, decimal.NewFromFloat(f), min, max, fc) {
			return undef, false
		}
		return f, true
	}
}

func compileEnum(_ *Compiler, n *Node) planFn {
	values := n.Values
	return func(r *report, path string, in any, fc faultCtx) (any, bool) {
		if !enumContains(values, in) {
			r.fail(path, CodeInvalidEnum, fmt.Sprintf("value must be one of %v", values), fc)
			return undef, false
		}
		return in, true
	}
}

func compileString(_ *Compiler, n *Node) planFn {
	strip, minLen, maxLen, re, reSrc := n.Strip, n.MinLength, n.MaxLength, n.Regex, n.RegexSrc
	return func(r *report, path string, in any, fc faultCtx) (any, bool) {
		s, err := coerceString(in)
		if err != nil {
			r.fail(path, CodeInvalidType, err.Error(), fc)
			return undef, false
		}
		if strip {
			s = strings.TrimSpace(s)
		}
		// Length bounds count characters, not bytes.
		if minLen != nil && utf8.RuneCountInString(s) < *minLen {
			r.fail(path, CodeTooShort, "input too short", fc)
			return undef, false
		}
		if maxLen != nil && utf8.RuneCountInString(s) > *maxLen {
			r.fail(path, CodeTooLong, "input too long", fc)
			return undef, false
		}
		if re != nil && !re.MatchString(s) {
			r.fail(path, CodePattern, "does not match regex: "+reSrc, fc)
			return undef, false
		}
		return s, true
	}
}

// ---- composite handlers ----

func compileObject(c *Compiler, n *Node) planFn {
	type fieldPlan struct {
		name string
		fn   planFn
	}
	fields := make([]fieldPlan, 0, len(n.Fields))
	for _, f := range n.Fields {
		fields = append(fields, fieldPlan{name: f.Name, fn: c.compilePlan(f.Node)})
	}
	known := n.fieldByName
	allowExtra := n.AllowExtra
	return func(r *report, path string, in any, fc faultCtx) (any, bool) {
		src, ok := in.(map[string]any)
		if !ok {
			r.fail(path, CodeInvalidType, fmt.Sprintf("invalid type: %v", in), fc)
			return undef, false
		}
		before := len(r.issues)
		out := make(map[string]any, len(src))
		for _, f := range fields {
			fin := src[f.name] // missing keys come through as null
			fv, fok := f.fn(r, joinPath(path, f.name), fin, faultCtx{value: fin})
			if fok {
				out[f.name] = fv
			}
		}
		if allowExtra {
			for k, v := range src {
				if _, declared := known[k]; !declared {
					out[k] = v
				}
			}
		}
		return out, len(r.issues) == before
	}
}

func compileMap(c *Compiler, n *Node) planFn {
	keyFn := c.compilePlan(n.KeyType)
	valFn := c.compilePlan(n.ValueType)
	return func(r *report, path string, in any, fc faultCtx) (any, bool) {
		src, ok := mappingEntries(in)
		if !ok {
			r.fail(path, CodeInvalidType, fmt.Sprintf("must be a mapping: %v", in), fc)
			return undef, false
		}
		before := len(r.issues)
		out := make(map[any]any, len(src))
		for _, e := range src {
			kv, kok := keyFn(r, joinPath(path, "+KeyType"), e.key, faultCtx{key: e.key})
			vv, vok := valFn(r, joinPath(path, "+ValueType"), e.val, faultCtx{key: e.key, value: e.val})
			if !kok || !vok {
				continue
			}
			if !isComparable(kv) {
				r.fail(joinPath(path, "+KeyType"), CodeInvalidType, fmt.Sprintf("unhashable map key: %v", e.key), faultCtx{key: e.key})
				continue
			}
			out[kv] = vv
		}
		return out, len(r.issues) == before
	}
}

func compileSet(c *Compiler, n *Node) planFn {
	elemFn := c.compilePlan(n.ValueType)
	return func(r *report, path string, in any, fc faultCtx) (any, bool) {
		if _, isStr := in.(string); isStr {
			r.fail(path, CodeInvalidType, fmt.Sprintf("must be iterable but not a string: %v", in), fc)
			return undef, false
		}
		src, ok := in.([]any)
		if !ok {
			r.fail(path, CodeInvalidType, fmt.Sprintf("must be iterable: %v", in), fc)
			return undef, false
		}
		before := len(r.issues)
		out := make(map[any]struct{}, len(src))
		epath := joinPath(path, "+ValueType")
		for _, e := range src {
			ev, eok := elemFn(r, epath, e, faultCtx{value: e})
			if !eok {
				continue
			}
			if !isComparable(ev) {
				r.fail(epath, CodeInvalidType, fmt.Sprintf("unhashable set element: %v", e), faultCtx{value: e})
				continue
			}
			out[ev] = struct{}{} // duplicates collapse
		}
		return out, len(r.issues) == before
	}
}

func compileList(c *Compiler, n *Node) planFn {
	elemFn := c.compilePlan(n.ValueType)
	length, minLen, maxLen := n.Length, n.MinLength, n.MaxLength
	return func(r *report, path string, in any, fc faultCtx) (any, bool) {
		if _, isStr := in.(string); isStr {
			r.fail(path, CodeInvalidType, fmt.Sprintf("must be iterable but not a string: %v", in), fc)
			return undef, false
		}
		src, ok := in.([]any)
		if !ok {
			r.fail(path, CodeInvalidType, fmt.Sprintf("must be iterable: %v", in), fc)
			return undef, false
		}
		before := len(r.issues)
		out := make([]any, 0, len(src))
		for i, e := range src {
			ev, eok := elemFn(r, joinPath(path, strconv.Itoa(i)), e, faultCtx{key: i, value: e})
			if eok {
				out = append(out, ev)
			}
		}
		// Count constraints apply to the input element count, after every
		// element has had its chance to report.
		cnt := len(src)
		if length != nil && cnt != *length {
			r.fail(path, CodeBadLength, fmt.Sprintf("list must contain exactly %d items, but contains %d items", *length, cnt), fc)
		}
		if maxLen != nil && cnt > *maxLen {
			r.fail(path, CodeTooLong, fmt.Sprintf("list must contain at most %d items", *maxLen), fc)
		}
		if minLen != nil && cnt < *minLen {
			r.fail(path, CodeTooShort, fmt.Sprintf("list must contain at least %d items", *minLen), fc)
		}
		return out, len(r.issues) == before
	}
}

// ---- coercion primitives ----

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int8:
		return t != 0
	case int16:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case uint:
		return t != 0
	case uint64:
		return t != 0
	case float32:
		return t != 0
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case decimal.Decimal:
		return !t.IsZero()
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case map[any]any:
		return len(t) > 0
	case map[any]struct{}:
		return len(t) > 0
	default:
		return true
	}
}

func coerceInt64(v any) (int64, error) {
	switch t := v.(type) {
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("integer overflow: %v", t)
		}
		return int64(t), nil
	case float32:
		return coerceInt64(float64(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("cannot convert %v to integer", t)
		}
		// Truncation toward zero, matching int() in the original.
		return int64(t), nil
	case decimal.Decimal:
		return t.IntPart(), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		if f, err := t.Float64(); err == nil {
			return int64(f), nil
		}
		return 0, fmt.Errorf("cannot convert %v to integer", t)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to integer", t)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", v)
	}
}

func coerceFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	case decimal.Decimal:
		f, _ := t.Float64()
		return f, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("cannot convert %v to float", t)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}

func coerceString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case json.Number:
		return t.String(), nil
	case decimal.Decimal:
		return t.String(), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", v)
	}
}

func checkRange(r *report, path string, d decimal.Decimal, min, max *decimal.Decimal, fc faultCtx) bool {
	if min != nil && d.Cmp(*min) < 0 {
		r.fail(path, CodeTooSmall, fmt.Sprintf("value must be at least %s", min.String()), fc)
		return false
	}
	if max != nil && d.Cmp(*max) > 0 {
		r.fail(path, CodeTooBig, fmt.Sprintf("value must be at most %s", max.String()), fc)
		return false
	}
	return true
}

// enumContains compares with numeric awareness so 2, 2.0 and json.Number("2")
// all hit the same allowed value.
func enumContains(values []any, v any) bool {
	vd, vNum := tryDecimal(v)
	for _, allowed := range values {
		if vNum {
			if ad, aNum := tryDecimal(allowed); aNum {
				if vd.Equal(ad) {
					return true
				}
				continue
			}
		}
		if reflect.DeepEqual(allowed, v) {
			return true
		}
	}
	return false
}

func tryDecimal(v any) (decimal.Decimal, bool) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint64, float32, float64, json.Number, decimal.Decimal:
		d, err := toDecimal(v)
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

type mapEntry struct {
	key any
	val any
}

// mappingEntries flattens a mapping input into deterministically ordered
// key/value pairs so error order is stable run to run.
func mappingEntries(in any) ([]mapEntry, bool) {
	switch t := in.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]mapEntry, 0, len(keys))
		for _, k := range keys {
			out = append(out, mapEntry{key: k, val: t[k]})
		}
		return out, true
	case map[any]any:
		out := make([]mapEntry, 0, len(t))
		for k, v := range t {
			out = append(out, mapEntry{key: k, val: v})
		}
		sort.Slice(out, func(i, j int) bool {
			return fmt.Sprint(out[i].key) < fmt.Sprint(out[j].key)
		})
		return out, true
	default:
		return nil, false
	}
}

func isComparable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}
