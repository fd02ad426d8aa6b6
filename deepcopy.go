package granite

// deepCopy clones a value of the canonical vocabulary: maps, slices and
// sets recursively, everything else as-is (scalars and decimals are
// immutable values). Defaults are cloned through this on every
// substitution so no two outputs ever alias the declared default.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case map[any]struct{}:
		out := make(map[any]struct{}, len(t))
		for k := range t {
			out[k] = struct{}{}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}
