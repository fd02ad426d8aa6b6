// Package webtext holds the text-assembly helpers for hand-built HTML and
// URLs: context-aware escaping, URL query merging and indented multi-line
// literals. The HTML type marks a string as already escaped so fragments
// compose without double-escaping.
package webtext

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

// HTML marks text that is already safe to splice into a document. Text
// passes it through untouched.
type HTML string

// stringify renders a value for escaping. nil becomes the empty string so
// optional values never print "<nil>".
func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Text escapes a value for element content. HTML values pass through as-is.
func Text(v any) HTML {
	if h, ok := v.(HTML); ok {
		return h
	}
	return HTML(html.EscapeString(stringify(v)))
}

// Attr escapes and double-quotes a value for use as an attribute.
func Attr(v any) HTML {
	s := strings.NewReplacer(
		`&`, "&amp;",
		`<`, "&lt;",
		`>`, "&gt;",
		`"`, "&quot;",
	).Replace(stringify(v))
	return HTML(`"` + s + `"`)
}

// URLComponent escapes a value for embedding in a query string, with
// spaces as "+".
func URLComponent(v any) string {
	return url.QueryEscape(stringify(v))
}

// Join concatenates pre-escaped fragments.
func Join(parts ...HTML) HTML {
	b := &strings.Builder{}
	for _, p := range parts {
		b.WriteString(string(p))
	}
	return HTML(b.String())
}

// JoinFunc renders each element through f and concatenates the results.
func JoinFunc[T any](items []T, f func(T) HTML) HTML {
	b := &strings.Builder{}
	for _, it := range items {
		b.WriteString(string(f(it)))
	}
	return HTML(b.String())
}

// URLOption adjusts one aspect of a URL during Merge.
type URLOption func(*urlEdit)

type urlEdit struct {
	appended [][2]string
	replaced [][2]string
	dropped  []string
	path     *string
	fragment *string
}

// WithAppended appends a query parameter, keeping any existing values for
// the same name.
func WithAppended(name, value string) URLOption {
	return func(e *urlEdit) { e.appended = append(e.appended, [2]string{name, value}) }
}

// WithParam replaces every existing value of name with one value.
func WithParam(name, value string) URLOption {
	return func(e *urlEdit) { e.replaced = append(e.replaced, [2]string{name, value}) }
}

// WithoutParam removes every value of name.
func WithoutParam(name string) URLOption {
	return func(e *urlEdit) { e.dropped = append(e.dropped, name) }
}

// WithPath replaces the URL path.
func WithPath(path string) URLOption {
	return func(e *urlEdit) { e.path = &path }
}

// WithFragment replaces the fragment. An empty string clears it.
func WithFragment(fragment string) URLOption {
	return func(e *urlEdit) { e.fragment = &fragment }
}

// MergeURL rewrites one URL: existing query parameters keep their order,
// appended ones land at the end, replaced ones are filtered out first and
// re-added last.
func MergeURL(rawURL string, opts ...URLOption) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	var e urlEdit
	for _, opt := range opts {
		opt(&e)
	}

	type pair struct{ name, value string }
	var qs []pair
	for _, part := range strings.Split(u.RawQuery, "&") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		dn, err := url.QueryUnescape(name)
		if err != nil {
			dn = name
		}
		dv, err := url.QueryUnescape(value)
		if err != nil {
			dv = value
		}
		qs = append(qs, pair{dn, dv})
	}
	for _, a := range e.appended {
		qs = append(qs, pair{a[0], a[1]})
	}

	drop := make(map[string]bool, len(e.dropped)+len(e.replaced))
	for _, n := range e.dropped {
		drop[n] = true
	}
	for _, r := range e.replaced {
		drop[r[0]] = true
	}
	kept := qs[:0]
	for _, p := range qs {
		if !drop[p.name] {
			kept = append(kept, p)
		}
	}
	qs = kept
	for _, r := range e.replaced {
		qs = append(qs, pair{r[0], r[1]})
	}

	parts := make([]string, len(qs))
	for i, p := range qs {
		parts[i] = url.QueryEscape(p.name) + "=" + url.QueryEscape(p.value)
	}
	u.RawQuery = strings.Join(parts, "&")

	if e.path != nil {
		u.Path = *e.path
	}
	if e.fragment != nil {
		u.Fragment = *e.fragment
	}
	return u.String(), nil
}

// StripIndent trims the common leading indentation of an indented literal:
// the first line's indentation (or prefix, when given) is removed from
// every line that carries it. The literal must start with a newline and
// end with a newline plus only whitespace.
func StripIndent(text string, prefix ...string) (string, error) {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return "", nil
	}
	if strings.TrimSpace(lines[len(lines)-1]) != "" {
		return "", fmt.Errorf("webtext: only whitespace may follow the last newline")
	}
	body := lines[:len(lines)-1]

	p := ""
	if len(prefix) > 0 {
		p = prefix[0]
	} else if len(body) > 0 {
		first := body[0]
		p = first[:len(first)-len(strings.TrimLeft(first, " \t"))]
	}

	out := make([]string, len(body))
	for i, line := range body {
		out[i] = strings.TrimPrefix(line, p)
	}
	return strings.Join(out, "\n") + "\n", nil
}

// MustStripIndent is StripIndent for literals known to be well formed.
func MustStripIndent(text string, prefix ...string) string {
	s, err := StripIndent(text, prefix...)
	if err != nil {
		panic(err)
	}
	return s
}
