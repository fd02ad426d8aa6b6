// Package pgsql layers a small SQL templating scheme over pgx. Queries
// name their parameters ($user_id, not $1) and declare field lists once;
// Expand rewrites them into positional form and a parameter slice. The
// markers [Field], [Value] and [Field=Value] expand to the declared field
// list so INSERT and UPDATE statements never repeat column names.
package pgsql

import (
	"fmt"
	"regexp"
	"strings"
)

// Expr marks a string as trusted SQL text. Field expressions are spliced
// verbatim into the statement, so only literals belong here, never user
// input.
type Expr string

// Field declares one column taking part in [Field]/[Value] expansion.
type Field struct {
	Name  string
	Value any
	// Expr overrides the value placeholder. Empty means "$Name".
	Expr string
	// bound records whether Value was given, so a nil value and an
	// unbound column stay distinguishable.
	bound bool
}

// Col declares a column whose value arrives through Named.
func Col(name string) Field { return Field{Name: name, Expr: "$" + name} }

// Val declares a column bound to a value.
func Val(name string, value any) Field {
	return Field{Name: name, Value: value, Expr: "$" + name, bound: true}
}

// Raw declares a column whose value is a SQL expression, such as now().
func Raw(name string, expr Expr) Field {
	return Field{Name: name, Expr: string(expr)}
}

// ValExpr declares a column with both a bound value and a custom
// expression referencing it, such as Crypt("Password", pw) expanding to
// crypt($Password, gen_salt('bf')).
func ValExpr(name string, value any, expr Expr) Field {
	return Field{Name: name, Value: value, Expr: string(expr), bound: true}
}

var (
	identifierRe = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_()\[\]@|-]*$`)
	markerRe     = regexp.MustCompile(`\[(Field|Value|Field=Value)\]`)
	namedParamRe = regexp.MustCompile(`\$([a-zA-Z][a-zA-Z0-9_]*)`)
)

// Expand resolves one templated statement. Fields feed the [...] markers
// and bind their values; named binds extra $name parameters that appear
// only in the SQL text. The result is positional SQL plus its parameter
// slice, ready for pgx.
func Expand(query string, fields []Field, named map[string]any) (string, []any, error) {
	values := make(map[string]any, len(fields)+len(named))
	names := make([]string, 0, len(fields))
	exprs := make([]string, 0, len(fields))

	for _, f := range fields {
		if !identifierRe.MatchString(f.Name) {
			return "", nil, fmt.Errorf("pgsql: invalid field name %q", f.Name)
		}
		names = append(names, `"`+f.Name+`"`)
		exprs = append(exprs, f.Expr)
		if f.bound {
			values[f.Name] = f.Value
		} else {
			values[f.Name] = nil
		}
	}
	for k, v := range named {
		if !identifierRe.MatchString(k) {
			return "", nil, fmt.Errorf("pgsql: invalid parameter name %q", k)
		}
		if _, dup := values[k]; dup {
			return "", nil, fmt.Errorf("pgsql: parameter %q already declared as a field", k)
		}
		values[k] = v
	}

	query = markerRe.ReplaceAllStringFunc(query, func(m string) string {
		switch m {
		case "[Field]":
			return strings.Join(names, ", ")
		case "[Value]":
			return strings.Join(exprs, ", ")
		default: // [Field=Value]
			pairs := make([]string, len(names))
			for i := range names {
				pairs[i] = names[i] + "=" + exprs[i]
			}
			return strings.Join(pairs, ", ")
		}
	})

	// Rewrite $name to $1, $2, ... in order of first appearance. A name
	// referenced twice binds the same position.
	positions := make(map[string]int)
	params := make([]any, 0, len(values))
	var expandErr error
	out := namedParamRe.ReplaceAllStringFunc(query, func(m string) string {
		name := m[1:]
		if pos, seen := positions[name]; seen {
			return fmt.Sprintf("$%d", pos)
		}
		v, known := values[name]
		if !known {
			if expandErr == nil {
				expandErr = fmt.Errorf("pgsql: parameter %q referenced in SQL but never bound", name)
			}
			return m
		}
		params = append(params, v)
		positions[name] = len(params)
		return fmt.Sprintf("$%d", len(params))
	})
	if expandErr != nil {
		return "", nil, expandErr
	}
	return out, params, nil
}
