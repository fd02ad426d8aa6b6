package granite

import (
	"strings"
	"testing"
)

func TestValidate_PanicBecomesExecError(t *testing.T) {
	c := NewCompiler()
	c.Register("Exploding",
		func(_ *Compiler, _ string, _ *attrs, _ *Node) error { return nil },
		func(_ *Compiler, _ *Node) planFn {
			return func(_ *report, _ string, _ any, _ faultCtx) (any, bool) {
				panic("handler defect")
			}
		},
	)
	s, err := c.Compile(map[string]any{
		"+Type": "Object",
		"Boom":  "Exploding",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = s.Validate(map[string]any{"Boom": 1})
	ee, ok := err.(*ExecError)
	if !ok {
		t.Fatalf("want *ExecError, got %v", err)
	}
	if ee.Path != "Boom" || ee.Input != 1 {
		t.Fatalf("fault context lost: %+v", ee)
	}
	if !strings.Contains(ee.Error(), "handler defect") {
		t.Fatalf("cause missing from message: %v", ee)
	}
}

func TestRegister_CustomTypeParticipatesFully(t *testing.T) {
	c := NewCompiler()
	c.Register("Upper",
		normalizeString,
		func(cc *Compiler, n *Node) planFn {
			inner := compileString(cc, n)
			return func(r *report, path string, in any, fc faultCtx) (any, bool) {
				v, ok := inner(r, path, in, fc)
				if !ok {
					return v, ok
				}
				return strings.ToUpper(v.(string)), true
			}
		},
	)
	s, err := c.Compile(map[string]any{"+Type": "Upper", "+MaxLength": 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := s.Validate("ab")
	if err != nil || out != "AB" {
		t.Fatalf("want AB, got %v (%v)", out, err)
	}
	if _, err := s.Validate("toolong"); err == nil {
		t.Fatalf("inherited constraint not enforced")
	}
}

func TestIssues_ErrorSummarizesFirstThree(t *testing.T) {
	iss := Issues{
		{Path: "A", Code: CodeNull, Message: "value must not be null"},
		{Path: "B", Code: CodeTooLong, Message: "input too long"},
		{Path: "C", Code: CodeTooShort, Message: "input too short"},
		{Path: "D", Code: CodePattern, Message: "does not match regex: x"},
	}
	msg := iss.Error()
	if !strings.Contains(msg, "null_value at A") || !strings.Contains(msg, "(total 4)") {
		t.Fatalf("unexpected summary: %q", msg)
	}
	if strings.Contains(msg, "at D") {
		t.Fatalf("summary should truncate: %q", msg)
	}
}

func TestDeepCopy_NestedContainers(t *testing.T) {
	src := map[string]any{
		"list": []any{map[string]any{"k": "v"}},
		"set":  map[any]struct{}{"a": {}},
	}
	dup := deepCopy(src).(map[string]any)
	dup["list"].([]any)[0].(map[string]any)["k"] = "changed"
	if src["list"].([]any)[0].(map[string]any)["k"] != "v" {
		t.Fatalf("deep copy aliased nested map")
	}
}
