// Package granite compiles declarative schemas into reusable validation
// plans.
//
// A schema is a nested mapping (or a "TypeName"/"TypeName?" string
// shorthand) describing a constrained type: scalars (Boolean, Integer,
// Decimal, Float, String, Email, Enum), composites (Object, Map, Set,
// List) and the Type passthrough. Compile normalizes the declaration into
// an immutable Node tree, then lowers it into a tree of composed validator
// closures. Validate runs one input through the plan and either returns
// the fully coerced output or an Issues error carrying every violation
// found during the traversal; a field failure never hides its siblings.
//
// Design policy:
// - Keep only public APIs in the root package; adapters live in codec/,
//   redisx/, pgsql/, webtext/ and middleware/.
// - Compilation is pure and happens once per schema; a compiled Schema is
//   read-only and safe for concurrent Validate calls.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	s := granite.MustCompile(map[string]any{
//		"+Type": "Object",
//		"Name":  map[string]any{"+Type": "String", "+MaxLength": 64},
//		"Age":   "Integer?",
//	})
//	out, err := s.Validate(input)
package granite
