package granite

import "sync"

// handler binds the two halves of one type tag: attribute normalization
// (declaration time) and plan compilation (build time).
type handler struct {
	normalize func(c *Compiler, path string, a *attrs, n *Node) error
	compile   func(c *Compiler, n *Node) planFn
}

// Compiler owns the handler table. The default table covers the built-in
// type tags; custom compilers can extend it with Register before any
// Compile call. Compilers are not shared registries: two Compiler values
// never see each other's handlers.
type Compiler struct {
	handlers map[string]*handler
}

// NewCompiler returns a compiler with the built-in type handlers.
func NewCompiler() *Compiler {
	c := &Compiler{handlers: make(map[string]*handler, 12)}
	c.Register(TypeType, normalizeType, compileType)
	c.Register(TypeBoolean, normalizeBoolean, compileBoolean)
	c.Register(TypeInteger, normalizeNumber, compileInteger)
	c.Register(TypeDecimal, normalizeNumber, compileDecimal)
	c.Register(TypeFloat, normalizeNumber, compileFloat)
	c.Register(TypeEnum, normalizeEnum, compileEnum)
	c.Register(TypeString, normalizeString, compileString)
	c.Register(TypeEmail, normalizeString, compileString)
	c.Register(TypeObject, normalizeObject, compileObject)
	c.Register(TypeMap, normalizeMap, compileMap)
	c.Register(TypeSet, normalizeSet, compileSet)
	c.Register(TypeList, normalizeList, compileList)
	return c
}

// Register installs or replaces the handler for a type tag. Call before
// Compile; handlers captured by an already compiled Schema are unaffected.
func (c *Compiler) Register(tag string,
	normalize func(c *Compiler, path string, a *attrs, n *Node) error,
	compile func(c *Compiler, n *Node) planFn,
) {
	c.handlers[tag] = &handler{normalize: normalize, compile: compile}
}

// Compile normalizes the raw schema fragment and lowers it to a reusable
// plan. The returned Schema is immutable and safe for concurrent Validate
// calls.
func (c *Compiler) Compile(schema any) (*Schema, error) {
	n, err := c.normalize("", schema)
	if err != nil {
		return nil, err
	}
	return &Schema{node: n, plan: c.compilePlan(n)}, nil
}

var defaultCompiler = NewCompiler()

// DefaultCompiler returns the compiler behind the package-level Compile.
// Registering handlers on it affects every later package-level Compile.
func DefaultCompiler() *Compiler { return defaultCompiler }

// Compile builds a Schema with the default compiler.
func Compile(schema any) (*Schema, error) { return defaultCompiler.Compile(schema) }

// MustCompile is Compile that panics on a schema declaration error. Meant
// for package-level schema variables, like regexp.MustCompile.
func MustCompile(schema any) *Schema {
	s, err := Compile(schema)
	if err != nil {
		panic(err)
	}
	return s
}

// Schema is a compiled, reusable validation plan plus its canonical node
// tree. All state is written at compile time; Validate shares nothing
// between calls, so one Schema serves any number of goroutines.
type Schema struct {
	node *Node
	plan planFn
}

// Node returns the canonical root of the compiled schema, for
// introspection (documentation generators, form builders).
func (s *Schema) Node() *Node { return s.node }

// Validate coerces input against the schema. On success it returns the
// coerced output and a nil error; the input itself is never mutated. On
// validation failure it returns (nil, Issues) with every fault found in a
// single traversal. A panic inside the plan surfaces as *ExecError.
func (s *Schema) Validate(input any) (out any, err error) {
	r := &report{}
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, &ExecError{Path: r.path, Input: r.input, Cause: p}
		}
	}()
	v, ok := s.plan(r, "", input, faultCtx{value: input})
	if len(r.issues) > 0 {
		return nil, r.issues
	}
	if !ok {
		// A handler answered not-ok without reporting; treat as a defect.
		return nil, &ExecError{Path: r.path, Input: r.input, Cause: "plan failed without issues"}
	}
	return v, nil
}

// Cache memoizes compiled schemas under caller-chosen keys. Compilation
// runs at most once per key; concurrent lookups for the same key may race
// to compile but only one result wins.
type Cache struct {
	c       *Compiler
	entries sync.Map // key -> *Schema
}

// NewCache returns a cache backed by the given compiler, or the default
// compiler when c is nil.
func NewCache(c *Compiler) *Cache {
	if c == nil {
		c = defaultCompiler
	}
	return &Cache{c: c}
}

// Get returns the compiled schema for key, compiling the fragment on first
// use.
func (ca *Cache) Get(key string, schema any) (*Schema, error) {
	if v, ok := ca.entries.Load(key); ok {
		return v.(*Schema), nil
	}
	s, err := ca.c.Compile(schema)
	if err != nil {
		return nil, err
	}
	actual, _ := ca.entries.LoadOrStore(key, s)
	return actual.(*Schema), nil
}
