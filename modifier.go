package operation

// Modifier wraps an operation's run body with cross-cutting behavior
// (retry, deduplication, suspension, logging), generalized from the
// teacher's Extension.Wrap chaining. Modifiers compose right-to-left: the
// last Modifier applied is the outermost layer a caller's Run sees.
type Modifier[R any] func(next OperationFunc[R]) OperationFunc[R]

// Compose chains modifiers so mods[0] is innermost (closest to the body)
// and mods[len-1] is outermost.
func Compose[R any](base OperationFunc[R], mods ...Modifier[R]) OperationFunc[R] {
	fn := base
	for _, m := range mods {
		fn = m(fn)
	}
	return fn
}

// WithModifiers wraps op's run body with mods, outermost last, and returns
// a new Operation with the same path and state but the composed body.
func WithModifiers[S any, R any](op Operation[S, R], mods ...Modifier[R]) Operation[S, R] {
	return &modifiedOperation[S, R]{inner: op, wrapped: Compose(op.run, mods...)}
}

type modifiedOperation[S any, R any] struct {
	inner   Operation[S, R]
	wrapped OperationFunc[R]
}

func (m *modifiedOperation[S, R]) Path() Path                     { return m.inner.Path() }
func (m *modifiedOperation[S, R]) setup(ctx *Context) *Context     { return m.inner.setup(ctx) }
func (m *modifiedOperation[S, R]) newState() stateOps[S, R]        { return m.inner.newState() }
func (m *modifiedOperation[S, R]) run(ctx *Context, cont *Continuation[R]) (R, error) {
	return m.wrapped(ctx, cont)
}

// WithContextSetup returns a new Operation whose setup additionally applies
// f to the Context before each run. The construction-time options in
// contextmods.go (WithMaxRetries, WithAutomaticRunningSpec, ...) make the
// same kind of context-only change through chainSetup instead.
func WithContextSetup[S any, R any](op Operation[S, R], f func(*Context) *Context) Operation[S, R] {
	return &setupOperation[S, R]{inner: op, extra: f}
}

type setupOperation[S any, R any] struct {
	inner Operation[S, R]
	extra func(*Context) *Context
}

func (s *setupOperation[S, R]) Path() Path { return s.inner.Path() }
func (s *setupOperation[S, R]) setup(ctx *Context) *Context {
	return s.extra(s.inner.setup(ctx))
}
func (s *setupOperation[S, R]) newState() stateOps[S, R] { return s.inner.newState() }
func (s *setupOperation[S, R]) run(ctx *Context, cont *Continuation[R]) (R, error) {
	return s.inner.run(ctx, cont)
}
