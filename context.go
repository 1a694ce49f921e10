package operation

import (
	stdcontext "context"
	"sync/atomic"
)

var keyTokenCounter atomic.Uint64

// Key is a type-safe identifier for a Context value, generalized from the
// teacher's executor/scope Tag[T] into a per-run Context key that carries
// its own default.
type Key[T any] struct {
	token uint64
	name  string
	def   T
}

// NewKey declares a new Context key with the given debug name and default
// value. Reading an unset key returns def.
func NewKey[T any](name string, def T) Key[T] {
	return Key[T]{token: keyTokenCounter.Add(1), name: name, def: def}
}

// Name returns the key's debug name.
func (k Key[T]) Name() string { return k.name }

// Context is a type-keyed, copy-on-write bag of ambient values threaded
// through an operation run.
type Context struct {
	values  map[uint64]any
	goCtx   stdcontext.Context
	cancels []stdcontext.CancelCauseFunc
}

// NewContext creates an empty Context bound to a Go context (used for
// cancellation and deadlines at the suspension points the operation body
// awaits on).
func NewContext(goCtx stdcontext.Context) *Context {
	if goCtx == nil {
		goCtx = stdcontext.Background()
	}
	return &Context{values: make(map[uint64]any), goCtx: goCtx}
}

// GoContext returns the context.Context a body should pass to any
// cancellable await (network call, delay, nested operation run).
func (c *Context) GoContext() stdcontext.Context {
	return c.goCtx
}

func (c *Context) clone() *Context {
	next := make(map[uint64]any, len(c.values))
	for k, v := range c.values {
		next[k] = v
	}
	return &Context{values: next, goCtx: c.goCtx}
}

// Get reads k's value from c, or k's declared default if unset.
func Get[T any](c *Context, k Key[T]) T {
	if c == nil {
		return k.def
	}
	if v, ok := c.values[k.token]; ok {
		return v.(T)
	}
	return k.def
}

// Set replaces k's value in c in place.
func Set[T any](c *Context, k Key[T], value T) {
	c.values[k.token] = value
}

// With returns an independent copy of c with k set to value.
func With[T any](c *Context, k Key[T], value T) *Context {
	next := c.clone()
	next.values[k.token] = value
	return next
}

// withGoContext returns a copy of c bound to a different Go context,
// without touching any key values.
func (c *Context) withGoContext(goCtx stdcontext.Context) *Context {
	next := c.clone()
	next.goCtx = goCtx
	return next
}
