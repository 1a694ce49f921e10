package operation

import "time"

// OperationFunc is the run signature every modifier wraps: §4.6 "the same
// run signature" the composed pipeline exposes.
type OperationFunc[R any] func(ctx *Context, cont *Continuation[R]) (R, error)

// requestedPageIDKey carries the page id an InfiniteQuery run should fetch.
// WithDedup does not read it on its own; a paginated operation's dedup key
// function can include it via RequestedPageID.
var requestedPageIDKey = NewKey[any]("requested_page_id", nil)

// mutationArgumentsKey carries the Arguments supplied to a Mutation run.
var mutationArgumentsKey = NewKey[any]("mutation_arguments", nil)

// Operation is the language-neutral "operation description" trait (§6):
// path, initial state and the modifier-wrapped run body.
type Operation[S any, R any] interface {
	Path() Path
	setup(ctx *Context) *Context
	newState() stateOps[S, R]
	run(ctx *Context, cont *Continuation[R]) (R, error)
}

// operationCore is embedded by every Operation specialization; it carries
// the unwrapped run body. WithModifiers wraps it with WithRetry/WithDedup/
// etc. in a separate Operation.
type operationCore[S any, R any] struct {
	path     Path
	setupFn  func(*Context) *Context
	newSt    func() stateOps[S, R]
	runFn    OperationFunc[R]
}

func (c *operationCore[S, R]) Path() Path { return c.path }

func (c *operationCore[S, R]) setup(ctx *Context) *Context {
	if c.setupFn == nil {
		return ctx
	}
	return c.setupFn(ctx)
}

func (c *operationCore[S, R]) newState() stateOps[S, R] { return c.newSt() }

func (c *operationCore[S, R]) run(ctx *Context, cont *Continuation[R]) (R, error) {
	return c.runFn(ctx, cont)
}

// QueryOperation is the Operation specialization for a single logical
// value: StateValue = OperationValue.
type QueryOperation[V any] struct {
	operationCore[V, V]
	initial V
}

// OperationOption configures an operation at construction time; options are
// applied before any modifier wrapping, so modifiers observe their effects.
type OperationOption[S any, R any] func(*operationCore[S, R])

// NewQuery declares a query operation keyed by path, fetching via fetch.
func NewQuery[V any](path Path, fetch func(ctx *Context, cont *Continuation[V]) (V, error), opts ...OperationOption[V, V]) *QueryOperation[V] {
	var initial V
	core := operationCore[V, V]{
		path:  path,
		newSt: func() stateOps[V, V] { return newQueryState(initial) },
		runFn: fetch,
	}
	for _, opt := range opts {
		opt(&core)
	}
	return &QueryOperation[V]{operationCore: core, initial: initial}
}

// WithInitialValue sets the value a QueryState starts and resets to.
func WithInitialValue[V any](v V) OperationOption[V, V] {
	return func(c *operationCore[V, V]) {
		c.newSt = func() stateOps[V, V] { return newQueryState(v) }
	}
}

// InfiniteQueryOperation is the Operation specialization for paginated
// queries: StateValue is an ordered sequence of uniquely-identified pages.
type InfiniteQueryOperation[ID comparable, V any] struct {
	operationCore[[]Page[ID, V], Page[ID, V]]
	nextIDFn PageIDFunc[ID, V]
	prevIDFn PageIDFunc[ID, V]
}

// NewInfiniteQuery declares a paginated query operation. fetchPage receives
// the requested page id via RequestedPageID(ctx).
func NewInfiniteQuery[ID comparable, V any](
	path Path,
	fetchPage func(ctx *Context, pageID ID, cont *Continuation[Page[ID, V]]) (Page[ID, V], error),
	nextIDFn, prevIDFn PageIDFunc[ID, V],
	opts ...OperationOption[[]Page[ID, V], Page[ID, V]],
) *InfiniteQueryOperation[ID, V] {
	core := operationCore[[]Page[ID, V], Page[ID, V]]{
		path: path,
		newSt: func() stateOps[[]Page[ID, V], Page[ID, V]] {
			return newInfiniteQueryState(nextIDFn, prevIDFn)
		},
		runFn: func(ctx *Context, cont *Continuation[Page[ID, V]]) (Page[ID, V], error) {
			id, _ := RequestedPageID[ID](ctx)
			return fetchPage(ctx, id, cont)
		},
	}
	for _, opt := range opts {
		opt(&core)
	}
	return &InfiniteQueryOperation[ID, V]{operationCore: core, nextIDFn: nextIDFn, prevIDFn: prevIDFn}
}

// RequestedPageID reads the page id a running InfiniteQuery fetch was asked
// to produce.
func RequestedPageID[ID comparable](ctx *Context) (ID, bool) {
	v := Get(ctx, requestedPageIDKey)
	id, ok := v.(ID)
	return id, ok
}

// WithRequestedPageID returns a Context with the page id to fetch set.
func WithRequestedPageID[ID comparable](ctx *Context, id ID) *Context {
	return With(ctx, requestedPageIDKey, any(id))
}

// MutationOperation is the Operation specialization for mutations:
// StateValue = OperationValue, plus the last supplied Arguments.
type MutationOperation[V any, Args any] struct {
	operationCore[V, V]
}

// NewMutation declares a mutation operation. mutate receives the Arguments
// via MutationArguments(ctx).
func NewMutation[V any, Args any](
	path Path,
	mutate func(ctx *Context, args Args, cont *Continuation[V]) (V, error),
	opts ...OperationOption[V, V],
) *MutationOperation[V, Args] {
	core := operationCore[V, V]{
		path:  path,
		newSt: func() stateOps[V, V] { return newMutationStateFor[V, Args]() },
		runFn: func(ctx *Context, cont *Continuation[V]) (V, error) {
			args, _ := MutationArguments[Args](ctx)
			return mutate(ctx, args, cont)
		},
	}
	for _, opt := range opts {
		opt(&core)
	}
	return &MutationOperation[V, Args]{operationCore: core}
}

// MutationArguments reads the Arguments a running Mutation was invoked
// with.
func MutationArguments[Args any](ctx *Context) (Args, bool) {
	v := Get(ctx, mutationArgumentsKey)
	a, ok := v.(Args)
	return a, ok
}

// WithMutationArguments returns a Context with Arguments set for a mutation
// run.
func WithMutationArguments[Args any](ctx *Context, args Args) *Context {
	return With(ctx, mutationArgumentsKey, any(args))
}

// newMutationStateFor builds a fresh MutationState; NewMutation installs it
// as the operation's state so mutation Stores get last-arguments tracking
// instead of a plain QueryState.
func newMutationStateFor[V any, Args any]() stateOps[V, V] {
	var initial V
	return &mutationStateAdapter[V, Args]{state: newMutationState[V, Args](initial)}
}

// mutationStateAdapter lets MutationState[V,Args] satisfy stateOps[V,V] and
// additionally record arguments when the Store threads them through.
type mutationStateAdapter[V any, Args any] struct {
	state *MutationState[V, Args]
}

func (a *mutationStateAdapter[V, Args]) snapshot() StateSnapshot[V] { return a.state.snapshot() }
func (a *mutationStateAdapter[V, Args]) applyResult(r Result[V], reason ResultUpdateReason, now time.Time) {
	a.state.applyResult(r, reason, now)
}
func (a *mutationStateAdapter[V, Args]) reset(now time.Time) []TaskDescriptor { return a.state.reset(now) }
func (a *mutationStateAdapter[V, Args]) scheduleTask(t TaskDescriptor)        { a.state.scheduleTask(t) }
func (a *mutationStateAdapter[V, Args]) finishTask(t TaskDescriptor)         { a.state.finishTask(t) }
func (a *mutationStateAdapter[V, Args]) isLoading() bool                     { return a.state.isLoading() }

// argRecorder is implemented by mutationStateAdapter so Mutate can record
// Arguments without knowing the concrete Args type at the call site.
type argRecorder interface {
	recordArgumentsAny(args any)
}

func (a *mutationStateAdapter[V, Args]) recordArgumentsAny(args any) {
	if typed, ok := args.(Args); ok {
		a.state.recordArguments(typed)
	}
}

// LastMutationArguments returns the Arguments most recently passed to
// Mutate for a mutation Store, if any.
func LastMutationArguments[V any, Args any](s *Store[V, V]) (Args, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.state.(*mutationStateAdapter[V, Args]); ok {
		return a.state.LastArguments()
	}
	var zero Args
	return zero, false
}
