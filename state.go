package operation

import "time"

// StateSnapshot is the immutable, observer-visible view of an
// OperationState at one point in time.
type StateSnapshot[S any] struct {
	CurrentValue        S
	InitialValue        S
	ValueUpdateCount    int
	ValueLastUpdatedAt  *time.Time
	Err                 error
	ErrorUpdateCount    int
	ErrorLastUpdatedAt  *time.Time
	IsLoading           bool
	ActiveTasks         []TaskDescriptor
}

// stateOps is the mutating protocol a Store drives. S is the surface value
// type observers see; R is the per-run result value type (equal to S for
// Query and Mutation, a single Page for InfiniteQuery).
type stateOps[S any, R any] interface {
	snapshot() StateSnapshot[S]
	applyResult(result Result[R], reason ResultUpdateReason, now time.Time)
	reset(now time.Time) []TaskDescriptor
	scheduleTask(t TaskDescriptor)
	finishTask(t TaskDescriptor)
	isLoading() bool
}

// baseState holds the fields common to every OperationState specialization.
type baseState[S any] struct {
	current           S
	initial           S
	valueUpdateCount  int
	valueUpdatedAt    *time.Time
	err               error
	errorUpdateCount  int
	errorUpdatedAt    *time.Time
	activeTasks       []TaskDescriptor
}

func newBaseState[S any](initial S) baseState[S] {
	return baseState[S]{current: initial, initial: initial}
}

func (b *baseState[S]) snapshot() StateSnapshot[S] {
	tasks := append([]TaskDescriptor(nil), b.activeTasks...)
	return StateSnapshot[S]{
		CurrentValue:       b.current,
		InitialValue:       b.initial,
		ValueUpdateCount:   b.valueUpdateCount,
		ValueLastUpdatedAt: b.valueUpdatedAt,
		Err:                b.err,
		ErrorUpdateCount:   b.errorUpdateCount,
		ErrorLastUpdatedAt: b.errorUpdatedAt,
		IsLoading:          len(tasks) > 0,
		ActiveTasks:        tasks,
	}
}

func (b *baseState[S]) reset(now time.Time) []TaskDescriptor {
	cancelled := b.activeTasks
	b.current = b.initial
	b.valueUpdateCount = 0
	b.valueUpdatedAt = nil
	b.err = nil
	b.errorUpdateCount = 0
	b.errorUpdatedAt = nil
	b.activeTasks = nil
	return cancelled
}

func (b *baseState[S]) scheduleTask(t TaskDescriptor) {
	b.activeTasks = append(b.activeTasks, t)
}

func (b *baseState[S]) finishTask(t TaskDescriptor) {
	for i, d := range b.activeTasks {
		if d.ID == t.ID {
			b.activeTasks = append(b.activeTasks[:i], b.activeTasks[i+1:]...)
			return
		}
	}
}

func (b *baseState[S]) isLoading() bool {
	return len(b.activeTasks) > 0
}

func (b *baseState[S]) recordSuccess(value S, now time.Time) {
	b.current = value
	b.valueUpdateCount++
	t := now
	b.valueUpdatedAt = &t
	b.err = nil
}

func (b *baseState[S]) recordFailure(err error, now time.Time) {
	b.err = err
	b.errorUpdateCount++
	t := now
	b.errorUpdatedAt = &t
}

// QueryState is the OperationState specialization for single-value
// queries: StateValue = OperationValue.
type QueryState[V any] struct {
	base baseState[V]
}

func newQueryState[V any](initial V) *QueryState[V] {
	return &QueryState[V]{base: newBaseState(initial)}
}

func (q *QueryState[V]) snapshot() StateSnapshot[V] { return q.base.snapshot() }

func (q *QueryState[V]) applyResult(result Result[V], reason ResultUpdateReason, now time.Time) {
	if result.IsSuccess() {
		q.base.recordSuccess(result.Value, now)
	} else {
		q.base.recordFailure(result.Err, now)
	}
}

func (q *QueryState[V]) reset(now time.Time) []TaskDescriptor { return q.base.reset(now) }
func (q *QueryState[V]) scheduleTask(t TaskDescriptor)         { q.base.scheduleTask(t) }
func (q *QueryState[V]) finishTask(t TaskDescriptor)           { q.base.finishTask(t) }
func (q *QueryState[V]) isLoading() bool                       { return q.base.isLoading() }

// Page is one unit of result in a paginated operation, identified by a
// user-defined id.
type Page[ID comparable, V any] struct {
	ID    ID
	Value V
}

// PageIDFunc derives the next/previous page id from the accumulated page
// set plus context. ok is false when there is no further page.
type PageIDFunc[ID comparable, V any] func(pages []Page[ID, V], ctx *Context) (id ID, ok bool)

// InfiniteQueryState is the OperationState specialization for paginated
// queries: StateValue is an ordered sequence of pages with unique ids,
// insertion order reflecting fetch order.
type InfiniteQueryState[ID comparable, V any] struct {
	base     baseState[[]Page[ID, V]]
	nextIDFn PageIDFunc[ID, V]
	prevIDFn PageIDFunc[ID, V]
}

func newInfiniteQueryState[ID comparable, V any](nextIDFn, prevIDFn PageIDFunc[ID, V]) *InfiniteQueryState[ID, V] {
	return &InfiniteQueryState[ID, V]{
		base:     newBaseState[[]Page[ID, V]](nil),
		nextIDFn: nextIDFn,
		prevIDFn: prevIDFn,
	}
}

func (i *InfiniteQueryState[ID, V]) snapshot() StateSnapshot[[]Page[ID, V]] { return i.base.snapshot() }

func (i *InfiniteQueryState[ID, V]) applyResult(result Result[Page[ID, V]], reason ResultUpdateReason, now time.Time) {
	if !result.IsSuccess() {
		i.base.recordFailure(result.Err, now)
		return
	}
	page := result.Value
	pages := append([]Page[ID, V](nil), i.base.current...)
	replaced := false
	for idx, p := range pages {
		if p.ID == page.ID {
			pages[idx] = page
			replaced = true
			break
		}
	}
	if !replaced {
		pages = append(pages, page)
	}
	i.base.recordSuccess(pages, now)
}

func (i *InfiniteQueryState[ID, V]) reset(now time.Time) []TaskDescriptor { return i.base.reset(now) }
func (i *InfiniteQueryState[ID, V]) scheduleTask(t TaskDescriptor)        { i.base.scheduleTask(t) }
func (i *InfiniteQueryState[ID, V]) finishTask(t TaskDescriptor)          { i.base.finishTask(t) }
func (i *InfiniteQueryState[ID, V]) isLoading() bool                     { return i.base.isLoading() }

// FetchNextPageID derives the id of the page that should be fetched next,
// based on the current page set.
func (i *InfiniteQueryState[ID, V]) FetchNextPageID(ctx *Context) (ID, bool) {
	return i.nextIDFn(i.base.current, ctx)
}

// FetchPreviousPageID derives the id of the page that should be fetched to
// extend the sequence backwards.
func (i *InfiniteQueryState[ID, V]) FetchPreviousPageID(ctx *Context) (ID, bool) {
	return i.prevIDFn(i.base.current, ctx)
}

// MutationState is the OperationState specialization for mutations:
// StateValue = OperationValue, plus the last supplied Arguments so the
// mutation can be re-run.
type MutationState[V any, Args any] struct {
	base     baseState[V]
	lastArgs Args
	hasArgs  bool
}

func newMutationState[V any, Args any](initial V) *MutationState[V, Args] {
	return &MutationState[V, Args]{base: newBaseState(initial)}
}

func (m *MutationState[V, Args]) snapshot() StateSnapshot[V] { return m.base.snapshot() }

func (m *MutationState[V, Args]) applyResult(result Result[V], reason ResultUpdateReason, now time.Time) {
	if result.IsSuccess() {
		m.base.recordSuccess(result.Value, now)
	} else {
		m.base.recordFailure(result.Err, now)
	}
}

func (m *MutationState[V, Args]) reset(now time.Time) []TaskDescriptor { return m.base.reset(now) }
func (m *MutationState[V, Args]) scheduleTask(t TaskDescriptor)        { m.base.scheduleTask(t) }
func (m *MutationState[V, Args]) finishTask(t TaskDescriptor)          { m.base.finishTask(t) }
func (m *MutationState[V, Args]) isLoading() bool                      { return m.base.isLoading() }

// LastArguments returns the arguments supplied to the most recent mutate
// call, if any.
func (m *MutationState[V, Args]) LastArguments() (Args, bool) {
	return m.lastArgs, m.hasArgs
}

func (m *MutationState[V, Args]) recordArguments(args Args) {
	m.lastArgs = args
	m.hasArgs = true
}
