package operation

import (
	stdcontext "context"
	"fmt"
	"sync"
)

// Store is the heart of the library: it orchestrates tasks, subscribers and
// state transitions for one operation bound to one Path. Every mutation of
// its OperationState happens under mu; subscribers are always notified
// after the lock is released, preserving a consistent snapshot-then-unlock-
// then-call ordering.
type Store[S any, R any] struct {
	mu sync.Mutex

	path    Path
	op      Operation[S, R]
	state   stateOps[S, R]
	baseCtx *Context
	logger  Logger

	herd       uint64
	nextTaskID uint64
	tasks      map[uint64]*Task

	nextSubID   uint64
	subscribers map[uint64]func(StateSnapshot[S])

	awaiters map[uint64]chan Result[R]

	autoRunSub Subscription
}

// NewStore builds a Store for op, rooted at baseCtx (typically a Client's
// shared ambient context). baseCtx may be nil, in which case a background
// Context is used.
func NewStore[S any, R any](path Path, op Operation[S, R], baseCtx *Context) *Store[S, R] {
	if baseCtx == nil {
		baseCtx = NewContext(nil)
	}
	s := &Store[S, R]{
		path:        path,
		op:          op,
		state:       op.newState(),
		baseCtx:     baseCtx,
		logger:      Get(baseCtx, LoggerKey),
		tasks:       make(map[uint64]*Task),
		subscribers: make(map[uint64]func(StateSnapshot[S])),
		awaiters:    make(map[uint64]chan Result[R]),
	}
	return s
}

// Path returns the Path this Store is bound to.
func (s *Store[S, R]) Path() Path { return s.path }

// Snapshot returns a point-in-time, immutable view of the OperationState.
func (s *Store[S, R]) Snapshot() StateSnapshot[S] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.snapshot()
}

// BaseContext returns the ambient Context new runs are built from, with
// CurrentStoreKey bound to this Store.
func (s *Store[S, R]) BaseContext() *Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contextLocked()
}

func (s *Store[S, R]) contextLocked() *Context {
	return With(s.baseCtx, CurrentStoreKey, any(s))
}

// IsLoading reports whether any task is currently running.
func (s *Store[S, R]) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.isLoading()
}

// SubscriberCount reports how many active Subscriptions are currently
// registered. A Client gates eviction on this being zero, not on whether a
// task is in flight.
func (s *Store[S, R]) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// IsStale reports whether the Store has never produced a value nor an error
// and has no task in flight; automatic-running triggers on this condition.
func (s *Store[S, R]) IsStale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state.snapshot()
	return !snap.IsLoading && snap.ValueUpdateCount == 0 && snap.ErrorUpdateCount == 0
}

// Run schedules a new task running the operation's body and returns
// immediately with a handle to it; name is attached to the Task for
// diagnostics and is not otherwise interpreted.
func (s *Store[S, R]) Run(name string) *Task {
	return s.RunWith(name, nil)
}

// RunWith schedules a new task the same way Run does, but applies extra to
// the per-task Context before the operation body runs (used by mutations to
// thread Arguments and infinite queries to thread the requested page id).
func (s *Store[S, R]) RunWith(name string, extra func(*Context) *Context) *Task {
	task := s.schedule(name, nil, extra)
	go s.execute(task)
	return task
}

// RunAndAwait schedules a run and blocks until it completes or goCtx is
// done, in which case the run is cancelled and its cancellation result is
// returned.
func (s *Store[S, R]) RunAndAwait(goCtx stdcontext.Context, name string) (R, error) {
	return s.RunAndAwaitWith(goCtx, name, nil)
}

// RunAndAwaitWith is RunAndAwait plus the per-task Context transform RunWith
// accepts.
func (s *Store[S, R]) RunAndAwaitWith(goCtx stdcontext.Context, name string, extra func(*Context) *Context) (R, error) {
	ch := make(chan Result[R], 1)
	task := s.schedule(name, ch, extra)
	go s.execute(task)

	if goCtx == nil {
		res := <-ch
		return res.Value, res.Err
	}
	select {
	case res := <-ch:
		return res.Value, res.Err
	case <-goCtx.Done():
		task.Cancel()
		res := <-ch
		return res.Value, res.Err
	}
}

func (s *Store[S, R]) schedule(name string, awaiter chan Result[R], extra func(*Context) *Context) *Task {
	s.mu.Lock()
	herd := s.herd
	ctx := s.contextLocked()
	if extra != nil {
		ctx = extra(ctx)
	}
	id := s.nextTaskID
	s.nextTaskID++
	task := newTask(id, herd, name, ctx)
	s.tasks[id] = task
	s.state.scheduleTask(task.descriptor())
	if awaiter != nil {
		s.awaiters[id] = awaiter
	}
	s.mu.Unlock()

	s.logger.Debug("operation: run scheduled", "path", s.path.String(), "task", id)
	s.notify()
	return task
}

func (s *Store[S, R]) execute(task *Task) {
	ctx := s.op.setup(task.Context())

	cont := newContinuation(func(res Result[R], override *Context) {
		s.mu.Lock()
		if !s.taskActiveLocked(task) {
			s.mu.Unlock()
			return
		}
		reason := ReasonYielded
		clock := Get(s.baseCtx, ClockKey)
		if override != nil {
			reason = Get(override, ResultUpdateReasonKey)
			clock = Get(override, ClockKey)
		}
		s.state.applyResult(res, reason, clock.Now())
		s.mu.Unlock()
		s.notify()
	})
	defer cont.close()

	value, err := s.runBody(ctx, cont)

	s.mu.Lock()
	if !s.taskActiveLocked(task) {
		ch, hasAwaiter := s.awaiters[task.id]
		delete(s.awaiters, task.id)
		s.mu.Unlock()
		task.finish()
		if hasAwaiter {
			ch <- Failed[R](ErrCancelled)
		}
		return
	}
	delete(s.tasks, task.id)
	s.state.finishTask(task.descriptor())

	var result Result[R]
	if err != nil {
		result = Failed[R](err)
	} else {
		result = Success(value)
	}
	if err == nil || !IsCancelled(err) {
		s.state.applyResult(result, ReasonReturnedFinal, Get(s.baseCtx, ClockKey).Now())
	}
	ch, hasAwaiter := s.awaiters[task.id]
	delete(s.awaiters, task.id)
	s.mu.Unlock()

	task.finish()
	s.logger.Debug("operation: run finished", "path", s.path.String(), "task", task.id, "error", err)
	s.notify()
	if hasAwaiter {
		ch <- result
	}
}

func (s *Store[S, R]) runBody(ctx *Context, cont *Continuation[R]) (r R, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = newOperationFailure(s.path, fmt.Errorf("%v", rec), "panic recovered from operation body")
		}
	}()
	return s.op.run(ctx, cont)
}

// taskActiveLocked reports whether task is still the Store's current task
// under its id: it was not superseded by Reset (herd mismatch) and has not
// already been removed.
func (s *Store[S, R]) taskActiveLocked(task *Task) bool {
	if task.herd != s.herd {
		return false
	}
	_, ok := s.tasks[task.id]
	return ok
}

// Reset bumps the herd generation, cancels every in-flight task and
// restores the OperationState to its initial value, then notifies
// subscribers.
func (s *Store[S, R]) Reset() {
	s.mu.Lock()
	s.herd++
	cancelled := s.state.reset(Get(s.baseCtx, ClockKey).Now())
	toCancel := make([]*Task, 0, len(cancelled))
	for _, d := range cancelled {
		if t, ok := s.tasks[d.ID]; ok {
			toCancel = append(toCancel, t)
			delete(s.tasks, d.ID)
		}
	}
	s.mu.Unlock()

	for _, t := range toCancel {
		t.Cancel()
	}
	s.logger.Debug("operation: reset", "path", s.path.String(), "cancelled", len(toCancel))
	s.notify()
}

// Subscribe registers f to be called with the current snapshot immediately,
// then again on every subsequent state change, until the returned
// Subscription is cancelled. The first subscriber triggers an automatic run
// if the Store is stale and the effective AutomaticRunningSpecKey is
// satisfied.
func (s *Store[S, R]) Subscribe(f func(StateSnapshot[S])) Subscription {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = f
	snap := s.state.snapshot()
	first := len(s.subscribers) == 1
	ctx := s.contextLocked()
	s.mu.Unlock()

	f(snap)

	if first {
		s.maybeAutoRun(ctx)
	}

	return NewSubscription(func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	})
}

func (s *Store[S, R]) maybeAutoRun(ctx *Context) {
	ctx = s.op.setup(ctx)
	spec := Get(ctx, AutomaticRunningSpecKey)
	if spec == nil || !spec.IsSatisfied(ctx) {
		return
	}
	if !s.IsStale() {
		return
	}
	s.Run("auto")
}

func (s *Store[S, R]) notify() {
	s.mu.Lock()
	snap := s.state.snapshot()
	subs := make([]func(StateSnapshot[S]), 0, len(s.subscribers))
	for _, f := range s.subscribers {
		subs = append(subs, f)
	}
	s.mu.Unlock()

	for _, f := range subs {
		f(snap)
	}
}
