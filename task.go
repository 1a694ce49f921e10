package operation

import (
	stdcontext "context"

	"github.com/google/uuid"
)

// Task is one in-flight execution attached to a Store: an identified handle
// holding the effective context for one run, a cancellation mechanism, and
// the herd generation it was scheduled under.
type Task struct {
	id    uint64
	herd  uint64
	name  string
	ctx   *Context
	goCtx stdcontext.Context
	stop  stdcontext.CancelCauseFunc
	done  chan struct{}
}

func newTask(id, herd uint64, name string, ctx *Context) *Task {
	if name == "" {
		name = uuid.NewString()
	}
	goCtx, stop := stdcontext.WithCancelCause(ctx.GoContext())
	return &Task{
		id:    id,
		herd:  herd,
		name:  name,
		ctx:   ctx.withGoContext(goCtx),
		goCtx: goCtx,
		stop:  stop,
		done:  make(chan struct{}),
	}
}

// ID returns the task's store-local, monotonically assigned identifier.
func (t *Task) ID() uint64 { return t.id }

// Name returns the configured name of the run, if any.
func (t *Task) Name() string { return t.name }

// Context returns the effective Context for this run.
func (t *Task) Context() *Context { return t.ctx }

// Cancel signals cooperative cancellation to the running body. It is safe
// to call multiple times.
func (t *Task) Cancel() {
	t.stop(ErrCancelled)
}

func (t *Task) finish() {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}

// Done returns a channel closed once the task's body has returned.
func (t *Task) Done() <-chan struct{} { return t.done }

// TaskDescriptor is the read-only view of a Task exposed through
// OperationState snapshots.
type TaskDescriptor struct {
	ID   uint64
	Name string
}

func (t *Task) descriptor() TaskDescriptor {
	return TaskDescriptor{ID: t.id, Name: t.name}
}
