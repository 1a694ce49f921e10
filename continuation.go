package operation

// Continuation is the single write-side handle given to a running
// operation body for yielding intermediate results. Multiple yields per
// run are allowed; after the final return, yields are dropped.
type Continuation[R any] struct {
	emit func(Result[R], *Context)
	done *bool
}

func newContinuation[R any](emit func(Result[R], *Context)) *Continuation[R] {
	done := false
	return &Continuation[R]{emit: emit, done: &done}
}

// Yield publishes an intermediate result. An optional ctx overrides the
// context used for that single emission (e.g. a custom
// result_update_reason); it otherwise inherits the run's context with
// result_update_reason set to yielded.
func (c *Continuation[R]) Yield(result Result[R], ctx ...*Context) {
	if *c.done {
		return
	}
	var override *Context
	if len(ctx) > 0 {
		override = ctx[0]
	}
	c.emit(result, override)
}

// YieldValue is sugar for Yield(Success(v)).
func (c *Continuation[R]) YieldValue(v R, ctx ...*Context) {
	c.Yield(Success(v), ctx...)
}

func (c *Continuation[R]) close() {
	*c.done = true
}
