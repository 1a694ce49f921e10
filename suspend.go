package operation

// WithSuspend wraps a run body so it blocks until spec is satisfied before
// invoking next, cooperatively cancellable via the run's Context.
func WithSuspend[R any](spec RunSpecification) Modifier[R] {
	return func(next OperationFunc[R]) OperationFunc[R] {
		return func(ctx *Context, cont *Continuation[R]) (R, error) {
			if spec.IsSatisfied(ctx) {
				return next(ctx, cont)
			}

			ready := make(chan struct{})
			sub := spec.Subscribe(ctx, func(v bool) {
				if v {
					select {
					case <-ready:
					default:
						close(ready)
					}
				}
			})
			defer sub.Cancel()

			select {
			case <-ready:
				return next(ctx, cont)
			case <-ctx.GoContext().Done():
				var zero R
				return zero, ctx.GoContext().Err()
			}
		}
	}
}
