package operation

// WithLogDuration wraps a run body to log its outcome and wall-clock
// duration through the Context's LoggerKey.
func WithLogDuration[R any](path Path) Modifier[R] {
	return func(next OperationFunc[R]) OperationFunc[R] {
		return func(ctx *Context, cont *Continuation[R]) (R, error) {
			logger := Get(ctx, LoggerKey)
			start := Get(ctx, ClockKey).Now()
			v, err := next(ctx, cont)
			elapsed := Get(ctx, ClockKey).Now().Sub(start)
			if err != nil {
				logger.Warn("operation: run failed", "path", path.String(), "duration", elapsed.String(), "error", err)
			} else {
				logger.Debug("operation: run succeeded", "path", path.String(), "duration", elapsed)
			}
			return v, err
		}
	}
}
