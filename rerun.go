package operation

// RerunOnChange is a controller, not a run-body modifier: it watches spec
// and schedules a new run on the Store every time spec's satisfaction
// transitions to true, for as long as the returned Subscription is active.
// It is the mechanism behind Connected/ApplicationIsActive-driven refetch.
func RerunOnChange[S any, R any](s *Store[S, R], ctx *Context, spec RunSpecification) Subscription {
	return spec.Subscribe(ctx, func(satisfied bool) {
		if satisfied {
			s.Run("rerun-on-change")
		}
	})
}
