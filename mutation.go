package operation

import stdcontext "context"

// Mutate runs a mutation Store with args, recording them for LastArguments
// before the run starts so a concurrently-reading subscriber can observe
// which Arguments are in flight, and blocks for the result.
func Mutate[V any, Args any](goCtx stdcontext.Context, s *Store[V, V], args Args) (V, error) {
	s.mu.Lock()
	if rec, ok := s.state.(argRecorder); ok {
		rec.recordArgumentsAny(args)
	}
	s.mu.Unlock()

	return s.RunAndAwaitWith(goCtx, "mutate", func(c *Context) *Context {
		return WithMutationArguments(c, args)
	})
}

// MutateAsync is Mutate's fire-and-forget form: it schedules the run and
// returns the Task handle without waiting for completion.
func MutateAsync[V any, Args any](s *Store[V, V], args Args) *Task {
	s.mu.Lock()
	if rec, ok := s.state.(argRecorder); ok {
		rec.recordArgumentsAny(args)
	}
	s.mu.Unlock()

	return s.RunWith("mutate", func(c *Context) *Context {
		return WithMutationArguments(c, args)
	})
}
