package operation

import stdcontext "context"

// FetchNextPage requests the page that extends an InfiniteQuery's sequence
// forward, deriving its id from op's nextIDFn and the Store's current
// pages. It reports ok=false without scheduling a run when there is no
// further page.
func FetchNextPage[ID comparable, V any](
	goCtx stdcontext.Context,
	s *Store[[]Page[ID, V], Page[ID, V]],
	op *InfiniteQueryOperation[ID, V],
) (Page[ID, V], bool, error) {
	ctx := s.BaseContext()
	id, ok := op.nextIDFn(s.Snapshot().CurrentValue, ctx)
	if !ok {
		var zero Page[ID, V]
		return zero, false, nil
	}
	page, err := s.RunAndAwaitWith(goCtx, "fetch-next-page", func(c *Context) *Context {
		return WithRequestedPageID(c, id)
	})
	return page, true, err
}

// FetchPreviousPage is FetchNextPage's backward-extension counterpart,
// deriving the id from op's prevIDFn.
func FetchPreviousPage[ID comparable, V any](
	goCtx stdcontext.Context,
	s *Store[[]Page[ID, V], Page[ID, V]],
	op *InfiniteQueryOperation[ID, V],
) (Page[ID, V], bool, error) {
	ctx := s.BaseContext()
	id, ok := op.prevIDFn(s.Snapshot().CurrentValue, ctx)
	if !ok {
		var zero Page[ID, V]
		return zero, false, nil
	}
	page, err := s.RunAndAwaitWith(goCtx, "fetch-previous-page", func(c *Context) *Context {
		return WithRequestedPageID(c, id)
	})
	return page, true, err
}
