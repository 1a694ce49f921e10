package operation

import "golang.org/x/sync/singleflight"

// WithDedup wraps a run body so concurrent calls sharing the same key
// attach to one in-flight attempt instead of each launching their own.
// keyFn derives the discriminator from the run's Context; for paginated
// operations this should include RequestedPageID so distinct pages are
// never merged.
func WithDedup[R any](group *singleflight.Group, keyFn func(ctx *Context) string) Modifier[R] {
	return func(next OperationFunc[R]) OperationFunc[R] {
		return func(ctx *Context, cont *Continuation[R]) (R, error) {
			key := keyFn(ctx)
			v, err, _ := group.Do(key, func() (any, error) {
				return next(ctx, cont)
			})
			if v == nil {
				var zero R
				return zero, err
			}
			return v.(R), err
		}
	}
}

// NewDedupGroup returns a fresh singleflight.Group for a Store's dedup
// modifier; each operation that wants independent deduplication from its
// siblings should own one.
func NewDedupGroup() *singleflight.Group {
	return &singleflight.Group{}
}
