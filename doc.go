// Package operation provides a durable, observable, deduplicated and
// retryable execution engine for asynchronous operations in a long-running
// application.
//
// # Overview
//
// The engine is organized around three concepts:
//
//  1. Operations: a user-declared description of an asynchronous unit of
//     work (a fetch, a paginated fetch, a mutation) with a stable Path
//     identity.
//  2. Stores: per-operation state machines that coordinate concurrent
//     executions, subscribers, yielded partial results and final outcomes.
//  3. Clients: a process-wide registry mapping a Path to its Store, with
//     pattern-matched retrieval, bulk mutation and memory-pressure eviction.
//
// # Basic usage
//
//	client := operation.NewClient()
//
//	userQuery := operation.NewQuery(
//	    operation.NewPath("users", 123),
//	    func(ctx *operation.Context, cont *operation.Continuation[*User]) (*User, error) {
//	        return fetchUser(ctx.GoContext(), 123)
//	    },
//	)
//
//	store := operation.ClientStore[*User, *User](client, userQuery)
//	user, err := store.RunAndAwait(context.Background(), "initial")
//
// # Modifiers
//
// Operations are wrapped with modifiers to add retry, deduplication,
// suspension and automatic rerun behavior:
//
//	retried := operation.WithModifiers[*User, *User](userQuery,
//	    operation.WithRetry[*User](operation.DefaultRetryPolicy),
//	    operation.WithDedup[*User](operation.NewDedupGroup(), func(ctx *operation.Context) string {
//	        return "users/123"
//	    }),
//	)
//
// # Subscribing
//
//	sub := store.Subscribe(func(snap operation.StateSnapshot[*User]) {
//	    fmt.Println(snap.IsLoading, snap.CurrentValue)
//	})
//	defer sub.Cancel()
//
// # Thread safety
//
// Stores, Clients and Controllers are safe for concurrent use from multiple
// goroutines. Contexts are per-run values and are never shared mutably
// across tasks.
package operation
