package operation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueryRunAndAwaitSuccess(t *testing.T) {
	query := NewQuery(NewPath("greeting"), func(ctx *Context, cont *Continuation[string]) (string, error) {
		return "hello", nil
	})
	store := NewStore[string, string](query.Path(), query, nil)

	v, err := store.RunAndAwait(context.Background(), "test")
	require.NoError(t, err)
	require.Equal(t, "hello", v)

	snap := store.Snapshot()
	require.Equal(t, "hello", snap.CurrentValue)
	require.Equal(t, 1, snap.ValueUpdateCount)
	require.False(t, snap.IsLoading)
}

// TestRetryThenSucceed is scenario S1: a body failing twice then succeeding
// must surface as one successful final result once wrapped in WithRetry.
func TestRetryThenSucceed(t *testing.T) {
	var attempts atomic.Int32
	query := NewQuery(NewPath("flaky"), func(ctx *Context, cont *Continuation[int]) (int, error) {
		n := attempts.Add(1)
		if n < 3 {
			return 0, errors.New("not yet")
		}
		return 42, nil
	})
	wrapped := WithModifiers[int, int](query, WithRetry[int](RetryPolicy{
		MaxTries:        5,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}))
	store := NewStore[int, int](query.Path(), wrapped, nil)

	v, err := store.RunAndAwait(context.Background(), "test")
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, int32(3), attempts.Load())
}

// TestYieldThenReturn is scenario S2: intermediate Yield calls must be
// observed by subscribers before the final return, with a higher update
// count than a single successful run.
func TestYieldThenReturn(t *testing.T) {
	query := NewQuery(NewPath("progressive"), func(ctx *Context, cont *Continuation[int]) (int, error) {
		cont.YieldValue(1)
		cont.YieldValue(2)
		return 3, nil
	}, WithAutomaticRunningSpec[int, int](Always(false)))
	store := NewStore[int, int](query.Path(), query, nil)

	var mu sync.Mutex
	var seen []int
	sub := store.Subscribe(func(snap StateSnapshot[int]) {
		mu.Lock()
		seen = append(seen, snap.CurrentValue)
		mu.Unlock()
	})
	defer sub.Cancel()

	v, err := store.RunAndAwait(context.Background(), "test")
	require.NoError(t, err)
	require.Equal(t, 3, v)

	snap := store.Snapshot()
	require.Equal(t, 3, snap.ValueUpdateCount)

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, seen, 1)
	require.Contains(t, seen, 2)
	require.Contains(t, seen, 3)
}

// TestDedupSharesInFlightRun is scenario S3: concurrent runs started while
// one is in flight must not cause the body to execute more than once per
// dedup key.
func TestDedupSharesInFlightRun(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	query := NewQuery(NewPath("dedup"), func(ctx *Context, cont *Continuation[int]) (int, error) {
		calls.Add(1)
		<-release
		return 9, nil
	})
	group := NewDedupGroup()
	wrapped := WithModifiers[int, int](query, WithDedup[int](group, func(ctx *Context) string { return "k" }))
	store := NewStore[int, int](query.Path(), wrapped, nil)

	var wg sync.WaitGroup
	results := make([]int, 3)
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			v, err := store.RunAndAwait(context.Background(), "test")
			results[i] = v
			errs[i] = err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		require.Equal(t, 9, results[i])
	}
	require.Equal(t, int32(1), calls.Load())
}

// TestResetDuringRunDropsStaleResult is scenario S4: a Reset invoked while a
// task is running must invalidate that task's eventual result.
func TestResetDuringRunDropsStaleResult(t *testing.T) {
	started := make(chan struct{})
	proceed := make(chan struct{})
	query := NewQuery(NewPath("cancelable"), func(ctx *Context, cont *Continuation[int]) (int, error) {
		close(started)
		select {
		case <-proceed:
			return 100, nil
		case <-ctx.GoContext().Done():
			return 0, ctx.GoContext().Err()
		}
	})
	store := NewStore[int, int](query.Path(), query, nil)

	store.Run("test")
	<-started
	store.Reset()
	close(proceed)

	time.Sleep(20 * time.Millisecond)
	snap := store.Snapshot()
	require.Equal(t, 0, snap.ValueUpdateCount, "reset must drop a result from a task scheduled before it")
}

// TestRerunOnChangeTriggersNewRun is scenario S5: a RunSpecification
// transitioning to satisfied must schedule a new run.
func TestRerunOnChangeTriggersNewRun(t *testing.T) {
	var runs atomic.Int32
	query := NewQuery(NewPath("rerun"), func(ctx *Context, cont *Continuation[int]) (int, error) {
		runs.Add(1)
		return int(runs.Load()), nil
	})
	store := NewStore[int, int](query.Path(), query, nil)

	fake := &fakeBoolSpec{}
	sub := RerunOnChange[int, int](store, store.BaseContext(), fake)
	defer sub.Cancel()

	fake.emit(true)
	time.Sleep(20 * time.Millisecond)
	fake.emit(false)
	fake.emit(true)
	time.Sleep(20 * time.Millisecond)

	require.GreaterOrEqual(t, runs.Load(), int32(2))
}

// TestEvictionRespectsPressureMask is scenario S6: a Store marked evictable
// only at a level should survive a lower pressure report and be reset at a
// matching one.
func TestEvictionRespectsPressureMask(t *testing.T) {
	query := NewQuery(NewPath("evictable"), func(ctx *Context, cont *Continuation[int]) (int, error) {
		return 1, nil
	}, WithEvictablePressure[int, int](PressureMask(PressureCritical)))

	source := NewManualPressureSource()
	client := NewClient(WithMemoryPressureSource(source))
	store := ClientStore[int, int](client, query)

	_, err := store.RunAndAwait(context.Background(), "test")
	require.NoError(t, err)
	require.Equal(t, 1, store.Snapshot().CurrentValue)

	source.Report(PressureWarning)
	require.Equal(t, 1, store.Snapshot().CurrentValue, "warning must not evict a critical-only entry")

	source.Report(PressureCritical)
	require.Equal(t, 0, store.Snapshot().CurrentValue, "critical pressure must reset a critical-evictable entry")
}

func TestMutationRecordsLastArguments(t *testing.T) {
	mutation := NewMutation[string, int](NewPath("double"), func(ctx *Context, args int, cont *Continuation[string]) (string, error) {
		return "ok", nil
	})
	store := NewStore[string, string](mutation.Path(), mutation, nil)

	_, err := Mutate(context.Background(), store, 21)
	require.NoError(t, err)

	args, ok := LastMutationArguments[string, int](store)
	require.True(t, ok)
	require.Equal(t, 21, args)
}

func TestInfiniteQueryMergesPagesByID(t *testing.T) {
	fetch := func(ctx *Context, id int, cont *Continuation[Page[int, string]]) (Page[int, string], error) {
		return Page[int, string]{ID: id, Value: "page"}, nil
	}
	nextID := func(pages []Page[int, string], ctx *Context) (int, bool) {
		return len(pages), true
	}
	prevID := func(pages []Page[int, string], ctx *Context) (int, bool) {
		return 0, false
	}
	listing := NewInfiniteQuery[int, string](NewPath("feed"), fetch, nextID, prevID)
	store := NewStore[[]Page[int, string], Page[int, string]](listing.Path(), listing, nil)

	_, _, err := FetchNextPage(context.Background(), store, listing)
	require.NoError(t, err)
	_, _, err = FetchNextPage(context.Background(), store, listing)
	require.NoError(t, err)

	snap := store.Snapshot()
	require.Len(t, snap.CurrentValue, 2)
	require.Equal(t, 0, snap.CurrentValue[0].ID)
	require.Equal(t, 1, snap.CurrentValue[1].ID)
}

type fakeDelayer struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (f *fakeDelayer) Delay(ctx interface {
	Done() <-chan struct{}
	Err() error
}, d time.Duration) error {
	f.mu.Lock()
	f.calls = append(f.calls, d)
	f.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// TestRetryUsesInjectedDelayerAndHonorsInheritedCap verifies WithRetry
// waits between attempts through the Context's Delayer rather than a real
// timer, and that an inherited MaxRetriesKey cap narrower than the policy
// wins over the policy's own MaxTries.
func TestRetryUsesInjectedDelayerAndHonorsInheritedCap(t *testing.T) {
	var attempts atomic.Int32
	query := NewQuery(NewPath("always-fails"), func(ctx *Context, cont *Continuation[int]) (int, error) {
		attempts.Add(1)
		return 0, errors.New("nope")
	})
	wrapped := WithModifiers[int, int](query, WithRetry[int](RetryPolicy{
		MaxTries:        5,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}))

	delayer := &fakeDelayer{}
	baseCtx := With(NewContext(context.Background()), DelayerKey, delayer)
	baseCtx = With(baseCtx, MaxRetriesKey, 2)
	store := NewStore[int, int](query.Path(), wrapped, baseCtx)

	_, err := store.RunAndAwait(context.Background(), "test")
	require.Error(t, err)
	require.Equal(t, int32(2), attempts.Load(), "inherited MaxRetriesKey cap of 2 must win over policy's 5")

	delayer.mu.Lock()
	defer delayer.mu.Unlock()
	require.Len(t, delayer.calls, 1, "one wait between the two attempts, delegated to the injected Delayer")
}

// TestResetDuringRunDeliversCancelledToAwaiter is scenario S4's
// RunAndAwait variant: a task invalidated by Reset mid-flight must still
// resolve a blocked awaiter instead of leaking its goroutine forever.
func TestResetDuringRunDeliversCancelledToAwaiter(t *testing.T) {
	started := make(chan struct{})
	proceed := make(chan struct{})
	query := NewQuery(NewPath("cancelable-await"), func(ctx *Context, cont *Continuation[int]) (int, error) {
		close(started)
		<-proceed
		return 100, nil
	})
	store := NewStore[int, int](query.Path(), query, nil)

	done := make(chan error, 1)
	go func() {
		_, err := store.RunAndAwait(context.Background(), "test")
		done <- err
	}()

	<-started
	store.Reset()
	close(proceed)

	select {
	case err := <-done:
		require.True(t, IsCancelled(err), "an awaiter on a Reset-invalidated task must receive a cancellation result, not hang")
	case <-time.After(time.Second):
		t.Fatal("RunAndAwait did not return after Reset invalidated its task")
	}
}

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

// TestYieldOverrideContextChangesClock verifies a Continuation's override
// context actually changes how a yield is recorded (its Clock), instead of
// the emit path always hard-coding the Store's own clock.
func TestYieldOverrideContextChangesClock(t *testing.T) {
	fixed := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	query := NewQuery(NewPath("override-yield"), func(ctx *Context, cont *Continuation[int]) (int, error) {
		override := With(ctx, ClockKey, fixedClock{t: fixed})
		cont.Yield(Success(1), override)
		return 2, nil
	}, WithAutomaticRunningSpec[int, int](Always(false)))
	store := NewStore[int, int](query.Path(), query, nil)

	var mu sync.Mutex
	var yieldedAt *time.Time
	sub := store.Subscribe(func(snap StateSnapshot[int]) {
		mu.Lock()
		defer mu.Unlock()
		if snap.ValueUpdateCount == 1 {
			yieldedAt = snap.ValueLastUpdatedAt
		}
	})
	defer sub.Cancel()

	_, err := store.RunAndAwait(context.Background(), "test")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, yieldedAt)
	require.True(t, fixed.Equal(*yieldedAt), "override clock must be used for the yielded update's timestamp")
}

func TestSubscribeTriggersAutomaticRun(t *testing.T) {
	var runs atomic.Int32
	query := NewQuery(NewPath("auto"), func(ctx *Context, cont *Continuation[int]) (int, error) {
		runs.Add(1)
		return 1, nil
	})
	store := NewStore[int, int](query.Path(), query, nil)

	sub := store.Subscribe(func(StateSnapshot[int]) {})
	defer sub.Cancel()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, 200*time.Millisecond, 5*time.Millisecond)
}
