package operation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlwaysSpec(t *testing.T) {
	ctx := NewContext(context.Background())
	require.True(t, Always(true).IsSatisfied(ctx))
	require.False(t, Always(false).IsSatisfied(ctx))
}

func TestAndOrNot(t *testing.T) {
	ctx := NewContext(context.Background())

	require.True(t, And(Always(true), Always(true)).IsSatisfied(ctx))
	require.False(t, And(Always(true), Always(false)).IsSatisfied(ctx))
	require.True(t, Or(Always(false), Always(true)).IsSatisfied(ctx))
	require.True(t, Not(Always(false)).IsSatisfied(ctx))
}

// fakeBoolSpec is a minimal RunSpecification-compatible source used to
// drive Subscribe and exercise dedupLatch's consecutive-duplicate
// suppression.
type fakeBoolSpec struct {
	subscribers []func(bool)
}

func (f *fakeBoolSpec) IsSatisfied(ctx *Context) bool { return false }

func (f *fakeBoolSpec) Subscribe(ctx *Context, cb func(bool)) Subscription {
	f.subscribers = append(f.subscribers, cb)
	return EmptySubscription
}

func (f *fakeBoolSpec) emit(v bool) {
	for _, cb := range f.subscribers {
		cb(v)
	}
}

func TestCombinatorSubscribeDedupsConsecutiveDuplicates(t *testing.T) {
	a := &fakeBoolSpec{}
	b := &fakeBoolSpec{}
	spec := And(a, b)

	var observed []bool
	spec.Subscribe(NewContext(context.Background()), func(v bool) {
		observed = append(observed, v)
	})

	a.emit(true)  // first combined value (true && false) -> notify false
	b.emit(true)  // first time both true -> notify
	b.emit(true)  // duplicate, must be suppressed
	a.emit(false) // combined value changes -> notify false
	a.emit(false) // duplicate, must be suppressed

	require.Equal(t, []bool{false, true, false}, observed)
}

func TestApplicationIsActiveRespectsDisableFlag(t *testing.T) {
	observer := &fakeActivityObserver{active: true}
	spec := ApplicationIsActive(observer)

	ctx := With(NewContext(context.Background()), IsAppActiveRerunEnabledKey, false)
	require.False(t, spec.IsSatisfied(ctx))

	enabledCtx := With(NewContext(context.Background()), IsAppActiveRerunEnabledKey, true)
	require.True(t, spec.IsSatisfied(enabledCtx))
}

type fakeActivityObserver struct {
	active bool
	subs   []func(bool)
}

func (f *fakeActivityObserver) IsActive() bool { return f.active }
func (f *fakeActivityObserver) Subscribe(cb func(bool)) Subscription {
	f.subs = append(f.subs, cb)
	return EmptySubscription
}
