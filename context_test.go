package operation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextGetDefaultAndSet(t *testing.T) {
	key := NewKey[int]("count", 42)
	ctx := NewContext(context.Background())

	require.Equal(t, 42, Get(ctx, key))

	next := With(ctx, key, 7)
	require.Equal(t, 42, Get(ctx, key), "With must not mutate the original Context")
	require.Equal(t, 7, Get(next, key))
}

func TestContextCloneIsIndependent(t *testing.T) {
	key := NewKey[string]("name", "")
	base := With(NewContext(context.Background()), key, "base")
	derived := With(base, key, "derived")

	require.Equal(t, "base", Get(base, key))
	require.Equal(t, "derived", Get(derived, key))
}

func TestContextGoContextPreservedAcrossWith(t *testing.T) {
	goCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx := NewContext(goCtx)

	key := NewKey[int]("x", 0)
	next := With(ctx, key, 1)

	require.Equal(t, goCtx, next.GoContext())
}
