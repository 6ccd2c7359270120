package archivecache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mackron/gofs/internal/backend"
	"github.com/mackron/gofs/internal/stream"
)

// fakeBackend is a minimal backend.Backend recording whether Uninit ran.
type fakeBackend struct {
	kind     string
	uninited *bool
}

func (f fakeBackend) Kind() string { return f.kind }
func (f fakeBackend) Init(ctx context.Context, cfg backend.Config, src stream.Stream) error {
	return nil
}
func (f fakeBackend) Uninit(ctx context.Context) error {
	*f.uninited = true
	return nil
}
func (f fakeBackend) Info(ctx context.Context, path string, flags backend.Flags) (backend.FileInfo, error) {
	return backend.FileInfo{}, backend.ErrNotImplemented
}
func (f fakeBackend) Open(ctx context.Context, path string, flags backend.Flags) (backend.File, error) {
	return nil, backend.ErrNotImplemented
}
func (f fakeBackend) OpenIterator(ctx context.Context, dir string, flags backend.Flags) (backend.Iterator, error) {
	return nil, backend.ErrNotImplemented
}
func (f fakeBackend) Remove(ctx context.Context, path string) error             { return backend.ErrNotImplemented }
func (f fakeBackend) Rename(ctx context.Context, oldPath, newPath string) error { return backend.ErrNotImplemented }
func (f fakeBackend) Mkdir(ctx context.Context, path string, flags backend.Flags) error {
	return backend.ErrNotImplemented
}

func opener(kind string, uninited *bool) Opener {
	return func(ctx context.Context, parent *Entry) (backend.Backend, error) {
		return fakeBackend{kind: kind, uninited: uninited}, nil
	}
}

// TestSingleInitialization verifies a second GetOrOpen for the same key
// reuses the cached entry rather than invoking Opener again (invariant
// I1).
func TestSingleInitialization(t *testing.T) {
	c := New()
	ctx := context.Background()
	calls := 0
	open := func(ctx context.Context, parent *Entry) (backend.Backend, error) {
		calls++
		var u bool
		return fakeBackend{kind: "zip", uninited: &u}, nil
	}

	e1, rel1, err := c.GetOrOpen(ctx, "root.zip", nil, true, open)
	require.NoError(t, err)
	e2, rel2, err := c.GetOrOpen(ctx, "root.zip", nil, true, open)
	require.NoError(t, err)

	assert.Same(t, e1, e2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())

	rel1()
	rel2()
}

// TestNestedArchiveChain mirrors the spec's nested-archive scenario:
// opening testvectors2.zip/testvectors.zip/miniaudio.h twice yields
// exactly two cache entries (the two archive levels), and closing both
// handles followed by a full GC drains the cache to zero.
func TestNestedArchiveChain(t *testing.T) {
	c := New()
	ctx := context.Background()
	var outerUninited, innerUninited bool

	openFirst := func() (Entry *Entry, relOuter, relInner backend.ArchiveRef) {
		outer, rO, err := c.GetOrOpen(ctx, "testvectors2.zip", nil, true, opener("zip", &outerUninited))
		require.NoError(t, err)
		inner, rI, err := c.GetOrOpen(ctx, "testvectors2.zip!testvectors.zip", outer, true, opener("zip", &innerUninited))
		require.NoError(t, err)
		return inner, rO, rI
	}

	_, relOuter1, relInner1 := openFirst()
	assert.Equal(t, 2, c.Len())

	// Second resolution of the same nested path reuses both cache
	// entries rather than opening new ones.
	outer2, rO2, err := c.GetOrOpen(ctx, "testvectors2.zip", nil, true, opener("zip", &outerUninited))
	require.NoError(t, err)
	_, rI2, err := c.GetOrOpen(ctx, "testvectors2.zip!testvectors.zip", outer2, true, opener("zip", &innerUninited))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	relOuter1()
	relInner1()
	rO2()
	rI2()

	n := c.GC(ctx, PolicyFull, 0)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, c.Len())
	assert.True(t, outerUninited)
	assert.True(t, innerUninited)
}

// TestParentSurvivesWhileChildLive verifies invariant I2/I4: a parent
// entry cannot be collected while a child entry still holds a structural
// reference on it, even under the "full" policy.
func TestParentSurvivesWhileChildLive(t *testing.T) {
	c := New()
	ctx := context.Background()
	var outerUninited, innerUninited bool

	outer, relOuter, err := c.GetOrOpen(ctx, "a.zip", nil, true, opener("zip", &outerUninited))
	require.NoError(t, err)
	_, relInner, err := c.GetOrOpen(ctx, "a.zip!b.zip", outer, true, opener("zip", &innerUninited))
	require.NoError(t, err)

	// Drop the direct handle ref on the outer archive, but keep the
	// inner child alive: outer must survive GC because the inner entry
	// still holds a structural reference on it.
	relOuter()
	n := c.GC(ctx, PolicyFull, 0)
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, c.Len())
	assert.False(t, outerUninited)

	relInner()
	n = c.GC(ctx, PolicyFull, 0)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, c.Len())
	assert.True(t, outerUninited)
	assert.True(t, innerUninited)
}

// TestThresholdPolicyRespectsIdleDuration verifies PolicyThreshold only
// collects entries that have been idle at least as long as the given
// duration.
func TestThresholdPolicyRespectsIdleDuration(t *testing.T) {
	c := New()
	ctx := context.Background()
	var u bool

	_, rel, err := c.GetOrOpen(ctx, "a.zip", nil, true, opener("zip", &u))
	require.NoError(t, err)
	rel()

	n := c.GC(ctx, PolicyThreshold, time.Hour)
	assert.Equal(t, 0, n, "freshly idle entry must not be collected under a long threshold")
	assert.Equal(t, 1, c.Len())

	n = c.GC(ctx, PolicyThreshold, 0)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, c.Len())
}

// TestDescentNotPermittedWithoutLazyOpen verifies eager/lazy control: a
// miss with allowOpen=false fails rather than opening.
func TestDescentNotPermittedWithoutLazyOpen(t *testing.T) {
	c := New()
	ctx := context.Background()
	called := false
	_, _, err := c.GetOrOpen(ctx, "a.zip", nil, false, func(ctx context.Context, parent *Entry) (backend.Backend, error) {
		called = true
		var u bool
		return fakeBackend{kind: "zip", uninited: &u}, nil
	})
	assert.ErrorIs(t, err, ErrDescentNotPermitted)
	assert.False(t, called)
	assert.Equal(t, 0, c.Len())
}
