package reposcache_test

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/rhodecode/vcsserver/internal/reposcache"
	"github.com/rhodecode/vcsserver/internal/wire"
)

type fakeHandle struct {
	id     int
	closed *bool
}

func (f fakeHandle) Close() error {
	*f.closed = true
	return nil
}

func TestGetCachesByContextAndPath(t *testing.T) {
	factory := reposcache.New[fakeHandle](wire.RegionGit, 10, time.Minute)

	calls := 0
	create := func() (fakeHandle, error) {
		calls++
		closed := false
		return fakeHandle{id: calls, closed: &closed}, nil
	}

	args := wire.Args{wire.KeyPath: "/repos/a", wire.KeyContext: "req-1"}

	h1, err := factory.Get(args, create)
	assert.NoError(t, err)
	h2, err := factory.Get(args, create)
	assert.NoError(t, err)

	assert.Equal(t, h1.id, h2.id)
	assert.Equal(t, 1, calls)
}

func TestGetBypassesCacheWithoutContext(t *testing.T) {
	factory := reposcache.New[fakeHandle](wire.RegionHg, 10, time.Minute)
	calls := 0
	create := func() (fakeHandle, error) {
		calls++
		closed := false
		return fakeHandle{id: calls, closed: &closed}, nil
	}

	args := wire.Args{wire.KeyPath: "/repos/a"}
	_, err := factory.Get(args, create)
	assert.NoError(t, err)
	_, err = factory.Get(args, create)
	assert.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestPurgeClosesHandles(t *testing.T) {
	factory := reposcache.New[fakeHandle](wire.RegionSvn, 10, time.Minute)
	closed := false
	_, err := factory.Get(wire.Args{wire.KeyPath: "/repos/a", wire.KeyContext: "ctx"}, func() (fakeHandle, error) {
		return fakeHandle{id: 1, closed: &closed}, nil
	})
	assert.NoError(t, err)

	factory.Purge()
	assert.True(t, closed)
	assert.Equal(t, 0, factory.Len())
}
