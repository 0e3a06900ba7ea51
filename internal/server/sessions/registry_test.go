package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"
)

var start = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type backendCase struct {
	name string
	make func(clock abtime.AbstractTime) Backend
}

func backends() []backendCase {
	return []backendCase{
		{"memory", func(abtime.AbstractTime) Backend { return NewMemory() }},
		{"stored", func(clock abtime.AbstractTime) Backend {
			return NewStored(store.New[models.UserSession](models.KindUserSession, nil, store.WithClock(clock)))
		}},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, r *Registry, clock *abtime.ManualTime)) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			clock := abtime.NewManualAtTime(start)
			r := NewRegistry(WithClock(clock), WithBackend(bc.make(clock)))
			fn(t, r, clock)
		})
	}
}

func TestRegistry_CreateResolve(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r *Registry, _ *abtime.ManualTime) {
		ctx := context.Background()
		id, err := r.Create(ctx, "user-1")
		require.NoError(t, err)

		_, err = uuid.Parse(id)
		assert.NoError(t, err)

		userID, ok := r.Resolve(id, Policy{})
		assert.True(t, ok)
		assert.Equal(t, "user-1", userID)

		_, ok = r.Resolve("", Policy{})
		assert.False(t, ok)
		_, ok = r.Resolve("unknown", Policy{})
		assert.False(t, ok)
	})
}

func TestRegistry_CreateDistinctIDs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r *Registry, _ *abtime.ManualTime) {
		ctx := context.Background()
		a, err := r.Create(ctx, "u")
		require.NoError(t, err)
		b, err := r.Create(ctx, "u")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
		assert.Equal(t, 2, r.Count())
	})
}

func TestRegistry_CreateRequiresUser(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.Zero(t, r.Count())
}

func TestRegistry_Expiry(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r *Registry, clock *abtime.ManualTime) {
		ctx := context.Background()
		id, err := r.Create(ctx, "user-1")
		require.NoError(t, err)
		p := Policy{MaxAge: 60 * time.Second}

		clock.Advance(60 * time.Second)
		_, ok := r.Resolve(id, p)
		assert.True(t, ok, "valid at exactly MaxAge")

		clock.Advance(time.Second)
		_, ok = r.Resolve(id, p)
		assert.False(t, ok, "expired after MaxAge")

		// no expiry policy still resolves, and Resolve did not purge
		_, ok = r.Resolve(id, Policy{})
		assert.True(t, ok)
		_, ok = r.Resolve(id, Policy{MaxAge: -1})
		assert.True(t, ok)
	})
}

func TestRegistry_ExpirySubSecondStart(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			ctx := context.Background()
			clock := abtime.NewManualAtTime(start.Add(900 * time.Millisecond))
			r := NewRegistry(WithClock(clock), WithBackend(bc.make(clock)))
			p := Policy{MaxAge: time.Minute}

			id, err := r.Create(ctx, "user-1")
			require.NoError(t, err)

			clock.Advance(59500 * time.Millisecond)
			_, ok := r.Resolve(id, p)
			assert.True(t, ok, "age 59.5s is inside the window")

			n, err := r.Purge(ctx, p)
			require.NoError(t, err)
			assert.Zero(t, n)

			clock.Advance(2 * time.Second)
			_, ok = r.Resolve(id, p)
			assert.False(t, ok, "age 61.5s is past the window")
		})
	}
}

func TestRegistry_Destroy(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r *Registry, _ *abtime.ManualTime) {
		ctx := context.Background()
		id, err := r.Create(ctx, "user-1")
		require.NoError(t, err)

		require.NoError(t, r.Destroy(ctx, id, Policy{}))
		_, ok := r.Resolve(id, Policy{})
		assert.False(t, ok)

		assert.ErrorIs(t, r.Destroy(ctx, id, Policy{}), common.ErrorNotFound)
		assert.ErrorIs(t, r.Destroy(ctx, "", Policy{}), common.ErrorNotFound)
	})
}

func TestRegistry_DestroyExpired(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r *Registry, clock *abtime.ManualTime) {
		ctx := context.Background()
		id, err := r.Create(ctx, "user-1")
		require.NoError(t, err)
		p := Policy{MaxAge: time.Minute}

		clock.Advance(2 * time.Minute)
		assert.ErrorIs(t, r.Destroy(ctx, id, p), common.ErrorNotFound)
		assert.Zero(t, r.Count())
	})
}

func TestRegistry_Purge(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r *Registry, clock *abtime.ManualTime) {
		ctx := context.Background()
		old, err := r.Create(ctx, "old")
		require.NoError(t, err)
		clock.Advance(time.Hour)
		fresh, err := r.Create(ctx, "fresh")
		require.NoError(t, err)

		n, err := r.Purge(ctx, Policy{})
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = r.Purge(ctx, Policy{MaxAge: 30 * time.Minute})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, ok := r.Resolve(old, Policy{})
		assert.False(t, ok)
		_, ok = r.Resolve(fresh, Policy{})
		assert.True(t, ok)
	})
}

func TestRegistry_IDCollision(t *testing.T) {
	ids := []string{"s1", "s1", "", "s2"}
	i := 0
	r := NewRegistry(WithIDGenerator(func() string { id := ids[i]; i++; return id }))
	ctx := context.Background()

	a, err := r.Create(ctx, "u")
	require.NoError(t, err)
	b, err := r.Create(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "s1", a)
	assert.Equal(t, "s2", b)

	r = NewRegistry(WithIDGenerator(func() string { return "" }))
	_, err = r.Create(ctx, "u")
	assert.ErrorIs(t, err, common.ErrorDuplicateKey)
}

type failingBackend struct {
	*Memory
	err error
}

func (f failingBackend) Put(context.Context, string, Record) error { return f.err }
func (f failingBackend) Delete(context.Context, string) error      { return f.err }

func TestRegistry_BackendErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	mem := NewMemory()
	_ = mem.Put(ctx, "s", Record{UserID: "u", CreatedAt: time.Now()})
	r := NewRegistry(WithBackend(failingBackend{Memory: mem, err: boom}))

	_, err := r.Create(ctx, "u")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, r.Destroy(ctx, "s", Policy{}), boom)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.Create(ctx, "u")
			if !assert.NoError(t, err) {
				return
			}
			_, ok := r.Resolve(id, Policy{})
			assert.True(t, ok)
			assert.NoError(t, r.Destroy(ctx, id, Policy{}))
		}()
	}
	wg.Wait()
	assert.Zero(t, r.Count())
}

func TestStored_Persists(t *testing.T) {
	ctx := context.Background()
	clock := abtime.NewManualAtTime(start)
	table := store.New[models.UserSession](models.KindUserSession, nil, store.WithClock(clock))
	r := NewRegistry(WithClock(clock), WithBackend(NewStored(table)))

	id, err := r.Create(ctx, "user-1")
	require.NoError(t, err)

	all := table.All()
	require.Len(t, all, 1)
	assert.Equal(t, id, all[0].SessionID)
	assert.Equal(t, "user-1", all[0].UserID)
	assert.Equal(t, start, all[0].CreatedAt.Time)
}
