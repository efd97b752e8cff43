package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/harentsoaR/auc-api/internal/store"
	"github.com/harentsoaR/auc-api/internal/store/memstore"
)

func newManager(t *testing.T, maxLeases int, timeout time.Duration) (*store.Manager, *memstore.Store) {
	t.Helper()
	mem := memstore.New()
	return store.NewManager(mem, store.Options{
		Database:       "auc",
		MaxLeases:      maxLeases,
		AcquireTimeout: timeout,
	}), mem
}

func TestAcquire_SelectsDatabaseAndReleases(t *testing.T) {
	m, mem := newManager(t, 2, time.Second)

	lease, err := m.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "auc", lease.Database().Name())
	assert.EqualValues(t, 1, m.Active())

	lease.Release()
	lease.Release()

	assert.EqualValues(t, 0, m.Active())
	assert.EqualValues(t, 1, mem.Opened())
	assert.EqualValues(t, 1, mem.Closed(), "second Release must not close again")
}

func TestAcquire_TimesOutWhenPoolExhausted(t *testing.T) {
	m, _ := newManager(t, 1, 20*time.Millisecond)

	held, err := m.Acquire(context.Background())
	require.NoError(t, err)

	_, err = m.Acquire(context.Background())
	assert.ErrorIs(t, err, store.ErrUnavailable)

	held.Release()
	again, err := m.Acquire(context.Background())
	require.NoError(t, err)
	again.Release()
}

func TestAcquire_BackendFailureFreesSlot(t *testing.T) {
	m, mem := newManager(t, 1, 20*time.Millisecond)
	mem.FailOpen(errors.New("connection refused"))

	_, err := m.Acquire(context.Background())
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.EqualValues(t, 0, m.Active())

	mem.FailOpen(nil)
	lease, err := m.Acquire(context.Background())
	require.NoError(t, err, "failed open must give the slot back")
	lease.Release()
}

func TestWith_ReleasesOnEveryExitPath(t *testing.T) {
	m, mem := newManager(t, 1, time.Second)
	ctx := context.Background()

	require.NoError(t, m.With(ctx, func(ctx context.Context, db store.Database) error {
		_, err := db.Collection("users").InsertOne(ctx, bson.M{"email": "a@x.com"})
		return err
	}))

	rejected := errors.New("rejected")
	err := m.With(ctx, func(ctx context.Context, db store.Database) error { return rejected })
	assert.ErrorIs(t, err, rejected)

	assert.Panics(t, func() {
		_ = m.With(ctx, func(ctx context.Context, db store.Database) error { panic("boom") })
	})

	assert.EqualValues(t, 0, m.Active())
	assert.Equal(t, mem.Opened(), mem.Closed())
	assert.EqualValues(t, 3, mem.Closed())
}

func TestWith_ReleasesWhenRequestContextCancelled(t *testing.T) {
	m, mem := newManager(t, 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	err := m.With(ctx, func(ctx context.Context, db store.Database) error {
		cancel()
		_, err := db.Collection("users").FindOne(ctx, bson.M{})
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, mem.Closed())
	assert.EqualValues(t, 0, m.Active())
}

func TestWith_BoundsConcurrentLeases(t *testing.T) {
	const limit = 3
	m, _ := newManager(t, limit, 0)

	var (
		mu      sync.Mutex
		current int
		peak    int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.With(context.Background(), func(ctx context.Context, db store.Database) error {
				mu.Lock()
				current++
				if current > peak {
					peak = current
				}
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				current--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, limit)
	assert.EqualValues(t, 0, m.Active())
}
