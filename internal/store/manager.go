package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/harentsoaR/auc-api/internal/logging"
)

const releaseTimeout = 5 * time.Second

// Options configures a Manager.
type Options struct {
	// Database is the logical database every lease selects.
	Database string
	// MaxLeases bounds concurrently held leases. Zero means 1.
	MaxLeases int
	// AcquireTimeout bounds how long Acquire waits for a free slot.
	// Zero waits until the caller's context is done.
	AcquireTimeout time.Duration
	Logger         logging.Logger
}

// Manager hands out one connection per request and takes it back.
// It holds no per-request state besides the lease counter.
type Manager struct {
	backend  Backend
	database string
	slots    *semaphore.Weighted
	timeout  time.Duration
	active   atomic.Int64
	log      logging.Logger
}

func NewManager(backend Backend, opts Options) *Manager {
	limit := opts.MaxLeases
	if limit <= 0 {
		limit = 1
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Manager{
		backend:  backend,
		database: opts.Database,
		slots:    semaphore.NewWeighted(int64(limit)),
		timeout:  opts.AcquireTimeout,
		log:      log,
	}
}

// Lease is a connection checked out of the Manager with its database
// already selected.
type Lease struct {
	m    *Manager
	conn Conn
	db   Database
	once sync.Once
}

// Acquire reserves a slot and opens a connection. Failures wrap
// ErrUnavailable and are never retried here.
func (m *Manager) Acquire(ctx context.Context) (*Lease, error) {
	wait := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		wait, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	if err := m.slots.Acquire(wait, 1); err != nil {
		return nil, fmt.Errorf("%w: no free connection: %w", ErrUnavailable, err)
	}

	conn, err := m.backend.Open(ctx)
	if err != nil {
		m.slots.Release(1)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	m.active.Add(1)
	return &Lease{m: m, conn: conn, db: conn.Database(m.database)}, nil
}

// Database returns the logical database selected for this lease.
func (l *Lease) Database() Database { return l.db }

// Release closes the connection and frees the slot. Calling it more than
// once is a no-op.
func (l *Lease) Release() {
	l.once.Do(func() {
		// The request context may already be cancelled; closing must still happen.
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if err := l.conn.Close(ctx); err != nil {
			l.m.log.Warn(ctx, "closing store connection failed", "error", err)
		}
		l.m.active.Add(-1)
		l.m.slots.Release(1)
	})
}

// With runs fn against a freshly leased database and releases the lease
// afterwards, whether fn returns normally, returns an error or panics.
func (m *Manager) With(ctx context.Context, fn func(ctx context.Context, db Database) error) error {
	lease, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	return fn(ctx, lease.Database())
}

// Active reports the number of leases currently held.
func (m *Manager) Active() int64 {
	return m.active.Load()
}

// DatabaseName returns the logical database leases select.
func (m *Manager) DatabaseName() string {
	return m.database
}

// Close disconnects the backend. Outstanding leases are not waited for.
func (m *Manager) Close(ctx context.Context) error {
	return m.backend.Disconnect(ctx)
}
