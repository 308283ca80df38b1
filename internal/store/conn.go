package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

const defaultPingTimeout = 5 * time.Second

// Options configure how a Manager obtains its database handle.
type Options struct {
	Dialect Dialect
	DSN     string
	// Reuse keeps the handle in a process-wide registry keyed by driver and DSN,
	// so rebuilding the application inside one process never opens a second pool.
	// Development mode turns it on; production opens one handle per Manager.
	Reuse           bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// Manager hands out the single database handle used by the process.
type Manager struct {
	db      *sqlx.DB
	dialect Dialect
	shared  bool
}

var (
	sharedMu sync.Mutex
	shared   = map[string]*sqlx.DB{}
)

// NewManager opens (or, with Reuse, looks up) the database handle and eagerly
// pings it. A failed ping is logged and otherwise ignored: the error resurfaces
// on the first real query.
func NewManager(ctx context.Context, opt Options, log zerolog.Logger) (*Manager, error) {
	if !opt.Reuse {
		db, err := open(ctx, opt, log)
		if err != nil {
			return nil, err
		}
		return &Manager{db: db, dialect: opt.Dialect}, nil
	}

	sharedMu.Lock()
	defer sharedMu.Unlock()
	key := opt.Dialect.DriverName + "|" + opt.DSN
	if db, ok := shared[key]; ok {
		log.Debug().Str("driver", opt.Dialect.DriverName).Msg("reusing shared database handle")
		return &Manager{db: db, dialect: opt.Dialect, shared: true}, nil
	}
	db, err := open(ctx, opt, log)
	if err != nil {
		return nil, err
	}
	shared[key] = db
	return &Manager{db: db, dialect: opt.Dialect, shared: true}, nil
}

func open(ctx context.Context, opt Options, log zerolog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open(opt.Dialect.DriverName, opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opt.Dialect.Name, err)
	}
	if opt.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opt.MaxOpenConns)
	}
	if opt.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opt.MaxIdleConns)
	}
	if opt.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opt.ConnMaxLifetime)
	}

	timeout := opt.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		log.Error().Err(err).Str("driver", opt.Dialect.DriverName).Msg("failed to connect to database")
	} else {
		log.Info().Str("driver", opt.Dialect.DriverName).Msg("connected to database")
	}
	return db, nil
}

// Client returns the handle. Repeated calls return the same value.
func (m *Manager) Client() *sqlx.DB { return m.db }

func (m *Manager) Dialect() Dialect { return m.dialect }

// Close releases a handle owned by this Manager. Shared handles stay open
// until CloseShared.
func (m *Manager) Close() error {
	if m.shared {
		return nil
	}
	return m.db.Close()
}

// CloseShared closes every handle in the process-wide registry.
func CloseShared() error {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	var first error
	for key, db := range shared {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
		delete(shared, key)
	}
	return first
}
