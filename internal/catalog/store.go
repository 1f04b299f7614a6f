// Package catalog is the single embedded SQL store for the whole
// library: entity models, versioned migrations, and the finder layer
// that the Subsonic endpoints and the scanner read and write through.
//
// It is wrapped behind three layers: schema
// + migrations (migrations.go), sessions + transactions (session.go),
// and finders (one file per entity family).
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	applog "lms/pkg/logger"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// EXPECTED_VERSION is the schema version this binary requires. Startup
// fails fast if the on-disk schema is newer; if older, Open runs the
// migration sequence up to this version.
var EXPECTED_VERSION = len(migrations)

// Store owns the single *gorm.DB connection to the catalog's SQLite
// file, the process-wide reader-writer lock that is the one
// ordering-authority on catalog data, and a bounded session
// pool. There is exactly one Store per process.
type Store struct {
	db   *gorm.DB
	lock sync.RWMutex
	pool *SessionPool
	log  applog.Logger

	debug bool
}

// Options configures Open.
type Options struct {
	// Path is the SQLite file path. ":memory:" is accepted for tests.
	Path string
	// SessionPoolSize bounds the number of borrowable sessions.
	SessionPoolSize int
	// BorrowTimeout bounds how long Borrow waits for a free session.
	BorrowTimeout time.Duration
	// Debug enables checkReadTransaction/checkWriteTransaction
	// assertions that panic on misuse. Intended for development and
	// test builds, not production.
	Debug bool
}

func (o Options) withDefaults() Options {
	if o.SessionPoolSize <= 0 {
		o.SessionPoolSize = 16
	}
	if o.BorrowTimeout <= 0 {
		o.BorrowTimeout = 10 * time.Second
	}
	return o
}

// Open opens (creating if absent) the SQLite file at opts.Path in WAL
// mode, runs pending migrations, ensures the fixed index set, and
// returns a ready Store.
func Open(opts Options) (*Store, error) {
	opts = opts.withDefaults()
	log := applog.New("catalog").Function("Open")

	if opts.Path != ":memory:" {
		if dir := filepath.Dir(opts.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, log.Err("failed to create catalog directory", err, "dir", dir)
			}
		}
	}

	dsn := opts.Path
	if dsn != ":memory:" {
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", dsn)
	}

	gormLog := gormlogger.New(
		logAdapter{log},
		gormlogger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{
		Logger:                 gormLog,
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, log.Err("failed to open catalog database", err, "path", opts.Path)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, log.Err("failed to get sql.DB from gorm", err)
	}
	// SQLite allows only one writer; a single physical connection keeps
	// the RWMutex the sole arbiter instead of also contending with the
	// driver's own connection-level locking.
	sqlDB.SetMaxOpenConns(1)

	store := &Store{
		db:    db,
		log:   log,
		debug: opts.Debug,
	}
	store.pool = NewSessionPool(store, opts.SessionPoolSize, opts.BorrowTimeout)

	if err := store.migrate(); err != nil {
		return nil, log.Err("failed to migrate catalog schema", err)
	}
	if err := store.ensureIndexes(); err != nil {
		return nil, log.Err("failed to ensure catalog indexes", err)
	}

	return store, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Pool exposes the session pool for callers building a scoped session
// (request handlers, scanner workers).
func (s *Store) Pool() *SessionPool { return s.pool }

type logAdapter struct{ log applog.Logger }

func (a logAdapter) Printf(format string, args ...any) {
	a.log.Debug(fmt.Sprintf(format, args...))
}
