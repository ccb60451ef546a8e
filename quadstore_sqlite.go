package ldquad

import (
	"database/sql"
	"fmt"
	"maps"
	"slices"

	"github.com/charmbracelet/log"

	_ "modernc.org/sqlite" // SQLite driver
)

// config holds configuration options for the QuadStoreDB.
type config struct {
	pragmas map[string]string
	logger  *log.Logger
}

// StoreOption is a function that configures a QuadStoreDB.
type StoreOption func(*config)

// WithPragma sets a specific SQLite PRAGMA statement.
// For example: WithPragma("synchronous", "NORMAL").
// This will override any default value for the given PRAGMA key.
// PostgreSQL stores ignore it.
func WithPragma(key, value string) StoreOption {
	return func(c *config) {
		if c.pragmas == nil {
			c.pragmas = make(map[string]string)
		}
		c.pragmas[key] = value
	}
}

// WithLogger sets the logger used to report failures of the read methods.
func WithLogger(l *log.Logger) StoreOption {
	return func(c *config) { c.logger = l }
}

// defaultConfig returns a new config with default PRAGMA settings
// for performance and concurrency.
func defaultConfig() *config {
	return &config{
		pragmas: map[string]string{
			"journal_mode": "WAL",
			"synchronous":  "NORMAL",
			"cache_size":   "-64000",
			"temp_store":   "MEMORY",
			"mmap_size":    "268435456",
			"busy_timeout": "5000",
			"foreign_keys": "OFF",
			"auto_vacuum":  "INCREMENTAL",
		},
		logger: log.Default(),
	}
}

func newConfig(opts []StoreOption) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.Default()
	}
	return cfg
}

// NewQuadStoreSQLite creates a new SQLite-backed quad store.
// Pass ":memory:" for dbPath to create an in-memory database.
// Optional StoreOption functions can be provided to customize PRAGMA settings.
func NewQuadStoreSQLite(dbPath string, opts ...StoreOption) (*QuadStoreDB, error) {
	// For in-memory databases, use a unique name with shared cache
	// This allows concurrent connections within the same database while keeping
	// different database instances separate
	if dbPath == ":memory:" {
		id := inMemoryDBCounter.Add(1)
		dbPath = fmt.Sprintf("file:quadstore_%d?mode=memory&cache=shared", id)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)

	cfg := newConfig(opts)
	if err := applyPragmas(db, cfg.pragmas); err != nil {
		db.Close()
		return nil, err
	}
	return openQuadStore(db, true, sqliteDialect{}, cfg.logger)
}

// NewQuadStoreSQLiteFromDB creates a SQLite-backed quad store on an existing
// connection. PRAGMA options are applied to it. The caller retains
// ownership of db and must close it separately.
func NewQuadStoreSQLiteFromDB(db *sql.DB, opts ...StoreOption) (*QuadStoreDB, error) {
	cfg := newConfig(opts)
	if err := applyPragmas(db, cfg.pragmas); err != nil {
		return nil, err
	}
	return openQuadStore(db, false, sqliteDialect{}, cfg.logger)
}

// applyPragmas runs the PRAGMA statements in key order.
func applyPragmas(db *sql.DB, pragmas map[string]string) error {
	for _, key := range slices.Sorted(maps.Keys(pragmas)) {
		pragmaSQL := fmt.Sprintf("PRAGMA %s=%s", key, pragmas[key])
		if _, err := db.Exec(pragmaSQL); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragmaSQL, err)
		}
	}
	return nil
}
