package ldquad

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// NewQuadStorePostgreSQL opens a quad store on the PostgreSQL database named
// by connStr. Of the StoreOptions only WithLogger applies.
func NewQuadStorePostgreSQL(connStr string, opts ...StoreOption) (*QuadStoreDB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)
	return openQuadStore(db, true, postgresDialect{}, newConfig(opts).logger)
}

// NewQuadStorePostgreSQLFromDB creates a quad store on an existing
// PostgreSQL connection, which the caller keeps ownership of.
func NewQuadStorePostgreSQLFromDB(db *sql.DB, opts ...StoreOption) (*QuadStoreDB, error) {
	return openQuadStore(db, false, postgresDialect{}, newConfig(opts).logger)
}
