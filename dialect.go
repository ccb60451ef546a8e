package ldquad

import (
	"fmt"
	"strings"
)

// dialect defines an interface for generating database-specific SQL.
//
// The default graph is stored under the empty graph name. Subjects,
// predicates and graph names are stored in N-Triples form; objects are
// stored as JSON term objects (see termJSON).
type dialect interface {
	// createTableSQL returns the SQL for creating the 'quads' table.
	createTableSQL() string
	// createNamespacesSQL returns the SQL for creating the 'namespaces' table.
	createNamespacesSQL() string
	// createIndexSQL returns the SQL for the lookup indexes.
	createIndexSQL() []string
	// addSQL returns the SQL for inserting a quad with conflict handling.
	addSQL() string
	// removeSQL returns the SQL for deleting a quad by its hash.
	removeSQL() string
	// containsSQL returns the SQL for checking if a quad exists by its hash.
	containsSQL() string
	// batchInsertSQL builds a multi-row INSERT statement for a given number of rows.
	batchInsertSQL(numRows int) string
	// quadsSQL selects graph, subject, predicate and object of every quad.
	quadsSQL() string
	// graphsSQL selects the distinct named graphs in order of first use.
	graphsSQL() string
	// subjectsSQL selects the distinct subjects of a graph in order of first use.
	subjectsSQL() string
	// predicateObjectsSQL selects the edges of one subject.
	predicateObjectsSQL() string
	// objectsWithPredicateSQL selects the objects linked by one predicate.
	objectsWithPredicateSQL() string
	// subjectsWithObjectSQL selects the subjects linking to one object.
	subjectsWithObjectSQL() string
	// bindSQL upserts a namespace prefix.
	bindSQL() string
}

// --- SQLite Dialect ---

type sqliteDialect struct{}

func (d sqliteDialect) createTableSQL() string {
	return `
		CREATE TABLE IF NOT EXISTS quads (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			quad_hash BIGINT NOT NULL UNIQUE,
			graph TEXT NOT NULL,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			object BLOB NOT NULL
		);
	`
}

func (d sqliteDialect) createNamespacesSQL() string {
	return `
		CREATE TABLE IF NOT EXISTS namespaces (
			prefix TEXT NOT NULL PRIMARY KEY,
			namespace TEXT NOT NULL
		) WITHOUT ROWID;
	`
}

func (d sqliteDialect) createIndexSQL() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_quads_subject ON quads(graph, subject);`,
		`CREATE INDEX IF NOT EXISTS idx_quads_predicate ON quads(graph, predicate);`,
	}
}

func (d sqliteDialect) addSQL() string {
	// Use jsonb() to convert JSON text to binary JSONB format
	return `
		INSERT INTO quads (quad_hash, graph, subject, predicate, object)
		VALUES (?, ?, ?, ?, jsonb(?))
		ON CONFLICT (quad_hash) DO NOTHING
	`
}

func (d sqliteDialect) removeSQL() string {
	return `DELETE FROM quads WHERE quad_hash = ?`
}

func (d sqliteDialect) containsSQL() string {
	return `SELECT COUNT(*) FROM quads WHERE quad_hash = ?`
}

func (d sqliteDialect) batchInsertSQL(numRows int) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO quads (quad_hash, graph, subject, predicate, object) VALUES ")
	for i := 0; i < numRows; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?,?,?,?,jsonb(?))")
	}
	sb.WriteString(" ON CONFLICT (quad_hash) DO NOTHING")
	return sb.String()
}

func (d sqliteDialect) quadsSQL() string {
	return `SELECT graph, subject, predicate, json(object) FROM quads ORDER BY seq`
}

func (d sqliteDialect) graphsSQL() string {
	return `SELECT graph FROM quads WHERE graph <> '' GROUP BY graph ORDER BY MIN(seq)`
}

func (d sqliteDialect) subjectsSQL() string {
	return `SELECT subject FROM quads WHERE graph = ? GROUP BY subject ORDER BY MIN(seq)`
}

func (d sqliteDialect) predicateObjectsSQL() string {
	return `SELECT predicate, json(object) FROM quads WHERE graph = ? AND subject = ? ORDER BY seq`
}

func (d sqliteDialect) objectsWithPredicateSQL() string {
	return `SELECT json(object) FROM quads WHERE graph = ? AND predicate = ? ORDER BY seq`
}

func (d sqliteDialect) subjectsWithObjectSQL() string {
	// Both sides are minified by json(), and termJSON writes members in a
	// fixed order, so text equality is term equality.
	return `SELECT subject FROM quads WHERE graph = ? AND json(object) = json(?) ORDER BY seq`
}

func (d sqliteDialect) bindSQL() string {
	return `
		INSERT INTO namespaces (prefix, namespace) VALUES (?, ?)
		ON CONFLICT (prefix) DO UPDATE SET namespace = excluded.namespace
	`
}

// --- PostgreSQL Dialect ---

type postgresDialect struct{}

func (d postgresDialect) createTableSQL() string {
	return `
		CREATE TABLE IF NOT EXISTS quads (
			seq BIGSERIAL PRIMARY KEY,
			quad_hash BIGINT NOT NULL UNIQUE,
			graph TEXT NOT NULL,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			object JSONB NOT NULL
		);
	`
}

func (d postgresDialect) createNamespacesSQL() string {
	return `
		CREATE TABLE IF NOT EXISTS namespaces (
			prefix TEXT NOT NULL PRIMARY KEY,
			namespace TEXT NOT NULL
		);
	`
}

func (d postgresDialect) createIndexSQL() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_quads_subject ON quads(graph, subject);`,
		`CREATE INDEX IF NOT EXISTS idx_quads_predicate ON quads(graph, predicate);`,
		`CREATE INDEX IF NOT EXISTS idx_quads_object ON quads USING GIN (object);`,
	}
}

func (d postgresDialect) addSQL() string {
	// Use a type cast ($5::jsonb) and specify the conflict target.
	return `
		INSERT INTO quads (quad_hash, graph, subject, predicate, object)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (quad_hash) DO NOTHING
	`
}

func (d postgresDialect) removeSQL() string {
	return `DELETE FROM quads WHERE quad_hash = $1`
}

func (d postgresDialect) containsSQL() string {
	return `SELECT COUNT(*) FROM quads WHERE quad_hash = $1`
}

func (d postgresDialect) batchInsertSQL(numRows int) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO quads (quad_hash, graph, subject, predicate, object) VALUES ")
	paramIndex := 1
	for i := 0; i < numRows; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		// Each row has 5 placeholders, and the object placeholder needs a type cast.
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d::jsonb)",
			paramIndex, paramIndex+1, paramIndex+2, paramIndex+3, paramIndex+4))
		paramIndex += 5
	}
	sb.WriteString(" ON CONFLICT (quad_hash) DO NOTHING")
	return sb.String()
}

func (d postgresDialect) quadsSQL() string {
	return `SELECT graph, subject, predicate, object::text FROM quads ORDER BY seq`
}

func (d postgresDialect) graphsSQL() string {
	return `SELECT graph FROM quads WHERE graph <> '' GROUP BY graph ORDER BY MIN(seq)`
}

func (d postgresDialect) subjectsSQL() string {
	return `SELECT subject FROM quads WHERE graph = $1 GROUP BY subject ORDER BY MIN(seq)`
}

func (d postgresDialect) predicateObjectsSQL() string {
	return `SELECT predicate, object::text FROM quads WHERE graph = $1 AND subject = $2 ORDER BY seq`
}

func (d postgresDialect) objectsWithPredicateSQL() string {
	return `SELECT object::text FROM quads WHERE graph = $1 AND predicate = $2 ORDER BY seq`
}

func (d postgresDialect) subjectsWithObjectSQL() string {
	// jsonb equality ignores member order and whitespace.
	return `SELECT subject FROM quads WHERE graph = $1 AND object = $2::jsonb ORDER BY seq`
}

func (d postgresDialect) bindSQL() string {
	return `
		INSERT INTO namespaces (prefix, namespace) VALUES ($1, $2)
		ON CONFLICT (prefix) DO UPDATE SET namespace = excluded.namespace
	`
}
