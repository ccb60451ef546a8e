// Package ldquad stores RDF quads in SQL databases. A QuadStoreDB is an
// rdf.Graph, so JSON-LD documents can be expanded straight into it and
// compacted back out of it.
package ldquad

import (
	"database/sql"
	"fmt"
	"hash/fnv"
	"io"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/twinfer/ldquad/rdf"
)

// Counter for generating unique in-memory database names
var inMemoryDBCounter atomic.Uint64

// QuadStoreDB implements rdf.Graph on top of database/sql. Quads live in a
// single table keyed by a hash of their N-Quads form; an insertion sequence
// keeps iteration in insertion order, as rdf.Source requires.
//
// Read methods of rdf.Source cannot return errors; failures are logged and
// reported as empty results.
type QuadStoreDB struct {
	db *sql.DB
	// ownsDB is false when the caller supplied the connection.
	ownsDB bool
	// dialect handles SQL syntax differences between databases.
	dialect dialect
	logger  *log.Logger
	// Prepared statements for performance
	addStmt      *sql.Stmt
	removeStmt   *sql.Stmt
	containsStmt *sql.Stmt
	bindStmt     *sql.Stmt
}

var (
	_ rdf.Graph        = (*QuadStoreDB)(nil)
	_ rdf.PrefixSource = (*QuadStoreDB)(nil)
	_ io.WriterTo      = (*QuadStoreDB)(nil)
	_ io.ReaderFrom    = (*QuadStoreDB)(nil)
)

// openQuadStore wraps db in a store for dialect d and prepares its schema.
// On failure the prepared statements are released, and db is closed when
// ownsDB is set.
func openQuadStore(db *sql.DB, ownsDB bool, d dialect, logger *log.Logger) (*QuadStoreDB, error) {
	store := &QuadStoreDB{
		db:      db,
		ownsDB:  ownsDB,
		dialect: d,
		logger:  logger,
	}
	if err := store.initSchemaAndStatements(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchemaAndStatements creates the tables, indexes, and prepared statements.
func (s *QuadStoreDB) initSchemaAndStatements() error {
	if _, err := s.db.Exec(s.dialect.createTableSQL()); err != nil {
		return fmt.Errorf("failed to create quads table: %w", err)
	}
	if _, err := s.db.Exec(s.dialect.createNamespacesSQL()); err != nil {
		return fmt.Errorf("failed to create namespaces table: %w", err)
	}
	for _, stmt := range s.dialect.createIndexSQL() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	var err error
	if s.addStmt, err = s.db.Prepare(s.dialect.addSQL()); err != nil {
		return fmt.Errorf("failed to prepare add statement: %w", err)
	}
	if s.removeStmt, err = s.db.Prepare(s.dialect.removeSQL()); err != nil {
		return fmt.Errorf("failed to prepare remove statement: %w", err)
	}
	if s.containsStmt, err = s.db.Prepare(s.dialect.containsSQL()); err != nil {
		return fmt.Errorf("failed to prepare contains statement: %w", err)
	}
	if s.bindStmt, err = s.db.Prepare(s.dialect.bindSQL()); err != nil {
		return fmt.Errorf("failed to prepare bind statement: %w", err)
	}
	return nil
}

// Add inserts q. Adding a quad that is already stored is a no-op.
func (s *QuadStoreDB) Add(q rdf.Quad) error {
	_, err := s.Insert(q)
	return err
}

// Insert adds q and reports whether it was not stored before.
func (s *QuadStoreDB) Insert(q rdf.Quad) (bool, error) {
	r, err := quadToRow(q)
	if err != nil {
		return false, err
	}

	// The UNIQUE(quad_hash) constraint handles deduplication
	res, err := s.addStmt.Exec(r.hash, r.graph, r.subject, r.predicate, r.object)
	if err != nil {
		return false, fmt.Errorf("failed to execute add statement: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected after add: %w", err)
	}
	return rowsAffected > 0, nil
}

// Contains reports whether q is stored.
func (s *QuadStoreDB) Contains(q rdf.Quad) bool {
	if q.Subject == nil || q.Object == nil {
		return false
	}
	var count int
	if err := s.containsStmt.QueryRow(quadHash(q)).Scan(&count); err != nil {
		s.logger.Error("failed to execute contains statement", "err", err)
		return false
	}
	return count > 0
}

// Remove deletes q and reports whether it was stored.
func (s *QuadStoreDB) Remove(q rdf.Quad) bool {
	if q.Subject == nil || q.Object == nil {
		return false
	}
	result, err := s.removeStmt.Exec(quadHash(q))
	if err != nil {
		s.logger.Error("failed to execute remove statement", "err", err)
		return false
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Error("failed to get rows affected after remove", "err", err)
		return false
	}
	return rowsAffected > 0
}

// Len returns the number of stored quads.
func (s *QuadStoreDB) Len() int {
	const query = "SELECT COUNT(*) FROM quads"
	var count int
	if err := s.db.QueryRow(query).Scan(&count); err != nil {
		s.logger.Error("failed to count quads", "err", err)
		return 0
	}
	return count
}

// Bind registers a namespace prefix. Expansion calls it for every prefix
// term of the document's context, and Prefixes feeds auto-compaction.
func (s *QuadStoreDB) Bind(prefix, namespace string) {
	if _, err := s.bindStmt.Exec(prefix, namespace); err != nil {
		s.logger.Error("failed to bind prefix", "prefix", prefix, "err", err)
	}
}

// Prefixes returns the registered namespace prefixes.
func (s *QuadStoreDB) Prefixes() map[string]string {
	out := make(map[string]string)
	rows, err := s.db.Query(`SELECT prefix, namespace FROM namespaces`)
	if err != nil {
		s.logger.Error("failed to query namespaces", "err", err)
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var prefix, ns string
		if err := rows.Scan(&prefix, &ns); err != nil {
			s.logger.Error("failed to scan namespace row", "err", err)
			continue
		}
		out[prefix] = ns
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("error iterating namespace rows", "err", err)
	}
	return out
}

// Graphs returns the named graphs in order of first use.
func (s *QuadStoreDB) Graphs() []rdf.Term {
	return s.queryTerms(s.dialect.graphsSQL(), ParseTerm)
}

// Subjects returns the distinct subjects of graph in order of first use.
func (s *QuadStoreDB) Subjects(graph rdf.Term) []rdf.Term {
	return s.queryTerms(s.dialect.subjectsSQL(), ParseTerm, graphKey(graph))
}

// ObjectsWithPredicate returns every object linked by predicate in graph.
func (s *QuadStoreDB) ObjectsWithPredicate(graph rdf.Term, predicate rdf.IRI) []rdf.Term {
	return s.queryTerms(s.dialect.objectsWithPredicateSQL(), unmarshalTerm, graphKey(graph), predicate.String())
}

// SubjectsWithObject returns the subjects that reference object in graph.
func (s *QuadStoreDB) SubjectsWithObject(graph, object rdf.Term) []rdf.Term {
	obj, err := marshalTerm(object)
	if err != nil {
		s.logger.Error("failed to marshal object", "object", object, "err", err)
		return nil
	}
	return s.queryTerms(s.dialect.subjectsWithObjectSQL(), ParseTerm, graphKey(graph), obj)
}

// PredicateObjects returns the outgoing edges of subject in graph.
func (s *QuadStoreDB) PredicateObjects(graph, subject rdf.Term) []rdf.PredicateObject {
	if subject == nil {
		return nil
	}
	rows, err := s.db.Query(s.dialect.predicateObjectsSQL(), graphKey(graph), subject.String())
	if err != nil {
		s.logger.Error("failed to query predicate objects", "err", err)
		return nil
	}
	defer rows.Close()

	var out []rdf.PredicateObject
	for rows.Next() {
		var predicateStr, objectJSON string
		if err := rows.Scan(&predicateStr, &objectJSON); err != nil {
			s.logger.Error("failed to scan predicate object row", "err", err)
			continue
		}
		p, err := parsePredicate(predicateStr)
		if err != nil {
			s.logger.Error("corrupt predicate", "value", predicateStr, "err", err)
			continue
		}
		o, err := unmarshalTerm(objectJSON)
		if err != nil {
			s.logger.Error("corrupt object", "value", objectJSON, "err", err)
			continue
		}
		out = append(out, rdf.PredicateObject{Predicate: p, Object: o})
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("error iterating predicate object rows", "err", err)
	}
	return out
}

func (s *QuadStoreDB) queryTerms(query string, decode func(string) (rdf.Term, error), args ...any) []rdf.Term {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		s.logger.Error("failed to query terms", "err", err)
		return nil
	}
	defer rows.Close()

	var out []rdf.Term
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			s.logger.Error("failed to scan term row", "err", err)
			continue
		}
		t, err := decode(v)
		if err != nil {
			s.logger.Error("corrupt term", "value", v, "err", err)
			continue
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("error iterating term rows", "err", err)
	}
	return out
}

// EachQuad calls fn for every stored quad in insertion order. Iteration
// stops at the first error returned by fn.
func (s *QuadStoreDB) EachQuad(fn func(rdf.Quad) error) error {
	rows, err := s.db.Query(s.dialect.quadsSQL())
	if err != nil {
		return fmt.Errorf("failed to query quads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r row
		if err := rows.Scan(&r.graph, &r.subject, &r.predicate, &r.object); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		q, err := rowToQuad(r)
		if err != nil {
			return err
		}
		if err := fn(q); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Merge copies every quad of src into the store using batched inserts.
// Prefixes are copied too when src carries them.
func (s *QuadStoreDB) Merge(src rdf.Source) error {
	var quads []rdf.Quad
	for _, g := range append([]rdf.Term{nil}, src.Graphs()...) {
		for _, subject := range src.Subjects(g) {
			for _, po := range src.PredicateObjects(g, subject) {
				quads = append(quads, rdf.Quad{Subject: subject, Predicate: po.Predicate, Object: po.Object, Graph: g})
			}
		}
	}
	if ps, ok := src.(rdf.PrefixSource); ok {
		for prefix, ns := range ps.Prefixes() {
			s.Bind(prefix, ns)
		}
	}
	if len(quads) == 0 {
		return nil
	}
	return s.batchInsertQuads(quads)
}

// batchInsertQuads inserts a slice of quads using multi-row INSERT statements.
func (s *QuadStoreDB) batchInsertQuads(quads []rdf.Quad) error {
	const batchSize = 500

	// Pre-compute all rows outside transaction to minimize lock time
	rows := make([]row, 0, len(quads))
	for _, q := range quads {
		r, err := quadToRow(q)
		if err != nil {
			return err
		}
		rows = append(rows, r)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback is a no-op if Commit succeeds

	for i := 0; i < len(rows); i += batchSize {
		end := min(i+batchSize, len(rows))
		batch := rows[i:end]

		params := make([]any, 0, len(batch)*5)
		for _, r := range batch {
			params = append(params, r.hash, r.graph, r.subject, r.predicate, r.object)
		}
		if _, err := tx.Exec(s.dialect.batchInsertSQL(len(batch)), params...); err != nil {
			return fmt.Errorf("failed to execute batch insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WriteTo writes all quads to w as a JSON array of quad objects, in
// insertion order. It implements the io.WriterTo interface.
func (s *QuadStoreDB) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	enc := jsontext.NewEncoder(cw)

	if err := enc.WriteToken(jsontext.BeginArray); err != nil {
		return cw.count, err
	}
	if err := s.EachQuad(func(q rdf.Quad) error {
		return (quadJSON{q}).MarshalJSONTo(enc)
	}); err != nil {
		return cw.count, fmt.Errorf("failed to write quads: %w", err)
	}
	if err := enc.WriteToken(jsontext.EndArray); err != nil {
		return cw.count, err
	}
	return cw.count, nil
}

// ReadFrom reads quads in the format produced by WriteTo and bulk-inserts
// them. It implements the io.ReaderFrom interface.
func (s *QuadStoreDB) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	dec := jsontext.NewDecoder(cr)

	tok, err := dec.ReadToken()
	if err != nil {
		return cr.count, fmt.Errorf("failed to read opening token: %w", err)
	}
	if tok.Kind() != '[' {
		return cr.count, fmt.Errorf("expected JSON array start '[', got %v", tok.Kind())
	}

	const batchSize = 500 // Match batchInsertQuads batch size
	var batch []rdf.Quad
	for dec.PeekKind() != ']' {
		var qj quadJSON
		if err := qj.UnmarshalJSONFrom(dec); err != nil {
			return cr.count, fmt.Errorf("failed to unmarshal quad from stream: %w", err)
		}
		batch = append(batch, qj.Quad)

		if len(batch) >= batchSize {
			if err := s.batchInsertQuads(batch); err != nil {
				return cr.count, fmt.Errorf("failed to insert batch: %w", err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.batchInsertQuads(batch); err != nil {
			return cr.count, fmt.Errorf("failed to insert final batch: %w", err)
		}
	}

	if tok, err = dec.ReadToken(); err != nil {
		return cr.count, fmt.Errorf("failed to read closing token: %w", err)
	}
	if tok.Kind() != ']' {
		return cr.count, fmt.Errorf("expected JSON array end ']', got %v", tok.Kind())
	}
	return cr.count, nil
}

// countingWriter wraps an io.Writer and counts bytes written.
type countingWriter struct {
	w     io.Writer
	count int64
}

func (cw *countingWriter) Write(p []byte) (n int, err error) {
	n, err = cw.w.Write(p)
	cw.count += int64(n)
	return n, err
}

// countingReader wraps an io.Reader and counts bytes read.
type countingReader struct {
	r     io.Reader
	count int64
}

func (cr *countingReader) Read(p []byte) (n int, err error) {
	n, err = cr.r.Read(p)
	cr.count += int64(n)
	return n, err
}

// Close releases the prepared statements and, when the store opened the
// connection itself, closes the database.
func (s *QuadStoreDB) Close() error {
	for _, stmt := range []*sql.Stmt{s.addStmt, s.removeStmt, s.containsStmt, s.bindStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// Helper Functions

// row is the stored form of a quad.
type row struct {
	hash      int64
	graph     string
	subject   string
	predicate string
	object    string
}

func graphKey(g rdf.Term) string {
	if g == nil {
		return ""
	}
	return g.String()
}

// quadHash hashes the N-Quads form of q with FNV-1a. The cast to int64
// keeps the bit pattern for BIGINT columns.
func quadHash(q rdf.Quad) int64 {
	h := fnv.New64a()
	h.Write([]byte(q.String()))
	return int64(h.Sum64())
}

func quadToRow(q rdf.Quad) (row, error) {
	if !rdf.IsResource(q.Subject) || q.Predicate == "" || q.Object == nil {
		return row{}, fmt.Errorf("invalid quad %+v", q)
	}
	if q.Graph != nil && !rdf.IsResource(q.Graph) {
		return row{}, fmt.Errorf("invalid graph name %v", q.Graph)
	}
	object, err := marshalTerm(q.Object)
	if err != nil {
		return row{}, err
	}
	return row{
		hash:      quadHash(q),
		graph:     graphKey(q.Graph),
		subject:   q.Subject.String(),
		predicate: q.Predicate.String(),
		object:    object,
	}, nil
}

func rowToQuad(r row) (rdf.Quad, error) {
	var q rdf.Quad
	var err error
	if r.graph != "" {
		if q.Graph, err = ParseTerm(r.graph); err != nil {
			return q, fmt.Errorf("corrupt graph %q: %w", r.graph, err)
		}
	}
	if q.Subject, err = ParseTerm(r.subject); err != nil {
		return q, fmt.Errorf("corrupt subject %q: %w", r.subject, err)
	}
	if q.Predicate, err = parsePredicate(r.predicate); err != nil {
		return q, fmt.Errorf("corrupt predicate %q: %w", r.predicate, err)
	}
	if q.Object, err = unmarshalTerm(r.object); err != nil {
		return q, fmt.Errorf("corrupt object %q: %w", r.object, err)
	}
	return q, nil
}

func parsePredicate(s string) (rdf.IRI, error) {
	t, err := ParseTerm(s)
	if err != nil {
		return "", err
	}
	p, ok := t.(rdf.IRI)
	if !ok {
		return "", fmt.Errorf("predicate %v is not an IRI", t)
	}
	return p, nil
}
