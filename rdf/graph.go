package rdf

// PredicateObject is one (predicate, object) pair of a subject.
type PredicateObject struct {
	Predicate IRI
	Object    Term
}

// Sink receives quads produced by expansion.
type Sink interface {
	Add(q Quad) error
}

// Source is the read side consumed by compaction. A nil graph argument
// addresses the default graph. Implementations return results in insertion
// order so that conversions are deterministic.
type Source interface {
	// Graphs returns the names of the non-empty named graphs.
	Graphs() []Term
	Subjects(graph Term) []Term
	PredicateObjects(graph, subject Term) []PredicateObject
	ObjectsWithPredicate(graph Term, predicate IRI) []Term
	SubjectsWithObject(graph, object Term) []Term
	Contains(q Quad) bool
}

// Graph is a quad collection that can be both written and read.
type Graph interface {
	Sink
	Source
}

// PrefixSource is implemented by sources that carry prefix declarations,
// such as a parsed Turtle or N-Quads document with @prefix lines.
type PrefixSource interface {
	Prefixes() map[string]string
}

// GraphSink scopes a Sink to one graph: every added quad is rewritten to
// carry Name as its graph.
type GraphSink struct {
	Sink Sink
	Name Term
}

// Add forwards q to the wrapped sink inside the named graph.
func (g GraphSink) Add(q Quad) error {
	q.Graph = g.Name
	return g.Sink.Add(q)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Quad) error

// Add calls f(q).
func (f SinkFunc) Add(q Quad) error { return f(q) }
