package rdf

import (
	"fmt"

	"bitbucket.org/creachadair/stringset"
)

type graphIndex struct {
	quads       []Quad
	subjects    []Term
	bySubject   map[Term][]PredicateObject
	byPredicate map[IRI][]Term
	byObject    map[Term][]Term
}

func newGraphIndex() *graphIndex {
	return &graphIndex{
		bySubject:   make(map[Term][]PredicateObject),
		byPredicate: make(map[IRI][]Term),
		byObject:    make(map[Term][]Term),
	}
}

func (g *graphIndex) add(q Quad) {
	g.quads = append(g.quads, q)
	if _, ok := g.bySubject[q.Subject]; !ok {
		g.subjects = append(g.subjects, q.Subject)
	}
	g.bySubject[q.Subject] = append(g.bySubject[q.Subject], PredicateObject{Predicate: q.Predicate, Object: q.Object})
	g.byPredicate[q.Predicate] = append(g.byPredicate[q.Predicate], q.Object)
	g.byObject[q.Object] = append(g.byObject[q.Object], q.Subject)
}

// Dataset is an in-memory Graph. The zero value is not usable; call
// NewDataset. A Dataset is not safe for concurrent writes.
type Dataset struct {
	graphs   map[Term]*graphIndex
	named    []Term
	seen     stringset.Set
	prefixes map[string]string
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		graphs:   map[Term]*graphIndex{nil: newGraphIndex()},
		seen:     stringset.New(),
		prefixes: make(map[string]string),
	}
}

// Add inserts q. Adding a quad that is already present is a no-op.
func (d *Dataset) Add(q Quad) error {
	if !IsResource(q.Subject) {
		return fmt.Errorf("rdf: invalid subject %v", q.Subject)
	}
	if q.Predicate == "" {
		return fmt.Errorf("rdf: empty predicate")
	}
	if q.Object == nil {
		return fmt.Errorf("rdf: nil object")
	}
	if q.Graph != nil && !IsResource(q.Graph) {
		return fmt.Errorf("rdf: invalid graph name %v", q.Graph)
	}
	key := q.String()
	if d.seen.Contains(key) {
		return nil
	}
	d.seen.Add(key)

	g, ok := d.graphs[q.Graph]
	if !ok {
		g = newGraphIndex()
		d.graphs[q.Graph] = g
		d.named = append(d.named, q.Graph)
	}
	g.add(q)
	return nil
}

// Bind registers a namespace prefix used by auto-compaction.
func (d *Dataset) Bind(prefix, namespace string) {
	d.prefixes[prefix] = namespace
}

// Prefixes returns a copy of the registered namespace prefixes.
func (d *Dataset) Prefixes() map[string]string {
	out := make(map[string]string, len(d.prefixes))
	for k, v := range d.prefixes {
		out[k] = v
	}
	return out
}

// Len returns the number of distinct quads.
func (d *Dataset) Len() int {
	return d.seen.Len()
}

// Quads returns every quad, default graph first, each graph in insertion order.
func (d *Dataset) Quads() []Quad {
	out := make([]Quad, 0, d.Len())
	out = append(out, d.graphs[nil].quads...)
	for _, name := range d.named {
		out = append(out, d.graphs[name].quads...)
	}
	return out
}

// Graphs returns the named graphs in order of first use.
func (d *Dataset) Graphs() []Term {
	return append([]Term(nil), d.named...)
}

// Subjects returns the distinct subjects of graph.
func (d *Dataset) Subjects(graph Term) []Term {
	g, ok := d.graphs[graph]
	if !ok {
		return nil
	}
	return append([]Term(nil), g.subjects...)
}

// PredicateObjects returns the outgoing edges of subject in graph.
func (d *Dataset) PredicateObjects(graph, subject Term) []PredicateObject {
	g, ok := d.graphs[graph]
	if !ok {
		return nil
	}
	return append([]PredicateObject(nil), g.bySubject[subject]...)
}

// ObjectsWithPredicate returns every object linked by predicate in graph.
func (d *Dataset) ObjectsWithPredicate(graph Term, predicate IRI) []Term {
	g, ok := d.graphs[graph]
	if !ok {
		return nil
	}
	return append([]Term(nil), g.byPredicate[predicate]...)
}

// SubjectsWithObject returns the subjects that reference object in graph.
func (d *Dataset) SubjectsWithObject(graph, object Term) []Term {
	g, ok := d.graphs[graph]
	if !ok {
		return nil
	}
	return append([]Term(nil), g.byObject[object]...)
}

// Contains reports whether q is in the dataset.
func (d *Dataset) Contains(q Quad) bool {
	if q.Subject == nil || q.Object == nil {
		return false
	}
	return d.seen.Contains(q.String())
}
