// Package rdftest provides a conformance suite for rdf.Graph implementations.
package rdftest

import (
	"testing"

	"bitbucket.org/creachadair/stringset"
	"github.com/google/go-cmp/cmp"

	"github.com/twinfer/ldquad/rdf"
)

const ex = "http://example.org/"

// Fixture quads shared by the suite.
var (
	Alice = rdf.IRI(ex + "alice")
	Bob   = rdf.IRI(ex + "bob")
	Knows = rdf.IRI(ex + "knows")
	Name  = rdf.IRI(ex + "name")
	Age   = rdf.IRI(ex + "age")
	G1    = rdf.IRI(ex + "graph/1")
)

// Quads returns a fixture covering every term kind and a named graph.
func Quads() []rdf.Quad {
	return []rdf.Quad{
		{Subject: Alice, Predicate: rdf.RDFType, Object: rdf.IRI(ex + "Person")},
		{Subject: Alice, Predicate: Name, Object: rdf.Literal{Lexical: "Alice"}},
		{Subject: Alice, Predicate: Name, Object: rdf.Literal{Lexical: "Alicia", Language: "es"}},
		{Subject: Alice, Predicate: Age, Object: rdf.Literal{Lexical: "42", Datatype: rdf.XSDInteger}},
		{Subject: Alice, Predicate: Knows, Object: Bob},
		{Subject: Bob, Predicate: Knows, Object: rdf.BlankNode("b0")},
		{Subject: rdf.BlankNode("b0"), Predicate: Name, Object: rdf.Literal{Lexical: "line\nbreak \"quoted\""}},
		{Subject: Bob, Predicate: Name, Object: rdf.Literal{Lexical: "Bob"}, Graph: G1},
	}
}

func mustAdd(t *testing.T, g rdf.Graph, quads ...rdf.Quad) {
	t.Helper()
	for _, q := range quads {
		if err := g.Add(q); err != nil {
			t.Fatalf("Add(%v) failed: %v", q, err)
		}
	}
}

func labels(terms []rdf.Term) []string {
	out := make([]string, len(terms))
	for i, term := range terms {
		out[i] = term.String()
	}
	return out
}

// runAddContainsTest checks membership and idempotent insertion.
func runAddContainsTest(t *testing.T, g rdf.Graph) {
	quads := Quads()
	mustAdd(t, g, quads...)
	mustAdd(t, g, quads...)

	for _, q := range quads {
		if !g.Contains(q) {
			t.Errorf("Contains(%v) = false after Add", q)
		}
	}

	absent := []rdf.Quad{
		{Subject: Bob, Predicate: Knows, Object: Alice},
		{Subject: Alice, Predicate: Name, Object: rdf.Literal{Lexical: "Alice", Language: "en"}},
		{Subject: Alice, Predicate: Age, Object: rdf.Literal{Lexical: "42"}},
		// Present in G1 only.
		{Subject: Bob, Predicate: Name, Object: rdf.Literal{Lexical: "Bob"}},
	}
	for _, q := range absent {
		if g.Contains(q) {
			t.Errorf("Contains(%v) = true, want false", q)
		}
	}

	if l, ok := g.(interface{ Len() int }); ok {
		if got := l.Len(); got != len(quads) {
			t.Errorf("Len() = %d after duplicate adds, want %d", got, len(quads))
		}
	}
}

// runSubjectsTest checks subject enumeration and its insertion order.
func runSubjectsTest(t *testing.T, g rdf.Graph) {
	mustAdd(t, g, Quads()...)

	want := []string{Alice.String(), Bob.String(), "_:b0"}
	if diff := cmp.Diff(want, labels(g.Subjects(nil))); diff != "" {
		t.Errorf("Subjects(default) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{Bob.String()}, labels(g.Subjects(G1))); diff != "" {
		t.Errorf("Subjects(G1) mismatch (-want +got):\n%s", diff)
	}
	if got := g.Subjects(rdf.IRI(ex + "missing")); len(got) != 0 {
		t.Errorf("Subjects(missing) = %v, want none", got)
	}
}

// runPredicateObjectsTest checks the outgoing edges of a subject.
func runPredicateObjectsTest(t *testing.T, g rdf.Graph) {
	mustAdd(t, g, Quads()...)

	var got []string
	for _, po := range g.PredicateObjects(nil, Alice) {
		got = append(got, po.Predicate.String()+" "+po.Object.String())
	}
	want := []string{
		rdf.RDFType.String() + " <" + ex + "Person>",
		Name.String() + ` "Alice"`,
		Name.String() + ` "Alicia"@es`,
		Age.String() + ` "42"^^<http://www.w3.org/2001/XMLSchema#integer>`,
		Knows.String() + " " + Bob.String(),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PredicateObjects mismatch (-want +got):\n%s", diff)
	}
}

// runIndexTest checks the predicate and object lookups.
func runIndexTest(t *testing.T, g rdf.Graph) {
	mustAdd(t, g, Quads()...)

	objects := stringset.New(labels(g.ObjectsWithPredicate(nil, Knows))...)
	if !objects.Equals(stringset.New(Bob.String(), "_:b0")) {
		t.Errorf("ObjectsWithPredicate(knows) = %v", objects.Elements())
	}

	subjects := labels(g.SubjectsWithObject(nil, Bob))
	if diff := cmp.Diff([]string{Alice.String()}, subjects); diff != "" {
		t.Errorf("SubjectsWithObject(bob) mismatch (-want +got):\n%s", diff)
	}
	if got := g.SubjectsWithObject(nil, Alice); len(got) != 0 {
		t.Errorf("SubjectsWithObject(alice) = %v, want none", got)
	}
}

// runGraphsTest checks named graph enumeration.
func runGraphsTest(t *testing.T, g rdf.Graph) {
	if got := g.Graphs(); len(got) != 0 {
		t.Fatalf("Graphs() on empty graph = %v", got)
	}
	mustAdd(t, g, Quads()...)
	if diff := cmp.Diff([]string{G1.String()}, labels(g.Graphs())); diff != "" {
		t.Errorf("Graphs() mismatch (-want +got):\n%s", diff)
	}
}

// RunSuite runs every conformance test against fresh graphs from newGraph.
func RunSuite(t *testing.T, newGraph func() (rdf.Graph, error)) {
	tests := []struct {
		name string
		run  func(*testing.T, rdf.Graph)
	}{
		{"AddContains", runAddContainsTest},
		{"Subjects", runSubjectsTest},
		{"PredicateObjects", runPredicateObjectsTest},
		{"Index", runIndexTest},
		{"Graphs", runGraphsTest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := newGraph()
			if err != nil {
				t.Fatalf("failed to create graph: %v", err)
			}
			if c, ok := g.(interface{ Close() error }); ok {
				defer c.Close()
			}
			tt.run(t, g)
		})
	}
}
