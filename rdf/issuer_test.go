package rdf_test

import (
	"testing"

	"github.com/twinfer/ldquad/rdf"
	"github.com/twinfer/ldquad/rdf/rdftest"
)

// TestRelabelSink tests that two sources with the same blank node labels
// stay apart when read through issuers with different prefixes.
func TestRelabelSink(t *testing.T) {
	d := rdf.NewDataset()
	first := rdf.RelabelSink(d, rdf.NewIssuer("r1x"))
	second := rdf.RelabelSink(d, rdf.NewIssuer("r2x"))

	q := rdf.Quad{Subject: rdf.BlankNode("b0"), Predicate: rdftest.Knows, Object: rdf.BlankNode("b1"), Graph: rdf.BlankNode("g")}
	for _, sink := range []rdf.Sink{first, second} {
		if err := sink.Add(q); err != nil {
			t.Fatalf("Failed to add %v: %v", q, err)
		}
	}
	named := rdf.Quad{Subject: rdftest.Alice, Predicate: rdftest.Name, Object: rdf.Literal{Lexical: "Alice"}, Graph: rdftest.G1}
	if err := first.Add(named); err != nil {
		t.Fatalf("Failed to add %v: %v", named, err)
	}

	want := []rdf.Quad{
		{Subject: rdf.BlankNode("r1x0"), Predicate: rdftest.Knows, Object: rdf.BlankNode("r1x1"), Graph: rdf.BlankNode("r1x2")},
		{Subject: rdf.BlankNode("r2x0"), Predicate: rdftest.Knows, Object: rdf.BlankNode("r2x1"), Graph: rdf.BlankNode("r2x2")},
		named,
	}
	got := d.Quads()
	for _, q := range want {
		if !d.Contains(q) {
			t.Errorf("dataset lacks %v", q)
		}
	}
	if len(got) != len(want) {
		t.Errorf("dataset has %d quads, want %d: %v", len(got), len(want), got)
	}
}
