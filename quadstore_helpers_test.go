package ldquad

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bitbucket.org/creachadair/stringset"
	"github.com/google/go-cmp/cmp"

	"github.com/twinfer/ldquad/jsonld"
	"github.com/twinfer/ldquad/rdf"
	"github.com/twinfer/ldquad/rdf/rdftest"
)

// personDoc is a small document touching typed values, languages, lists,
// blank nodes and a named graph.
const personDoc = `{
  "@context": {
    "ex": "http://example.org/",
    "name": "ex:name",
    "knows": {"@id": "ex:knows", "@type": "@id"},
    "age": {"@id": "ex:age", "@type": "http://www.w3.org/2001/XMLSchema#integer"},
    "tags": {"@id": "ex:tags", "@container": "@list"}
  },
  "@graph": [
    {
      "@id": "ex:alice",
      "@type": "ex:Person",
      "name": ["Alice", {"@value": "Alicia", "@language": "es"}],
      "age": "42",
      "knows": "ex:bob",
      "tags": ["a", "b"]
    },
    {
      "@id": "ex:bob",
      "name": "Bob",
      "ex:address": {"ex:city": "Lund"}
    },
    {
      "@id": "ex:graph/1",
      "@graph": {"@id": "ex:carol", "name": "Carol"}
    }
  ]
}`

func quadStrings(quads []rdf.Quad) stringset.Set {
	s := stringset.New()
	for _, q := range quads {
		s.Add(q.String())
	}
	return s
}

func storedQuads(t *testing.T, store *QuadStoreDB) []rdf.Quad {
	t.Helper()
	var quads []rdf.Quad
	if err := store.EachQuad(func(q rdf.Quad) error {
		quads = append(quads, q)
		return nil
	}); err != nil {
		t.Fatalf("Failed to iterate quads: %v", err)
	}
	return quads
}

func expandDoc(t *testing.T, doc string, sink rdf.Sink) {
	t.Helper()
	v, err := jsonld.ParseDocument([]byte(doc))
	if err != nil {
		t.Fatalf("Failed to parse document: %v", err)
	}
	if err := jsonld.Expand(context.Background(), v, sink); err != nil {
		t.Fatalf("Failed to expand document: %v", err)
	}
}

// runInsertRemoveTest checks Insert and Remove report whether the store changed.
func runInsertRemoveTest(t *testing.T, store *QuadStoreDB) {
	for _, q := range rdftest.Quads() {
		t.Run(q.String(), func(t *testing.T) {
			added, err := store.Insert(q)
			if err != nil {
				t.Fatalf("Failed to insert %v: %v", q, err)
			}
			if !added {
				t.Errorf("Insert(%v) = false, want true for a new quad", q)
			}
			if added, _ := store.Insert(q); added {
				t.Errorf("Insert(%v) = true, want false for a duplicate", q)
			}

			if !store.Contains(q) {
				t.Errorf("Store should contain %v after Insert", q)
			}
			if !store.Remove(q) {
				t.Errorf("Remove(%v) should return true (quad exists)", q)
			}
			if store.Contains(q) {
				t.Errorf("Store should not contain %v after Remove", q)
			}
			if store.Remove(q) {
				t.Errorf("Remove(%v) should return false (quad already removed)", q)
			}
		})
	}
	if n := store.Len(); n != 0 {
		t.Errorf("Len() = %d after removing everything, want 0", n)
	}
}

// runInvalidQuadTest checks that malformed quads are rejected without
// touching the table.
func runInvalidQuadTest(t *testing.T, store *QuadStoreDB) {
	bad := []rdf.Quad{
		{Subject: rdf.Literal{Lexical: "x"}, Predicate: rdftest.Name, Object: rdftest.Bob},
		{Subject: rdftest.Alice, Predicate: "", Object: rdftest.Bob},
		{Subject: rdftest.Alice, Predicate: rdftest.Name},
		{Subject: rdftest.Alice, Predicate: rdftest.Name, Object: rdftest.Bob, Graph: rdf.Literal{Lexical: "g"}},
	}
	for _, q := range bad {
		if err := store.Add(q); err == nil {
			t.Errorf("Add(%+v) succeeded, want error", q)
		}
	}
	if store.Contains(rdf.Quad{Subject: rdftest.Alice, Predicate: rdftest.Name}) {
		t.Error("Contains reported a quad without object")
	}
	if n := store.Len(); n != 0 {
		t.Errorf("Len() = %d after rejected adds, want 0", n)
	}
}

// runEachQuadTest checks iteration order and early termination.
func runEachQuadTest(t *testing.T, store *QuadStoreDB) {
	quads := rdftest.Quads()
	for _, q := range quads {
		if err := store.Add(q); err != nil {
			t.Fatalf("Failed to add %v: %v", q, err)
		}
	}

	var want, got []string
	for _, q := range quads {
		want = append(want, q.String())
	}
	for _, q := range storedQuads(t, store) {
		got = append(got, q.String())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EachQuad order mismatch (-want +got):\n%s", diff)
	}

	stop := errors.New("stop")
	calls := 0
	err := store.EachQuad(func(rdf.Quad) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("EachQuad returned %v, want the callback error", err)
	}
	if calls != 1 {
		t.Errorf("EachQuad called fn %d times after an error, want 1", calls)
	}
}

// runReadWriteTest tests the ReadFrom and WriteTo methods for streaming JSON.
func runReadWriteTest(t *testing.T, newStore func() (*QuadStoreDB, error)) {
	store1, err := newStore()
	if err != nil {
		t.Fatalf("Failed to create store1: %v", err)
	}
	defer store1.Close()

	quads := rdftest.Quads()
	for _, q := range quads {
		if err := store1.Add(q); err != nil {
			t.Fatalf("Failed to add %v: %v", q, err)
		}
	}

	var buf strings.Builder
	n, err := store1.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo reported %d bytes, buffer holds %d", n, buf.Len())
	}
	jsonOutput := buf.String()
	if !strings.Contains(jsonOutput, `"bnode":"b0"`) {
		t.Errorf("WriteTo output lacks the blank node term: %s", jsonOutput)
	}

	store2, err := newStore()
	if err != nil {
		t.Fatalf("Failed to create store2: %v", err)
	}
	defer store2.Close()

	bytesRead, err := store2.ReadFrom(strings.NewReader(jsonOutput))
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if bytesRead != int64(len(jsonOutput)) {
		t.Errorf("ReadFrom reported %d bytes read, but input was %d bytes", bytesRead, len(jsonOutput))
	}

	if count := store2.Len(); count != len(quads) {
		t.Errorf("After import, expected %d quads, got %d", len(quads), count)
	}
	for _, q := range quads {
		if !store2.Contains(q) {
			t.Errorf("After import, store should contain %v", q)
		}
	}
}

// runReadFromErrorsTest checks that malformed dumps are rejected.
func runReadFromErrorsTest(t *testing.T, store *QuadStoreDB) {
	tests := []struct {
		name  string
		input string
	}{
		{"not an array", `{"subject": {"iri": "http://example.org/a"}}`},
		{"missing object", `[{"subject": {"iri": "http://example.org/a"}, "predicate": "http://example.org/p"}]`},
		{"unknown term field", `[{"subject": {"uri": "http://example.org/a"}, "predicate": "http://example.org/p", "object": {"iri": "http://example.org/b"}}]`},
		{"literal subject", `[{"subject": {"value": "a"}, "predicate": "http://example.org/p", "object": {"iri": "http://example.org/b"}}]`},
		{"truncated", `[{"subject": {"iri": "http://example.org/a"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.ReadFrom(strings.NewReader(tt.input)); err == nil {
				t.Errorf("ReadFrom(%s) succeeded, want error", tt.input)
			}
		})
	}
	if n := store.Len(); n != 0 {
		t.Errorf("Len() = %d after failed imports, want 0", n)
	}
}

// runMergeTest copies an in-memory dataset, prefixes included, into a store.
func runMergeTest(t *testing.T, newStore func() (*QuadStoreDB, error)) {
	store, err := newStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ds := rdf.NewDataset()
	ds.Bind("ex", "http://example.org/")
	quads := rdftest.Quads()
	for _, q := range quads {
		if err := ds.Add(q); err != nil {
			t.Fatalf("Failed to add %v: %v", q, err)
		}
	}
	// One quad already present must not make the batch fail.
	if err := store.Add(quads[0]); err != nil {
		t.Fatalf("Failed to add %v: %v", quads[0], err)
	}

	if err := store.Merge(ds); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if n := store.Len(); n != len(quads) {
		t.Errorf("Len() = %d after Merge, want %d", n, len(quads))
	}
	got := quadStrings(storedQuads(t, store))
	if want := quadStrings(quads); !got.Equals(want) {
		t.Errorf("Merge lost quads: missing %v, extra %v", want.Diff(got).Elements(), got.Diff(want).Elements())
	}
	if diff := cmp.Diff(map[string]string{"ex": "http://example.org/"}, store.Prefixes()); diff != "" {
		t.Errorf("Prefixes mismatch (-want +got):\n%s", diff)
	}

	// Merging an empty source is a no-op.
	if err := store.Merge(rdf.NewDataset()); err != nil {
		t.Errorf("Merge(empty) failed: %v", err)
	}
}

// runLargeMergeTest crosses the batch boundary of the bulk insert.
func runLargeMergeTest(t *testing.T, store *QuadStoreDB) {
	ds := rdf.NewDataset()
	const n = 1234
	for i := range n {
		q := rdf.Quad{
			Subject:   rdf.BlankNode("s" + strings.Repeat("x", i%7)),
			Predicate: rdftest.Name,
			Object:    rdf.Literal{Lexical: strings.Repeat("v", i+1)},
		}
		if err := ds.Add(q); err != nil {
			t.Fatalf("Failed to add %v: %v", q, err)
		}
	}
	if err := store.Merge(ds); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if got := store.Len(); got != n {
		t.Errorf("Len() = %d after Merge, want %d", got, n)
	}
}

// runPrefixesTest checks that Bind overwrites earlier bindings.
func runPrefixesTest(t *testing.T, store *QuadStoreDB) {
	if got := store.Prefixes(); len(got) != 0 {
		t.Fatalf("Prefixes() on empty store = %v", got)
	}
	store.Bind("ex", "http://example.com/")
	store.Bind("ex", "http://example.org/")
	store.Bind("foaf", "http://xmlns.com/foaf/0.1/")

	want := map[string]string{
		"ex":   "http://example.org/",
		"foaf": "http://xmlns.com/foaf/0.1/",
	}
	if diff := cmp.Diff(want, store.Prefixes()); diff != "" {
		t.Errorf("Prefixes mismatch (-want +got):\n%s", diff)
	}
}

// runJSONLDTest expands a document into the store and checks that compacting
// the store gives the same document as compacting an in-memory dataset.
func runJSONLDTest(t *testing.T, store *QuadStoreDB) {
	ds := rdf.NewDataset()
	expandDoc(t, personDoc, ds)
	expandDoc(t, personDoc, store)

	if got, want := quadStrings(storedQuads(t, store)), quadStrings(ds.Quads()); !got.Equals(want) {
		t.Fatalf("Store quads differ from dataset: missing %v, extra %v",
			want.Diff(got).Elements(), got.Diff(want).Elements())
	}
	if diff := cmp.Diff(ds.Prefixes(), store.Prefixes()); diff != "" {
		t.Errorf("Expansion bound different prefixes (-dataset +store):\n%s", diff)
	}

	for _, opts := range [][]jsonld.Option{
		nil,
		{jsonld.AutoCompact(true)},
		{jsonld.UseNativeTypes(true), jsonld.UseRDFType(true)},
	} {
		want, err := jsonld.Compact(context.Background(), ds, opts...)
		if err != nil {
			t.Fatalf("Failed to compact dataset: %v", err)
		}
		got, err := jsonld.Compact(context.Background(), store, opts...)
		if err != nil {
			t.Fatalf("Failed to compact store: %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Compact mismatch (-dataset +store):\n%s", diff)
		}
	}
}

// runSuite runs all shared tests for a given store implementation.
func runSuite(t *testing.T, newStore func() (*QuadStoreDB, error)) {
	t.Run("Graph", func(t *testing.T) {
		rdftest.RunSuite(t, func() (rdf.Graph, error) {
			store, err := newStore()
			if err != nil {
				return nil, err
			}
			return store, nil
		})
	})

	tests := []struct {
		name string
		run  func(*testing.T, *QuadStoreDB)
	}{
		{"InsertRemove", runInsertRemoveTest},
		{"InvalidQuad", runInvalidQuadTest},
		{"EachQuad", runEachQuadTest},
		{"ReadFromErrors", runReadFromErrorsTest},
		{"LargeMerge", runLargeMergeTest},
		{"Prefixes", runPrefixesTest},
		{"JSONLD", runJSONLDTest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := newStore()
			if err != nil {
				t.Fatalf("Failed to create store: %v", err)
			}
			t.Cleanup(func() { store.Close() })
			tt.run(t, store)
		})
	}

	t.Run("Merge", func(t *testing.T) {
		runMergeTest(t, newStore)
	})

	t.Run("ReadWrite", func(t *testing.T) {
		runReadWriteTest(t, newStore)
	})
}
