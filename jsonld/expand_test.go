package jsonld

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/twinfer/ldquad/rdf"
)

const (
	xsdInteger = "<http://www.w3.org/2001/XMLSchema#integer>"
	xsdDouble  = "<http://www.w3.org/2001/XMLSchema#double>"
	xsdBoolean = "<http://www.w3.org/2001/XMLSchema#boolean>"
	rdfFirst   = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#first>"
	rdfRest    = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#rest>"
	rdfNil     = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#nil>"
	rdfTypeIRI = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#type>"
)

func parseDoc(t *testing.T, doc string) any {
	t.Helper()
	v, err := ParseDocument([]byte(doc))
	if err != nil {
		t.Fatalf("Failed to parse document: %v", err)
	}
	return v
}

// expandToStrings expands doc and returns its quads in N-Quads form, in the
// order they were added.
func expandToStrings(t *testing.T, doc string, opts ...Option) []string {
	t.Helper()
	ds := rdf.NewDataset()
	if err := Expand(context.Background(), parseDoc(t, doc), ds, opts...); err != nil {
		t.Fatalf("Failed to expand: %v", err)
	}
	var out []string
	for _, q := range ds.Quads() {
		out = append(out, q.String())
	}
	return out
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "reverse keyword",
			doc:  `{"@id": "http://example.org/x", "@reverse": {"http://example.org/p": {"@id": "http://example.org/y"}}}`,
			want: []string{
				`<http://example.org/y> <http://example.org/p> <http://example.org/x> .`,
			},
		},
		{
			name: "reverse term",
			doc: `{"@context": {"children": {"@reverse": "http://example.org/parent"}},
				"@id": "http://example.org/p1",
				"children": [{"@id": "http://example.org/c1"}, {"@id": "http://example.org/c2"}]}`,
			want: []string{
				`<http://example.org/c1> <http://example.org/parent> <http://example.org/p1> .`,
				`<http://example.org/c2> <http://example.org/parent> <http://example.org/p1> .`,
			},
		},
		{
			name: "list chain",
			doc:  `{"@id": "http://example.org/s", "http://example.org/p": {"@list": ["a", "b", "c"]}}`,
			want: []string{
				`_:b0 ` + rdfFirst + ` "a" .`,
				`_:b0 ` + rdfRest + ` _:b1 .`,
				`_:b1 ` + rdfFirst + ` "b" .`,
				`_:b1 ` + rdfRest + ` _:b2 .`,
				`_:b2 ` + rdfFirst + ` "c" .`,
				`_:b2 ` + rdfRest + ` ` + rdfNil + ` .`,
				`<http://example.org/s> <http://example.org/p> _:b0 .`,
			},
		},
		{
			name: "list container",
			doc: `{"@context": {"seq": {"@id": "http://example.org/seq", "@container": "@list"}},
				"@id": "http://example.org/s", "seq": ["a", null, "b"]}`,
			want: []string{
				`_:b0 ` + rdfFirst + ` "a" .`,
				`_:b0 ` + rdfRest + ` _:b1 .`,
				`_:b1 ` + rdfFirst + ` "b" .`,
				`_:b1 ` + rdfRest + ` ` + rdfNil + ` .`,
				`<http://example.org/s> <http://example.org/seq> _:b0 .`,
			},
		},
		{
			name: "empty list",
			doc:  `{"@id": "http://example.org/s", "http://example.org/p": {"@list": [null]}}`,
			want: []string{
				`<http://example.org/s> <http://example.org/p> ` + rdfNil + ` .`,
			},
		},
		{
			name: "scalar typing",
			doc: `{"@context": {"@vocab": "http://schema.org/", "knows": {"@type": "@id"}},
				"@id": "http://example.org/alice", "name": "Alice", "knows": "http://example.org/bob",
				"age": 42, "height": 1.62, "active": true}`,
			want: []string{
				`<http://example.org/alice> <http://schema.org/active> "true"^^` + xsdBoolean + ` .`,
				`<http://example.org/alice> <http://schema.org/age> "42"^^` + xsdInteger + ` .`,
				`<http://example.org/alice> <http://schema.org/height> "1.62"^^` + xsdDouble + ` .`,
				`<http://example.org/alice> <http://schema.org/knows> <http://example.org/bob> .`,
				`<http://example.org/alice> <http://schema.org/name> "Alice" .`,
			},
		},
		{
			name: "type",
			doc:  `{"@context": {"@vocab": "http://schema.org/"}, "@id": "http://example.org/alice", "@type": ["Person", "http://example.org/Agent"]}`,
			want: []string{
				`<http://example.org/alice> ` + rdfTypeIRI + ` <http://schema.org/Person> .`,
				`<http://example.org/alice> ` + rdfTypeIRI + ` <http://example.org/Agent> .`,
			},
		},
		{
			name: "languages",
			doc: `{"@context": {"@language": "en", "label": "http://www.w3.org/2000/01/rdf-schema#label"},
				"@id": "http://example.org/x",
				"label": ["Hello", {"@value": "Hej", "@language": "sv"}, {"@value": "plain"}, 5]}`,
			want: []string{
				`<http://example.org/x> <http://www.w3.org/2000/01/rdf-schema#label> "Hello"@en .`,
				`<http://example.org/x> <http://www.w3.org/2000/01/rdf-schema#label> "Hej"@sv .`,
				`<http://example.org/x> <http://www.w3.org/2000/01/rdf-schema#label> "plain" .`,
				`<http://example.org/x> <http://www.w3.org/2000/01/rdf-schema#label> "5"^^` + xsdInteger + ` .`,
			},
		},
		{
			name: "language container",
			doc: `{"@context": {"title": {"@id": "http://purl.org/dc/terms/title", "@container": "@language"}},
				"@id": "http://example.org/", "title": {"sv": "Hemsida", "en": "Homepage"}}`,
			want: []string{
				`<http://example.org/> <http://purl.org/dc/terms/title> "Homepage"@en .`,
				`<http://example.org/> <http://purl.org/dc/terms/title> "Hemsida"@sv .`,
			},
		},
		{
			name: "index container",
			doc: `{"@context": {"post": {"@id": "http://example.org/post", "@container": "@index", "@type": "@id"}},
				"@id": "http://example.org/blog", "post": {"b": "http://example.org/2", "a": "http://example.org/1"}}`,
			want: []string{
				`<http://example.org/blog> <http://example.org/post> <http://example.org/1> .`,
				`<http://example.org/blog> <http://example.org/post> <http://example.org/2> .`,
			},
		},
		{
			name: "typed coercion",
			doc: `{"@context": {"xsd": "http://www.w3.org/2001/XMLSchema#", "date": {"@id": "http://example.org/date", "@type": "xsd:date"}},
				"@id": "http://example.org/s", "date": "2020-01-01"}`,
			want: []string{
				`<http://example.org/s> <http://example.org/date> "2020-01-01"^^<http://www.w3.org/2001/XMLSchema#date> .`,
			},
		},
		{
			name: "named graph",
			doc:  `{"@id": "http://example.org/g", "@graph": [{"@id": "http://example.org/s", "http://example.org/p": "o"}]}`,
			want: []string{
				`<http://example.org/s> <http://example.org/p> "o" <http://example.org/g> .`,
			},
		},
		{
			name: "top-level graph",
			doc: `{"@context": {"p": "http://example.org/p"},
				"@graph": [{"@id": "http://example.org/a", "p": "1"}, {"@id": "http://example.org/b", "p": "2"}]}`,
			want: []string{
				`<http://example.org/a> <http://example.org/p> "1" .`,
				`<http://example.org/b> <http://example.org/p> "2" .`,
			},
		},
		{
			name: "nulls are omitted",
			doc:  `{"@id": "http://example.org/s", "http://example.org/p": null, "http://example.org/q": [null, "x", {"@value": null}]}`,
			want: []string{
				`<http://example.org/s> <http://example.org/q> "x" .`,
			},
		},
		{
			name: "blank node labels",
			doc: `[{"@id": "_:x", "http://example.org/p": "1"},
				{"@id": "http://example.org/s", "http://example.org/q": {"@id": "_:x"}}]`,
			want: []string{
				`_:b0 <http://example.org/p> "1" .`,
				`<http://example.org/s> <http://example.org/q> _:b0 .`,
			},
		},
		{
			name: "scoped context",
			doc: `{"@context": {"name": "http://www.w3.org/2000/01/rdf-schema#label"},
				"@id": "http://example.org/a", "name": "A",
				"http://example.org/knows": {
					"@context": {"name": "http://xmlns.com/foaf/0.1/name"},
					"@id": "http://example.org/b", "name": "B"}}`,
			want: []string{
				`<http://example.org/b> <http://xmlns.com/foaf/0.1/name> "B" .`,
				`<http://example.org/a> <http://example.org/knows> <http://example.org/b> .`,
				`<http://example.org/a> <http://www.w3.org/2000/01/rdf-schema#label> "A" .`,
			},
		},
		{
			name: "keyword aliases",
			doc: `{"@context": {"id": "@id", "type": "@type", "@vocab": "http://schema.org/"},
				"id": "http://example.org/alice", "type": "Person"}`,
			want: []string{
				`<http://example.org/alice> ` + rdfTypeIRI + ` <http://schema.org/Person> .`,
			},
		},
		{
			name: "unmapped keys are dropped",
			doc:  `{"@id": "http://example.org/s", "name": "x", "@unknown": "y"}`,
			want: nil,
		},
		{
			name: "relative identifiers",
			doc:  `{"@context": {"@base": "http://example.org/docs/"}, "@id": "page", "http://example.org/p": {"@id": "../other"}}`,
			want: []string{
				`<http://example.org/docs/page> <http://example.org/p> <http://example.org/other> .`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandToStrings(t, tt.doc)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Quads mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExpandWithOptions(t *testing.T) {
	got := expandToStrings(t,
		`{"@id": "page", "name": "Alice"}`,
		WithBase("http://example.org/"),
		WithExpandContext(map[string]any{"name": "http://schema.org/name"}),
	)
	want := []string{`<http://example.org/page> <http://schema.org/name> "Alice" .`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Quads mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandSharedIssuer(t *testing.T) {
	issuer := rdf.NewIssuer("n")
	doc := `{"http://example.org/p": "x"}`
	first := expandToStrings(t, doc, WithIssuer(issuer))
	second := expandToStrings(t, doc, WithIssuer(issuer))

	if first[0] != `_:n0 <http://example.org/p> "x" .` {
		t.Errorf("First run = %v", first)
	}
	if second[0] != `_:n1 <http://example.org/p> "x" .` {
		t.Errorf("Second run = %v", second)
	}
}

func TestExpandPrefixesBound(t *testing.T) {
	ds := rdf.NewDataset()
	doc := parseDoc(t, `{"@context": {"ex": "http://example.org/"}, "@id": "ex:s", "ex:p": "o"}`)
	if err := Expand(context.Background(), doc, ds); err != nil {
		t.Fatalf("Failed to expand: %v", err)
	}
	if got := ds.Prefixes()["ex"]; got != "http://example.org/" {
		t.Errorf("Prefix ex = %q", got)
	}
}

func TestExpandErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "value with type and language",
			doc:  `{"@id": "http://example.org/x", "http://example.org/p": {"@value": "x", "@type": "http://example.org/t", "@language": "en"}}`,
			want: ErrMalformedDocument,
		},
		{
			name: "non-scalar value",
			doc:  `{"@id": "http://example.org/x", "http://example.org/p": {"@value": ["x"]}}`,
			want: ErrMalformedDocument,
		},
		{
			name: "reverse literal",
			doc:  `{"@id": "http://example.org/x", "@reverse": {"http://example.org/p": "literal"}}`,
			want: ErrMalformedDocument,
		},
		{
			name: "reverse not an object",
			doc:  `{"@id": "http://example.org/x", "@reverse": "http://example.org/p"}`,
			want: ErrMalformedDocument,
		},
		{
			name: "bad context",
			doc:  `{"@context": {"a": "b:x", "b": "a:y"}, "@id": "http://example.org/x"}`,
			want: ErrContext,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Expand(context.Background(), parseDoc(t, tt.doc), rdf.NewDataset())
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	if err := Expand(context.Background(), "scalar", rdf.NewDataset()); !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("Scalar document: expected ErrMalformedDocument, got %v", err)
	}
}

func TestExpandCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := parseDoc(t, `[{"@id": "http://example.org/a", "http://example.org/p": "x"}]`)
	err := Expand(ctx, doc, rdf.NewDataset())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if Code(err) != CodeCanceled {
		t.Errorf("Code = %s", Code(err))
	}
}

func TestExpandSinkError(t *testing.T) {
	boom := errors.New("boom")
	sink := rdf.SinkFunc(func(rdf.Quad) error { return boom })
	doc := parseDoc(t, `{"@id": "http://example.org/a", "http://example.org/p": "x"}`)
	if err := Expand(context.Background(), doc, sink); !errors.Is(err, boom) {
		t.Errorf("Expected sink error, got %v", err)
	}
}
