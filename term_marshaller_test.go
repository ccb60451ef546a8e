package ldquad

import (
	"strings"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/twinfer/ldquad/rdf"
	"github.com/twinfer/ldquad/rdf/rdftest"
)

func TestTermJSON(t *testing.T) {
	tests := []struct {
		name string
		term rdf.Term
		json string
	}{
		{
			name: "iri",
			term: rdf.IRI("http://example.org/alice"),
			json: `{"iri":"http://example.org/alice"}`,
		},
		{
			name: "blank",
			term: rdf.BlankNode("b0"),
			json: `{"bnode":"b0"}`,
		},
		{
			name: "plain",
			term: rdf.Literal{Lexical: "Alice"},
			json: `{"value":"Alice"}`,
		},
		{
			name: "language",
			term: rdf.Literal{Lexical: "Alicia", Language: "es"},
			json: `{"value":"Alicia","language":"es"}`,
		},
		{
			name: "typed",
			term: rdf.Literal{Lexical: "42", Datatype: rdf.XSDInteger},
			json: `{"value":"42","datatype":"http://www.w3.org/2001/XMLSchema#integer"}`,
		},
		{
			name: "special_chars",
			term: rdf.Literal{Lexical: "line\nbreak \"quoted\""},
			json: `{"value":"line\nbreak \"quoted\""}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := marshalTerm(tt.term)
			if err != nil {
				t.Fatalf("Failed to marshal term: %v", err)
			}
			if got != tt.json {
				t.Errorf("marshalTerm(%v) = %s, want %s", tt.term, got, tt.json)
			}

			back, err := unmarshalTerm(got)
			if err != nil {
				t.Fatalf("Failed to unmarshal term JSON: %v", err)
			}
			if !rdf.Equal(back, tt.term) {
				t.Errorf("Terms not equal:\n  original=%v\n  unmarshalled=%v", tt.term, back)
			}
		})
	}
}

func TestUnmarshalTerm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  rdf.Term
	}{
		{
			name:  "member_order",
			input: `{"datatype": "http://www.w3.org/2001/XMLSchema#integer", "value": "7"}`,
			want:  rdf.Literal{Lexical: "7", Datatype: rdf.XSDInteger},
		},
		{
			name:  "xsd_string_normalised",
			input: `{"value": "x", "datatype": "http://www.w3.org/2001/XMLSchema#string"}`,
			want:  rdf.Literal{Lexical: "x"},
		},
		{
			name:  "lang_string_normalised",
			input: `{"value": "x", "language": "en", "datatype": "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"}`,
			want:  rdf.Literal{Lexical: "x", Language: "en"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unmarshalTerm(tt.input)
			if err != nil {
				t.Fatalf("Failed to unmarshal %s: %v", tt.input, err)
			}
			if !rdf.Equal(got, tt.want) {
				t.Errorf("unmarshalTerm(%s) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestUnmarshalTermErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not_object", `"http://example.org/a"`},
		{"empty_object", `{}`},
		{"unknown_field", `{"uri": "http://example.org/a"}`},
		{"number_value", `{"value": 42}`},
		{"datatype_and_language", `{"value": "x", "datatype": "http://example.org/dt", "language": "en"}`},
		{"truncated", `{"iri": "http://example.org/a"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, err := unmarshalTerm(tt.input); err == nil {
				t.Errorf("unmarshalTerm(%s) = %v, want error", tt.input, got)
			}
		})
	}
}

func TestMarshalTermUnsupported(t *testing.T) {
	if _, err := marshalTerm(nil); err == nil {
		t.Error("Expected an error for a nil term")
	}
}

func TestQuadJSON(t *testing.T) {
	q := rdf.Quad{
		Subject:   rdftest.Bob,
		Predicate: rdftest.Name,
		Object:    rdf.Literal{Lexical: "Bob"},
		Graph:     rdftest.G1,
	}

	var buf strings.Builder
	enc := jsontext.NewEncoder(&buf)
	if err := (quadJSON{q}).MarshalJSONTo(enc); err != nil {
		t.Fatalf("Failed to marshal quad: %v", err)
	}
	want := `{"subject":{"iri":"http://example.org/bob"},"predicate":"http://example.org/name",` +
		`"object":{"value":"Bob"},"graph":{"iri":"http://example.org/graph/1"}}`
	if got := strings.TrimSpace(buf.String()); got != want {
		t.Errorf("quad JSON = %s, want %s", got, want)
	}

	var back quadJSON
	if err := json.Unmarshal([]byte(buf.String()), &back); err != nil {
		t.Fatalf("Failed to unmarshal quad JSON: %v", err)
	}
	if back.Quad != q {
		t.Errorf("Quads not equal:\n  original=%v\n  unmarshalled=%v", q, back.Quad)
	}

	// Default graph quads carry no graph member; unknown members are skipped.
	input := `{"subject":{"bnode":"b0"},"note":[1,2],"predicate":"http://example.org/knows","object":{"iri":"http://example.org/alice"}}`
	back = quadJSON{}
	if err := json.Unmarshal([]byte(input), &back); err != nil {
		t.Fatalf("Failed to unmarshal quad JSON: %v", err)
	}
	if want := (rdf.Quad{Subject: rdf.BlankNode("b0"), Predicate: rdftest.Knows, Object: rdftest.Alice}); back.Quad != want {
		t.Errorf("unmarshalled %v, want %v", back.Quad, want)
	}
}
