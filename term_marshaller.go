package ldquad

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/twinfer/ldquad/rdf"
)

// termJSON is a wrapper around rdf.Term that implements json.MarshalerTo
// and json.UnmarshalerFrom. It is the format of the object column and of the
// terms in a store dump:
//
//	{"iri": "http://example.org/alice"}
//	{"bnode": "b0"}
//	{"value": "42", "datatype": "http://www.w3.org/2001/XMLSchema#integer"}
//	{"value": "Alicia", "language": "es"}
type termJSON struct {
	rdf.Term
}

// quadJSON is a wrapper around rdf.Quad used by WriteTo and ReadFrom:
// {"subject": {...}, "predicate": "...", "object": {...}, "graph": {...}}.
// The graph member is omitted for the default graph.
type quadJSON struct {
	rdf.Quad
}

// MarshalJSONTo implements json.MarshalerTo for termJSON.
func (tj termJSON) MarshalJSONTo(enc *jsontext.Encoder) error {
	var members [][2]string
	switch t := tj.Term.(type) {
	case rdf.IRI:
		members = append(members, [2]string{"iri", string(t)})
	case rdf.BlankNode:
		members = append(members, [2]string{"bnode", string(t)})
	case rdf.Literal:
		members = append(members, [2]string{"value", t.Lexical})
		if t.Datatype != "" {
			members = append(members, [2]string{"datatype", string(t.Datatype)})
		}
		if t.Language != "" {
			members = append(members, [2]string{"language", t.Language})
		}
	default:
		return fmt.Errorf("unsupported term type %T", tj.Term)
	}

	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	for _, m := range members {
		if err := enc.WriteToken(jsontext.String(m[0])); err != nil {
			return err
		}
		if err := enc.WriteToken(jsontext.String(m[1])); err != nil {
			return err
		}
	}
	return enc.WriteToken(jsontext.EndObject)
}

// UnmarshalJSONFrom implements json.UnmarshalerFrom for termJSON.
func (tj *termJSON) UnmarshalJSONFrom(dec *jsontext.Decoder) error {
	tok, err := dec.ReadToken()
	if err != nil {
		return fmt.Errorf("failed to read term start: %w", err)
	}
	if tok.Kind() != '{' {
		return fmt.Errorf("expected term object start '{', got %v", tok.Kind())
	}

	fields := make(map[string]string, 3)
	for dec.PeekKind() != '}' {
		tok, err := dec.ReadToken()
		if err != nil {
			return fmt.Errorf("failed to read term key: %w", err)
		}
		key := tok.String()
		if tok, err = dec.ReadToken(); err != nil {
			return fmt.Errorf("failed to read term field %q: %w", key, err)
		}
		if tok.Kind() != '"' {
			return fmt.Errorf("expected string for term field %q, got %v", key, tok.Kind())
		}
		switch key {
		case "iri", "bnode", "value", "datatype", "language":
			fields[key] = tok.String()
		default:
			return fmt.Errorf("unknown term field %q", key)
		}
	}
	if _, err := dec.ReadToken(); err != nil {
		return fmt.Errorf("failed to read term end: %w", err)
	}

	if v, ok := fields["iri"]; ok {
		tj.Term = rdf.IRI(v)
		return nil
	}
	if v, ok := fields["bnode"]; ok {
		tj.Term = rdf.BlankNode(v)
		return nil
	}
	v, ok := fields["value"]
	if !ok {
		return fmt.Errorf("term object has no iri, bnode or value")
	}
	lit, err := rdf.NewLiteral(v, rdf.IRI(fields["datatype"]), fields["language"])
	if err != nil {
		return err
	}
	tj.Term = lit
	return nil
}

// MarshalJSONTo implements json.MarshalerTo for quadJSON.
func (qj quadJSON) MarshalJSONTo(enc *jsontext.Encoder) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String("subject")); err != nil {
		return err
	}
	if err := (termJSON{qj.Subject}).MarshalJSONTo(enc); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String("predicate")); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String(string(qj.Predicate))); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String("object")); err != nil {
		return err
	}
	if err := (termJSON{qj.Object}).MarshalJSONTo(enc); err != nil {
		return err
	}
	if qj.Graph != nil {
		if err := enc.WriteToken(jsontext.String("graph")); err != nil {
			return err
		}
		if err := (termJSON{qj.Graph}).MarshalJSONTo(enc); err != nil {
			return err
		}
	}
	return enc.WriteToken(jsontext.EndObject)
}

// UnmarshalJSONFrom implements json.UnmarshalerFrom for quadJSON.
func (qj *quadJSON) UnmarshalJSONFrom(dec *jsontext.Decoder) error {
	tok, err := dec.ReadToken()
	if err != nil {
		return fmt.Errorf("failed to read quad start: %w", err)
	}
	if tok.Kind() != '{' {
		return fmt.Errorf("expected quad object start '{', got %v", tok.Kind())
	}

	var q rdf.Quad
	for dec.PeekKind() != '}' {
		tok, err := dec.ReadToken()
		if err != nil {
			return fmt.Errorf("failed to read quad key: %w", err)
		}
		key := tok.String()

		var tj termJSON
		switch key {
		case "subject":
			if err := tj.UnmarshalJSONFrom(dec); err != nil {
				return fmt.Errorf("failed to unmarshal subject: %w", err)
			}
			q.Subject = tj.Term
		case "object":
			if err := tj.UnmarshalJSONFrom(dec); err != nil {
				return fmt.Errorf("failed to unmarshal object: %w", err)
			}
			q.Object = tj.Term
		case "graph":
			if err := tj.UnmarshalJSONFrom(dec); err != nil {
				return fmt.Errorf("failed to unmarshal graph: %w", err)
			}
			q.Graph = tj.Term
		case "predicate":
			if tok, err = dec.ReadToken(); err != nil || tok.Kind() != '"' {
				return fmt.Errorf("expected string for predicate")
			}
			q.Predicate = rdf.IRI(tok.String())
		default:
			if err := dec.SkipValue(); err != nil {
				return fmt.Errorf("failed to skip unknown field %q: %w", key, err)
			}
		}
	}
	if _, err := dec.ReadToken(); err != nil {
		return fmt.Errorf("failed to read quad end: %w", err)
	}

	if q.Subject == nil || q.Predicate == "" || q.Object == nil {
		return fmt.Errorf("incomplete quad: %+v", q)
	}
	qj.Quad = q
	return nil
}

// marshalTerm renders t in the object column format.
func marshalTerm(t rdf.Term) (string, error) {
	b, err := json.Marshal(termJSON{t})
	if err != nil {
		return "", fmt.Errorf("failed to marshal term %v: %w", t, err)
	}
	return string(b), nil
}

// unmarshalTerm decodes a value of the object column.
func unmarshalTerm(s string) (rdf.Term, error) {
	var tj termJSON
	if err := json.Unmarshal([]byte(s), &tj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal term: %w", err)
	}
	return tj.Term, nil
}
