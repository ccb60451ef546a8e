package rdf

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/piprate/json-gold/ld"
)

const defaultGraphName = "@default"

// ToDataset converts quads to a json-gold dataset.
func ToDataset(quads []Quad) *ld.RDFDataset {
	dataset := ld.NewRDFDataset()
	for _, q := range quads {
		graphName := defaultGraphName
		if q.Graph != nil {
			graphName = nodeLabel(q.Graph)
		}
		quad := ld.NewQuad(
			termToNode(q.Subject),
			ld.NewIRI(string(q.Predicate)),
			termToNode(q.Object),
			graphName,
		)
		dataset.Graphs[graphName] = append(dataset.Graphs[graphName], quad)
	}
	return dataset
}

// FromDataset converts a json-gold dataset back to quads. The default graph
// comes first, named graphs follow in lexical order.
func FromDataset(dataset *ld.RDFDataset) ([]Quad, error) {
	names := make([]string, 0, len(dataset.Graphs))
	for name := range dataset.Graphs {
		if name != defaultGraphName {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	names = slices.Insert(names, 0, defaultGraphName)

	var out []Quad
	for _, name := range names {
		var graph Term
		if name != defaultGraphName {
			graph = labelToResource(name)
		}
		for _, lq := range dataset.GetQuads(name) {
			subject, err := nodeToTerm(lq.Subject)
			if err != nil {
				return nil, fmt.Errorf("failed to convert subject: %w", err)
			}
			predicate, err := nodeToTerm(lq.Predicate)
			if err != nil {
				return nil, fmt.Errorf("failed to convert predicate: %w", err)
			}
			p, ok := predicate.(IRI)
			if !ok {
				return nil, fmt.Errorf("predicate %v is not an IRI", predicate)
			}
			object, err := nodeToTerm(lq.Object)
			if err != nil {
				return nil, fmt.Errorf("failed to convert object: %w", err)
			}
			out = append(out, Quad{Subject: subject, Predicate: p, Object: object, Graph: graph})
		}
	}
	return out, nil
}

// WriteNQuads serializes quads as N-Quads.
func WriteNQuads(w io.Writer, quads []Quad) error {
	serializer := &ld.NQuadRDFSerializer{}
	serialized, err := serializer.Serialize(ToDataset(quads))
	if err != nil {
		return fmt.Errorf("failed to serialize N-Quads: %w", err)
	}
	text, ok := serialized.(string)
	if !ok {
		return fmt.Errorf("unexpected N-Quads result %T", serialized)
	}
	_, err = io.WriteString(w, text)
	return err
}

// ReadNQuads parses an N-Quads document.
func ReadNQuads(r io.Reader) ([]Quad, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	serializer := &ld.NQuadRDFSerializer{}
	dataset, err := serializer.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse N-Quads: %w", err)
	}
	return FromDataset(dataset)
}

// ReadNQuadsInto parses an N-Quads document and adds every quad to sink.
func ReadNQuadsInto(r io.Reader, sink Sink) error {
	quads, err := ReadNQuads(r)
	if err != nil {
		return err
	}
	for _, q := range quads {
		if err := sink.Add(q); err != nil {
			return err
		}
	}
	return nil
}

func nodeLabel(t Term) string {
	switch v := t.(type) {
	case IRI:
		return string(v)
	case BlankNode:
		return "_:" + string(v)
	default:
		return t.String()
	}
}

func labelToResource(label string) Term {
	if b, ok := strings.CutPrefix(label, "_:"); ok {
		return BlankNode(b)
	}
	return IRI(label)
}

func termToNode(t Term) ld.Node {
	switch v := t.(type) {
	case IRI:
		return ld.NewIRI(string(v))
	case BlankNode:
		return ld.NewBlankNode("_:" + string(v))
	case Literal:
		switch {
		case v.Language != "":
			return ld.NewLiteral(v.Lexical, ld.RDFLangString, v.Language)
		case v.Datatype != "":
			return ld.NewLiteral(v.Lexical, string(v.Datatype), "")
		default:
			return ld.NewLiteral(v.Lexical, ld.XSDString, "")
		}
	}
	return nil
}

// nodeToTerm accepts both pointer and value json-gold nodes.
func nodeToTerm(node ld.Node) (Term, error) {
	switch n := node.(type) {
	case *ld.IRI:
		return IRI(n.Value), nil
	case ld.IRI:
		return IRI(n.Value), nil
	case *ld.BlankNode:
		return BlankNode(strings.TrimPrefix(n.Attribute, "_:")), nil
	case ld.BlankNode:
		return BlankNode(strings.TrimPrefix(n.Attribute, "_:")), nil
	case *ld.Literal:
		return NewLiteral(n.Value, IRI(n.Datatype), n.Language)
	case ld.Literal:
		return NewLiteral(n.Value, IRI(n.Datatype), n.Language)
	case nil:
		return nil, fmt.Errorf("missing node")
	}
	return nil, fmt.Errorf("unknown RDF node type %T", node)
}
