// Package rdf defines the statement model shared by expansion and compaction:
// terms, quads, the graph contracts a conversion reads from and writes to,
// an in-memory dataset and an N-Quads codec.
package rdf

import (
	"errors"
	"strconv"
	"strings"
)

// ErrLiteralConflict is returned when a literal is given both a datatype and
// a language tag.
var ErrLiteralConflict = errors.New("rdf: literal cannot have both datatype and language")

// TermKind identifies RDF term types.
type TermKind uint8

const (
	// KindIRI represents an IRI term.
	KindIRI TermKind = iota + 1
	// KindBlankNode represents a blank node term.
	KindBlankNode
	// KindLiteral represents a literal term.
	KindLiteral
)

func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlankNode:
		return "bnode"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Term is a value that can appear in a quad.
type Term interface {
	Kind() TermKind
	// String renders the term in N-Triples syntax.
	String() string
}

// IRI is an absolute (or at least caller-resolved) IRI.
type IRI string

// Kind returns KindIRI.
func (i IRI) Kind() TermKind { return KindIRI }

// String returns the IRI in angle brackets.
func (i IRI) String() string { return "<" + string(i) + ">" }

// BlankNode is a blank node identified by a label unique within one
// conversion run.
type BlankNode string

// Kind returns KindBlankNode.
func (b BlankNode) Kind() TermKind { return KindBlankNode }

// String returns the label prefixed with "_:".
func (b BlankNode) String() string { return "_:" + string(b) }

// Literal is an RDF literal. Datatype and Language are mutually exclusive;
// a literal with neither is a plain string.
type Literal struct {
	Lexical  string
	Datatype IRI
	Language string
}

// NewLiteral builds a literal and enforces the datatype/language invariant.
// The implicit datatypes xsd:string and rdf:langString are normalised away.
func NewLiteral(lexical string, datatype IRI, language string) (Literal, error) {
	if datatype == XSDString || datatype == RDFLangString {
		datatype = ""
	}
	if datatype != "" && language != "" {
		return Literal{}, ErrLiteralConflict
	}
	return Literal{Lexical: lexical, Datatype: datatype, Language: language}, nil
}

// Kind returns KindLiteral.
func (l Literal) Kind() TermKind { return KindLiteral }

// String returns the literal in N-Triples syntax.
func (l Literal) String() string {
	var sb strings.Builder
	sb.WriteString(quoteLexical(l.Lexical))
	switch {
	case l.Language != "":
		sb.WriteByte('@')
		sb.WriteString(l.Language)
	case l.Datatype != "":
		sb.WriteString("^^")
		sb.WriteString(l.Datatype.String())
	}
	return sb.String()
}

// quoteLexical escapes a lexical form the way N-Triples expects.
func quoteLexical(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				sb.WriteString(`\u`)
				sb.WriteString(leftPad(strconv.FormatInt(int64(r), 16), 4))
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func leftPad(s string, n int) string {
	for len(s) < n {
		s = "0" + s
	}
	return strings.ToUpper(s)
}

// Quad is a subject–predicate–object statement with an optional graph name.
// Graph is nil for the default graph.
type Quad struct {
	Subject   Term
	Predicate IRI
	Object    Term
	Graph     Term
}

// InDefaultGraph reports whether the quad belongs to the default graph.
func (q Quad) InDefaultGraph() bool {
	return q.Graph == nil
}

// String renders the quad as an N-Quads line without the trailing newline.
func (q Quad) String() string {
	var sb strings.Builder
	sb.WriteString(q.Subject.String())
	sb.WriteByte(' ')
	sb.WriteString(q.Predicate.String())
	sb.WriteByte(' ')
	sb.WriteString(q.Object.String())
	if q.Graph != nil {
		sb.WriteByte(' ')
		sb.WriteString(q.Graph.String())
	}
	sb.WriteString(" .")
	return sb.String()
}

// IsResource reports whether t can be a subject, i.e. is an IRI or a blank node.
func IsResource(t Term) bool {
	if t == nil {
		return false
	}
	k := t.Kind()
	return k == KindIRI || k == KindBlankNode
}

// Equal compares two possibly nil terms.
func Equal(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}
