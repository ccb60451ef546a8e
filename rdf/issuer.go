package rdf

import "strconv"

// DefaultBlankPrefix is the label prefix used by NewIssuer when none is given.
const DefaultBlankPrefix = "b"

// Issuer mints blank nodes for one conversion run. Labels are the prefix
// followed by a counter, so output is stable for a given input.
type Issuer struct {
	prefix   string
	counter  int
	relabels map[string]BlankNode
}

// NewIssuer returns an issuer minting labels prefix0, prefix1, ...
func NewIssuer(prefix string) *Issuer {
	if prefix == "" {
		prefix = DefaultBlankPrefix
	}
	return &Issuer{prefix: prefix, relabels: make(map[string]BlankNode)}
}

// Issue mints a fresh blank node.
func (i *Issuer) Issue() BlankNode {
	b := BlankNode(i.prefix + strconv.Itoa(i.counter))
	i.counter++
	return b
}

// Relabel maps a document-supplied label to a minted node. The same label
// always yields the same node for the lifetime of the issuer.
func (i *Issuer) Relabel(label string) BlankNode {
	if b, ok := i.relabels[label]; ok {
		return b
	}
	b := i.Issue()
	i.relabels[label] = b
	return b
}

// Count returns the number of nodes minted so far.
func (i *Issuer) Count() int {
	return i.counter
}

// RelabelSink passes quads on to next with every blank node relabelled
// through i. Quads from separate sources keep their blank nodes apart when
// each source is read with its own issuer prefix.
func RelabelSink(next Sink, i *Issuer) Sink {
	relabel := func(t Term) Term {
		if b, ok := t.(BlankNode); ok {
			return i.Relabel(string(b))
		}
		return t
	}
	return SinkFunc(func(q Quad) error {
		q.Subject = relabel(q.Subject)
		q.Object = relabel(q.Object)
		if q.Graph != nil {
			q.Graph = relabel(q.Graph)
		}
		return next.Add(q)
	})
}
