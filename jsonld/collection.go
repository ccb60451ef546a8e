package jsonld

import (
	"math"
	"strconv"

	"bitbucket.org/creachadair/stringset"

	"github.com/twinfer/ldquad/rdf"
)

// toCollection decodes the RDF list starting at head. ok is false when head
// is not a well-formed list: a node carries predicates other than rdf:first,
// rdf:rest and rdf:type rdf:List, is shared, was already rendered, or the
// chain loops. chain holds the keys of the list nodes.
func (x *compaction) toCollection(gn *graphNodes, head rdf.Term) (items []rdf.Term, chain []string, ok bool) {
	if head == rdf.RDFNil {
		return []rdf.Term{}, nil, true
	}
	if !hasFirst(gn, head) {
		return nil, nil, false
	}

	visited := stringset.New()
	for l := head; ; {
		if l == rdf.RDFNil {
			return items, chain, true
		}
		if l.Kind() != rdf.KindBlankNode {
			x.opts.logger.Debug("list ends in a non-nil IRI", "head", head, "node", l)
			return nil, nil, false
		}
		k := l.String()
		if visited.Contains(k) {
			x.opts.logger.Debug("list chain loops", "head", head, "node", k)
			return nil, nil, false
		}
		if gn.done.Contains(k) || gn.refs[k] != 1 || len(gn.reverse[k]) > 0 {
			x.opts.logger.Debug("list node is shared", "head", head, "node", k)
			return nil, nil, false
		}
		visited.Add(k)

		var first, rest rdf.Term
		for _, e := range gn.forward[k] {
			switch {
			case e.p == rdf.RDFFirst && first == nil:
				first = e.o
			case e.p == rdf.RDFRest && rest == nil:
				rest = e.o
			case e.p == rdf.RDFType && e.o == rdf.RDFList:
			default:
				x.opts.logger.Debug("list node has extra properties", "head", head, "node", k, "predicate", e.p)
				return nil, nil, false
			}
		}
		if first == nil || rest == nil {
			return nil, nil, false
		}
		items = append(items, first)
		chain = append(chain, k)
		l = rest
	}
}

func hasFirst(gn *graphNodes, t rdf.Term) bool {
	for _, e := range gn.forward[t.String()] {
		if e.p == rdf.RDFFirst {
			return true
		}
	}
	return false
}

// nativeValue converts numeric and boolean literals to JSON values. Doubles
// keep an exponent so that they expand back to xsd:double.
func nativeValue(lit rdf.Literal) (any, bool) {
	switch lit.Datatype {
	case rdf.XSDInteger:
		n, err := strconv.ParseInt(lit.Lexical, 10, 64)
		if err != nil {
			return nil, false
		}
		return Number(strconv.FormatInt(n, 10)), true
	case rdf.XSDDouble:
		f, err := strconv.ParseFloat(lit.Lexical, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, false
		}
		return Number(strconv.FormatFloat(f, 'E', -1, 64)), true
	case rdf.XSDBoolean:
		switch lit.Lexical {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	case rdf.XSDString:
		return lit.Lexical, true
	}
	return nil, false
}
