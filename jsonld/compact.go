package jsonld

import (
	"context"
	"maps"

	"bitbucket.org/creachadair/stringset"

	"github.com/twinfer/ldquad/rdf"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// Compactor converts quads to JSON-LD documents.
type Compactor struct {
	opts options
}

// NewCompactor returns a Compactor. WithContext, WithCompactContext,
// WithBase, WithResolver, UseNativeTypes, UseRDFType, AutoCompact,
// WithEmbed and WithLogger apply.
func NewCompactor(opts ...Option) *Compactor {
	return &Compactor{opts: newOptions(opts)}
}

// Compact renders src as a document tree.
func Compact(ctx context.Context, src rdf.Source, opts ...Option) (any, error) {
	return NewCompactor(opts...).Compact(ctx, src)
}

// Compact renders src as a document tree suitable for EncodeDocument.
// The default graph is compacted first, then each named graph.
func (c *Compactor) Compact(ctx context.Context, src rdf.Source) (any, error) {
	jc, contextData, err := c.activeContext(ctx, src)
	if err != nil {
		return nil, err
	}
	x := &compaction{src: src, jc: jc, opts: &c.opts, active: contextData != nil}
	idKey, graphKey := jc.Key(KeywordID), jc.Key(KeywordGraph)

	graphs := append([]rdf.Term{nil}, src.Graphs()...)
	var objs []map[string]any
	for _, g := range graphs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nodes := x.fromGraph(g)

		obj := make(map[string]any)
		var name string
		if g != nil {
			name = x.refID(g)
			obj[idKey] = name
		}
		if g == nil && len(nodes) == 1 {
			maps.Copy(obj, nodes[0])
		} else {
			if len(nodes) == 0 {
				continue
			}
			items := make([]any, len(nodes))
			for i, n := range nodes {
				items[i] = n
			}
			obj[graphKey] = items
		}

		if g != nil && len(objs) > 0 {
			if id, _ := objs[0][idKey].(string); id == name {
				maps.Copy(objs[0], obj)
				continue
			}
		}
		objs = append(objs, obj)
	}

	var out any
	switch {
	case len(graphs) == 1 && len(objs) == 1 && contextData == nil:
		items, ok := objs[0][graphKey]
		if len(objs[0]) == 1 && ok {
			out = items
		} else {
			out = []any{objs[0]}
		}
	case len(objs) == 1 && x.active:
		out = objs[0]
	default:
		list := make([]any, len(objs))
		for i, o := range objs {
			list[i] = o
		}
		out = list
	}

	if contextData != nil {
		m, ok := out.(map[string]any)
		if !ok {
			m = map[string]any{graphKey: out}
		}
		m[KeywordContext.String()] = contextData
		out = m
	}
	return out, nil
}

// activeContext returns the context used for compaction and the data
// written as the output's @context, which is nil when no context applies.
func (c *Compactor) activeContext(ctx context.Context, src rdf.Source) (*Context, any, error) {
	switch {
	case c.opts.compactContext != nil:
		return c.opts.compactContext, c.opts.compactContext.ToMap(), nil

	case c.opts.compactSource != nil:
		jc, err := newContext(c.opts).LoadContext(ctx, c.opts.compactSource, "")
		if err != nil {
			return nil, nil, err
		}
		if m, ok := c.opts.compactSource.(map[string]any); ok && len(m) == 0 {
			return jc, nil, nil
		}
		return jc, c.opts.compactSource, nil

	case c.opts.autoCompact:
		ps, ok := src.(rdf.PrefixSource)
		if !ok {
			break
		}
		data := make(map[string]any)
		for prefix, ns := range ps.Prefixes() {
			if prefix == "" || ns == xmlNamespace {
				continue
			}
			data[prefix] = ns
		}
		if len(data) == 0 {
			break
		}
		jc, err := newContext(c.opts).LoadContext(ctx, data, "")
		if err != nil {
			return nil, nil, err
		}
		return jc, data, nil
	}
	return newContext(c.opts), nil, nil
}

// compaction is the state of one Compact call.
type compaction struct {
	src    rdf.Source
	jc     *Context
	opts   *options
	active bool
}

type edge struct {
	p rdf.IRI
	o rdf.Term
}

// graphNodes holds the edges of one graph and the nodes built from them.
// All maps are keyed by the N-Triples form of a term.
type graphNodes struct {
	terms   map[string]rdf.Term
	order   []string
	forward map[string][]edge
	// reverse edges are stored on their object; edge.o is the quad subject.
	reverse map[string][]edge
	refs    map[string]int

	nodes    map[string]map[string]any
	emitted  []string
	done     stringset.Set
	consumed stringset.Set
}

func (x *compaction) fromGraph(g rdf.Term) []map[string]any {
	gn := &graphNodes{
		terms:    make(map[string]rdf.Term),
		forward:  make(map[string][]edge),
		reverse:  make(map[string][]edge),
		refs:     make(map[string]int),
		nodes:    make(map[string]map[string]any),
		done:     stringset.New(),
		consumed: stringset.New(),
	}
	register := func(t rdf.Term) string {
		k := t.String()
		if _, ok := gn.terms[k]; !ok {
			gn.terms[k] = t
			gn.order = append(gn.order, k)
		}
		return k
	}

	for _, s := range x.src.Subjects(g) {
		sk := s.String()
		for _, po := range x.src.PredicateObjects(g, s) {
			if x.isReverseEdge(po) {
				objKey := register(po.Object)
				gn.reverse[objKey] = append(gn.reverse[objKey], edge{p: po.Predicate, o: s})
				if s.Kind() == rdf.KindBlankNode {
					gn.refs[sk]++
				}
				continue
			}
			register(s)
			gn.forward[sk] = append(gn.forward[sk], edge{p: po.Predicate, o: po.Object})
			if po.Object.Kind() == rdf.KindBlankNode {
				gn.refs[po.Object.String()]++
			}
		}
	}

	for _, k := range gn.order {
		if gn.terms[k].Kind() == rdf.KindIRI || gn.refs[k] == 0 {
			x.processSubject(gn, k, false)
		}
	}
	// Blank nodes only reachable through cycles or reverse edges.
	for _, k := range gn.order {
		if !gn.done.Contains(k) && !gn.consumed.Contains(k) {
			x.processSubject(gn, k, false)
		}
	}

	out := make([]map[string]any, 0, len(gn.emitted))
	for _, k := range gn.emitted {
		out = append(out, gn.nodes[k])
	}
	return out
}

var resourceQualifiers = []Qualifier{TypeQualifier("@id"), TypeQualifier("@vocab")}

func (x *compaction) isReverseEdge(po rdf.PredicateObject) bool {
	if !rdf.IsResource(po.Object) || !x.jc.HasReverse(string(po.Predicate)) {
		return false
	}
	return x.jc.FindTerm(string(po.Predicate), resourceQualifiers, []Container{ContainerSet}, true) != nil
}

// processSubject builds the node for k. Embedded nodes are returned to the
// caller instead of being placed in the node map.
func (x *compaction) processSubject(gn *graphNodes, k string, embedded bool) map[string]any {
	if gn.done.Contains(k) {
		return nil
	}
	gn.done.Add(k)

	node := make(map[string]any)
	switch t := gn.terms[k].(type) {
	case rdf.IRI:
		node[x.jc.Key(KeywordID)] = x.jc.ShrinkIRI(string(t))
	case rdf.BlankNode:
		if !embedded && gn.refs[k] > 0 {
			node[x.jc.Key(KeywordID)] = t.String()
		}
	}
	if !embedded {
		gn.nodes[k] = node
		gn.emitted = append(gn.emitted, k)
	}

	var b nodeBuilder
	for _, group := range groupEdges(gn.forward[k]) {
		x.addGroup(gn, &b, group, false)
	}
	for _, group := range groupEdges(gn.reverse[k]) {
		x.addGroup(gn, &b, group, true)
	}
	x.finish(node, &b)
	return node
}

type edgeGroup struct {
	p    rdf.IRI
	objs []rdf.Term
}

func groupEdges(edges []edge) []edgeGroup {
	var groups []edgeGroup
	index := make(map[rdf.IRI]int)
	for _, e := range edges {
		i, ok := index[e.p]
		if !ok {
			i = len(groups)
			index[e.p] = i
			groups = append(groups, edgeGroup{p: e.p})
		}
		groups[i].objs = append(groups[i].objs, e.o)
	}
	return groups
}

func (x *compaction) addGroup(gn *graphNodes, b *nodeBuilder, group edgeGroup, reverse bool) {
	single := len(group.objs) == 1
	for _, o := range group.objs {
		if group.p == rdf.RDFType && !reverse && !x.opts.rdfType && rdf.IsResource(o) {
			if t := x.jc.FindTerm(string(rdf.RDFType), resourceQualifiers, []Container{ContainerSet}, false); t != nil {
				// An uncoerced term takes {"@id": ...} like any other property.
				b.add(t.Name, t, x.represent(gn, t, x.strategyFor(gn, t, o), o), "")
				continue
			}
			b.add(x.jc.Key(KeywordType), nil, x.represent(gn, nil, symbolRef, o), "")
			continue
		}

		t := x.selectTerm(gn, group.p, o, single, reverse)
		if t == nil {
			b.add(x.jc.ToSymbol(string(group.p)), nil, x.rawValue(gn, o), "")
			continue
		}
		s := x.strategyFor(gn, t, o)
		var lang string
		if s == languageMap {
			lang = o.(rdf.Literal).Language
		}
		b.add(t.Name, t, x.represent(gn, t, s, o), lang)
	}
}

// selectTerm finds the most specific term accepting o as a value of p.
func (x *compaction) selectTerm(gn *graphNodes, p rdf.IRI, o rdf.Term, single, reverse bool) *Term {
	var qualifiers []Qualifier
	var containers []Container
	switch o := o.(type) {
	case rdf.Literal:
		switch {
		case o.Datatype != "":
			qualifiers = []Qualifier{TypeQualifier(string(o.Datatype))}
			containers = []Container{ContainerSet}
		case o.Language != "":
			qualifiers = []Qualifier{LanguageQualifier(o.Language)}
			containers = []Container{ContainerLanguage, ContainerSet}
		default:
			qualifiers = []Qualifier{LanguageQualifier("")}
			containers = []Container{ContainerSet}
		}
	default:
		if items, _, ok := x.toCollection(gn, o); ok && single && !reverse {
			qualifiers = itemQualifiers(items)
			containers = []Container{ContainerList, ContainerSet}
			break
		}
		qualifiers = resourceQualifiers
		containers = []Container{ContainerSet}
	}
	return x.jc.FindTerm(string(p), qualifiers, containers, reverse)
}

// itemQualifiers returns the qualifiers shared by every list item.
func itemQualifiers(items []rdf.Term) []Qualifier {
	if len(items) == 0 {
		return nil
	}
	first, isLit := items[0].(rdf.Literal)
	for _, item := range items {
		lit, ok := item.(rdf.Literal)
		if ok != isLit {
			return nil
		}
		if ok && (lit.Datatype != first.Datatype || lit.Language != first.Language) {
			return nil
		}
	}
	switch {
	case !isLit:
		return resourceQualifiers
	case first.Datatype != "":
		return []Qualifier{TypeQualifier(string(first.Datatype))}
	}
	return []Qualifier{LanguageQualifier(first.Language)}
}

// strategy is how the values of one term are rendered.
type strategy uint8

const (
	genericValue strategy = iota
	idRef
	symbolRef
	typedLiteral
	plainLiteral
	languageMap
	listWrapped
)

func valueStrategy(t *Term) strategy {
	switch {
	case t == nil:
		return genericValue
	case t.Coercion == "@id":
		return idRef
	case t.Coercion == "@vocab":
		return symbolRef
	case t.Coercion != "":
		return typedLiteral
	case t.HasLanguage:
		return plainLiteral
	}
	return genericValue
}

func (x *compaction) strategyFor(gn *graphNodes, t *Term, o rdf.Term) strategy {
	switch t.Container {
	case ContainerList:
		if _, _, ok := x.toCollection(gn, o); ok {
			return listWrapped
		}
	case ContainerLanguage:
		if lit, ok := o.(rdf.Literal); ok && lit.Language != "" {
			return languageMap
		}
	}
	return valueStrategy(t)
}

func (x *compaction) represent(gn *graphNodes, t *Term, s strategy, o rdf.Term) any {
	switch s {
	case listWrapped:
		items, chain, _ := x.toCollection(gn, o)
		return x.listItems(gn, t, valueStrategy(t), items, chain)

	case languageMap:
		return o.(rdf.Literal).Lexical

	case idRef, symbolRef:
		switch o := o.(type) {
		case rdf.IRI:
			if s == symbolRef {
				return x.jc.ToSymbol(string(o))
			}
			return x.jc.ShrinkIRI(string(o))
		case rdf.BlankNode:
			x.processReferenced(gn, o.String())
			return o.String()
		}

	case typedLiteral:
		if lit, ok := o.(rdf.Literal); ok && string(lit.Datatype) == t.Coercion {
			return lit.Lexical
		}

	case plainLiteral:
		if lit, ok := o.(rdf.Literal); ok && lit.Datatype == "" && lit.Language == t.Language {
			return lit.Lexical
		}
	}
	return x.rawValue(gn, o)
}

func (x *compaction) rawValue(gn *graphNodes, o rdf.Term) any {
	if items, chain, ok := x.toCollection(gn, o); ok {
		return map[string]any{x.jc.Key(KeywordList): x.listItems(gn, nil, genericValue, items, chain)}
	}
	switch o := o.(type) {
	case rdf.BlankNode:
		return x.nodeRef(gn, o)
	case rdf.IRI:
		return map[string]any{x.jc.Key(KeywordID): x.jc.ShrinkIRI(string(o))}
	case rdf.Literal:
		return x.literalValue(o)
	}
	return nil
}

func (x *compaction) listItems(gn *graphNodes, t *Term, s strategy, items []rdf.Term, chain []string) []any {
	for _, k := range chain {
		gn.consumed.Add(k)
		gn.done.Add(k)
	}
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = x.represent(gn, t, s, item)
	}
	return out
}

// nodeRef returns a reference to a blank node, or the node itself when the
// embed policy allows nesting it.
func (x *compaction) nodeRef(gn *graphNodes, b rdf.BlankNode) any {
	k := b.String()
	if _, isNode := gn.terms[k]; isNode && !gn.done.Contains(k) &&
		x.opts.embed == EmbedSingleRef && gn.refs[k] == 1 {
		return x.processSubject(gn, k, true)
	}
	x.processReferenced(gn, k)
	return map[string]any{x.jc.Key(KeywordID): k}
}

func (x *compaction) processReferenced(gn *graphNodes, k string) {
	if _, isNode := gn.terms[k]; isNode {
		x.processSubject(gn, k, false)
	}
}

func (x *compaction) literalValue(lit rdf.Literal) any {
	valueKey := x.jc.Key(KeywordValue)
	switch {
	case lit.Datatype != "":
		if x.opts.nativeTypes {
			if v, ok := nativeValue(lit); ok {
				return v
			}
		}
		return map[string]any{
			x.jc.Key(KeywordType): x.jc.ToSymbol(string(lit.Datatype)),
			valueKey:              lit.Lexical,
		}
	case lit.Language != "" && lit.Language != x.jc.Language():
		return map[string]any{
			x.jc.Key(KeywordLanguage): lit.Language,
			valueKey:                  lit.Lexical,
		}
	case !x.active || (x.jc.Language() != "" && lit.Language == ""):
		return map[string]any{valueKey: lit.Lexical}
	}
	return lit.Lexical
}

func (x *compaction) refID(t rdf.Term) string {
	if i, ok := t.(rdf.IRI); ok {
		return x.jc.ShrinkIRI(string(i))
	}
	return t.String()
}

// nodeBuilder collects the values of a node by output key.
type nodeBuilder struct {
	slots []*slot
	byKey map[string]*slot
}

type slot struct {
	key    string
	term   *Term
	values []any
	langs  []string
}

func (b *nodeBuilder) add(key string, t *Term, v any, lang string) {
	if b.byKey == nil {
		b.byKey = make(map[string]*slot)
	}
	s, ok := b.byKey[key]
	if !ok {
		s = &slot{key: key, term: t}
		b.byKey[key] = s
		b.slots = append(b.slots, s)
	}
	s.values = append(s.values, v)
	s.langs = append(s.langs, lang)
}

func (x *compaction) finish(node map[string]any, b *nodeBuilder) {
	for _, s := range b.slots {
		switch {
		case s.term != nil && s.term.Container == ContainerLanguage:
			m := make(map[string]any)
			for i, v := range s.values {
				lang := s.langs[i]
				switch prev := m[lang].(type) {
				case nil:
					m[lang] = v
				case []any:
					m[lang] = append(prev, v)
				default:
					m[lang] = []any{prev, v}
				}
			}
			node[s.key] = m
		case s.term != nil && s.term.Container == ContainerSet:
			node[s.key] = s.values
		case len(s.values) == 1 && x.active:
			node[s.key] = s.values[0]
		default:
			node[s.key] = s.values
		}
	}
}
