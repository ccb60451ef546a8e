package jsonld

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/twinfer/ldquad/iri"
	"github.com/twinfer/ldquad/rdf"
)

// Expander converts JSON-LD documents to quads.
type Expander struct {
	opts options
}

// NewExpander returns an Expander. WithBase, WithExpandContext, WithIssuer,
// WithResolver, WithMaxDepth and WithLogger apply.
func NewExpander(opts ...Option) *Expander {
	return &Expander{opts: newOptions(opts)}
}

// Expand writes the quads of doc to sink.
func Expand(ctx context.Context, doc any, sink rdf.Sink, opts ...Option) error {
	return NewExpander(opts...).Expand(ctx, doc, sink)
}

// Expand writes the quads of doc to sink. doc is a decoded document as
// returned by DecodeDocument. Processing stops between top-level resources
// when ctx is done.
func (e *Expander) Expand(ctx context.Context, doc any, sink rdf.Sink) error {
	jc := newContext(e.opts)
	if e.opts.expandContext != nil {
		var err error
		if jc, err = jc.LoadContext(ctx, e.opts.expandContext, ""); err != nil {
			return err
		}
	}

	var resources []any
	switch d := doc.(type) {
	case nil:
		return nil
	case []any:
		resources = d
	case map[string]any:
		node := d
		if local, ok := d[KeywordContext.String()]; ok {
			var err error
			if jc, err = jc.LoadContext(ctx, local, ""); err != nil {
				return err
			}
			node = maps.Clone(d)
			delete(node, KeywordContext.String())
		}
		resources = []any{node}
		if len(node) == 1 {
			for key, val := range node {
				if jc.Keyword(key) == KeywordGraph {
					resources = asList(val)
				}
			}
		}
	default:
		return documentErrorf("", "top-level value must be an object or array, got %T", doc)
	}

	if b, ok := sink.(prefixBinder); ok {
		for name, ns := range jc.Prefixes() {
			b.Bind(name, ns)
		}
	}

	issuer := e.opts.issuer
	if issuer == nil {
		issuer = rdf.NewIssuer(rdf.DefaultBlankPrefix)
	}
	x := &expansion{ctx: ctx, root: sink, issuer: issuer, opts: &e.opts}
	for i, res := range resources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := x.addNode(jc, res, sink, false, "/"+strconv.Itoa(i)); err != nil {
			return err
		}
	}
	return nil
}

type prefixBinder interface {
	Bind(prefix, namespace string)
}

// expansion is the state of one Expand call.
type expansion struct {
	ctx    context.Context
	root   rdf.Sink
	issuer *rdf.Issuer
	opts   *options
}

type resultKind uint8

const (
	omitted resultKind = iota
	emitted
)

// objectResult is the outcome of converting one value: either a term to
// emit, or nothing, which is not an error.
type objectResult struct {
	kind resultKind
	term rdf.Term
}

func emit(t rdf.Term) objectResult { return objectResult{kind: emitted, term: t} }

var omit = objectResult{kind: omitted}

// langValue is one entry of a language map.
type langValue struct {
	value any
	lang  string
}

// listValue is a sequence gathered by a @list container.
type listValue []any

var typeTerm = &Term{Name: "@type", IRI: string(rdf.RDFType), Coercion: "@vocab"}

func asList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return []any{v}
}

// keywordValue returns the value stored under kw or one of its aliases.
func keywordValue(jc *Context, node map[string]any, kw Keyword) (any, bool) {
	if v, ok := node[kw.String()]; ok {
		return v, true
	}
	for key, v := range node {
		if jc.Keyword(key) == kw {
			return v, true
		}
	}
	return nil, false
}

func (x *expansion) addNode(jc *Context, value any, sink rdf.Sink, inNamed bool, path string) (rdf.Term, error) {
	node, ok := value.(map[string]any)
	if !ok {
		x.opts.logger.Debug("skipping non-object resource", "path", path)
		return nil, nil
	}
	if _, ok := keywordValue(jc, node, KeywordValue); ok {
		return nil, nil
	}

	if local, ok := node[KeywordContext.String()]; ok {
		var err error
		if jc, err = jc.LoadContext(x.ctx, local, ""); err != nil {
			return nil, err
		}
	}

	var subject rdf.Term
	if id, ok := keywordValue(jc, node, KeywordID); ok {
		if s, ok := id.(string); ok {
			t, err := x.toRDFID(jc, s)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			subject = t
		}
	}
	if subject == nil {
		subject = x.issuer.Issue()
	}

	for _, key := range slices.Sorted(maps.Keys(node)) {
		val := node[key]
		switch jc.Keyword(key) {
		case KeywordContext, KeywordID, KeywordIndex:
			continue
		case KeywordReverse:
			rev, ok := val.(map[string]any)
			if !ok {
				return nil, documentErrorf(path+"/"+key, "@reverse value must be an object, got %T", val)
			}
			for _, rkey := range slices.Sorted(maps.Keys(rev)) {
				if err := x.addKey(jc, subject, rkey, rev[rkey], sink, inNamed, true, path+"/"+key+"/"+rkey); err != nil {
					return nil, err
				}
			}
		default:
			if err := x.addKey(jc, subject, key, val, sink, inNamed, false, path+"/"+key); err != nil {
				return nil, err
			}
		}
	}
	return subject, nil
}

func (x *expansion) toRDFID(jc *Context, id string) (rdf.Term, error) {
	if label, ok := iri.IsBlankNodeRef(id); ok {
		return x.issuer.Relabel(label), nil
	}
	resolved, err := jc.Resolve(id)
	if err != nil {
		return nil, err
	}
	return rdf.IRI(resolved), nil
}

func (x *expansion) addKey(jc *Context, subject rdf.Term, key string, value any, sink rdf.Sink, inNamed, reverse bool, path string) error {
	objNodes := asList(value)
	kw := jc.Keyword(key)

	var term *Term
	if kw == KeywordNone {
		term, _ = jc.TermByName(key)
	}
	if term != nil {
		switch term.Container {
		case ContainerList:
			objNodes = []any{listValue(objNodes)}
		case ContainerIndex:
			if m, ok := value.(map[string]any); ok {
				objNodes = nil
				for _, idx := range slices.Sorted(maps.Keys(m)) {
					objNodes = append(objNodes, asList(m[idx])...)
				}
			}
		case ContainerLanguage:
			if m, ok := value.(map[string]any); ok {
				objNodes = nil
				for _, lang := range slices.Sorted(maps.Keys(m)) {
					for _, v := range asList(m[lang]) {
						objNodes = append(objNodes, langValue{value: v, lang: lang})
					}
				}
			}
		}
	}

	var predicate string
	switch kw {
	case KeywordType:
		term = typeTerm
		predicate = typeTerm.IRI
	case KeywordGraph:
		target := sink
		if !inNamed {
			target = rdf.GraphSink{Sink: x.root, Name: subject}
		}
		for i, o := range objNodes {
			if _, err := x.addNode(jc, o, target, true, path+"/"+strconv.Itoa(i)); err != nil {
				return err
			}
		}
		return nil
	case KeywordSet:
		for i, o := range objNodes {
			if _, err := x.addNode(jc, o, sink, inNamed, path+"/"+strconv.Itoa(i)); err != nil {
				return err
			}
		}
		return nil
	case KeywordNone:
		if term != nil {
			predicate = term.IRI
		} else if p, ok := jc.Expand(key); ok {
			predicate = p
		}
	default:
		x.opts.logger.Debug("ignoring keyword on node", "key", key, "path", path)
		return nil
	}

	if predicate == "" || !iri.IsAbsolute(predicate) {
		x.opts.logger.Debug("dropping property without IRI mapping", "key", key, "path", path)
		return nil
	}
	if _, blank := iri.IsBlankNodeRef(predicate); blank {
		x.opts.logger.Debug("dropping blank node predicate", "key", key, "path", path)
		return nil
	}

	var flattened []any
	for _, o := range objNodes {
		if m, ok := o.(map[string]any); ok {
			if set, ok := keywordValue(jc, m, KeywordSet); ok {
				flattened = append(flattened, asList(set)...)
				continue
			}
		}
		if l, ok := o.([]any); ok {
			flattened = append(flattened, l...)
			continue
		}
		flattened = append(flattened, o)
	}

	if term != nil && term.Reverse {
		reverse = !reverse
	}
	p := rdf.IRI(predicate)
	for i, o := range flattened {
		res, err := x.toObject(jc, term, o, sink, inNamed, path+"/"+strconv.Itoa(i))
		if err != nil {
			return err
		}
		if res.kind == omitted {
			x.opts.logger.Debug("omitting value", "key", key, "path", path)
			continue
		}
		q := rdf.Quad{Subject: subject, Predicate: p, Object: res.term}
		if reverse {
			if !rdf.IsResource(res.term) {
				return documentErrorf(path, "reverse property value must be a node, got %s", res.term)
			}
			q.Subject, q.Object = res.term, subject
		}
		if err := sink.Add(q); err != nil {
			return err
		}
	}
	return nil
}

func (x *expansion) toObject(jc *Context, term *Term, node any, sink rdf.Sink, inNamed bool, path string) (objectResult, error) {
	switch v := node.(type) {
	case nil:
		return omit, nil

	case langValue:
		if v.value == nil {
			return omit, nil
		}
		lex, err := lexicalForm(v.value)
		if err != nil {
			return omit, documentErrorf(path, "%v", err)
		}
		return emit(rdf.Literal{Lexical: lex, Language: v.lang}), nil

	case listValue:
		return x.addList(jc, term, v, sink, inNamed, path)

	case []any:
		// Arrays nested in a list are lists themselves.
		return x.addList(jc, term, v, sink, inNamed, path)

	case map[string]any:
		if items, ok := keywordValue(jc, v, KeywordList); ok {
			return x.addList(jc, term, asList(items), sink, inNamed, path)
		}
		_, hasValue := keywordValue(jc, v, KeywordValue)
		_, hasLang := keywordValue(jc, v, KeywordLanguage)
		if hasValue || hasLang {
			return x.valueObject(jc, v, path)
		}
		subject, err := x.addNode(jc, v, sink, inNamed, path)
		if err != nil || subject == nil {
			return omit, err
		}
		return emit(subject), nil
	}

	// Scalars.
	if term == nil || term.Coercion == "" {
		lang := jc.Language()
		if term != nil && term.HasLanguage {
			lang = term.Language
		}
		lit, err := scalarLiteral(node, lang)
		if err != nil {
			return omit, documentErrorf(path, "%v", err)
		}
		return emit(lit), nil
	}

	s, isString := node.(string)
	switch {
	case term.Coercion == "@id" && isString:
		t, err := x.toRDFID(jc, s)
		if err != nil {
			return omit, fmt.Errorf("%s: %w", path, err)
		}
		return emit(t), nil
	case term.Coercion == "@vocab" && isString:
		if _, ok := iri.IsBlankNodeRef(s); ok {
			return x.toObjectID(jc, s, path)
		}
		expanded, err := jc.ExpandVocab(s)
		if err != nil {
			return omit, fmt.Errorf("%s: %w", path, err)
		}
		return x.toObjectID(jc, expanded, path)
	case term.Coercion == "@id" || term.Coercion == "@vocab" || term.Coercion[0] == '@':
		lit, err := scalarLiteral(node, "")
		if err != nil {
			return omit, documentErrorf(path, "%v", err)
		}
		return emit(lit), nil
	}
	lex, err := lexicalForm(node)
	if err != nil {
		return omit, documentErrorf(path, "%v", err)
	}
	lit, err := rdf.NewLiteral(lex, rdf.IRI(term.Coercion), "")
	if err != nil {
		return omit, documentErrorf(path, "%v", err)
	}
	return emit(lit), nil
}

func (x *expansion) toObjectID(jc *Context, id, path string) (objectResult, error) {
	t, err := x.toRDFID(jc, id)
	if err != nil {
		return omit, fmt.Errorf("%s: %w", path, err)
	}
	return emit(t), nil
}

func (x *expansion) valueObject(jc *Context, node map[string]any, path string) (objectResult, error) {
	value, _ := keywordValue(jc, node, KeywordValue)
	if value == nil {
		return omit, nil
	}
	switch value.(type) {
	case map[string]any, []any:
		return omit, documentErrorf(path, "@value must be a scalar, got %T", value)
	}

	langVal, hasLang := keywordValue(jc, node, KeywordLanguage)
	typeVal, hasType := keywordValue(jc, node, KeywordType)
	if hasLang && langVal == nil {
		hasLang = false
	}
	if hasLang && hasType {
		return omit, documentErrorf(path, "value object has both @type and @language")
	}

	switch {
	case hasLang:
		lang, ok := langVal.(string)
		if !ok {
			return omit, documentErrorf(path, "@language must be a string, got %T", langVal)
		}
		lex, err := lexicalForm(value)
		if err != nil {
			return omit, documentErrorf(path, "%v", err)
		}
		return emit(rdf.Literal{Lexical: lex, Language: lang}), nil

	case hasType:
		typ, ok := typeVal.(string)
		if !ok {
			return omit, documentErrorf(path, "@type of a value must be a string, got %T", typeVal)
		}
		dt, err := jc.ExpandVocab(typ)
		if err != nil {
			return omit, fmt.Errorf("%s: %w", path, err)
		}
		lex, err := lexicalForm(value)
		if err != nil {
			return omit, documentErrorf(path, "%v", err)
		}
		lit, err := rdf.NewLiteral(lex, rdf.IRI(dt), "")
		if err != nil {
			return omit, documentErrorf(path, "%v", err)
		}
		return emit(lit), nil
	}

	lit, err := scalarLiteral(value, "")
	if err != nil {
		return omit, documentErrorf(path, "%v", err)
	}
	return emit(lit), nil
}

// addList encodes items as an rdf:first/rdf:rest chain. Omitted items do
// not get a list node; a list with no surviving items is rdf:nil.
func (x *expansion) addList(jc *Context, term *Term, items []any, sink rdf.Sink, inNamed bool, path string) (objectResult, error) {
	var objects []rdf.Term
	for i, item := range items {
		res, err := x.toObject(jc, term, item, sink, inNamed, path+"/"+strconv.Itoa(i))
		if err != nil {
			return omit, err
		}
		if res.kind == emitted {
			objects = append(objects, res.term)
		}
	}
	if len(objects) == 0 {
		return emit(rdf.RDFNil), nil
	}

	head := x.issuer.Issue()
	node := head
	for i, o := range objects {
		if err := sink.Add(rdf.Quad{Subject: node, Predicate: rdf.RDFFirst, Object: o}); err != nil {
			return omit, err
		}
		var rest rdf.Term = rdf.RDFNil
		var next rdf.BlankNode
		if i < len(objects)-1 {
			next = x.issuer.Issue()
			rest = next
		}
		if err := sink.Add(rdf.Quad{Subject: node, Predicate: rdf.RDFRest, Object: rest}); err != nil {
			return omit, err
		}
		node = next
	}
	return emit(head), nil
}

// scalarLiteral types a bare JSON scalar. Strings take lang; numbers with a
// fraction or exponent are doubles, other numbers integers.
func scalarLiteral(v any, lang string) (rdf.Literal, error) {
	switch v := v.(type) {
	case string:
		return rdf.Literal{Lexical: v, Language: lang}, nil
	case Number:
		if v.IsInteger() {
			return rdf.Literal{Lexical: string(v), Datatype: rdf.XSDInteger}, nil
		}
		return rdf.Literal{Lexical: string(v), Datatype: rdf.XSDDouble}, nil
	case bool:
		return rdf.Literal{Lexical: strconv.FormatBool(v), Datatype: rdf.XSDBoolean}, nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return rdf.Literal{Lexical: strconv.FormatInt(int64(v), 10), Datatype: rdf.XSDInteger}, nil
		}
		return rdf.Literal{Lexical: strconv.FormatFloat(v, 'g', -1, 64), Datatype: rdf.XSDDouble}, nil
	case int:
		return rdf.Literal{Lexical: strconv.Itoa(v), Datatype: rdf.XSDInteger}, nil
	case int64:
		return rdf.Literal{Lexical: strconv.FormatInt(v, 10), Datatype: rdf.XSDInteger}, nil
	}
	return rdf.Literal{}, fmt.Errorf("unsupported scalar of type %T", v)
}

func lexicalForm(v any) (string, error) {
	switch v.(type) {
	case string, Number, bool, float64, int, int64:
		lit, err := scalarLiteral(v, "")
		return lit.Lexical, err
	}
	return "", fmt.Errorf("unsupported scalar of type %T", v)
}
