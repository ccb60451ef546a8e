package jsonld

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"bitbucket.org/creachadair/stringset"
	"github.com/charmbracelet/log"

	"github.com/twinfer/ldquad/iri"
	"github.com/twinfer/ldquad/rdf"
)

// Context is an active JSON-LD context. A Context is immutable: Load and
// Derive return new values and never modify the receiver, so a Context may
// be shared between goroutines.
type Context struct {
	resolver Resolver
	logger   *log.Logger
	maxDepth int

	docBase  string
	base     string
	vocab    string
	language string
	version  string
	loaded   bool

	terms    map[string]*Term
	nulled   stringset.Set
	lookup   map[termKey]*Term
	prefixes map[string]string // term IRI -> term name
	keywords map[string]Keyword
	aliases  map[Keyword]string
}

// NewContext returns an empty context. WithBase, WithResolver, WithLogger
// and WithMaxDepth apply.
func NewContext(opts ...Option) *Context {
	o := newOptions(opts)
	return newContext(o)
}

func newContext(o options) *Context {
	return &Context{
		resolver: o.resolver,
		logger:   o.logger,
		maxDepth: o.maxDepth,
		docBase:  o.base,
		base:     o.base,
		terms:    make(map[string]*Term),
		nulled:   stringset.New(),
		lookup:   make(map[termKey]*Term),
		prefixes: make(map[string]string),
		keywords: make(map[string]Keyword),
		aliases:  make(map[Keyword]string),
	}
}

func (c *Context) clone() *Context {
	out := *c
	out.terms = maps.Clone(c.terms)
	out.nulled = c.nulled.Clone()
	out.lookup = maps.Clone(c.lookup)
	out.prefixes = maps.Clone(c.prefixes)
	out.keywords = maps.Clone(c.keywords)
	out.aliases = maps.Clone(c.aliases)
	return &out
}

// reset clears all definitions, keeping the document base and collaborators.
func (c *Context) reset() {
	c.base = c.docBase
	c.vocab = ""
	c.language = ""
	c.version = ""
	c.loaded = false
	c.terms = make(map[string]*Term)
	c.nulled = stringset.New()
	c.lookup = make(map[termKey]*Term)
	c.prefixes = make(map[string]string)
	c.keywords = make(map[string]Keyword)
	c.aliases = make(map[Keyword]string)
}

// Load folds source into a copy of c. base, when non-empty, is used to
// resolve remote context references instead of the document base.
func (c *Context) Load(source any, base string) (*Context, error) {
	return c.LoadContext(context.Background(), source, base)
}

// LoadContext is Load with a context.Context passed to the resolver.
//
// source may be a context object, an IRI string, an array of either, a
// document carrying a top-level "@context" key, or nil, which resets the
// context.
func (c *Context) LoadContext(ctx context.Context, source any, base string) (*Context, error) {
	if base == "" {
		base = c.docBase
	}
	var sources []preparedSource
	if err := c.prepSources(ctx, base, source, "", stringset.New(), &sources); err != nil {
		return nil, err
	}
	out := c.clone()
	for _, src := range sources {
		if src.body == nil {
			out.reset()
			continue
		}
		if err := out.readSource(src.body, src.url); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Derive returns a subcontext of c with overlay folded on top.
func (c *Context) Derive(overlay any) (*Context, error) {
	return c.LoadContext(context.Background(), overlay, "")
}

type preparedSource struct {
	url  string
	body map[string]any
}

func (c *Context) prepSources(ctx context.Context, base string, source any, sourceURL string, visited stringset.Set, out *[]preparedSource) error {
	switch v := source.(type) {
	case nil:
		*out = append(*out, preparedSource{url: sourceURL})

	case []any:
		for _, elem := range v {
			if err := c.prepSources(ctx, base, elem, sourceURL, visited, out); err != nil {
				return err
			}
		}

	case string:
		remote, err := iri.Resolve(base, v)
		if err != nil {
			return &ContextError{Term: v, Err: err}
		}
		if visited.Contains(remote) {
			return contextErrorf(v, "recursive context inclusion of %s", remote)
		}
		if c.resolver == nil {
			return contextErrorf(v, "no resolver configured for remote context %s", remote)
		}
		c.logger.Debug("loading remote context", "iri", remote)
		doc, err := c.resolver.Resolve(ctx, remote)
		if err != nil {
			return &ContextError{Term: v, Err: &ResolveError{IRI: remote, Err: err}}
		}
		m, ok := doc.(map[string]any)
		if !ok {
			return contextErrorf(v, "remote context %s is not an object", remote)
		}
		body, ok := m[KeywordContext.String()]
		if !ok {
			return contextErrorf(v, "remote document %s has no @context", remote)
		}
		seen := visited.Clone()
		seen.Add(remote)
		return c.prepSources(ctx, remote, body, remote, seen, out)

	case map[string]any:
		if body, ok := v[KeywordContext.String()]; ok {
			return c.prepSources(ctx, base, body, sourceURL, visited, out)
		}
		*out = append(*out, preparedSource{url: sourceURL, body: v})

	default:
		return contextErrorf("", "invalid context of type %T", source)
	}
	return nil
}

func (c *Context) readSource(source map[string]any, sourceURL string) error {
	c.loaded = true

	if v, ok := source["@version"]; ok {
		if !isVersion11(v) {
			return contextErrorf("@version", "unsupported version %v", v)
		}
		c.version = "1.1"
	}
	if v, ok := source["@vocab"]; ok {
		switch v := v.(type) {
		case nil:
			c.vocab = ""
		case string:
			if v == "" {
				c.vocab = ""
				break
			}
			vocab, err := c.recExpand(source, v)
			if err != nil {
				return err
			}
			c.vocab = vocab
		default:
			return contextErrorf("@vocab", "expected string or null, got %T", v)
		}
	}
	if v, ok := source["@language"]; ok {
		switch v := v.(type) {
		case nil:
			c.language = ""
		case string:
			c.language = v
		default:
			return contextErrorf("@language", "expected string or null, got %T", v)
		}
	}
	if v, ok := source["@base"]; ok && sourceURL == "" {
		switch v := v.(type) {
		case nil:
			c.base = c.docBase
		case string:
			v, _, _ = strings.Cut(v, "#")
			resolved, err := iri.Resolve(c.base, v)
			if err != nil {
				return &ContextError{Term: "@base", Err: err}
			}
			c.base = resolved
		default:
			return contextErrorf("@base", "expected string or null, got %T", v)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(source)) {
		if strings.HasPrefix(name, "@") {
			if _, known := ParseKeyword(name); !known {
				c.logger.Debug("ignoring context keyword", "key", name)
			}
			continue
		}
		if err := c.readTerm(source, name, source[name]); err != nil {
			return err
		}
	}
	return nil
}

func isVersion11(v any) bool {
	switch v := v.(type) {
	case Number:
		return v == "1.1"
	case float64:
		return v == 1.1
	}
	return false
}

func (c *Context) readTerm(source map[string]any, name string, dfn any) error {
	switch d := dfn.(type) {
	case nil:
		c.removeTerm(name)
		c.nulled.Add(name)
		return nil

	case string:
		if kw, ok := ParseKeyword(d); ok {
			return c.addAlias(name, kw)
		}
		if strings.HasPrefix(d, "@") {
			c.logger.Debug("ignoring keyword-like term", "term", name, "value", d)
			return nil
		}
		id, err := c.recExpand(source, d)
		if err != nil {
			return err
		}
		c.addTerm(&Term{Name: name, IRI: id})
		return nil

	case map[string]any:
		return c.readTermObject(source, name, d)
	}
	return contextErrorf(name, "invalid term definition of type %T", dfn)
}

func (c *Context) readTermObject(source map[string]any, name string, d map[string]any) error {
	t := &Term{Name: name}

	var idref string
	if rev, ok := d["@reverse"]; ok {
		s, ok := rev.(string)
		if !ok {
			return contextErrorf(name, "@reverse must be a string, got %T", rev)
		}
		t.Reverse = true
		idref = s
	} else if id, ok := d["@id"]; ok {
		switch id := id.(type) {
		case nil:
			c.removeTerm(name)
			c.nulled.Add(name)
			return nil
		case string:
			idref = id
		default:
			return contextErrorf(name, "@id must be a string, got %T", id)
		}
	}

	if typ, ok := d["@type"]; ok {
		s, ok := typ.(string)
		if !ok {
			return contextErrorf(name, "@type must be a string, got %T", typ)
		}
		if strings.HasPrefix(s, "@") {
			t.Coercion = s
		} else {
			coercion, err := c.recExpand(source, s)
			if err != nil {
				return err
			}
			t.Coercion = coercion
		}
	}

	switch {
	case idref == "@type":
		t.IRI = string(rdf.RDFType)
		t.Coercion = "@vocab"
	case idref != "":
		if kw, ok := ParseKeyword(idref); ok {
			return c.addAlias(name, kw)
		}
		id, err := c.recExpand(source, idref)
		if err != nil {
			return err
		}
		t.IRI = id
	case strings.Contains(name, ":"):
		id, err := c.recExpand(source, name)
		if err != nil {
			return err
		}
		t.IRI = id
	case c.vocab != "":
		t.IRI = c.vocab + name
	default:
		return contextErrorf(name, "term has no IRI mapping and no @vocab is set")
	}

	if cv, ok := d["@container"]; ok {
		container, err := parseContainerValue(name, cv)
		if err != nil {
			return err
		}
		t.Container = container
	}

	if lang, ok := d["@language"]; ok {
		switch lang := lang.(type) {
		case nil:
			t.HasLanguage = true
		case string:
			t.HasLanguage = true
			t.Language = lang
		default:
			return contextErrorf(name, "@language must be a string or null, got %T", lang)
		}
	}

	if _, ok := d["@context"]; ok {
		c.logger.Debug("ignoring scoped context", "term", name)
	}

	c.addTerm(t)
	return nil
}

// parseContainerValue accepts a container keyword or an array of them. For
// arrays the most specific shape wins.
func parseContainerValue(name string, v any) (Container, error) {
	switch v := v.(type) {
	case nil:
		return ContainerNone, nil
	case string:
		container, ok := parseContainer(v)
		if !ok {
			return ContainerNone, contextErrorf(name, "invalid @container %q", v)
		}
		return container, nil
	case []any:
		found := ContainerNone
		for _, elem := range v {
			container, err := parseContainerValue(name, elem)
			if err != nil {
				return ContainerNone, err
			}
			if found == ContainerNone || containerRank(container) < containerRank(found) {
				found = container
			}
		}
		return found, nil
	}
	return ContainerNone, contextErrorf(name, "invalid @container of type %T", v)
}

func containerRank(c Container) int {
	switch c {
	case ContainerList:
		return 0
	case ContainerLanguage:
		return 1
	case ContainerSet:
		return 2
	case ContainerIndex:
		return 3
	}
	return 4
}

func aliasable(kw Keyword) bool {
	switch kw {
	case KeywordID, KeywordType, KeywordGraph, KeywordReverse, KeywordList,
		KeywordSet, KeywordIndex, KeywordLanguage, KeywordValue:
		return true
	}
	return false
}

func (c *Context) addAlias(name string, kw Keyword) error {
	if !aliasable(kw) {
		return contextErrorf(name, "keyword %s cannot be aliased", kw)
	}
	c.removeTerm(name)
	c.nulled.Discard(name)
	c.keywords[name] = kw
	if _, ok := c.aliases[kw]; !ok {
		c.aliases[kw] = name
	}
	return nil
}

func (c *Context) addTerm(t *Term) {
	c.removeTerm(t.Name)
	c.nulled.Discard(t.Name)
	if kw, ok := c.keywords[t.Name]; ok {
		delete(c.keywords, t.Name)
		if c.aliases[kw] == t.Name {
			delete(c.aliases, kw)
		}
	}
	c.terms[t.Name] = t
	c.lookup[t.key()] = t
	if iri.HasVocabSuffix(t.IRI) && !t.Reverse && !strings.Contains(t.Name, ":") {
		c.prefixes[t.IRI] = t.Name
	}
}

func (c *Context) removeTerm(name string) {
	old, ok := c.terms[name]
	if !ok {
		return
	}
	delete(c.terms, name)
	if c.lookup[old.key()] == old {
		delete(c.lookup, old.key())
	}
	if c.prefixes[old.IRI] == name {
		delete(c.prefixes, old.IRI)
	}
}

// recExpand expands an IRI expression found in a context body. Prefixes are
// looked up first in the body being read, so that terms may refer to terms
// defined later in the same object, and then in the active definitions.
func (c *Context) recExpand(source map[string]any, expr string) (string, error) {
	start := expr
	prev, hasPrev := "", false
	for depth := 0; ; depth++ {
		if hasPrev && expr == prev {
			return expr, nil
		}
		if _, ok := ParseKeyword(expr); ok {
			return expr, nil
		}
		if depth > c.maxDepth {
			return "", contextErrorf(start, "IRI expansion exceeded depth %d", c.maxDepth)
		}
		next, done := c.expandStep(source, expr)
		if done {
			return next, nil
		}
		prev, hasPrev, expr = expr, true, next
	}
}

func (c *Context) expandStep(source map[string]any, expr string) (string, bool) {
	if iri.IsTerm(expr) {
		next := expr
		if id, ok := c.sourceID(source, expr); ok {
			next = id
		}
		if iri.IsTerm(next) && c.vocab != "" {
			return c.vocab + next, true
		}
		return next, false
	}

	pfx, local, ok := iri.Split(expr)
	if !ok {
		if id, ok := c.sourceID(source, expr); ok {
			return id, false
		}
		return expr, false
	}
	if pfx == "_" {
		return expr, true
	}
	id, found := c.sourceID(source, pfx)
	if !found && pfx+":" == c.vocab {
		return expr, true
	}
	if !found {
		return expr, false
	}
	return id + local, false
}

func (c *Context) sourceID(source map[string]any, key string) (string, bool) {
	switch v := source[key].(type) {
	case string:
		return v, true
	case map[string]any:
		id, ok := v["@id"].(string)
		return id, ok
	}
	if t, ok := c.terms[key]; ok {
		return t.IRI, true
	}
	return "", false
}

// Expand maps a term, compact IRI or IRI to an IRI. Bare terms fall back to
// the vocabulary; ok is false when a bare term cannot be mapped.
func (c *Context) Expand(s string) (string, bool) {
	if c.nulled.Contains(s) {
		return "", false
	}
	if t, ok := c.terms[s]; ok {
		return t.IRI, true
	}
	return c.expandIRI(s, true)
}

func (c *Context) expandIRI(s string, useVocab bool) (string, bool) {
	if _, ok := ParseKeyword(s); ok {
		return s, true
	}
	if _, ok := iri.IsBlankNodeRef(s); ok {
		return s, true
	}
	if pfx, local, ok := iri.Split(s); ok {
		if t, ok := c.terms[pfx]; ok && t.IRI != "" {
			return t.IRI + local, true
		}
		return s, true
	}
	if iri.IsTerm(s) && useVocab {
		if c.vocab != "" {
			return c.vocab + s, true
		}
		return "", false
	}
	return s, true
}

// Resolve maps a node identifier to an absolute IRI: compact IRIs are
// expanded and the result is resolved against the base. Terms and the
// vocabulary are not consulted. Blank node references are returned as is.
func (c *Context) Resolve(s string) (string, error) {
	if _, ok := iri.IsBlankNodeRef(s); ok {
		return s, nil
	}
	expanded, _ := c.expandIRI(s, false)
	return iri.Resolve(c.base, expanded)
}

// ResolveIRI resolves s against the base without any expansion.
func (c *Context) ResolveIRI(s string) (string, error) {
	return iri.Resolve(c.base, s)
}

// ExpandVocab expands a vocabulary-relative value, as used for @type values
// and @vocab coercion. Values that are not terms are resolved like Resolve.
func (c *Context) ExpandVocab(s string) (string, error) {
	if t, ok := c.terms[s]; ok {
		return t.IRI, nil
	}
	if iri.IsTerm(s) && c.vocab != "" && !c.nulled.Contains(s) {
		return c.vocab + s, nil
	}
	return c.Resolve(s)
}

// ShrinkIRI compacts an IRI to a compact IRI using a prefix term. The
// longest matching prefix wins; without a match the IRI is returned as is.
func (c *Context) ShrinkIRI(s string) string {
	ns, local := iri.SplitVocab(s)
	if name, ok := c.prefixes[ns]; ok && local != "" {
		return name + ":" + local
	}
	best, bestName := "", ""
	for prefix, name := range c.prefixes {
		if len(prefix) > len(best) && len(s) > len(prefix) && strings.HasPrefix(s, prefix) {
			best, bestName = prefix, name
		}
	}
	if best != "" && !strings.HasPrefix(s[len(best):], "//") {
		return bestName + ":" + s[len(best):]
	}
	return s
}

// ToSymbol compacts an IRI used in a vocabulary position: a bare term
// mapped to it, a name relative to @vocab, or a compact IRI.
func (c *Context) ToSymbol(s string) string {
	if t, ok := c.lookup[termKey{iri: s}]; ok {
		return t.Name
	}
	if c.vocab != "" {
		if ns, local := iri.SplitVocab(s); ns == c.vocab && local != "" && c.freeName(local) {
			return local
		}
	}
	return c.ShrinkIRI(s)
}

// freeName reports whether name can appear in output without colliding
// with a term or keyword alias.
func (c *Context) freeName(name string) bool {
	if _, ok := c.terms[name]; ok {
		return false
	}
	if _, ok := c.keywords[name]; ok {
		return false
	}
	return !c.nulled.Contains(name)
}

// FindTerm selects the most specific term for a value. For each qualifier
// in order it tries every container and then the qualifier alone; then each
// container alone; then a bare term.
func (c *Context) FindTerm(iriStr string, qualifiers []Qualifier, containers []Container, reverse bool) *Term {
	get := func(q Qualifier, ct Container) *Term {
		return c.lookup[termKey{iri: iriStr, qualifier: q, container: ct, reverse: reverse}]
	}
	for _, q := range qualifiers {
		for _, ct := range containers {
			if t := get(q, ct); t != nil {
				return t
			}
		}
		if t := get(q, ContainerNone); t != nil {
			return t
		}
	}
	for _, ct := range containers {
		if t := get(Qualifier{}, ct); t != nil {
			return t
		}
	}
	return get(Qualifier{}, ContainerNone)
}

// HasReverse reports whether some reverse term maps to iriStr.
func (c *Context) HasReverse(iriStr string) bool {
	for _, t := range c.terms {
		if t.Reverse && t.IRI == iriStr {
			return true
		}
	}
	return false
}

// TermByName returns the term defined under name.
func (c *Context) TermByName(name string) (*Term, bool) {
	t, ok := c.terms[name]
	return t, ok
}

// Terms returns all terms ordered by name.
func (c *Context) Terms() []*Term {
	out := make([]*Term, 0, len(c.terms))
	for _, name := range slices.Sorted(maps.Keys(c.terms)) {
		out = append(out, c.terms[name])
	}
	return out
}

// Prefixes returns the terms usable as prefixes, keyed by name.
func (c *Context) Prefixes() map[string]string {
	out := make(map[string]string, len(c.prefixes))
	for ns, name := range c.prefixes {
		out[name] = ns
	}
	return out
}

// Keyword classifies a document key, following keyword aliases.
func (c *Context) Keyword(key string) Keyword {
	if kw, ok := c.keywords[key]; ok {
		return kw
	}
	if kw, ok := ParseKeyword(key); ok {
		return kw
	}
	return KeywordNone
}

// Key returns the key used to write kw, which is its first alias if any.
func (c *Context) Key(kw Keyword) string {
	if alias, ok := c.aliases[kw]; ok {
		return alias
	}
	return kw.String()
}

// Language returns the default language, or "" when none is set.
func (c *Context) Language() string { return c.language }

// Vocab returns the active vocabulary IRI.
func (c *Context) Vocab() string { return c.vocab }

// Base returns the active base IRI.
func (c *Context) Base() string { return c.base }

// DocumentBase returns the base the context was created with.
func (c *Context) DocumentBase() string { return c.docBase }

// Loaded reports whether any context definitions are active.
func (c *Context) Loaded() bool { return c.loaded }

// ToMap renders the active definitions as a context object that loads back
// into an equivalent context.
func (c *Context) ToMap() map[string]any {
	out := make(map[string]any)
	if c.version != "" {
		out["@version"] = Number(c.version)
	}
	if c.vocab != "" {
		out["@vocab"] = c.vocab
	}
	if c.language != "" {
		out["@language"] = c.language
	}
	if c.base != c.docBase {
		out["@base"] = c.base
	}
	for alias, kw := range c.keywords {
		out[alias] = kw.String()
	}
	for _, name := range c.nulled.Elements() {
		out[name] = nil
	}
	for name, t := range c.terms {
		out[name] = termDefinition(t)
	}
	return out
}

func termDefinition(t *Term) any {
	if t.Coercion == "" && t.Container == ContainerNone && !t.HasLanguage && !t.Reverse {
		return t.IRI
	}
	dfn := make(map[string]any)
	if t.Reverse {
		dfn["@reverse"] = t.IRI
	} else {
		dfn["@id"] = t.IRI
	}
	if t.Coercion != "" {
		dfn["@type"] = t.Coercion
	}
	if t.Container != ContainerNone {
		dfn["@container"] = t.Container.String()
	}
	if t.HasLanguage {
		if t.Language == "" {
			dfn["@language"] = nil
		} else {
			dfn["@language"] = t.Language
		}
	}
	return dfn
}

func (c *Context) String() string {
	return fmt.Sprintf("Context{vocab=%q base=%q language=%q terms=%d}", c.vocab, c.base, c.language, len(c.terms))
}
