package jsonld

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/twinfer/ldquad/rdf"
)

// MaxExpansionDepth bounds recursive IRI expansion inside context bodies.
const MaxExpansionDepth = 16

// EmbedPolicy controls whether compaction nests blank nodes in place.
type EmbedPolicy uint8

const (
	// EmbedNever emits every blank node as a separate node and refers to it
	// by {"@id": "_:label"}.
	EmbedNever EmbedPolicy = iota
	// EmbedSingleRef nests blank nodes that are referenced exactly once.
	EmbedSingleRef
)

func (p EmbedPolicy) String() string {
	switch p {
	case EmbedNever:
		return "never"
	case EmbedSingleRef:
		return "single"
	}
	return fmt.Sprintf("EmbedPolicy(%d)", p)
}

// ParseEmbedPolicy parses the names returned by EmbedPolicy.String.
func ParseEmbedPolicy(s string) (EmbedPolicy, error) {
	switch s {
	case "", "never":
		return EmbedNever, nil
	case "single":
		return EmbedSingleRef, nil
	}
	return EmbedNever, fmt.Errorf("unknown embed policy %q", s)
}

type options struct {
	base     string
	resolver Resolver
	logger   *log.Logger
	maxDepth int

	expandContext any
	issuer        *rdf.Issuer

	compactSource  any
	compactContext *Context
	nativeTypes    bool
	rdfType        bool
	autoCompact    bool
	embed          EmbedPolicy
}

// Option configures a Context, an Expander or a Compactor. Options that do
// not apply to the receiver are ignored.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{maxDepth: MaxExpansionDepth}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	return o
}

// WithBase sets the document base IRI.
func WithBase(base string) Option {
	return func(o *options) { o.base = base }
}

// WithResolver sets the resolver used to dereference remote contexts.
func WithResolver(r Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithLogger sets the logger for debug output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMaxDepth overrides MaxExpansionDepth.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		if depth > 0 {
			o.maxDepth = depth
		}
	}
}

// WithExpandContext supplies a context applied before any context embedded
// in the document being expanded.
func WithExpandContext(source any) Option {
	return func(o *options) { o.expandContext = source }
}

// WithIssuer shares a blank node issuer across expansion runs.
func WithIssuer(issuer *rdf.Issuer) Option {
	return func(o *options) { o.issuer = issuer }
}

// WithContext sets the context source used for compaction. The source is
// also written verbatim as the output's @context.
func WithContext(source any) Option {
	return func(o *options) { o.compactSource = source }
}

// WithCompactContext compacts with an already loaded context.
func WithCompactContext(c *Context) Option {
	return func(o *options) { o.compactContext = c }
}

// UseNativeTypes writes xsd:integer, xsd:double, xsd:boolean and xsd:string
// literals as native JSON values.
func UseNativeTypes(enabled bool) Option {
	return func(o *options) { o.nativeTypes = enabled }
}

// UseRDFType treats rdf:type as an ordinary property instead of @type.
func UseRDFType(enabled bool) Option {
	return func(o *options) { o.rdfType = enabled }
}

// AutoCompact builds a context from the source's prefixes when no context
// is given.
func AutoCompact(enabled bool) Option {
	return func(o *options) { o.autoCompact = enabled }
}

// WithEmbed sets the blank node embedding policy.
func WithEmbed(policy EmbedPolicy) Option {
	return func(o *options) { o.embed = policy }
}
