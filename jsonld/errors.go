package jsonld

import (
	"context"
	"errors"
	"fmt"

	"github.com/twinfer/ldquad/iri"
)

// ErrorCode is a stable, programmatic classification of an error.
type ErrorCode string

const (
	// CodeMalformedDocument marks structurally invalid input documents.
	CodeMalformedDocument ErrorCode = "MALFORMED_DOCUMENT"
	// CodeContextError marks invalid or unresolvable contexts.
	CodeContextError ErrorCode = "CONTEXT_ERROR"
	// CodeInvalidIRI marks failures resolving a reference against a base.
	CodeInvalidIRI ErrorCode = "INVALID_IRI"
	// CodeResolverError marks failures reported by a context Resolver.
	CodeResolverError ErrorCode = "RESOLVER_ERROR"
	// CodeCanceled marks conversions stopped by their context.Context.
	CodeCanceled ErrorCode = "CANCELED"
	// CodeUnknown is returned for errors outside this package's taxonomy.
	CodeUnknown ErrorCode = "UNKNOWN"
)

var (
	// ErrMalformedDocument is wrapped by every document structure error.
	ErrMalformedDocument = errors.New("jsonld: malformed document")
	// ErrContext is wrapped by every context processing error.
	ErrContext = errors.New("jsonld: context error")
	// ErrInvalidIRI is the iri package sentinel, re-exported for callers.
	ErrInvalidIRI = iri.ErrInvalidIRI
)

// ContextError reports a failure while loading a context or creating a term.
// It matches ErrContext as well as the underlying error.
type ContextError struct {
	Term string
	Err  error
}

func (e *ContextError) Error() string {
	if e.Term == "" {
		return fmt.Sprintf("jsonld: context error: %v", e.Err)
	}
	return fmt.Sprintf("jsonld: context error at %q: %v", e.Term, e.Err)
}

func (e *ContextError) Unwrap() []error {
	return []error{ErrContext, e.Err}
}

// DocumentError reports a malformed document node. Path is a JSON-pointer
// like location of the offending value.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("jsonld: malformed document at %s: %v", e.Path, e.Err)
}

func (e *DocumentError) Unwrap() []error {
	return []error{ErrMalformedDocument, e.Err}
}

// ResolveError wraps a failure returned by a Resolver.
type ResolveError struct {
	IRI string
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolving %s: %v", e.IRI, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Code classifies err. It returns "" for a nil error.
func Code(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCanceled
	}
	var resolveErr *ResolveError
	if errors.As(err, &resolveErr) {
		return CodeResolverError
	}
	switch {
	case errors.Is(err, ErrInvalidIRI):
		return CodeInvalidIRI
	case errors.Is(err, ErrContext):
		return CodeContextError
	case errors.Is(err, ErrMalformedDocument):
		return CodeMalformedDocument
	}
	return CodeUnknown
}

func contextErrorf(term, format string, args ...any) error {
	return &ContextError{Term: term, Err: fmt.Errorf(format, args...)}
}

func documentErrorf(path, format string, args ...any) error {
	return &DocumentError{Path: path, Err: fmt.Errorf(format, args...)}
}
