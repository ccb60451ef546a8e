package jsonld

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/twinfer/ldquad/iri"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"canceled", context.Canceled, CodeCanceled},
		{"deadline", fmt.Errorf("expand: %w", context.DeadlineExceeded), CodeCanceled},
		{"resolver", &ContextError{Term: "ctx", Err: &ResolveError{IRI: "http://example.org/", Err: ErrContextNotFound}}, CodeResolverError},
		{"invalid iri", &ContextError{Term: "@base", Err: iri.ErrInvalidIRI}, CodeInvalidIRI},
		{"context", contextErrorf("a", "bad term"), CodeContextError},
		{"document", documentErrorf("/@value", "bad value"), CodeMalformedDocument},
		{"unknown", errors.New("boom"), CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.want {
				t.Errorf("Code(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorMatching(t *testing.T) {
	inner := errors.New("boom")

	ce := &ContextError{Term: "name", Err: inner}
	if !errors.Is(ce, ErrContext) || !errors.Is(ce, inner) {
		t.Errorf("ContextError does not match its sentinels: %v", ce)
	}
	if got, want := ce.Error(), `jsonld: context error at "name": boom`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	de := &DocumentError{Path: "/p", Err: inner}
	if !errors.Is(de, ErrMalformedDocument) || !errors.Is(de, inner) {
		t.Errorf("DocumentError does not match its sentinels: %v", de)
	}

	re := &ContextError{Term: "ctx", Err: &ResolveError{IRI: "http://example.org/", Err: ErrContextNotFound}}
	var target *ResolveError
	if !errors.As(re, &target) || target.IRI != "http://example.org/" {
		t.Errorf("Expected ResolveError inside %v", re)
	}
	if !errors.Is(re, ErrContextNotFound) {
		t.Errorf("Resolver error not propagated: %v", re)
	}
}
