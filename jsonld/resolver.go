package jsonld

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrContextNotFound is returned by the bundled resolvers for unknown IRIs.
var ErrContextNotFound = errors.New("jsonld: context document not found")

// Resolver dereferences a remote context IRI into a parsed JSON document.
// The document must be an object with a top-level "@context" key.
type Resolver interface {
	Resolve(ctx context.Context, iri string) (any, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, iri string) (any, error)

// Resolve calls f(ctx, iri).
func (f ResolverFunc) Resolve(ctx context.Context, iri string) (any, error) {
	return f(ctx, iri)
}

// MapResolver serves context documents from memory, keyed by IRI.
type MapResolver map[string]any

// Resolve returns the document registered for iri.
func (m MapResolver) Resolve(_ context.Context, iri string) (any, error) {
	doc, ok := m[iri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContextNotFound, iri)
	}
	return doc, nil
}

// FileResolver reads context documents from the local file system.
// Files maps IRIs to paths; other IRIs are accepted when they are file://
// URLs or relative references, which are read below Root.
type FileResolver struct {
	Root  string
	Files map[string]string
}

// Resolve reads and decodes the file behind iri.
func (r FileResolver) Resolve(ctx context.Context, iri string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := r.path(iri)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContextNotFound, iri)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrContextNotFound, iri)
		}
		return nil, err
	}
	defer f.Close()
	return DecodeDocument(f)
}

func (r FileResolver) path(iri string) (string, bool) {
	if p, ok := r.Files[iri]; ok {
		return r.join(p), true
	}
	if p, ok := strings.CutPrefix(iri, "file://"); ok {
		return p, true
	}
	if strings.Contains(iri, ":") {
		return "", false
	}
	return r.join(iri), true
}

func (r FileResolver) join(p string) string {
	if filepath.IsAbs(p) || r.Root == "" {
		return p
	}
	return filepath.Join(r.Root, filepath.FromSlash(p))
}

// CachingResolver memoises successful lookups of a wrapped Resolver.
// It is safe for concurrent use.
type CachingResolver struct {
	next Resolver

	mu    sync.Mutex
	cache map[string]any
}

// NewCachingResolver wraps next with a cache.
func NewCachingResolver(next Resolver) *CachingResolver {
	return &CachingResolver{next: next, cache: make(map[string]any)}
}

// Resolve returns a cached document or asks the wrapped resolver.
func (r *CachingResolver) Resolve(ctx context.Context, iri string) (any, error) {
	r.mu.Lock()
	doc, ok := r.cache[iri]
	r.mu.Unlock()
	if ok {
		return doc, nil
	}

	doc, err := r.next.Resolve(ctx, iri)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[iri] = doc
	r.mu.Unlock()
	return doc, nil
}
