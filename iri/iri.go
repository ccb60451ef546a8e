// Package iri holds the small string-level IRI helpers used by context
// processing: CURIE splitting, vocabulary-delimiter splitting and relative
// reference resolution.
package iri

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidIRI is returned when a reference cannot be resolved against a base.
var ErrInvalidIRI = errors.New("invalid IRI")

// VocabDelims are the characters after which an IRI may be split into a
// namespace and a local name, in order of preference.
const VocabDelims = "#/:"

// blankNodePrefix marks a blank node reference in an @id value.
const blankNodePrefix = "_:"

// IsTerm reports whether expr is a bare term, i.e. contains no ':'.
func IsTerm(expr string) bool {
	return !strings.Contains(expr, ":")
}

// Split splits a compact IRI "pfx:local" at its first ':'.
// ok is false for bare terms and for absolute IRIs whose local part starts
// with "//" (e.g. "http://example.org/").
func Split(expr string) (prefix, local string, ok bool) {
	prefix, local, found := strings.Cut(expr, ":")
	if !found || strings.HasPrefix(local, "//") {
		return "", "", false
	}
	return prefix, local, true
}

// SplitVocab splits iri after the last occurrence of the first vocabulary
// delimiter present, checked in the order '#', '/', ':'.
// If no delimiter is present, ns is iri and local is empty.
func SplitVocab(iri string) (ns, local string) {
	for _, delim := range VocabDelims {
		if at := strings.LastIndexByte(iri, byte(delim)); at > -1 {
			return iri[:at+1], iri[at+1:]
		}
	}
	return iri, ""
}

// HasVocabSuffix reports whether iri ends in a vocabulary delimiter, which is
// what allows a term mapped to it to be used as a prefix.
func HasVocabSuffix(iri string) bool {
	return iri != "" && strings.ContainsRune(VocabDelims, rune(iri[len(iri)-1]))
}

// IsBlankNodeRef reports whether s is a "_:label" blank node reference and
// returns the label.
func IsBlankNodeRef(s string) (label string, ok bool) {
	label, ok = strings.CutPrefix(s, blankNodePrefix)
	if !ok || label == "" {
		return "", false
	}
	return label, true
}

// IsAbsolute reports whether s carries a URI scheme.
func IsAbsolute(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != ""
}

// Resolve resolves ref against base according to RFC 3986.
// An empty base returns ref unchanged. Dot segments that climb above the
// root of base collapse instead of failing.
func Resolve(base, ref string) (string, error) {
	if base == "" {
		return ref, nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: base %q: %v", ErrInvalidIRI, base, err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: reference %q: %v", ErrInvalidIRI, ref, err)
	}

	// Absolute references are returned verbatim so that their lexical form,
	// including any dot segments, survives.
	if refURL.Scheme != "" {
		return ref, nil
	}

	resolved := baseURL.ResolveReference(refURL).String()
	// net/url drops a trailing empty fragment ("x#"), which matters for
	// vocabulary IRIs.
	if strings.HasSuffix(ref, "#") && !strings.HasSuffix(resolved, "#") {
		resolved += "#"
	}
	return resolved, nil
}
