package ldquad

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/twinfer/ldquad/rdf"
)

// initTermScanner configures a scanner that only recognises quoted strings;
// IRIs, blank node labels and language tags are read rune by rune.
func initTermScanner(r io.Reader) (*scanner.Scanner, *error) {
	var s scanner.Scanner
	s.Init(r)
	s.Mode = scanner.ScanStrings
	var firstErr error
	s.Error = func(s *scanner.Scanner, msg string) {
		if firstErr == nil {
			firstErr = fmt.Errorf("parse error at %s: %s", s.Pos(), msg)
		}
	}
	return &s, &firstErr
}

// ParseTermFromReader parses a single term in N-Triples syntax from r.
func ParseTermFromReader(r io.Reader) (rdf.Term, error) {
	s, scanErr := initTermScanner(r)
	t, err := parseTerm(s)
	if *scanErr != nil {
		return nil, *scanErr
	}
	if err != nil {
		return nil, err
	}
	if tok := s.Scan(); tok != scanner.EOF {
		return nil, parseError(s, "unexpected trailing input %q", s.TokenText())
	}
	return t, nil
}

// ParseTerm parses a term in N-Triples syntax: <iri>, _:label, "lexical",
// "lexical"@lang or "lexical"^^<datatype>. It is the inverse of
// rdf.Term.String.
func ParseTerm(input string) (rdf.Term, error) {
	return ParseTermFromReader(strings.NewReader(input))
}

// parseError creates a formatted error message with scanner position information.
func parseError(s *scanner.Scanner, format string, args ...any) error {
	return fmt.Errorf("parse error at %s: %s", s.Pos(), fmt.Sprintf(format, args...))
}

func parseTerm(s *scanner.Scanner) (rdf.Term, error) {
	switch tok := s.Scan(); tok {
	case '<':
		iri, err := scanIRIRef(s)
		if err != nil {
			return nil, err
		}
		return rdf.IRI(iri), nil

	case '_':
		if s.Next() != ':' {
			return nil, parseError(s, "expected ':' after '_'")
		}
		label := scanWhile(s, isLabelChar)
		if label == "" {
			return nil, parseError(s, "empty blank node label")
		}
		return rdf.BlankNode(label), nil

	case scanner.String:
		lexical, err := strconv.Unquote(s.TokenText())
		if err != nil {
			return nil, fmt.Errorf("could not unquote literal %s: %w", s.TokenText(), err)
		}
		switch s.Peek() {
		case '@':
			s.Next()
			lang := scanWhile(s, isLangChar)
			if lang == "" {
				return nil, parseError(s, "empty language tag")
			}
			return rdf.Literal{Lexical: lexical, Language: lang}, nil
		case '^':
			s.Next()
			if s.Next() != '^' || s.Next() != '<' {
				return nil, parseError(s, "expected ^^<datatype>")
			}
			datatype, err := scanIRIRef(s)
			if err != nil {
				return nil, err
			}
			return rdf.NewLiteral(lexical, rdf.IRI(datatype), "")
		}
		return rdf.Literal{Lexical: lexical}, nil

	case scanner.EOF:
		return nil, parseError(s, "empty term")
	default:
		return nil, parseError(s, "unexpected %s", scanner.TokenString(tok))
	}
}

// scanIRIRef reads an IRI after its opening '<' up to and including '>'.
func scanIRIRef(s *scanner.Scanner) (string, error) {
	var sb strings.Builder
	for {
		ch := s.Next()
		switch {
		case ch == '>':
			if sb.Len() == 0 {
				return "", parseError(s, "empty IRI")
			}
			return sb.String(), nil
		case ch == scanner.EOF:
			return "", parseError(s, "unterminated IRI")
		case ch == '<' || unicode.IsSpace(ch):
			return "", parseError(s, "invalid character %q in IRI", ch)
		}
		sb.WriteRune(ch)
	}
}

func scanWhile(s *scanner.Scanner, accept func(rune) bool) string {
	var sb strings.Builder
	for accept(s.Peek()) {
		sb.WriteRune(s.Next())
	}
	return sb.String()
}

func isLabelChar(ch rune) bool {
	return ch == '_' || ch == '-' || ch == '.' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func isLangChar(ch rune) bool {
	return ch == '-' || (ch < unicode.MaxASCII && (unicode.IsLetter(ch) || unicode.IsDigit(ch)))
}
