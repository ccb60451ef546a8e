package jsonld

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Number is a JSON number in its original lexical form.
type Number string

// IsInteger reports whether the lexical form has no fraction or exponent.
func (n Number) IsInteger() bool {
	return !strings.ContainsAny(string(n), ".eE")
}

// Float64 parses the number as a float64.
func (n Number) Float64() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

// Int64 parses the number as an int64.
func (n Number) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

// DecodeDocument reads one JSON value from r into a generic tree of
// map[string]any, []any, string, Number, bool and nil.
func DecodeDocument(r io.Reader) (any, error) {
	dec := jsontext.NewDecoder(r)
	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if _, err := dec.ReadToken(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrMalformedDocument)
	}
	return v, nil
}

// ParseDocument decodes a document held in memory.
func ParseDocument(data []byte) (any, error) {
	return DecodeDocument(bytes.NewReader(data))
}

func decodeValue(dec *jsontext.Decoder) (any, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return nil, err
	}

	switch tok.Kind() {
	case 'n':
		return nil, nil
	case 't', 'f':
		return tok.Bool(), nil
	case '"':
		return tok.String(), nil
	case '0':
		return Number(tok.String()), nil

	case '{':
		obj := make(map[string]any)
		for dec.PeekKind() != '}' {
			keyTok, err := dec.ReadToken()
			if err != nil {
				return nil, fmt.Errorf("failed to read object key: %w", err)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj[keyTok.String()] = val
		}
		if _, err := dec.ReadToken(); err != nil {
			return nil, fmt.Errorf("failed to read object end: %w", err)
		}
		return obj, nil

	case '[':
		arr := []any{}
		for dec.PeekKind() != ']' {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.ReadToken(); err != nil {
			return nil, fmt.Errorf("failed to read array end: %w", err)
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected JSON token kind: %v", tok.Kind())
}

// EncodeDocument writes v as JSON. Object keys are written in sorted order.
// A non-empty indent produces multi-line output.
func EncodeDocument(w io.Writer, v any, indent string) error {
	var opts []jsontext.Options
	if indent != "" {
		opts = append(opts, jsontext.Multiline(true), jsontext.WithIndent(indent))
	}
	enc := jsontext.NewEncoder(w, opts...)
	return encodeValue(enc, v)
}

// MarshalDocument encodes v compactly.
func MarshalDocument(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeDocument(&buf, v, ""); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func encodeValue(enc *jsontext.Encoder, v any) error {
	switch v := v.(type) {
	case nil:
		return enc.WriteToken(jsontext.Null)
	case bool:
		return enc.WriteToken(jsontext.Bool(v))
	case string:
		return enc.WriteToken(jsontext.String(v))
	case Number:
		return enc.WriteValue(jsontext.Value(v))
	case int:
		return enc.WriteToken(jsontext.Int(int64(v)))
	case int64:
		return enc.WriteToken(jsontext.Int(v))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("cannot encode %v as JSON", v)
		}
		return enc.WriteToken(jsontext.Float(v))

	case map[string]any:
		if err := enc.WriteToken(jsontext.BeginObject); err != nil {
			return err
		}
		for _, key := range slices.Sorted(maps.Keys(v)) {
			if err := enc.WriteToken(jsontext.String(key)); err != nil {
				return err
			}
			if err := encodeValue(enc, v[key]); err != nil {
				return err
			}
		}
		return enc.WriteToken(jsontext.EndObject)

	case []any:
		if err := enc.WriteToken(jsontext.BeginArray); err != nil {
			return err
		}
		for _, elem := range v {
			if err := encodeValue(enc, elem); err != nil {
				return err
			}
		}
		return enc.WriteToken(jsontext.EndArray)

	default:
		return json.MarshalEncode(enc, v, json.Deterministic(true))
	}
}
