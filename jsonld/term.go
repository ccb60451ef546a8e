package jsonld

// QualifierKind says what a term's value constraint refers to.
type QualifierKind uint8

const (
	// QualifierNone is the zero qualifier: the term accepts any value.
	QualifierNone QualifierKind = iota
	// QualifierType constrains values to a datatype or to @id/@vocab.
	QualifierType
	// QualifierLanguage constrains values to a language; an empty Value is
	// the explicit null language.
	QualifierLanguage
)

// Qualifier is the coercion-or-language part of a term lookup key.
type Qualifier struct {
	Kind  QualifierKind
	Value string
}

// TypeQualifier returns a qualifier for a datatype IRI or @id/@vocab.
func TypeQualifier(t string) Qualifier {
	return Qualifier{Kind: QualifierType, Value: t}
}

// LanguageQualifier returns a qualifier for lang. An empty lang stands for
// a term declared with "@language": null.
func LanguageQualifier(lang string) Qualifier {
	return Qualifier{Kind: QualifierLanguage, Value: lang}
}

// Term is an immutable term definition.
type Term struct {
	Name string
	IRI  string
	// Coercion is "@id", "@vocab", a datatype IRI or empty.
	Coercion  string
	Container Container
	// Language is meaningful when HasLanguage is set; empty means null.
	Language    string
	HasLanguage bool
	Reverse     bool
}

// Qualifier returns the term's coercion, or its declared language.
func (t *Term) Qualifier() Qualifier {
	switch {
	case t.Coercion != "":
		return TypeQualifier(t.Coercion)
	case t.HasLanguage:
		return LanguageQualifier(t.Language)
	}
	return Qualifier{}
}

type termKey struct {
	iri       string
	qualifier Qualifier
	container Container
	reverse   bool
}

func (t *Term) key() termKey {
	return termKey{
		iri:       t.IRI,
		qualifier: t.Qualifier(),
		container: t.Container,
		reverse:   t.Reverse,
	}
}
