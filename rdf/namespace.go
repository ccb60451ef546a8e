package rdf

// Namespaces used by the conversion algorithms.
const (
	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"
)

// RDF vocabulary terms.
const (
	RDFType       IRI = RDFNamespace + "type"
	RDFFirst      IRI = RDFNamespace + "first"
	RDFRest       IRI = RDFNamespace + "rest"
	RDFNil        IRI = RDFNamespace + "nil"
	RDFList       IRI = RDFNamespace + "List"
	RDFLangString IRI = RDFNamespace + "langString"
)

// XSD datatypes.
const (
	XSDString  IRI = XSDNamespace + "string"
	XSDInteger IRI = XSDNamespace + "integer"
	XSDDouble  IRI = XSDNamespace + "double"
	XSDDecimal IRI = XSDNamespace + "decimal"
	XSDBoolean IRI = XSDNamespace + "boolean"
	XSDDate    IRI = XSDNamespace + "date"
)
