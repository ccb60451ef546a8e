package jsonld

import "fmt"

// Keyword is one of the JSON-LD keywords this package understands.
type Keyword uint8

// Recognised keywords. KeywordNone is returned for ordinary keys.
const (
	KeywordNone Keyword = iota
	KeywordContext
	KeywordID
	KeywordType
	KeywordGraph
	KeywordReverse
	KeywordList
	KeywordSet
	KeywordIndex
	KeywordLanguage
	KeywordValue
	KeywordVocab
	KeywordBase
	KeywordVersion
	KeywordContainer
)

var keywordNames = [...]string{
	KeywordNone:      "",
	KeywordContext:   "@context",
	KeywordID:        "@id",
	KeywordType:      "@type",
	KeywordGraph:     "@graph",
	KeywordReverse:   "@reverse",
	KeywordList:      "@list",
	KeywordSet:       "@set",
	KeywordIndex:     "@index",
	KeywordLanguage:  "@language",
	KeywordValue:     "@value",
	KeywordVocab:     "@vocab",
	KeywordBase:      "@base",
	KeywordVersion:   "@version",
	KeywordContainer: "@container",
}

var keywordsByName = func() map[string]Keyword {
	m := make(map[string]Keyword, len(keywordNames))
	for kw, name := range keywordNames {
		if name != "" {
			m[name] = Keyword(kw)
		}
	}
	return m
}()

func (k Keyword) String() string {
	if int(k) < len(keywordNames) {
		return keywordNames[k]
	}
	return fmt.Sprintf("Keyword(%d)", k)
}

// ParseKeyword looks up a literal keyword such as "@id".
func ParseKeyword(s string) (Keyword, bool) {
	kw, ok := keywordsByName[s]
	return kw, ok
}

// Container is the declared value shape of a term.
type Container uint8

// Term containers.
const (
	ContainerNone Container = iota
	ContainerList
	ContainerSet
	ContainerIndex
	ContainerLanguage
)

func (c Container) String() string {
	switch c {
	case ContainerList:
		return "@list"
	case ContainerSet:
		return "@set"
	case ContainerIndex:
		return "@index"
	case ContainerLanguage:
		return "@language"
	}
	return ""
}

func parseContainer(s string) (Container, bool) {
	switch s {
	case "@list":
		return ContainerList, true
	case "@set":
		return ContainerSet, true
	case "@index":
		return ContainerIndex, true
	case "@language":
		return ContainerLanguage, true
	}
	return ContainerNone, false
}
