package cache

import (
	"strings"
	"unicode"

	"survey-assistant-be/internal/entity"
)

// domainVocabulary maps word stems found in a query to a domain tag.
var domainVocabulary = []struct {
	stem string
	tag  string
}{
	{"survey", "survey"},
	{"questionnaire", "survey"},
	{"question", "questions"},
	{"respon", "responses"},
	{"analy", "analysis"},
	{"trend", "trends"},
	{"sale", "sales"},
	{"revenue", "sales"},
	{"customer", "customer"},
	{"feedback", "feedback"},
	{"report", "reporting"},
	{"summar", "summary"},
	{"nps", "nps"},
	{"satisf", "satisfaction"},
	{"demograph", "demographics"},
}

// DeriveTags builds the similarity tags of a cache entry.
func DeriveTags(query string, result *entity.ReasoningResult) []string {
	var tags []string
	seen := make(map[string]struct{})
	add := func(tag string) {
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	if result != nil {
		if result.Complexity.Level != "" {
			add("complexity:" + strings.ToLower(string(result.Complexity.Level)))
		}
		if result.ModelId != "" {
			add("model:" + result.ModelId)
		}
		if result.TemplateId != "" {
			add("template:" + result.TemplateId)
		}
	}

	words := strings.FieldsFunc(Normalize(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, v := range domainVocabulary {
		for _, w := range words {
			if strings.HasPrefix(w, v.stem) {
				add("domain:" + v.tag)
				break
			}
		}
	}

	return tags
}
