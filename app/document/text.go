package document

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var titleCaser = cases.Title(language.English)

// Normalize applies NFKC and collapses whitespace runs into single spaces.
func Normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Words returns the lower-cased alphanumeric tokens of s.
func Words(s string) []string {
	lowered := cases.Lower(language.Und).String(norm.NFKC.String(s))
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// WordSet returns the distinct words of s.
func WordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range Words(s) {
		set[w] = struct{}{}
	}
	return set
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}

func TitleCase(s string) string {
	return titleCaser.String(strings.ToLower(strings.TrimSpace(s)))
}

// ParseCategory maps a label to a known category, case-insensitively.
func ParseCategory(label string) (Category, bool) {
	candidate := Category(TitleCase(label))
	if candidate.Valid() {
		return candidate, true
	}
	return "", false
}

// Sentences splits text on sentence terminators, keeping the terminator.
func Sentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(Normalize(text))
	for i, r := range runes {
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
