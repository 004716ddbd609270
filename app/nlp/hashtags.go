package nlp

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const DefaultHashtagCount = 5

// GenerateHashtags builds up to count CamelCase hashtags from the topic and
// entity keywords of text.
func GenerateHashtags(text string, count int) []string {
	if count <= 0 {
		count = DefaultHashtagCount
	}

	tags := []string{}
	seen := make(map[string]struct{})
	for _, k := range ExtractKeywords(text, count*2) {
		if k.Type == KeywordHashtag {
			continue
		}

		tag := ToHashtag(k.Word)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}

		tags = append(tags, tag)
		if len(tags) == count {
			break
		}
	}
	return tags
}

// ToHashtag turns a phrase into "#CamelCase" form, folding diacritics and
// dropping anything that is not a letter or digit. Empty results yield "".
func ToHashtag(phrase string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), phrase)
	if err != nil {
		folded = phrase
	}

	caser := cases.Title(language.Und)
	var sb strings.Builder
	for _, word := range strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		sb.WriteString(caser.String(word))
	}

	if sb.Len() == 0 {
		return ""
	}
	return "#" + sb.String()
}
