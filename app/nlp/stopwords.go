package nlp

import (
	"regexp"
	"strings"
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		the a an and or but in on at to for of with by from is are was were be been
		being have has had do does did will would could should may might must shall can this
		that these those i you he she it we they what which who when where why how all each
		every both few more most other some such no nor not only own same so than too very just`) {
		stopWords[w] = struct{}{}
	}
}

func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// tokenize lowercases text and splits it on anything that is not a letter, digit or underscore.
func tokenize(text string) []string {
	parts := nonWord.Split(strings.ToLower(text), -1)
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
