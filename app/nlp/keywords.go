package nlp

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/jdkato/prose/v2"
)

type KeywordType string

const (
	KeywordTopic   KeywordType = "topic"
	KeywordEntity  KeywordType = "entity"
	KeywordHashtag KeywordType = "hashtag"
)

const DefaultKeywordLimit = 10

type Keyword struct {
	Word  string      `json:"word"`
	Score float64     `json:"score"`
	Type  KeywordType `json:"type"`
}

var hashtagPattern = regexp.MustCompile(`#\w+`)

var temporalWords = map[string]struct{}{
	"today": {}, "yesterday": {}, "tomorrow": {}, "tonight": {}, "now": {},
}

// ExtractKeywords ranks topics, then named entities, then literal hashtags found in text.
// When none are recognized it falls back to plain token frequency order.
func ExtractKeywords(text string, limit int) []Keyword {
	if limit <= 0 {
		limit = DefaultKeywordLimit
	}
	if strings.TrimSpace(text) == "" {
		return []Keyword{}
	}

	topics, entities := analyze(text)

	results := make([]Keyword, 0, len(topics)+len(entities))
	seen := make(map[string]struct{})

	for i, topic := range topics {
		results = append(results, Keyword{Word: topic, Score: 1 - float64(i)*0.1, Type: KeywordTopic})
		seen[topic] = struct{}{}
	}

	for i, entity := range entities {
		if _, ok := seen[entity]; ok {
			continue
		}
		results = append(results, Keyword{Word: entity, Score: 0.9 - float64(i)*0.05, Type: KeywordEntity})
		seen[entity] = struct{}{}
	}

	for i, tag := range hashtagPattern.FindAllString(text, -1) {
		results = append(results, Keyword{Word: strings.ToLower(tag), Score: 0.8 - float64(i)*0.1, Type: KeywordHashtag})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	if len(results) == 0 {
		return frequencyKeywords(text, limit)
	}
	return results
}

// ExtractTopics returns the distinct topic keywords of text.
func ExtractTopics(text string) []string {
	topics := []string{}
	seen := make(map[string]struct{})
	for _, k := range ExtractKeywords(text, DefaultKeywordLimit) {
		if k.Type != KeywordTopic {
			continue
		}
		if _, ok := seen[k.Word]; ok {
			continue
		}
		seen[k.Word] = struct{}{}
		topics = append(topics, k.Word)
	}
	return topics
}

func frequencyKeywords(text string, limit int) []Keyword {
	keywords := []Keyword{}
	seen := make(map[string]struct{})

	for _, token := range tokenize(text) {
		if len(token) <= 2 || IsStopWord(token) {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}

		keywords = append(keywords, Keyword{
			Word:  token,
			Score: 0.5 - float64(len(keywords))*0.02,
			Type:  KeywordTopic,
		})
		if len(keywords) == limit {
			break
		}
	}

	return keywords
}

// analyze returns common-noun phrases as topics and named entities (including
// proper-noun runs the tagger did not label) in order of first appearance.
func analyze(text string) (topics []string, entities []string) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		slog.Debug("Keyword analysis failed", "error", err)
		return nil, nil
	}

	topicSeen := make(map[string]struct{})
	entitySeen := make(map[string]struct{})

	addEntity := func(e string) {
		e = normalizePhrase(e)
		if e == "" {
			return
		}
		if _, ok := entitySeen[e]; ok {
			return
		}
		entitySeen[e] = struct{}{}
		entities = append(entities, e)
	}

	for _, ent := range doc.Entities() {
		addEntity(ent.Text)
	}

	var (
		phrase   []string
		hasNoun  bool
		proper   []string
		flushAll = func() {
			if hasNoun && len(phrase) > 0 {
				p := normalizePhrase(strings.Join(phrase, " "))
				if _, ok := topicSeen[p]; !ok && p != "" {
					topicSeen[p] = struct{}{}
					topics = append(topics, p)
				}
			}
			phrase, hasNoun = phrase[:0], false

			if len(proper) > 0 {
				addEntity(strings.Join(proper, " "))
				proper = proper[:0]
			}
		}
	)

	prev := ""
	for _, tok := range doc.Tokens() {
		if _, ok := temporalWords[strings.ToLower(tok.Text)]; ok {
			flushAll()
			prev = ""
			continue
		}

		switch tok.Tag {
		case "NN", "NNS":
			if len(proper) > 0 {
				flushAll()
			}
			phrase = append(phrase, tok.Text)
			hasNoun = true
		case "JJ":
			if hasNoun || len(proper) > 0 {
				flushAll()
			}
			phrase = append(phrase, tok.Text)
		case "VBG":
			// "machine learning", "deep learning": a gerund closes the compound
			if len(phrase) > 0 && (prev == "NN" || prev == "JJ") {
				phrase = append(phrase, tok.Text)
				hasNoun = true
			}
			flushAll()
		case "NNP", "NNPS":
			if len(phrase) > 0 {
				flushAll()
			}
			proper = append(proper, tok.Text)
		default:
			flushAll()
		}
		prev = tok.Tag
	}
	flushAll()

	return topics, entities
}

// normalizePhrase lowercases a phrase and drops it when it carries no content words.
func normalizePhrase(p string) string {
	p = strings.ToLower(strings.Join(strings.Fields(p), " "))
	for _, token := range tokenize(p) {
		if len(token) > 1 && !IsStopWord(token) {
			return p
		}
	}
	return ""
}
