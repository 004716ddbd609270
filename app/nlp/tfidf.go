package nlp

import (
	"math"
	"sort"
	"strings"
)

const DefaultTrendingLimit = 20

type TermScore struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// ExtractTrendingKeywords scores terms across documents by TF-IDF and returns the
// highest scoring terms. Short terms (three characters or fewer) and bare numbers
// are never reported.
func ExtractTrendingKeywords(docs []string, limit int) []TermScore {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	if len(docs) == 0 {
		return []TermScore{}
	}

	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)

	for i, doc := range docs {
		counts[i] = make(map[string]int)
		for _, token := range tokenize(doc) {
			if IsStopWord(token) {
				continue
			}
			counts[i][token]++
		}
		for term := range counts[i] {
			df[term]++
		}
	}

	n := float64(len(docs))
	totals := make(map[string]float64)
	for _, c := range counts {
		for term, tf := range c {
			idf := 1 + math.Log(n/float64(1+df[term]))
			totals[term] += float64(tf) * idf
		}
	}

	scores := make([]TermScore, 0, len(totals))
	for term, score := range totals {
		if len(term) <= 3 || isDigits(term) {
			continue
		}
		scores = append(scores, TermScore{Term: term, Score: score})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Term < scores[j].Term
	})

	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores
}

func isDigits(s string) bool {
	return strings.TrimFunc(s, func(r rune) bool { return r >= '0' && r <= '9' }) == ""
}
