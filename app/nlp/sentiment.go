package nlp

import "strings"

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

type Sentiment struct {
	Score float64        `json:"score"`
	Label SentimentLabel `json:"label"`
}

var (
	positiveWords = []string{"good", "great", "excellent", "amazing", "wonderful", "fantastic", "love",
		"best", "happy", "success", "win", "innovative", "breakthrough"}
	negativeWords = []string{"bad", "terrible", "awful", "horrible", "hate", "worst", "fail",
		"crisis", "problem", "issue", "concern", "risk", "danger"}
)

// AnalyzeSentiment is a lexicon count: each listed word present anywhere in the
// text moves the score by 0.1.
func AnalyzeSentiment(text string) Sentiment {
	lower := strings.ToLower(text)

	score := 0.0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			score += 0.1
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			score -= 0.1
		}
	}
	score = max(-1, min(1, score))

	label := SentimentNeutral
	switch {
	case score > 0.1:
		label = SentimentPositive
	case score < -0.1:
		label = SentimentNegative
	}
	return Sentiment{Score: score, Label: label}
}
