package nlp

import (
	"strings"
	"unicode"
)

const (
	DefaultDuplicateThreshold = 0.7
	similarityFloor           = 0.05
)

type Match struct {
	Target string  `json:"target"`
	Rating float64 `json:"rating"`
}

type BestMatch struct {
	Ratings   []Match `json:"ratings"`
	BestMatch Match   `json:"bestMatch"`
	BestIndex int     `json:"bestMatchIndex"`
}

// CalculateSimilarity scores two texts in [0,1] using the Dice coefficient over
// character bigrams. Case and surrounding whitespace are ignored; scores under
// 0.05 are reported as 0.
func CalculateSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}

	score := diceCoefficient(a, b)
	if score < similarityFloor {
		return 0
	}
	return score
}

// FindBestMatch rates every candidate against target. It returns nil when there
// are no candidates.
func FindBestMatch(target string, candidates []string) *BestMatch {
	if len(candidates) == 0 {
		return nil
	}

	result := &BestMatch{Ratings: make([]Match, 0, len(candidates))}
	for i, c := range candidates {
		rating := CalculateSimilarity(target, c)
		result.Ratings = append(result.Ratings, Match{Target: c, Rating: rating})
		if i == 0 || rating > result.BestMatch.Rating {
			result.BestMatch = result.Ratings[i]
			result.BestIndex = i
		}
	}
	return result
}

// IsDuplicate reports whether a and b are at least threshold similar.
// A non-positive threshold uses DefaultDuplicateThreshold.
func IsDuplicate(a, b string, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultDuplicateThreshold
	}
	return CalculateSimilarity(a, b) >= threshold
}

func diceCoefficient(a, b string) float64 {
	a = stripSpace(a)
	b = stripSpace(b)

	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	bigrams := make(map[string]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		bigrams[string(ra[i:i+2])]++
	}

	intersection := 0
	for i := 0; i < len(rb)-1; i++ {
		bg := string(rb[i : i+2])
		if n := bigrams[bg]; n > 0 {
			bigrams[bg] = n - 1
			intersection++
		}
	}

	return 2 * float64(intersection) / float64(len(ra)+len(rb)-2)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
