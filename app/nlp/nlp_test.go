package nlp

import (
	"math"
	"strings"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculateSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "hello world", "hello world", 1},
		{"case and padding ignored", "  Hello World ", "hello world", 1},
		{"whitespace inside ignored", "helloworld", "hello world", 1},
		{"partial overlap", "night", "nacht", 0.25},
		{"empty side", "", "anything", 0},
		{"single characters", "a", "b", 0},
		{"nothing shared", "abcdef", "uvwxyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSimilarity(tt.a, tt.b)
			if !almostEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCalculateSimilaritySymmetric(t *testing.T) {
	a, b := "OpenAI ships a new model", "OpenAI releases new model"
	if !almostEqual(CalculateSimilarity(a, b), CalculateSimilarity(b, a)) {
		t.Error("Expected similarity to be symmetric")
	}
}

func TestFindBestMatch(t *testing.T) {
	if FindBestMatch("anything", nil) != nil {
		t.Error("Expected nil result for no candidates")
	}

	result := FindBestMatch("golang release", []string{"rust release", "golang released", "python"})
	if result == nil {
		t.Fatal("Expected a result")
	}
	if result.BestIndex != 1 {
		t.Errorf("Expected best index 1, got %d", result.BestIndex)
	}
	if result.BestMatch.Target != "golang released" {
		t.Errorf("Expected best target 'golang released', got '%s'", result.BestMatch.Target)
	}
	if len(result.Ratings) != 3 {
		t.Errorf("Expected 3 ratings, got %d", len(result.Ratings))
	}
}

func TestIsDuplicate(t *testing.T) {
	if !IsDuplicate("Go 1.24 is out", "go 1.24 is out!", 0) {
		t.Error("Expected near-identical titles to be duplicates")
	}
	if IsDuplicate("Go 1.24 is out", "Kubernetes adds sidecars", 0) {
		t.Error("Expected unrelated titles not to be duplicates")
	}
	if IsDuplicate("night", "nacht", 0.3) {
		t.Error("Expected 0.25 similarity to fall below 0.3 threshold")
	}
}

func TestExtractTrendingKeywords(t *testing.T) {
	docs := []string{
		"golang concurrency patterns",
		"golang generics in 2024",
		"rust ownership",
	}

	terms := ExtractTrendingKeywords(docs, 0)
	if len(terms) == 0 {
		t.Fatal("Expected trending terms")
	}
	if terms[0].Term != "golang" {
		t.Errorf("Expected 'golang' first, got '%s'", terms[0].Term)
	}
	if !almostEqual(terms[0].Score, 2) {
		t.Errorf("Expected golang score 2, got %v", terms[0].Score)
	}

	for _, term := range terms {
		if term.Term == "2024" {
			t.Error("Expected numeric terms to be excluded")
		}
		if len(term.Term) <= 3 {
			t.Errorf("Expected short term '%s' to be excluded", term.Term)
		}
	}

	if got := ExtractTrendingKeywords(docs, 2); len(got) != 2 {
		t.Errorf("Expected limit of 2, got %d", len(got))
	}
	if got := ExtractTrendingKeywords(nil, 5); len(got) != 0 {
		t.Errorf("Expected no terms for no documents, got %d", len(got))
	}
}

func TestAnalyzeSentiment(t *testing.T) {
	tests := []struct {
		text  string
		score float64
		label SentimentLabel
	}{
		{"A great success for the team", 0.2, SentimentPositive},
		{"Another crisis and a new problem", -0.2, SentimentNegative},
		{"The sky is blue", 0, SentimentNeutral},
		{"Good", 0.1, SentimentNeutral},
	}

	for _, tt := range tests {
		got := AnalyzeSentiment(tt.text)
		if !almostEqual(got.Score, tt.score) {
			t.Errorf("%q: expected score %v, got %v", tt.text, tt.score, got.Score)
		}
		if got.Label != tt.label {
			t.Errorf("%q: expected label %s, got %s", tt.text, tt.label, got.Label)
		}
	}
}

func TestToHashtag(t *testing.T) {
	tests := map[string]string{
		"machine learning": "#MachineLearning",
		"café crème":       "#CafeCreme",
		"open-source ai":   "#OpenSourceAi",
		"!!!":              "",
	}
	for in, want := range tests {
		if got := ToHashtag(in); got != want {
			t.Errorf("ToHashtag(%q): expected '%s', got '%s'", in, want, got)
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	if got := ExtractKeywords("   ", 5); len(got) != 0 {
		t.Errorf("Expected no keywords for blank text, got %d", len(got))
	}

	keywords := ExtractKeywords("The new compiler release improves build speed. #golang #performance", 10)
	if len(keywords) == 0 {
		t.Fatal("Expected keywords")
	}
	if len(keywords) > 10 {
		t.Errorf("Expected at most 10 keywords, got %d", len(keywords))
	}

	for i := 1; i < len(keywords); i++ {
		if keywords[i].Score > keywords[i-1].Score {
			t.Errorf("Expected descending scores, got %v after %v", keywords[i].Score, keywords[i-1].Score)
		}
	}

	found := false
	for _, k := range keywords {
		if k.Word == "#golang" && k.Type == KeywordHashtag {
			found = true
		}
	}
	if !found {
		t.Error("Expected #golang hashtag keyword")
	}

	if got := ExtractKeywords("The new compiler release improves build speed.", 1); len(got) != 1 {
		t.Errorf("Expected limit of 1, got %d", len(got))
	}
}

func hasKeyword(keywords []Keyword, word string, kind KeywordType) bool {
	for _, k := range keywords {
		if k.Word == word && k.Type == kind {
			return true
		}
	}
	return false
}

func TestExtractKeywordsGerundCompounds(t *testing.T) {
	texts := []string{
		"OpenAI is investing in machine learning.",
		"Researchers say machine learning keeps improving.",
		"OpenAI released a machine learning system today.",
	}
	for _, text := range texts {
		keywords := ExtractKeywords(text, DefaultKeywordLimit)
		if !hasKeyword(keywords, "machine learning", KeywordTopic) {
			t.Errorf("Expected topic 'machine learning' in %q, got %v", text, keywords)
		}
		for _, k := range keywords {
			if strings.Contains(k.Word, "today") {
				t.Errorf("Expected temporal word split off, got %q", k.Word)
			}
		}
	}
}

func TestExtractKeywordsArticle(t *testing.T) {
	text := "OpenAI released a new machine learning system today. " +
		"The company says machine learning keeps improving and developers can try the system now."

	keywords := ExtractKeywords(text, DefaultKeywordLimit)

	if !hasKeyword(keywords, "openai", KeywordEntity) {
		t.Errorf("Expected entity 'openai', got %v", keywords)
	}
	if !hasKeyword(keywords, "machine learning", KeywordTopic) {
		t.Errorf("Expected topic 'machine learning', got %v", keywords)
	}
}

func TestFrequencyKeywords(t *testing.T) {
	got := frequencyKeywords("the cat sat on the mat with a cat", 10)

	want := []string{"cat", "sat", "mat"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d keywords, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Word != w {
			t.Errorf("Expected keyword %d to be '%s', got '%s'", i, w, got[i].Word)
		}
		if !almostEqual(got[i].Score, 0.5-float64(i)*0.02) {
			t.Errorf("Expected score %v, got %v", 0.5-float64(i)*0.02, got[i].Score)
		}
		if got[i].Type != KeywordTopic {
			t.Errorf("Expected topic type, got %s", got[i].Type)
		}
	}
}

func TestGenerateHashtags(t *testing.T) {
	tags := GenerateHashtags("Kubernetes scheduler improvements land in the latest cluster release", 3)
	if len(tags) > 3 {
		t.Errorf("Expected at most 3 hashtags, got %d", len(tags))
	}
	for _, tag := range tags {
		if len(tag) < 2 || tag[0] != '#' {
			t.Errorf("Expected hashtag form, got '%s'", tag)
		}
	}
}
