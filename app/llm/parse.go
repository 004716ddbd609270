package llm

import (
	"regexp"
	"strings"

	"github.com/lysyi3m/social-comb/app/database"
)

var (
	hashtagPattern = regexp.MustCompile(`#\w+`)
	nonAlnum       = regexp.MustCompile(`[^a-z0-9]`)
)

// JoinTopic builds a topic from its non-empty parts.
func JoinTopic(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

// parseResponse splits a model reply into its body and the unique hashtags it used.
func parseResponse(text string) (string, []string) {
	hashtags := unique(hashtagPattern.FindAllString(text, -1))
	body := hashtagPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(body), " "), hashtags
}

func fallbackContent(topic string, platform database.Platform) string {
	base := "A new update just dropped."
	if topic != "" {
		base = "Topic: " + topic
	}

	switch platform {
	case database.PlatformTwitter:
		return base + " #AI #Tech"
	case database.PlatformLinkedIn:
		return base + "\n\nKey takeaway: stay curious and keep iterating. What's your take?"
	default:
		return base + "\n\nWhat do you think? ✨"
	}
}

func fallbackHashtags(topic string, platform database.Platform) []string {
	wordLimit, tagLimit := 4, 5
	if platform == database.PlatformInstagram {
		wordLimit, tagLimit = 8, 10
	}

	var tags []string
	for _, w := range strings.Fields(strings.ToLower(topic)) {
		if len(w) <= 3 {
			continue
		}
		if len(tags) == wordLimit {
			break
		}
		tags = append(tags, "#"+nonAlnum.ReplaceAllString(w, ""))
	}

	words := tags[:0]
	for _, t := range tags {
		if len(t) > 1 {
			words = append(words, t)
		}
	}

	defaults := []string{"#ai", "#tech"}
	if platform == database.PlatformLinkedIn {
		defaults = []string{"#innovation", "#product"}
	}

	all := unique(append(words, defaults...))
	if len(all) > tagLimit {
		all = all[:tagLimit]
	}
	return all
}

func parseHashtagLines(text string, count int) []string {
	tags := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		tags = append(tags, line)
		if len(tags) == count {
			break
		}
	}
	return tags
}

func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
