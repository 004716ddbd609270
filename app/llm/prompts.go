package llm

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/social-comb/app/database"
)

var systemPrompts = map[database.Platform]string{
	database.PlatformTwitter: `You are a social media expert creating engaging Twitter posts.
Keep posts under 280 characters. Be concise, engaging, and include relevant hashtags.
Use emojis sparingly but effectively. Make the content shareable and conversational.`,

	database.PlatformLinkedIn: `You are a professional content creator for LinkedIn.
Write professional, insightful posts that provide value to business professionals.
Use a professional yet approachable tone. Posts should be 100-200 words.
Include a call-to-action and relevant hashtags.`,

	database.PlatformInstagram: `You are an Instagram content creator.
Write engaging captions that work well with visual content.
Use a friendly, authentic tone. Include emojis naturally.
Posts should be 100-150 words with a hook in the first line.`,
}

var hashtagHints = map[database.Platform]string{
	database.PlatformTwitter:   "2-3",
	database.PlatformLinkedIn:  "3-5",
	database.PlatformInstagram: "5-10",
}

func userPrompt(platform database.Platform, topic, contextText string) string {
	var sb strings.Builder

	switch platform {
	case database.PlatformInstagram:
		sb.WriteString("Create an Instagram caption about: ")
	case database.PlatformLinkedIn:
		sb.WriteString("Create a LinkedIn post about: ")
	default:
		sb.WriteString("Create a Twitter post about: ")
	}
	sb.WriteString(topic)
	sb.WriteString("\n")

	if contextText != "" {
		sb.WriteString("Context: ")
		sb.WriteString(contextText)
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Include %s relevant hashtags at the end.", hashtagHints[platform])
	return sb.String()
}

func improveSystemPrompt(platform database.Platform) string {
	return fmt.Sprintf(`You are an expert at improving social media content for %s.
Enhance the content to be more engaging while maintaining the original message.
Keep platform-specific best practices in mind.`, platform.Lower())
}

func improveUserPrompt(platform database.Platform, content, instructions string) string {
	prompt := fmt.Sprintf("Improve this %s post:\n\n%s", platform.Lower(), content)
	if instructions = strings.TrimSpace(instructions); instructions != "" {
		prompt += "\n\nAdditional instructions: " + instructions
	}
	return prompt
}

func summarizeSystemPrompt(platform database.Platform) string {
	return fmt.Sprintf(`You are a content curator who creates engaging social media posts from articles.
Summarize the key points in a way that's perfect for %s.
Make it shareable and include a hook to encourage clicks.`, platform.Lower())
}

func hashtagPrompt(topic string, count int) string {
	return fmt.Sprintf("Generate %d relevant and trending hashtags for the topic: %s\nReturn only the hashtags, one per line, starting with #.", count, topic)
}
