package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sashabaranov/go-openai"

	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/metrics"
)

const (
	temperature    = 0.7
	maxTokens      = 1024
	requestTimeout = 30 * time.Second
	summaryLimit   = 2000
)

var (
	ErrNotConfigured = errors.New("LLM API key is not configured")
	ErrEmptyResponse = errors.New("no response from LLM")
)

type Generated struct {
	Title    string            `json:"title,omitempty"`
	Content  string            `json:"content"`
	Hashtags []string          `json:"hashtags"`
	Platform database.Platform `json:"platform"`
	MediaURL string            `json:"mediaUrl,omitempty"`
	Fallback bool              `json:"fallback"`
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client talks to an OpenAI-compatible chat completion endpoint. Calls go
// through a retry policy and a circuit breaker; while the breaker is open,
// Generate answers from the deterministic fallback without a request.
type Client struct {
	api     *openai.Client
	model   string
	breaker circuitbreaker.CircuitBreaker[string]
	retry   retrypolicy.RetryPolicy[string]
	metrics *metrics.Metrics
}

func NewClient(cfg Config, m *metrics.Metrics) *Client {
	c := &Client{
		model:   cfg.Model,
		metrics: m,
	}
	c.setPolicies(time.Second, time.Minute)

	if cfg.APIKey == "" {
		slog.Warn("LLM API key not configured, generation will use fallback content")
		return c
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	apiCfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	c.api = openai.NewClientWithConfig(apiCfg)

	return c
}

func (c *Client) setPolicies(retryDelay, breakerDelay time.Duration) {
	c.retry = retrypolicy.NewBuilder[string]().
		HandleIf(func(_ string, err error) bool {
			return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}).
		WithMaxRetries(1).
		WithDelay(retryDelay).
		Build()

	c.breaker = circuitbreaker.NewBuilder[string]().
		WithFailureThresholdRatio(5, 10).
		WithDelay(breakerDelay).
		WithSuccessThreshold(1).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			slog.Warn("LLM circuit breaker state change", "from", event.OldState, "to", event.NewState)
		}).
		Build()
}

func (c *Client) Configured() bool {
	return c.api != nil
}

// Generate writes a post about topic for platform. It never fails: any error
// yields fallback content built from the topic.
func (c *Client) Generate(ctx context.Context, topic string, platform database.Platform, contextText string) Generated {
	reply, err := c.chat(ctx, systemPrompts[platform], userPrompt(platform, topic, contextText))
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			slog.Debug("LLM not configured, using fallback", "platform", platform)
		} else {
			slog.Error("Content generation failed, using fallback", "platform", platform, "error", err)
		}
		c.metrics.LLMFallback(string(platform))
		return Generated{
			Content:  fallbackContent(topic, platform),
			Hashtags: fallbackHashtags(topic, platform),
			Platform: platform,
			Fallback: true,
		}
	}

	body, hashtags := parseResponse(reply)
	return Generated{Content: body, Hashtags: hashtags, Platform: platform}
}

// Improve rewrites content for platform, optionally following instructions.
func (c *Client) Improve(ctx context.Context, content string, platform database.Platform, instructions string) (string, error) {
	reply, err := c.chat(ctx, improveSystemPrompt(platform), improveUserPrompt(platform, content, instructions))
	if err != nil {
		return "", fmt.Errorf("failed to improve content: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// Summarize turns article text into a post for platform.
func (c *Client) Summarize(ctx context.Context, article string, platform database.Platform) (Generated, error) {
	if len(article) > summaryLimit {
		article = article[:summaryLimit]
	}

	reply, err := c.chat(ctx, summarizeSystemPrompt(platform),
		fmt.Sprintf("Create a %s post summarizing this article:\n\n%s", platform.Lower(), article))
	if err != nil {
		return Generated{}, fmt.Errorf("failed to summarize article: %w", err)
	}

	body, hashtags := parseResponse(reply)
	return Generated{Content: body, Hashtags: hashtags, Platform: platform}, nil
}

// SuggestHashtags asks the model for up to count hashtags. Failures yield an empty list.
func (c *Client) SuggestHashtags(ctx context.Context, topic string, count int) []string {
	if count <= 0 {
		count = 10
	}

	reply, err := c.chat(ctx, "", hashtagPrompt(topic, count))
	if err != nil {
		slog.Error("Hashtag suggestion failed", "error", err)
		return []string{}
	}
	return parseHashtagLines(reply, count)
}

func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	if c.api == nil {
		return "", ErrNotConfigured
	}
	if c.breaker.IsOpen() {
		return "", circuitbreaker.ErrOpen
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	start := time.Now()
	reply, err := failsafe.With[string](c.retry, c.breaker).WithContext(ctx).Get(func() (string, error) {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return "", ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", err
	}

	slog.Debug("LLM response", "model", c.model, "duration", time.Since(start), "length", len(reply))
	return reply, nil
}
