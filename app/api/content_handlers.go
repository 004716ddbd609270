package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/social-comb/app/content"
	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/nlp"
)

const (
	defaultTrendPosts   = 5
	defaultHashtagCount = 5
	maxInstructions     = 500
)

func (h *Handler) GenerateContent(c *gin.Context) {
	ctx := c.Request.Context()

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		badRequest(c, "url is required")
		return
	}
	platforms, err := parsePlatforms(req.Platforms)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	opts := content.Options{
		Platforms:       platforms,
		Tone:            req.Tone,
		IncludeHashtags: req.IncludeHashtags == nil || *req.IncludeHashtags,
		MaxHashtags:     req.MaxHashtags,
	}
	generated, err := h.Content.GenerateFromURL(ctx, req.URL, opts)
	if err != nil {
		respondError(c, "generate_content", err)
		return
	}

	if !req.Save {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": generated})
		return
	}

	posts, err := h.Content.CreatePosts(ctx, generated, content.CreateOptions{SourceURL: req.URL})
	if err != nil {
		respondError(c, "create_posts", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": posts})
}

func (h *Handler) GenerateFromTrends(c *gin.Context) {
	ctx := c.Request.Context()

	var req trendsGenerateRequest
	if err := bindOptional(c, &req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	platforms, err := parsePlatforms(req.Platforms)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(platforms) == 0 {
		platforms = content.DefaultPlatforms
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultTrendPosts
	}

	generated, err := h.Content.GenerateFromTrends(ctx, platforms, limit)
	if err != nil {
		respondError(c, "generate_from_trends", err)
		return
	}

	if !req.Save {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": generated})
		return
	}

	posts, err := h.Content.CreatePosts(ctx, generated, content.CreateOptions{})
	if err != nil {
		respondError(c, "create_posts", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": posts})
}

func (h *Handler) ImproveContent(c *gin.Context) {
	var req improveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	instructions := strings.TrimSpace(req.Instructions)
	if instructions == "" || len(instructions) > maxInstructions {
		badRequest(c, "instructions must be between 1 and 500 characters")
		return
	}

	improved, err := h.Content.ImproveContent(c.Request.Context(), c.Param("id"), instructions)
	if err != nil {
		respondError(c, "improve_content", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": improved})
}

func (h *Handler) ContentSuggestions(c *gin.Context) {
	suggestions, err := h.Content.Suggestions(c.Request.Context())
	if err != nil {
		respondError(c, "content_suggestions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": suggestions})
}

// SuggestHashtags asks the LLM first and falls back to keyword hashtags when it
// has nothing to offer.
func (h *Handler) SuggestHashtags(c *gin.Context) {
	var req hashtagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		badRequest(c, "topic is required")
		return
	}
	count := req.Count
	if count <= 0 {
		count = defaultHashtagCount
	}

	var hashtags []string
	if h.Hashtags != nil {
		hashtags = h.Hashtags.SuggestHashtags(c.Request.Context(), req.Topic, count)
	}
	if len(hashtags) == 0 {
		hashtags = nlp.GenerateHashtags(req.Topic, count)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": hashtags})
}

func (h *Handler) AnalyzeContent(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(c, "text is required")
		return
	}

	terms, err := h.Analyzer.AnalyzeContent(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, "analyze_content", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"trending":  terms,
		"keywords":  nlp.ExtractKeywords(req.Text, 10),
		"sentiment": nlp.AnalyzeSentiment(req.Text),
		"hashtags":  nlp.GenerateHashtags(req.Text, defaultHashtagCount),
	}})
}

func parsePlatforms(raw []string) ([]database.Platform, error) {
	platforms := make([]database.Platform, 0, len(raw))
	for _, s := range raw {
		p, err := database.ParsePlatform(s)
		if err != nil {
			return nil, err
		}
		platforms = append(platforms, p)
	}
	return platforms, nil
}
