package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/social-comb/app/content"
	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/dedup"
	"github.com/lysyi3m/social-comb/app/publisher"
	"github.com/lysyi3m/social-comb/app/tasks"
)

var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrPostNotFound),
		errors.Is(err, database.ErrFeedNotFound),
		errors.Is(err, database.ErrTrendNotFound),
		errors.Is(err, database.ErrSettingNotFound),
		errors.Is(err, publisher.ErrNotPublished),
		errors.Is(err, tasks.ErrUnknownJob):
		return http.StatusNotFound
	case errors.Is(err, dedup.ErrDuplicate),
		errors.Is(err, publisher.ErrAlreadyPublished),
		errors.Is(err, publisher.ErrPublishing),
		errors.Is(err, database.ErrFeedExists):
		return http.StatusConflict
	case errors.Is(err, content.ErrExtractionFailed),
		errors.Is(err, content.ErrNoTrends):
		return http.StatusUnprocessableEntity
	case errors.Is(err, publisher.ErrMediaRequired):
		return http.StatusBadRequest
	case errors.Is(err, tasks.ErrLaneFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, operation string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "operation", operation, "path", c.Request.URL.Path, "error", err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// bindOptional decodes a JSON body that callers may leave out entirely.
func bindOptional(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
