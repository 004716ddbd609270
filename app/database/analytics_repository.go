package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ AnalyticsRepository = (*AnalyticsRepositoryImpl)(nil)

type AnalyticsRepositoryImpl struct {
	db *DB
}

func NewAnalyticsRepository(db *DB) *AnalyticsRepositoryImpl {
	return &AnalyticsRepositoryImpl{db: db}
}

const analyticsColumns = `a.id, a.post_id, a.platform, a.likes, a.shares, a.comments, a.views, a.clicks, a.engagement, a.fetched_at`

// UpsertAnalytics stores the latest metrics for a post, one row per post.
func (r *AnalyticsRepositoryImpl) UpsertAnalytics(ctx context.Context, a Analytics) error {
	if a.FetchedAt.IsZero() {
		a.FetchedAt = time.Now()
	}
	a.Engagement = a.Likes + a.Shares + a.Comments

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analytics (id, post_id, platform, likes, shares, comments, views, clicks, engagement, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (post_id) DO UPDATE SET
			likes = excluded.likes,
			shares = excluded.shares,
			comments = excluded.comments,
			views = excluded.views,
			clicks = excluded.clicks,
			engagement = excluded.engagement,
			fetched_at = excluded.fetched_at
	`, uuid.NewString(), a.PostID, string(a.Platform), a.Likes, a.Shares, a.Comments, a.Views, a.Clicks,
		a.Engagement, toDBTime(a.FetchedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert analytics: %w", err)
	}
	return nil
}

func (r *AnalyticsRepositoryImpl) GetAnalyticsByPost(ctx context.Context, postID string) (*Analytics, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+analyticsColumns+` FROM analytics a WHERE a.post_id = ?`, postID)

	a, err := scanAnalytics(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analytics: %w", err)
	}
	return a, nil
}

func (r *AnalyticsRepositoryImpl) ListAnalytics(ctx context.Context, limit int) ([]Analytics, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+analyticsColumns+` FROM analytics a ORDER BY a.fetched_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analytics: %w", err)
	}
	defer rows.Close()

	list := []Analytics{}
	for rows.Next() {
		a, err := scanAnalytics(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analytics row: %w", err)
		}
		list = append(list, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analytics rows: %w", err)
	}
	return list, nil
}

func (r *AnalyticsRepositoryImpl) TopAnalyticsWithPosts(ctx context.Context, limit int) ([]AnalyticsWithPost, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+analyticsColumns+`, p.published_at, p.hashtags
		FROM analytics a
		JOIN posts p ON p.id = a.post_id
		ORDER BY a.engagement DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top analytics: %w", err)
	}
	defer rows.Close()

	list := []AnalyticsWithPost{}
	for rows.Next() {
		var (
			item        AnalyticsWithPost
			platform    string
			fetchedAt   string
			publishedAt sql.NullString
			hashtags    string
		)
		err := rows.Scan(&item.ID, &item.PostID, &platform, &item.Likes, &item.Shares, &item.Comments,
			&item.Views, &item.Clicks, &item.Engagement, &fetchedAt, &publishedAt, &hashtags)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analytics row: %w", err)
		}

		item.Platform = Platform(platform)
		if item.FetchedAt, err = parseDBTime(fetchedAt); err != nil {
			return nil, err
		}
		if item.PublishedAt, err = parseNullDBTime(publishedAt); err != nil {
			return nil, err
		}
		if item.Hashtags, err = decodeStrings(hashtags); err != nil {
			return nil, err
		}

		list = append(list, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analytics rows: %w", err)
	}
	return list, nil
}

func (r *AnalyticsRepositoryImpl) SummaryByPlatform(ctx context.Context) ([]PlatformSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT platform, COUNT(*), SUM(likes), SUM(shares), SUM(comments), SUM(views), SUM(engagement)
		FROM analytics
		GROUP BY platform
		ORDER BY platform
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize analytics: %w", err)
	}
	defer rows.Close()

	summary := []PlatformSummary{}
	for rows.Next() {
		var (
			s        PlatformSummary
			platform string
		)
		if err := rows.Scan(&platform, &s.Posts, &s.Likes, &s.Shares, &s.Comments, &s.Views, &s.Engagement); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		s.Platform = Platform(platform)
		summary = append(summary, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summary rows: %w", err)
	}
	return summary, nil
}

func scanAnalytics(row rowScanner) (*Analytics, error) {
	var (
		a         Analytics
		platform  string
		fetchedAt string
	)

	err := row.Scan(&a.ID, &a.PostID, &platform, &a.Likes, &a.Shares, &a.Comments, &a.Views, &a.Clicks,
		&a.Engagement, &fetchedAt)
	if err != nil {
		return nil, err
	}

	a.Platform = Platform(platform)
	if a.FetchedAt, err = parseDBTime(fetchedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
