package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ FeedRepository = (*FeedRepositoryImpl)(nil)

// FeedRepositoryImpl handles database operations for feed sources
type FeedRepositoryImpl struct {
	db *DB
}

func NewFeedRepository(db *DB) *FeedRepositoryImpl {
	return &FeedRepositoryImpl{db: db}
}

const feedColumns = `id, url, title, description, category, is_active, last_fetched_at, created_at, updated_at`

func (r *FeedRepositoryImpl) ListFeeds(ctx context.Context) ([]Feed, error) {
	return r.queryFeeds(ctx, `SELECT `+feedColumns+` FROM feeds ORDER BY created_at DESC`)
}

func (r *FeedRepositoryImpl) ListActiveFeeds(ctx context.Context) ([]Feed, error) {
	return r.queryFeeds(ctx, `SELECT `+feedColumns+` FROM feeds WHERE is_active = 1 ORDER BY created_at`)
}

func (r *FeedRepositoryImpl) GetFeed(ctx context.Context, id string) (*Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE id = ?`, id)
	feed, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return feed, nil
}

func (r *FeedRepositoryImpl) GetFeedByURL(ctx context.Context, url string) (*Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE url = ?`, url)
	feed, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed by URL: %w", err)
	}
	return feed, nil
}

func (r *FeedRepositoryImpl) GetFeedCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feeds`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

func (r *FeedRepositoryImpl) CreateFeed(ctx context.Context, feed Feed) (*Feed, error) {
	existing, err := r.GetFeedByURL(ctx, feed.URL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrFeedExists
	}

	now := time.Now().UTC()
	feed.ID = uuid.NewString()
	feed.CreatedAt = now
	feed.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO feeds (id, url, title, description, category, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, feed.ID, feed.URL, feed.Title, feed.Description, feed.Category, feed.IsActive, toDBTime(now), toDBTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create feed: %w", err)
	}

	return &feed, nil
}

// UpsertFeed registers a feed keyed by URL, keeping its id and fetch history when it exists.
func (r *FeedRepositoryImpl) UpsertFeed(ctx context.Context, feed Feed) (*Feed, error) {
	now := toDBTime(time.Now())

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feeds (id, url, title, description, category, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`, uuid.NewString(), feed.URL, feed.Title, feed.Description, feed.Category, feed.IsActive, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert feed: %w", err)
	}

	return r.GetFeedByURL(ctx, feed.URL)
}

func (r *FeedRepositoryImpl) UpdateFeed(ctx context.Context, feed Feed) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE feeds
		SET title = ?, description = ?, category = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`, feed.Title, feed.Description, feed.Category, feed.IsActive, toDBTime(time.Now()), feed.ID)
	if err != nil {
		return fmt.Errorf("failed to update feed: %w", err)
	}
	return requireAffected(res, ErrFeedNotFound)
}

func (r *FeedRepositoryImpl) DeleteFeed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}
	return requireAffected(res, ErrFeedNotFound)
}

func (r *FeedRepositoryImpl) MarkFetched(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE feeds SET last_fetched_at = ?, updated_at = ? WHERE id = ?
	`, toDBTime(at), toDBTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to mark feed fetched: %w", err)
	}
	return nil
}

func (r *FeedRepositoryImpl) queryFeeds(ctx context.Context, query string, args ...any) ([]Feed, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var (
		feed                 Feed
		lastFetched          sql.NullString
		createdAt, updatedAt string
	)

	err := row.Scan(&feed.ID, &feed.URL, &feed.Title, &feed.Description, &feed.Category, &feed.IsActive,
		&lastFetched, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if feed.LastFetchedAt, err = parseNullDBTime(lastFetched); err != nil {
		return nil, err
	}
	if feed.CreatedAt, err = parseDBTime(createdAt); err != nil {
		return nil, err
	}
	if feed.UpdatedAt, err = parseDBTime(updatedAt); err != nil {
		return nil, err
	}

	return &feed, nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
