package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var _ PostRepository = (*PostRepositoryImpl)(nil)

// PostRepositoryImpl handles database operations for social posts
type PostRepositoryImpl struct {
	db *DB
}

func NewPostRepository(db *DB) *PostRepositoryImpl {
	return &PostRepositoryImpl{db: db}
}

var postColumns = []string{
	"id", "title", "content", "platform", "status", "hashtags", "media_url", "source_url",
	"scheduled_for", "published_at", "platform_post_id", "error", "attempts", "created_at", "updated_at",
}

func selectPosts() sq.SelectBuilder {
	return sq.Select(postColumns...).From("posts")
}

func (r *PostRepositoryImpl) ListPosts(ctx context.Context, filter PostFilter) ([]Post, error) {
	query := selectPosts().OrderBy("created_at DESC")

	if filter.Status != "" {
		query = query.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Platform != "" {
		query = query.Where(sq.Eq{"platform": string(filter.Platform)})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	return r.queryPosts(ctx, query)
}

func (r *PostRepositoryImpl) GetPost(ctx context.Context, id string) (*Post, error) {
	query, args, err := selectPosts().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build post query: %w", err)
	}

	post, err := scanPost(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

func (r *PostRepositoryImpl) ListCreatedSince(ctx context.Context, since time.Time) ([]Post, error) {
	return r.queryPosts(ctx, selectPosts().
		Where(sq.GtOrEq{"created_at": toDBTime(since)}).
		OrderBy("created_at DESC"))
}

func (r *PostRepositoryImpl) CountCreatedSince(ctx context.Context, since time.Time, statuses ...PostStatus) (int, error) {
	query := sq.Select("COUNT(*)").From("posts").Where(sq.GtOrEq{"created_at": toDBTime(since)})
	if len(statuses) > 0 {
		query = query.Where(sq.Eq{"status": statusStrings(statuses)})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

func (r *PostRepositoryImpl) ListDueScheduled(ctx context.Context, now time.Time) ([]Post, error) {
	return r.queryPosts(ctx, selectPosts().
		Where(sq.Eq{"status": string(StatusScheduled)}).
		Where(sq.LtOrEq{"scheduled_for": toDBTime(now)}).
		OrderBy("scheduled_for ASC"))
}

func (r *PostRepositoryImpl) ListByStatus(ctx context.Context, status PostStatus) ([]Post, error) {
	return r.queryPosts(ctx, selectPosts().
		Where(sq.Eq{"status": string(status)}).
		OrderBy("created_at ASC"))
}

func (r *PostRepositoryImpl) CreatePost(ctx context.Context, post Post) (*Post, error) {
	now := time.Now().UTC()
	post.ID = uuid.NewString()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Status == "" {
		post.Status = StatusDraft
	}
	if post.Hashtags == nil {
		post.Hashtags = []string{}
	}

	hashtags, err := encodeStrings(post.Hashtags)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO posts (id, title, content, platform, status, hashtags, media_url, source_url,
			scheduled_for, published_at, platform_post_id, error, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, post.ID, post.Title, post.Content, string(post.Platform), string(post.Status), hashtags,
		toNullString(post.MediaURL), toNullString(post.SourceURL), toNullDBTime(post.ScheduledFor),
		toNullDBTime(post.PublishedAt), toNullString(post.PlatformPostID), toNullString(post.Error),
		post.Attempts, toDBTime(now), toDBTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return &post, nil
}

// UpdatePost writes the editable fields of a post. Status transitions go through the
// dedicated methods below.
func (r *PostRepositoryImpl) UpdatePost(ctx context.Context, post Post) error {
	hashtags, err := encodeStrings(post.Hashtags)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE posts
		SET title = ?, content = ?, platform = ?, hashtags = ?, media_url = ?, source_url = ?, updated_at = ?
		WHERE id = ?
	`, post.Title, post.Content, string(post.Platform), hashtags, toNullString(post.MediaURL),
		toNullString(post.SourceURL), toDBTime(time.Now()), post.ID)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return requireAffected(res, ErrPostNotFound)
}

func (r *PostRepositoryImpl) DeletePost(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return requireAffected(res, ErrPostNotFound)
}

func (r *PostRepositoryImpl) ClaimPost(ctx context.Context, id string, to PostStatus, from ...PostStatus) (bool, error) {
	query, args, err := sq.Update("posts").
		Set("status", string(to)).
		Set("updated_at", toDBTime(time.Now())).
		Where(sq.Eq{"id": id, "status": statusStrings(from)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build claim query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to claim post: %w", err)
	}
	return affectedOne(res)
}

// SchedulePost moves any post that is not published or in flight to SCHEDULED.
func (r *PostRepositoryImpl) SchedulePost(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE posts
		SET status = ?, scheduled_for = ?, error = NULL, updated_at = ?
		WHERE id = ? AND status NOT IN (?, ?)
	`, string(StatusScheduled), toDBTime(at), toDBTime(time.Now()), id,
		string(StatusPublished), string(StatusPublishing))
	if err != nil {
		return false, fmt.Errorf("failed to schedule post: %w", err)
	}
	return affectedOne(res)
}

func (r *PostRepositoryImpl) MarkPublished(ctx context.Context, id string, platformPostID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE posts
		SET status = ?, published_at = ?, platform_post_id = ?, error = NULL, updated_at = ?
		WHERE id = ?
	`, string(StatusPublished), toDBTime(at), platformPostID, toDBTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to mark post published: %w", err)
	}
	return requireAffected(res, ErrPostNotFound)
}

func (r *PostRepositoryImpl) MarkFailed(ctx context.Context, id string, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE posts
		SET status = ?, error = ?, platform_post_id = NULL, attempts = attempts + 1, updated_at = ?
		WHERE id = ? AND status <> ?
	`, string(StatusFailed), reason, toDBTime(time.Now()), id, string(StatusPublished))
	if err != nil {
		return fmt.Errorf("failed to mark post failed: %w", err)
	}
	return requireAffected(res, ErrPostNotFound)
}

// FailStalePublishing moves posts left in PUBLISHING since before to FAILED.
func (r *PostRepositoryImpl) FailStalePublishing(ctx context.Context, before time.Time, reason string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE posts
		SET status = ?, error = ?, attempts = attempts + 1, updated_at = ?
		WHERE status = ? AND updated_at < ?
	`, string(StatusFailed), reason, toDBTime(time.Now()), string(StatusPublishing), toDBTime(before))
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale posts: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostRepositoryImpl) ResetToDraft(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE posts SET status = ?, error = NULL, updated_at = ? WHERE id = ? AND status = ?
	`, string(StatusDraft), toDBTime(time.Now()), id, string(StatusFailed))
	if err != nil {
		return false, fmt.Errorf("failed to reset post: %w", err)
	}
	return affectedOne(res)
}

func (r *PostRepositoryImpl) queryPosts(ctx context.Context, builder sq.SelectBuilder) ([]Post, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build post query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

func scanPost(row rowScanner) (*Post, error) {
	var (
		post                                     Post
		platform, status, hashtags               string
		mediaURL, sourceURL, platformID, errText sql.NullString
		scheduledFor, publishedAt                sql.NullString
		createdAt, updatedAt                     string
	)

	err := row.Scan(&post.ID, &post.Title, &post.Content, &platform, &status, &hashtags, &mediaURL, &sourceURL,
		&scheduledFor, &publishedAt, &platformID, &errText, &post.Attempts, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	post.Platform = Platform(platform)
	post.Status = PostStatus(status)
	post.MediaURL = mediaURL.String
	post.SourceURL = sourceURL.String
	post.PlatformPostID = platformID.String
	post.Error = errText.String

	if post.Hashtags, err = decodeStrings(hashtags); err != nil {
		return nil, err
	}
	if post.ScheduledFor, err = parseNullDBTime(scheduledFor); err != nil {
		return nil, err
	}
	if post.PublishedAt, err = parseNullDBTime(publishedAt); err != nil {
		return nil, err
	}
	if post.CreatedAt, err = parseDBTime(createdAt); err != nil {
		return nil, err
	}
	if post.UpdatedAt, err = parseDBTime(updatedAt); err != nil {
		return nil, err
	}

	return &post, nil
}

func statusStrings(statuses []PostStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}
