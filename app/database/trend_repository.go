package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ TrendRepository = (*TrendRepositoryImpl)(nil)

type TrendRepositoryImpl struct {
	db *DB
}

func NewTrendRepository(db *DB) *TrendRepositoryImpl {
	return &TrendRepositoryImpl{db: db}
}

func (r *TrendRepositoryImpl) ListTopTrends(ctx context.Context, limit int) ([]Trend, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, keyword, score, source, created_at, updated_at
		FROM trends
		ORDER BY score DESC, keyword ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trends: %w", err)
	}
	defer rows.Close()

	trends := []Trend{}
	for rows.Next() {
		trend, err := scanTrend(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trend row: %w", err)
		}
		trends = append(trends, *trend)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trend rows: %w", err)
	}

	return trends, nil
}

func (r *TrendRepositoryImpl) GetTrend(ctx context.Context, keyword string) (*Trend, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, keyword, score, source, created_at, updated_at FROM trends WHERE keyword = ?
	`, keyword)

	trend, err := scanTrend(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trend: %w", err)
	}
	return trend, nil
}

func (r *TrendRepositoryImpl) UpsertTrend(ctx context.Context, keyword string, source TrendSource, score float64, keep float64) error {
	now := toDBTime(time.Now())

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trends (id, keyword, score, source, created_at, updated_at)
		VALUES (?, ?, MAX(?, 0), ?, ?, ?)
		ON CONFLICT (keyword) DO UPDATE SET
			score = MAX(trends.score * ? + ?, 0),
			updated_at = excluded.updated_at
	`, uuid.NewString(), keyword, score, string(source), now, now, keep, score)
	if err != nil {
		return fmt.Errorf("failed to upsert trend: %w", err)
	}
	return nil
}

func (r *TrendRepositoryImpl) DeleteTrend(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trends WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trend: %w", err)
	}
	return requireAffected(res, ErrTrendNotFound)
}

func (r *TrendRepositoryImpl) DeleteStaleTrends(ctx context.Context, before time.Time, floor float64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM trends WHERE updated_at < ? AND score < ?
	`, toDBTime(before), floor)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale trends: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func scanTrend(row rowScanner) (*Trend, error) {
	var (
		trend                Trend
		source               string
		createdAt, updatedAt string
	)

	if err := row.Scan(&trend.ID, &trend.Keyword, &trend.Score, &source, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	trend.Source = TrendSource(source)

	var err error
	if trend.CreatedAt, err = parseDBTime(createdAt); err != nil {
		return nil, err
	}
	if trend.UpdatedAt, err = parseDBTime(updatedAt); err != nil {
		return nil, err
	}

	return &trend, nil
}
