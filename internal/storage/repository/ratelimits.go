package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

// IncrementRequestCount создаёт запись недели со счётчиком 1 или увеличивает существующую.
// Возвращает значение счётчика после увеличения.
func (s *Storage) IncrementRequestCount(ctx context.Context, subjectID string, weekStart, now time.Time) (int, error) {
	const op = "storage.IncrementRequestCount"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `INSERT INTO rate_limit_records (subject_id, week_start, request_count, last_request_at)
			  VALUES ($1, $2, 1, $3)
			  ON CONFLICT (subject_id, week_start) DO UPDATE SET
				request_count = rate_limit_records.request_count + 1,
				last_request_at = EXCLUDED.last_request_at
			  RETURNING request_count`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, subjectID, weekStart, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// GetRateLimitRecord возвращает запись счётчика за неделю.
func (s *Storage) GetRateLimitRecord(ctx context.Context, subjectID string, weekStart time.Time) (*models.RateLimitRecord, bool, error) {
	const op = "storage.GetRateLimitRecord"
	if err := checkCtx(ctx, op); err != nil {
		return nil, false, err
	}

	var rec models.RateLimitRecord
	err := s.DB.QueryRowContext(ctx, `SELECT subject_id, week_start, request_count, last_request_at
		FROM rate_limit_records WHERE subject_id = $1 AND week_start = $2`, subjectID, weekStart).
		Scan(&rec.SubjectID, &rec.WeekStart, &rec.RequestCount, &rec.LastRequestAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &rec, true, nil
}
