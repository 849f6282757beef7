package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

// GetSession возвращает сессию по номеру телефона; found=false, если её нет.
// Состояние возвращается как есть, проверка корректности на стороне диалога.
func (s *Storage) GetSession(ctx context.Context, phone string) (*models.Session, bool, error) {
	const op = "storage.GetSession"
	if err := checkCtx(ctx, op); err != nil {
		return nil, false, err
	}

	query := `SELECT phone_number, state, bound_subject_ids, pending_kind, last_updated,
				query_count, query_date, reminder_count, last_reminder_at
			  FROM sessions WHERE phone_number = $1`

	var (
		sess           models.Session
		state, bound   string
		queryDate      sql.NullTime
		lastReminderAt sql.NullTime
	)
	err := s.DB.QueryRowContext(ctx, query, phone).Scan(
		&sess.PhoneNumber, &state, &bound, &sess.PendingKind, &sess.LastUpdated,
		&sess.QueryCount, &queryDate, &sess.ReminderCount, &lastReminderAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	sess.State = models.SessionState(state)
	sess.BoundSubjectIDs = splitIDs(bound)
	if queryDate.Valid {
		sess.QueryDate = queryDate.Time
	}
	if lastReminderAt.Valid {
		t := lastReminderAt.Time
		sess.LastReminderAt = &t
	}
	return &sess, true, nil
}

// SaveSession создаёт или полностью перезаписывает сессию.
func (s *Storage) SaveSession(ctx context.Context, sess models.Session) error {
	const op = "storage.SaveSession"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	var queryDate any
	if !sess.QueryDate.IsZero() {
		queryDate = sess.QueryDate
	}

	query := `INSERT INTO sessions (phone_number, state, bound_subject_ids, pending_kind, last_updated,
				query_count, query_date, reminder_count, last_reminder_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  ON CONFLICT (phone_number) DO UPDATE SET
				state = EXCLUDED.state,
				bound_subject_ids = EXCLUDED.bound_subject_ids,
				pending_kind = EXCLUDED.pending_kind,
				last_updated = EXCLUDED.last_updated,
				query_count = EXCLUDED.query_count,
				query_date = EXCLUDED.query_date,
				reminder_count = EXCLUDED.reminder_count,
				last_reminder_at = EXCLUDED.last_reminder_at`
	_, err := s.DB.ExecContext(ctx, query,
		sess.PhoneNumber, string(sess.State), strings.Join(sess.BoundSubjectIDs, ","), sess.PendingKind,
		sess.LastUpdated, sess.QueryCount, queryDate, sess.ReminderCount, sess.LastReminderAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
