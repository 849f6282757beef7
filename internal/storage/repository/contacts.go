package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

const contactColumns = `subject_id, first_name, last_name, email, student_mobile, guardian_mobile,
	preferred_channel, outstanding_balance, last_synced_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(row scanner) (models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.SubjectID, &c.FirstName, &c.LastName, &c.Email, &c.StudentMobile,
		&c.GuardianMobile, &c.PreferredChannel, &c.OutstandingBalance, &c.LastSyncedAt)
	return c, err
}

// GetContact возвращает контакт ученика; found=false, если записи нет.
func (s *Storage) GetContact(ctx context.Context, subjectID string) (*models.Contact, bool, error) {
	const op = "storage.GetContact"
	if err := checkCtx(ctx, op); err != nil {
		return nil, false, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE subject_id = $1`, subjectID)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &c, true, nil
}

// UpsertContact создаёт или обновляет контакт.
func (s *Storage) UpsertContact(ctx context.Context, c models.Contact) error {
	const op = "storage.UpsertContact"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO contacts (` + contactColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  ON CONFLICT (subject_id) DO UPDATE SET
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				email = EXCLUDED.email,
				student_mobile = EXCLUDED.student_mobile,
				guardian_mobile = EXCLUDED.guardian_mobile,
				preferred_channel = EXCLUDED.preferred_channel,
				outstanding_balance = EXCLUDED.outstanding_balance,
				last_synced_at = EXCLUDED.last_synced_at`
	_, err := s.DB.ExecContext(ctx, query, c.SubjectID, c.FirstName, c.LastName, c.Email, c.StudentMobile,
		c.GuardianMobile, c.PreferredChannel, c.OutstandingBalance, c.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListContactsByChannel возвращает учеников, привязанных к номеру.
func (s *Storage) ListContactsByChannel(ctx context.Context, channel string) ([]models.Contact, error) {
	const op = "storage.ListContactsByChannel"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+contactColumns+` FROM contacts
		WHERE preferred_channel = $1 OR student_mobile = $1 OR guardian_mobile = $1
		ORDER BY subject_id`, channel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return collectContacts(rows, op)
}

// ListContactsWithBalance возвращает страницу контактов с задолженностью и заданным каналом.
func (s *Storage) ListContactsWithBalance(ctx context.Context, limit, offset int) ([]models.Contact, error) {
	const op = "storage.ListContactsWithBalance"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+contactColumns+` FROM contacts
		WHERE outstanding_balance > 0 AND preferred_channel <> ''
		ORDER BY subject_id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return collectContacts(rows, op)
}

// RecordFailedSync сохраняет причину неудачной синхронизации профиля.
func (s *Storage) RecordFailedSync(ctx context.Context, subjectID, reason string, at time.Time) error {
	const op = "storage.RecordFailedSync"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO failed_syncs (subject_id, reason, failed_at) VALUES ($1, $2, $3)`, subjectID, reason, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func collectContacts(rows *sql.Rows, op string) ([]models.Contact, error) {
	defer rows.Close()

	var result []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
