package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

const entitlementColumns = `id, kind, subject_id, term, issued_at, expiry_at, payment_percentage,
	authorized_channel, status, artifact_ref`

func scanEntitlement(row scanner) (models.Entitlement, error) {
	var (
		e            models.Entitlement
		kind, status string
	)
	err := row.Scan(&e.ID, &kind, &e.SubjectID, &e.Term, &e.IssuedAt, &e.ExpiryAt,
		&e.PaymentPercentage, &e.AuthorizedChannel, &status, &e.ArtifactRef)
	e.Kind = models.EntitlementKind(kind)
	e.Status = models.EntitlementStatus(status)
	e.ExpiryAt = e.ExpiryAt.UTC()
	return e, err
}

// CreateEntitlement сохраняет новый пропуск.
func (s *Storage) CreateEntitlement(ctx context.Context, e models.Entitlement) error {
	const op = "storage.CreateEntitlement"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO entitlements (` + entitlementColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.DB.ExecContext(ctx, query, e.ID, string(e.Kind), e.SubjectID, e.Term, e.IssuedAt, e.ExpiryAt,
		e.PaymentPercentage, e.AuthorizedChannel, string(e.Status), e.ArtifactRef)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LatestValidEntitlement возвращает последний выданный активный пропуск, действующий на дату day.
func (s *Storage) LatestValidEntitlement(ctx context.Context, kind models.EntitlementKind, subjectID, term string, day time.Time) (*models.Entitlement, bool, error) {
	const op = "storage.LatestValidEntitlement"
	if err := checkCtx(ctx, op); err != nil {
		return nil, false, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+entitlementColumns+` FROM entitlements
		WHERE kind = $1 AND subject_id = $2 AND term = $3 AND status = 'active' AND expiry_at >= $4
		ORDER BY issued_at DESC
		LIMIT 1`, string(kind), subjectID, term, day)
	e, err := scanEntitlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &e, true, nil
}

// GetEntitlement возвращает пропуск по идентификатору.
func (s *Storage) GetEntitlement(ctx context.Context, id uuid.UUID) (*models.Entitlement, bool, error) {
	const op = "storage.GetEntitlement"
	if err := checkCtx(ctx, op); err != nil {
		return nil, false, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+entitlementColumns+` FROM entitlements WHERE id = $1`, id)
	e, err := scanEntitlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &e, true, nil
}

// SetArtifactRef сохраняет ссылку на документ пропуска.
func (s *Storage) SetArtifactRef(ctx context.Context, id uuid.UUID, ref string) error {
	const op = "storage.SetArtifactRef"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	if _, err := s.DB.ExecContext(ctx, `UPDATE entitlements SET artifact_ref = $1 WHERE id = $2`, ref, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ExpireEntitlements переводит в статус expired активные пропуска, истёкшие до даты day.
func (s *Storage) ExpireEntitlements(ctx context.Context, day time.Time) (int, error) {
	const op = "storage.ExpireEntitlements"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx,
		`UPDATE entitlements SET status = 'expired' WHERE status = 'active' AND expiry_at < $1`, day)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
