package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

// CreatePassScan сохраняет запись о проверке пропуска.
func (s *Storage) CreatePassScan(ctx context.Context, scan models.PassScan) error {
	const op = "storage.CreatePassScan"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	_, err := s.DB.ExecContext(ctx, `INSERT INTO pass_scans (id, entitlement_id, scanned_at, scanned_by, matched_registered)
		VALUES ($1, $2, $3, $4, $5)`, scan.ID, scan.EntitlementID, scan.ScannedAt, scan.ScannedBy, scan.MatchedRegistered)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
