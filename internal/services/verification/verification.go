// Package verification проверяет пропуска на входе и ведёт журнал сканирований.
package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/datetime"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/metrics"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

// Status результат проверки.
type Status string

const (
	StatusValid    Status = "valid"
	StatusExpired  Status = "expired"
	StatusRevoked  Status = "revoked"
	StatusNotFound Status = "not_found"
)

// Repository хранилище пропусков и сканирований.
type Repository interface {
	GetEntitlement(ctx context.Context, id uuid.UUID) (*models.Entitlement, bool, error)
	CreatePassScan(ctx context.Context, scan models.PassScan) error
	GetContact(ctx context.Context, subjectID string) (*models.Contact, bool, error)
}

// Result итог проверки пропуска.
type Result struct {
	Status      Status              `json:"status"`
	Entitlement *models.Entitlement `json:"entitlement,omitempty"`
	HolderName  string              `json:"holder_name,omitempty"`
	// MatchedRegistered сканирующий номер совпадает с номером, на который выдан пропуск.
	MatchedRegistered bool `json:"matched_registered"`
}

// Service проверяет пропуска.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService создаёт Service.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Verify проверяет пропуск id на дату now и записывает сканирование.
// Для неизвестного пропуска сканирование не записывается.
func (s *Service) Verify(ctx context.Context, id uuid.UUID, scannedBy string, now time.Time) (Result, error) {
	const op = "verification.Verify"
	log := s.log.With(slog.String("op", op), slog.String("entitlement_id", id.String()))

	e, found, err := s.repo.GetEntitlement(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		metrics.VerificationResults.WithLabelValues(string(StatusNotFound)).Inc()
		log.Info("unknown entitlement scanned", slog.String("scanned_by", scannedBy))
		return Result{Status: StatusNotFound}, nil
	}

	res := Result{
		Status:            statusOf(*e, datetime.Day(now)),
		Entitlement:       e,
		MatchedRegistered: scannedBy != "" && scannedBy == e.AuthorizedChannel,
	}

	c, ok, err := s.repo.GetContact(ctx, e.SubjectID)
	switch {
	case err != nil:
		log.Warn("failed to load holder", sl.Err(err))
	case ok:
		res.HolderName = c.FullName()
	}

	scan := models.PassScan{
		ID:                uuid.New(),
		EntitlementID:     e.ID,
		ScannedAt:         now,
		ScannedBy:         scannedBy,
		MatchedRegistered: res.MatchedRegistered,
	}
	if err := s.repo.CreatePassScan(ctx, scan); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.VerificationResults.WithLabelValues(string(res.Status)).Inc()
	if !res.MatchedRegistered {
		log.Warn("scanned from unregistered channel", slog.String("scanned_by", scannedBy))
	}
	return res, nil
}

func statusOf(e models.Entitlement, day time.Time) Status {
	switch {
	case e.Status == models.EntitlementRevoked:
		return StatusRevoked
	case e.IsValidOn(day):
		return StatusValid
	default:
		return StatusExpired
	}
}
