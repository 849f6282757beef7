package models

import (
	"time"

	"github.com/google/uuid"
)

// PassScan запись о проверке пропуска на входе.
type PassScan struct {
	ID                uuid.UUID `json:"id"`
	EntitlementID     uuid.UUID `json:"entitlement_id"`
	ScannedAt         time.Time `json:"scanned_at"`
	ScannedBy         string    `json:"scanned_by"`
	MatchedRegistered bool      `json:"matched_registered"`
}
