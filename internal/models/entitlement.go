package models

import (
	"time"

	"github.com/google/uuid"
)

// EntitlementKind вид пропуска.
type EntitlementKind string

const (
	KindGatePass      EntitlementKind = "gate_pass"
	KindTransportPass EntitlementKind = "transport_pass"
)

// Valid проверяет вид пропуска.
func (k EntitlementKind) Valid() bool {
	return k == KindGatePass || k == KindTransportPass
}

// Title возвращает человекочитаемое название.
func (k EntitlementKind) Title() string {
	if k == KindTransportPass {
		return "Transport Pass"
	}
	return "Gate Pass"
}

// EntitlementStatus статус выданного пропуска.
type EntitlementStatus string

const (
	EntitlementActive  EntitlementStatus = "active"
	EntitlementExpired EntitlementStatus = "expired"
	EntitlementRevoked EntitlementStatus = "revoked"
)

// Entitlement выданный пропуск. После создания меняется только Status и ArtifactRef.
type Entitlement struct {
	ID                uuid.UUID         `json:"id"`
	Kind              EntitlementKind   `json:"kind"`
	SubjectID         string            `json:"subject_id"`
	Term              string            `json:"term"`
	IssuedAt          time.Time         `json:"issued_at"`
	ExpiryAt          time.Time         `json:"expiry_at"`
	PaymentPercentage float64           `json:"payment_percentage"`
	AuthorizedChannel string            `json:"authorized_channel"`
	Status            EntitlementStatus `json:"status"`
	ArtifactRef       string            `json:"artifact_ref,omitempty"`
}

// IsValidOn сообщает, действует ли пропуск на дату day (день истечения включается).
func (e Entitlement) IsValidOn(day time.Time) bool {
	return e.Status == EntitlementActive && !e.ExpiryAt.Before(day)
}
