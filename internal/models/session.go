package models

import "time"

// SessionState состояние диалога для одного номера телефона.
type SessionState string

const (
	StateUnregistered               SessionState = "unregistered"
	StateMainMenu                   SessionState = "main_menu"
	StateAwaitingTermForBalance     SessionState = "awaiting_term_balance"
	StateAwaitingTermForStatement   SessionState = "awaiting_term_statement"
	StateAwaitingTermForEntitlement SessionState = "awaiting_term_entitlement"
	StateReminderSent               SessionState = "reminder_sent"
)

// Valid проверяет, что состояние входит в известный набор.
func (s SessionState) Valid() bool {
	switch s {
	case StateUnregistered, StateMainMenu, StateAwaitingTermForBalance,
		StateAwaitingTermForStatement, StateAwaitingTermForEntitlement, StateReminderSent:
		return true
	}
	return false
}

// Session хранит состояние переписки с одним номером.
type Session struct {
	PhoneNumber     string       `json:"phone_number"`
	State           SessionState `json:"state"`
	BoundSubjectIDs []string     `json:"bound_subject_ids"`
	PendingKind     string       `json:"pending_kind"`
	LastUpdated     time.Time    `json:"last_updated"`
	QueryCount      int          `json:"query_count"`
	QueryDate       time.Time    `json:"query_date"`
	ReminderCount   int          `json:"reminder_count"`
	LastReminderAt  *time.Time   `json:"last_reminder_at,omitempty"`
}
