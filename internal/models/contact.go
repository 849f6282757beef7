package models

import (
	"strings"
	"time"
)

// Contact контактная запись ученика, полученная из школьной системы.
type Contact struct {
	SubjectID          string    `json:"subject_id"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	Email              string    `json:"email"`
	StudentMobile      string    `json:"student_mobile"`
	GuardianMobile     string    `json:"guardian_mobile"`
	PreferredChannel   string    `json:"preferred_channel"`
	OutstandingBalance float64   `json:"outstanding_balance"`
	LastSyncedAt       time.Time `json:"last_synced_at"`
}

// FullName возвращает имя и фамилию через пробел.
func (c Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Profile данные профиля во внешнем источнике.
type Profile struct {
	SubjectID      string  `json:"student_id"`
	FirstName      string  `json:"firstname"`
	LastName       string  `json:"lastname"`
	Email          string  `json:"email"`
	StudentMobile  string  `json:"student_mobile"`
	GuardianMobile string  `json:"guardian_mobile_number"`
	Balance        float64 `json:"balance"`
}
