package models

import "time"

// RateLimitRecord счётчик запросов пропуска за неделю, начинающуюся в понедельник 00:00 UTC.
type RateLimitRecord struct {
	SubjectID     string    `json:"subject_id"`
	WeekStart     time.Time `json:"week_start"`
	RequestCount  int       `json:"request_count"`
	LastRequestAt time.Time `json:"last_request_at"`
}
