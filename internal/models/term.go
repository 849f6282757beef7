package models

import "time"

// Term описывает учебную четверть с границами в датах (UTC, включительно).
type Term struct {
	Code  string    `json:"code"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains сообщает, попадает ли дата d в окно [Start, End].
func (t Term) Contains(d time.Time) bool {
	return !d.Before(t.Start) && !d.After(t.End)
}
