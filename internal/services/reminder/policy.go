package reminder

import (
	"time"

	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/datetime"
)

// Tone тон напоминания, усиливается к концу четверти.
type Tone string

const (
	ToneGentle Tone = "gentle"
	ToneFirm   Tone = "firm"
	ToneFinal  Tone = "final"
)

// ToneFor выбирает тон по числу оставшихся недель.
func ToneFor(weeksRemaining int) Tone {
	switch {
	case weeksRemaining > 4:
		return ToneGentle
	case weeksRemaining > 2:
		return ToneFirm
	default:
		return ToneFinal
	}
}

// IntervalDays минимальный интервал между напоминаниями в днях.
// ok=false, если напоминать ещё рано.
func IntervalDays(weeksElapsed, weeksRemaining int) (int, bool) {
	switch {
	case weeksRemaining <= 2:
		return 2, true
	case weeksRemaining <= 4:
		return 4, true
	case weeksElapsed >= 2:
		return 7, true
	default:
		return 0, false
	}
}

// ShouldSend решает, пора ли отправить напоминание. Без предыдущего напоминания
// отправляется сразу, если период напоминаний уже начался.
func ShouldSend(lastSent *time.Time, weeksElapsed, weeksRemaining int, now time.Time) bool {
	days, ok := IntervalDays(weeksElapsed, weeksRemaining)
	if !ok {
		return false
	}
	if lastSent == nil {
		return true
	}
	return datetime.DaysBetween(*lastSent, now) >= days
}
