// Package expiry вычисляет дату окончания действия пропуска по проценту оплаты.
package expiry

import (
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/datetime"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

// ErrInvalidTerm для четверти не задана дата окончания.
var ErrInvalidTerm = errors.New("term end date is not configured")

// Rules пороги процента оплаты и смещения дат.
type Rules struct {
	FullThreshold    float64
	PartialThreshold float64
	MinimumThreshold float64
	// PartialOffset насколько раньше конца четверти истекает пропуск при частичной оплате.
	PartialOffset time.Duration
	// NextMonthOffset через сколько после now начинается месяц, до конца которого действует минимальный пропуск.
	NextMonthOffset time.Duration
	// Floor минимальный срок действия от текущего дня.
	Floor time.Duration
}

// DefaultRules 100/70/50 процентов, 30 дней, 32 дня, 1 день.
var DefaultRules = Rules{
	FullThreshold:    100,
	PartialThreshold: 70,
	MinimumThreshold: 50,
	PartialOffset:    30 * 24 * time.Hour,
	NextMonthOffset:  32 * 24 * time.Hour,
	Floor:            24 * time.Hour,
}

// TermLookup источник границ четвертей.
type TermLookup interface {
	Lookup(code string) (models.Term, error)
}

// Policy вычисляет срок действия пропусков.
type Policy struct {
	terms TermLookup
	rules Rules
}

// NewPolicy создает новый экземпляр Policy.
func NewPolicy(terms TermLookup, rules Rules) *Policy {
	return &Policy{terms: terms, rules: rules}
}

// Rules возвращает действующие правила.
func (p *Policy) Rules() Rules {
	return p.rules
}

// ComputeExpiry возвращает дату окончания действия; ok=false, если оплаты недостаточно.
func (p *Policy) ComputeExpiry(termCode string, percentage float64, now time.Time) (time.Time, bool, error) {
	const op = "expiry.ComputeExpiry"

	t, err := p.terms.Lookup(termCode)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: %w: %w", op, ErrInvalidTerm, err)
	}
	if t.End.IsZero() {
		return time.Time{}, false, fmt.Errorf("%s: %s: %w", op, termCode, ErrInvalidTerm)
	}

	termEnd := datetime.Day(t.End)
	floor := datetime.Day(now.Add(p.rules.Floor))
	partial := datetime.Later(termEnd.Add(-p.rules.PartialOffset), floor)

	switch {
	case percentage >= p.rules.FullThreshold:
		return termEnd, true, nil
	case percentage >= p.rules.PartialThreshold:
		return partial, true, nil
	case percentage >= p.rules.MinimumThreshold:
		// меньшая оплата не может дать срок позже, чем следующий порог
		minimum := datetime.EndOfMonth(now.Add(p.rules.NextMonthOffset))
		if minimum.After(partial) {
			minimum = partial
		}
		return datetime.Later(minimum, floor), true, nil
	default:
		return time.Time{}, false, nil
	}
}

// ComputeTransportExpiry транспортный пропуск выдаётся только при полной оплате до конца четверти.
func (p *Policy) ComputeTransportExpiry(termCode string, percentage float64, _ time.Time) (time.Time, bool, error) {
	const op = "expiry.ComputeTransportExpiry"

	t, err := p.terms.Lookup(termCode)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: %w: %w", op, ErrInvalidTerm, err)
	}
	if t.End.IsZero() {
		return time.Time{}, false, fmt.Errorf("%s: %s: %w", op, termCode, ErrInvalidTerm)
	}
	if percentage < p.rules.FullThreshold {
		return time.Time{}, false, nil
	}
	return datetime.Day(t.End), true, nil
}
