// Package term реализует календарь учебных четвертей.
//
// Все сравнения выполняются по датам UTC, границы четверти включаются.
package term

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/datetime"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

// ErrUnknownTerm код четверти отсутствует в конфигурации.
var ErrUnknownTerm = errors.New("unknown term")

var codePattern = regexp.MustCompile(`^\d{4}-\d$`)

// ValidCode проверяет формат кода четверти (например 2026-1).
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Calendar неизменяемая таблица четвертей, отсортированная по дате начала.
type Calendar struct {
	terms  []models.Term
	byCode map[string]models.Term
}

// NewCalendar проверяет таблицу четвертей и строит календарь.
func NewCalendar(terms []models.Term) (*Calendar, error) {
	const op = "term.NewCalendar"

	sorted := make([]models.Term, 0, len(terms))
	byCode := make(map[string]models.Term, len(terms))
	for _, t := range terms {
		if !ValidCode(t.Code) {
			return nil, fmt.Errorf("%s: invalid term code %q", op, t.Code)
		}
		if _, dup := byCode[t.Code]; dup {
			return nil, fmt.Errorf("%s: duplicate term code %q", op, t.Code)
		}
		t.Start = datetime.Day(t.Start)
		t.End = datetime.Day(t.End)
		if t.End.Before(t.Start) {
			return nil, fmt.Errorf("%s: term %s ends before it starts", op, t.Code)
		}
		byCode[t.Code] = t
		sorted = append(sorted, t)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	return &Calendar{terms: sorted, byCode: byCode}, nil
}

// Lookup возвращает четверть по коду.
func (c *Calendar) Lookup(code string) (models.Term, error) {
	t, ok := c.byCode[code]
	if !ok {
		return models.Term{}, fmt.Errorf("%s: %w", code, ErrUnknownTerm)
	}
	return t, nil
}

// Terms возвращает копию таблицы четвертей.
func (c *Calendar) Terms() []models.Term {
	out := make([]models.Term, len(c.terms))
	copy(out, c.terms)
	return out
}

// TermForDate возвращает код четверти, содержащей дату d.
func (c *Calendar) TermForDate(d time.Time) (string, bool) {
	d = datetime.Day(d)
	for _, t := range c.terms {
		if t.Contains(d) {
			return t.Code, true
		}
	}
	return "", false
}

// MostRecentlyCompleted возвращает четверть с самым поздним окончанием среди закончившихся до d.
func (c *Calendar) MostRecentlyCompleted(d time.Time) (string, bool) {
	d = datetime.Day(d)
	var (
		best  models.Term
		found bool
	)
	for _, t := range c.terms {
		if t.End.Before(d) && (!found || t.End.After(best.End)) {
			best, found = t, true
		}
	}
	return best.Code, found
}

// NextUpcoming возвращает ближайшую четверть, начинающуюся после d.
func (c *Calendar) NextUpcoming(d time.Time) (string, bool) {
	d = datetime.Day(d)
	for _, t := range c.terms {
		if t.Start.After(d) {
			return t.Code, true
		}
	}
	return "", false
}

// WeeksRemaining количество полных недель до конца четверти, не меньше нуля.
func (c *Calendar) WeeksRemaining(code string, d time.Time) (int, error) {
	t, err := c.Lookup(code)
	if err != nil {
		return 0, err
	}
	return max(0, datetime.DaysBetween(d, t.End)/7), nil
}

// WeeksElapsed количество полных недель с начала четверти, не меньше нуля.
func (c *Calendar) WeeksElapsed(code string, d time.Time) (int, error) {
	t, err := c.Lookup(code)
	if err != nil {
		return 0, err
	}
	return max(0, datetime.DaysBetween(t.Start, d)/7), nil
}

// HasEnded сообщает, закончилась ли четверть к моменту now.
func (c *Calendar) HasEnded(code string, now time.Time) (bool, error) {
	t, err := c.Lookup(code)
	if err != nil {
		return false, err
	}
	return datetime.Day(now).After(t.End), nil
}

// HasStarted сообщает, началась ли четверть к моменту now.
func (c *Calendar) HasStarted(code string, now time.Time) (bool, error) {
	t, err := c.Lookup(code)
	if err != nil {
		return false, err
	}
	return !datetime.Day(now).Before(t.Start), nil
}
