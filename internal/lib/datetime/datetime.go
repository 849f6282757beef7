// Package datetime содержит вспомогательные функции для работы с датами в UTC.
package datetime

import "time"

const day = 24 * time.Hour

// Day усекает момент времени до полуночи UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart возвращает понедельник 00:00 UTC недели, в которую попадает t.
func WeekStart(t time.Time) time.Time {
	d := Day(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// EndOfMonth возвращает последний календарный день месяца, в который попадает t.
func EndOfMonth(t time.Time) time.Time {
	d := Day(t)
	return time.Date(d.Year(), d.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// DaysBetween возвращает количество целых дней от from до to по датам.
// Результат отрицателен, если to раньше from.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)) / day)
}

// Later возвращает более позднюю из двух дат.
func Later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// ParseDate разбирает дату в формате 2006-01-02 как UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}
