// Package phone нормализует номера телефонов к виду E.164.
package phone

import (
	"regexp"
	"strings"
)

var e164 = regexp.MustCompile(`^\+\d{10,15}$`)

// Valid сообщает, что номер имеет вид "+" и 10-15 цифр.
func Valid(channel string) bool {
	return e164.MatchString(channel)
}

// Normalize приводит номер к E.164, подставляя код страны для местных номеров.
// Возвращает false, если результат не проходит Valid.
func Normalize(raw, countryCode string) (string, bool) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}

	switch {
	case strings.HasPrefix(s, "+"):
	case strings.HasPrefix(s, "00"):
		s = "+" + s[2:]
	case strings.HasPrefix(s, "0"):
		s = "+" + countryCode + s[1:]
	case countryCode != "" && strings.HasPrefix(s, countryCode) && len(s) > len(countryCode)+8:
		s = "+" + s
	default:
		s = "+" + countryCode + s
	}

	if !Valid(s) {
		return "", false
	}
	return s, true
}
