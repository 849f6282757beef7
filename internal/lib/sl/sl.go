// Package sl вспомогательные атрибуты для slog.
package sl

import "log/slog"

// Err атрибут "error" с текстом ошибки.
//
//	log.Error("failed to issue pass", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
