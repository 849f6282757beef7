package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound запись не найдена ни в хранилище, ни во внешнем источнике.
	ErrNotFound = errors.New("not found")
	// ErrChannelUnverified номер не зарегистрирован в мессенджере.
	ErrChannelUnverified = errors.New("channel is not reachable")
)

// ValidationError ошибка формата входных данных с указанием поля.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError создаёт ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
