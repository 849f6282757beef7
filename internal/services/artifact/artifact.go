// Package artifact формирует документ пропуска, сохраняет его и выдаёт подписанные ссылки.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/jwt"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

// ContentType тип сохраняемого документа.
const ContentType = "text/plain; charset=utf-8"

// Store хранилище документов.
type Store interface {
	SaveArtifact(ctx context.Context, ref, contentType string, body []byte) error
	GetArtifact(ctx context.Context, ref string) (string, []byte, bool, error)
}

// Service рендерит и отдаёт документы пропусков.
type Service struct {
	store   Store
	tokens  jwt.Maker
	baseURL string
}

// NewService создаёт Service. baseURL публичный адрес HTTP-сервиса.
func NewService(store Store, tokens jwt.Maker, baseURL string) *Service {
	return &Service{
		store:   store,
		tokens:  tokens,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Ref возвращает ключ документа пропуска.
func Ref(e models.Entitlement) string {
	return fmt.Sprintf("%s/%s.txt", e.Kind, e.ID)
}

// Render формирует текст документа.
func Render(e models.Entitlement, holder models.Contact) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "SHINING SMILES COLLEGE\n%s\n\n", strings.ToUpper(e.Kind.Title()))
	fmt.Fprintf(&b, "Student:     %s\n", holder.FullName())
	fmt.Fprintf(&b, "Student ID:  %s\n", e.SubjectID)
	fmt.Fprintf(&b, "Term:        %s\n", e.Term)
	fmt.Fprintf(&b, "Paid:        %.0f%%\n", e.PaymentPercentage)
	fmt.Fprintf(&b, "Issued:      %s\n", e.IssuedAt.UTC().Format(time.DateOnly))
	fmt.Fprintf(&b, "Valid until: %s\n", e.ExpiryAt.UTC().Format(time.DateOnly))
	fmt.Fprintf(&b, "Pass ID:     %s\n", e.ID)
	fmt.Fprintf(&b, "\nPresent this pass at the gate. Verification code: %s\n", e.ID)
	return []byte(b.String())
}

// RenderAndStore сохраняет документ пропуска и возвращает его ключ.
func (s *Service) RenderAndStore(ctx context.Context, e models.Entitlement, holder models.Contact) (string, error) {
	const op = "artifact.RenderAndStore"
	ref := Ref(e)
	if err := s.store.SaveArtifact(ctx, ref, ContentType, Render(e, holder)); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return ref, nil
}

// RetrievableURL возвращает ссылку на документ, действующую ttl.
func (s *Service) RetrievableURL(ref string, ttl time.Duration) (string, error) {
	const op = "artifact.RetrievableURL"
	token, err := s.tokens.GenerateToken(ref, ttl)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return s.baseURL + "/artifacts/" + token, nil
}

// Open проверяет токен ссылки и возвращает документ.
func (s *Service) Open(ctx context.Context, token string) (string, []byte, error) {
	const op = "artifact.Open"
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	contentType, body, found, err := s.store.GetArtifact(ctx, claims.Ref)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return "", nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return contentType, body, nil
}

// IsInvalidLink сообщает, что ошибка Open вызвана плохой или просроченной ссылкой.
func IsInvalidLink(err error) bool {
	return errors.Is(err, jwt.ErrInvalidToken)
}
