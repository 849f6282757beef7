package artifact

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/jwt"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

type memoryStore struct {
	items   map[string][]byte
	saveErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: map[string][]byte{}}
}

func (m *memoryStore) SaveArtifact(_ context.Context, ref, _ string, body []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[ref] = body
	return nil
}

func (m *memoryStore) GetArtifact(_ context.Context, ref string) (string, []byte, bool, error) {
	body, ok := m.items[ref]
	if !ok {
		return "", nil, false, nil
	}
	return ContentType, body, true, nil
}

func testEntitlement() models.Entitlement {
	return models.Entitlement{
		ID:                uuid.MustParse("2f6e3b56-8a47-4b7e-9a55-7b7a9c1d0e11"),
		Kind:              models.KindGatePass,
		SubjectID:         "SSC101",
		Term:              "2026-1",
		IssuedAt:          time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		ExpiryAt:          time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		PaymentPercentage: 70,
		Status:            models.EntitlementActive,
	}
}

func TestRender(t *testing.T) {
	doc := string(Render(testEntitlement(), models.Contact{FirstName: "Tariro", LastName: "Moyo"}))

	assert.Contains(t, doc, "GATE PASS")
	assert.Contains(t, doc, "Tariro Moyo")
	assert.Contains(t, doc, "SSC101")
	assert.Contains(t, doc, "Valid until: 2026-03-03")
	assert.Contains(t, doc, "Paid:        70%")
}

func TestRenderAndStore_RoundTrip(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, jwt.NewJWTMaker("secret"), "https://pass.example.org/")
	ctx := context.Background()

	e := testEntitlement()
	ref, err := svc.RenderAndStore(ctx, e, models.Contact{FirstName: "Tariro"})
	require.NoError(t, err)
	assert.Equal(t, "gate_pass/2f6e3b56-8a47-4b7e-9a55-7b7a9c1d0e11.txt", ref)

	url, err := svc.RetrievableURL(ref, time.Hour)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "https://pass.example.org/artifacts/"))

	token := strings.TrimPrefix(url, "https://pass.example.org/artifacts/")
	contentType, body, err := svc.Open(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, ContentType, contentType)
	assert.Contains(t, string(body), "Tariro")
}

func TestRenderAndStore_StoreError(t *testing.T) {
	store := newMemoryStore()
	store.saveErr = errors.New("db down")
	svc := NewService(store, jwt.NewJWTMaker("secret"), "http://localhost")

	_, err := svc.RenderAndStore(context.Background(), testEntitlement(), models.Contact{})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	store := newMemoryStore()
	maker := jwt.NewJWTMaker("secret")
	svc := NewService(store, maker, "http://localhost")

	missing, err := maker.GenerateToken("gate_pass/missing.txt", time.Hour)
	require.NoError(t, err)
	expired, err := maker.GenerateToken("gate_pass/missing.txt", -time.Hour)
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		_, _, err := svc.Open(context.Background(), missing)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.False(t, IsInvalidLink(err))
	})

	t.Run("expired link", func(t *testing.T) {
		_, _, err := svc.Open(context.Background(), expired)
		assert.True(t, IsInvalidLink(err))
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := svc.Open(context.Background(), "garbage")
		assert.True(t, IsInvalidLink(err))
	})
}
