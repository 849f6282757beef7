package verification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetEntitlement(ctx context.Context, id uuid.UUID) (*models.Entitlement, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Entitlement), args.Bool(1), args.Error(2)
}

func (m *RepoMock) CreatePassScan(ctx context.Context, scan models.PassScan) error {
	args := m.Called(ctx, scan)
	return args.Error(0)
}

func (m *RepoMock) GetContact(ctx context.Context, subjectID string) (*models.Contact, bool, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Contact), args.Bool(1), args.Error(2)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const registered = "+263771234567"

func entitlement(status models.EntitlementStatus) *models.Entitlement {
	return &models.Entitlement{
		ID:                uuid.New(),
		Kind:              models.KindGatePass,
		SubjectID:         "SSC101",
		Term:              "2026-1",
		ExpiryAt:          time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		AuthorizedChannel: registered,
		Status:            status,
	}
}

func TestVerify_Statuses(t *testing.T) {
	tests := []struct {
		name   string
		status models.EntitlementStatus
		now    time.Time
		want   Status
	}{
		{name: "valid before expiry", status: models.EntitlementActive, now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), want: StatusValid},
		{name: "valid through expiry day", status: models.EntitlementActive, now: time.Date(2026, 3, 3, 23, 59, 0, 0, time.UTC), want: StatusValid},
		{name: "expired day after", status: models.EntitlementActive, now: time.Date(2026, 3, 4, 0, 1, 0, 0, time.UTC), want: StatusExpired},
		{name: "expired by sweep", status: models.EntitlementExpired, now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), want: StatusExpired},
		{name: "revoked", status: models.EntitlementRevoked, now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), want: StatusRevoked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			e := entitlement(tt.status)
			repo.On("GetEntitlement", mock.Anything, e.ID).Return(e, true, nil).Once()
			repo.On("GetContact", mock.Anything, "SSC101").
				Return(&models.Contact{SubjectID: "SSC101", FirstName: "Tariro", LastName: "Moyo"}, true, nil).Once()
			repo.On("CreatePassScan", mock.Anything, mock.MatchedBy(func(s models.PassScan) bool {
				return s.EntitlementID == e.ID && s.ScannedBy == registered && s.MatchedRegistered && s.ScannedAt.Equal(tt.now)
			})).Return(nil).Once()

			res, err := NewService(repo, newNoopLogger()).Verify(context.Background(), e.ID, registered, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, "Tariro Moyo", res.HolderName)
			assert.True(t, res.MatchedRegistered)
			repo.AssertExpectations(t)
		})
	}
}

func TestVerify_UnregisteredScanner(t *testing.T) {
	repo := new(RepoMock)
	e := entitlement(models.EntitlementActive)
	repo.On("GetEntitlement", mock.Anything, e.ID).Return(e, true, nil)
	repo.On("GetContact", mock.Anything, "SSC101").Return(nil, false, nil)
	repo.On("CreatePassScan", mock.Anything, mock.MatchedBy(func(s models.PassScan) bool {
		return !s.MatchedRegistered && s.ScannedBy == "+263779999999"
	})).Return(nil).Once()

	res, err := NewService(repo, newNoopLogger()).Verify(context.Background(), e.ID, "+263779999999", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, StatusValid, res.Status)
	assert.False(t, res.MatchedRegistered)
	assert.Empty(t, res.HolderName)
	repo.AssertExpectations(t)
}

func TestVerify_NotFoundRecordsNothing(t *testing.T) {
	repo := new(RepoMock)
	id := uuid.New()
	repo.On("GetEntitlement", mock.Anything, id).Return(nil, false, nil).Once()

	res, err := NewService(repo, newNoopLogger()).Verify(context.Background(), id, registered, time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Nil(t, res.Entitlement)
	repo.AssertNotCalled(t, "CreatePassScan", mock.Anything, mock.Anything)
}

func TestVerify_ContactLookupFailureIsNotFatal(t *testing.T) {
	repo := new(RepoMock)
	e := entitlement(models.EntitlementActive)
	repo.On("GetEntitlement", mock.Anything, e.ID).Return(e, true, nil)
	repo.On("GetContact", mock.Anything, "SSC101").Return(nil, false, errors.New("db down"))
	repo.On("CreatePassScan", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := NewService(repo, newNoopLogger()).Verify(context.Background(), e.ID, registered, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, StatusValid, res.Status)
}

func TestVerify_StorageErrors(t *testing.T) {
	t.Run("get entitlement", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetEntitlement", mock.Anything, mock.Anything).Return(nil, false, errors.New("db down"))

		_, err := NewService(repo, newNoopLogger()).Verify(context.Background(), uuid.New(), registered, time.Now())
		assert.Error(t, err)
	})

	t.Run("record scan", func(t *testing.T) {
		repo := new(RepoMock)
		e := entitlement(models.EntitlementActive)
		repo.On("GetEntitlement", mock.Anything, e.ID).Return(e, true, nil)
		repo.On("GetContact", mock.Anything, "SSC101").Return(nil, false, nil)
		repo.On("CreatePassScan", mock.Anything, mock.Anything).Return(errors.New("fk violation"))

		_, err := NewService(repo, newNoopLogger()).Verify(context.Background(), e.ID, registered, time.Now())
		assert.Error(t, err)
	})
}
