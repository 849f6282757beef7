package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gatepass-assistant/internal/services/profilesync"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/reminder"
)

type ReminderMock struct{ mock.Mock }

func (m *ReminderMock) Run(ctx context.Context, now time.Time) (reminder.Stats, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(reminder.Stats), args.Error(1)
}

type ProfilesMock struct{ mock.Mock }

func (m *ProfilesMock) SyncAll(ctx context.Context, now time.Time) (profilesync.SyncStats, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(profilesync.SyncStats), args.Error(1)
}

type ExpirerMock struct{ mock.Mock }

func (m *ExpirerMock) ExpireEntitlements(ctx context.Context, day time.Time) (int, error) {
	args := m.Called(ctx, day)
	return args.Int(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var fixedNow = time.Date(2026, 3, 9, 0, 5, 0, 0, time.UTC)

func newJobs() (*Jobs, *ReminderMock, *ProfilesMock, *ExpirerMock) {
	r, p, e := new(ReminderMock), new(ProfilesMock), new(ExpirerMock)
	j := NewJobs(r, p, e, newNoopLogger())
	j.now = func() time.Time { return fixedNow }
	return j, r, p, e
}

func TestJobs_Reminders(t *testing.T) {
	j, r, _, _ := newJobs()
	r.On("Run", mock.Anything, fixedNow).Return(reminder.Stats{Checked: 3, Published: 2, Skipped: 1}, nil).Once()

	j.Reminders(context.Background())
	r.AssertExpectations(t)
}

func TestJobs_SyncProfilesFailureIsLogged(t *testing.T) {
	j, _, p, _ := newJobs()
	p.On("SyncAll", mock.Anything, fixedNow).Return(profilesync.SyncStats{Pages: 1}, errors.New("rate limited")).Once()

	assert.NotPanics(t, func() { j.SyncProfiles(context.Background()) })
	p.AssertExpectations(t)
}

func TestJobs_ExpireUsesStartOfDay(t *testing.T) {
	j, _, _, e := newJobs()
	e.On("ExpireEntitlements", mock.Anything, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)).Return(4, nil).Once()

	j.ExpireEntitlements(context.Background())
	e.AssertExpectations(t)
}

func TestJobs_Register(t *testing.T) {
	j, _, _, _ := newJobs()
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	require.NoError(t, err)
	defer func() { _ = s.Shutdown() }()

	require.NoError(t, j.Register(context.Background(), s, 24*time.Hour, 7*24*time.Hour))

	var names []string
	for _, job := range s.Jobs() {
		names = append(names, job.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"balance-reminders", "expire-entitlements", "profile-sync"}, names)
}

func TestJobs_RegisterRejectsInvalidInterval(t *testing.T) {
	j, _, _, _ := newJobs()
	s, err := gocron.NewScheduler()
	require.NoError(t, err)
	defer func() { _ = s.Shutdown() }()

	assert.Error(t, j.Register(context.Background(), s, 0, time.Hour))
}
