package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/term"
)

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) PublishReminder(ctx context.Context, msg models.ReminderMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type pagedContacts struct {
	all   []models.Contact
	calls int
}

func (p *pagedContacts) ListContactsWithBalance(_ context.Context, limit, offset int) ([]models.Contact, error) {
	p.calls++
	if offset >= len(p.all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(p.all) {
		end = len(p.all)
	}
	return p.all[offset:end], nil
}

type memorySessions struct {
	items map[string]models.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{items: map[string]models.Session{}}
}

func (m *memorySessions) GetSession(_ context.Context, phone string) (*models.Session, bool, error) {
	s, ok := m.items[phone]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (m *memorySessions) SaveSession(_ context.Context, sess models.Session) error {
	m.items[sess.PhoneNumber] = sess
	return nil
}

type recordingSleeper struct {
	calls int
}

func (s *recordingSleeper) Sleep(context.Context, time.Duration) error {
	s.calls++
	return nil
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	contacts  *pagedContacts
	sessions  *memorySessions
	publisher *PublisherMock
	sleeper   *recordingSleeper
	svc       *Service
}

func newFixture(t *testing.T, contacts []models.Contact) *fixture {
	t.Helper()
	cal, err := term.NewCalendar([]models.Term{
		{Code: "2026-1", Start: date(2026, 1, 13), End: date(2026, 4, 2)},
	})
	require.NoError(t, err)

	f := &fixture{
		contacts:  &pagedContacts{all: contacts},
		sessions:  newMemorySessions(),
		publisher: new(PublisherMock),
		sleeper:   &recordingSleeper{},
	}
	f.svc = NewService(cal, f.contacts, f.sessions, f.publisher, f.sleeper,
		Options{BatchSize: 2, BatchPause: time.Second}, newNoopLogger())
	return f
}

func debtor(id, channel string, balance float64) models.Contact {
	return models.Contact{SubjectID: id, FirstName: "Student", LastName: id, PreferredChannel: channel, OutstandingBalance: balance}
}

func TestRun_MidTermWeeklyReminders(t *testing.T) {
	now := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, 0, -3)

	f := newFixture(t, []models.Contact{
		debtor("SSC1", "+263771000001", 120),
		debtor("SSC2", "+263771000002", 80),
		debtor("SSC3", "+263771000003", 50),
	})
	f.sessions.items["+263771000002"] = models.Session{
		PhoneNumber: "+263771000002", State: models.StateMainMenu, LastReminderAt: &recent, ReminderCount: 1,
	}
	f.publisher.On("PublishReminder", mock.Anything, mock.MatchedBy(func(m models.ReminderMessage) bool {
		return m.Tone == string(ToneGentle) && m.Term == "2026-1"
	})).Return(nil).Twice()

	stats, err := f.svc.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, Stats{Checked: 3, Published: 2, Skipped: 1}, stats)
	assert.Equal(t, 1, f.sleeper.calls)

	s1 := f.sessions.items["+263771000001"]
	assert.Equal(t, models.StateReminderSent, s1.State)
	assert.Equal(t, 1, s1.ReminderCount)
	require.NotNil(t, s1.LastReminderAt)
	assert.Equal(t, now, *s1.LastReminderAt)

	s2 := f.sessions.items["+263771000002"]
	assert.Equal(t, models.StateMainMenu, s2.State)
	assert.Equal(t, 1, s2.ReminderCount)
	f.publisher.AssertExpectations(t)
}

func TestRun_FinalWeeksUseFinalTone(t *testing.T) {
	now := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, []models.Contact{debtor("SSC1", "+263771000001", 300)})

	var got models.ReminderMessage
	f.publisher.On("PublishReminder", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(models.ReminderMessage) }).
		Return(nil).Once()

	_, err := f.svc.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, string(ToneFinal), got.Tone)
	assert.Contains(t, got.Text, "URGENT")
	assert.Contains(t, got.Text, "$300.00")
}

func TestRun_SiblingsOnOneChannelAllReminded(t *testing.T) {
	now := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, []models.Contact{
		debtor("SSC1", "+263771000001", 120),
		debtor("SSC2", "+263771000001", 90),
	})
	f.publisher.On("PublishReminder", mock.Anything, mock.Anything).Return(nil).Twice()

	stats, err := f.svc.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Published)
	assert.Equal(t, 2, f.sessions.items["+263771000001"].ReminderCount)
}

func TestRun_SkipsOutsideReminderWindow(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
	}{
		{name: "between terms", now: date(2026, 4, 20)},
		{name: "first weeks of term", now: date(2026, 1, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, []models.Contact{debtor("SSC1", "+263771000001", 120)})

			stats, err := f.svc.Run(context.Background(), tt.now)
			require.NoError(t, err)
			assert.Equal(t, Stats{}, stats)
			assert.Zero(t, f.contacts.calls)
			f.publisher.AssertNotCalled(t, "PublishReminder", mock.Anything, mock.Anything)
		})
	}
}

func TestRun_PublishFailureCounted(t *testing.T) {
	now := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, []models.Contact{
		debtor("SSC1", "+263771000001", 120),
		debtor("SSC2", "", 120),
		debtor("SSC3", "+263771000003", 0),
	})
	f.publisher.On("PublishReminder", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	stats, err := f.svc.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, Stats{Checked: 3, Failed: 1, Skipped: 2}, stats)
	assert.NotContains(t, f.sessions.items, "+263771000001")
}

func TestMessage(t *testing.T) {
	tm := models.Term{Code: "2026-1", End: date(2026, 4, 2)}
	c := debtor("SSC1", "+263771000001", 120.5)

	assert.Contains(t, Message(c, tm, ToneGentle), "friendly reminder")
	assert.Contains(t, Message(c, tm, ToneFirm), "April 02, 2026")
	assert.Contains(t, Message(c, tm, ToneFinal), "$120.50")
}
