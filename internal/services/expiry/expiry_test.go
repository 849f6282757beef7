package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/term"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newPolicy(t *testing.T, rules Rules) *Policy {
	t.Helper()
	cal, err := term.NewCalendar([]models.Term{
		{Code: "2026-1", Start: date(2026, 1, 13), End: date(2026, 4, 2)},
	})
	require.NoError(t, err)
	return NewPolicy(cal, rules)
}

func TestComputeExpiry_Tiers(t *testing.T) {
	p := newPolicy(t, DefaultRules)

	tests := []struct {
		name       string
		percentage float64
		now        time.Time
		want       time.Time
		wantOK     bool
	}{
		{"full payment expires at term end", 100, date(2026, 3, 1), date(2026, 4, 2), true},
		{"overpayment expires at term end", 130, date(2026, 3, 1), date(2026, 4, 2), true},
		{"seventy percent thirty days before end", 70, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), date(2026, 3, 3), true},
		{"seventy percent floored at tomorrow", 85, date(2026, 3, 20), date(2026, 3, 21), true},
		{"fifty percent end of month after 32 days", 50, date(2026, 1, 15), date(2026, 2, 28), true},
		{"fifty percent capped by seventy percent tier", 60, date(2026, 3, 1), date(2026, 3, 3), true},
		{"fifty percent floored at tomorrow", 55, date(2026, 3, 31), date(2026, 4, 1), true},
		{"forty nine percent denied", 49, date(2026, 3, 1), time.Time{}, false},
		{"zero percent denied", 0, date(2026, 3, 1), time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := p.ComputeExpiry("2026-1", tt.percentage, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestComputeExpiry_Monotonic(t *testing.T) {
	p := newPolicy(t, DefaultRules)
	now := date(2026, 2, 20)

	var prev time.Time
	for pct := 50.0; pct <= 110; pct += 5 {
		got, ok, err := p.ComputeExpiry("2026-1", pct, now)
		require.NoError(t, err)
		require.True(t, ok)
		assert.False(t, got.Before(prev), "expiry for %.0f%% is earlier than for lower payment", pct)
		prev = got
	}
}

func TestComputeExpiry_ConfigurableThresholds(t *testing.T) {
	rules := DefaultRules
	rules.MinimumThreshold = 40
	rules.PartialOffset = 10 * 24 * time.Hour
	p := newPolicy(t, rules)

	_, ok, err := p.ComputeExpiry("2026-1", 45, date(2026, 2, 1))
	require.NoError(t, err)
	assert.True(t, ok)

	got, ok, err := p.ComputeExpiry("2026-1", 75, date(2026, 2, 1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, date(2026, 3, 23), got)
}

func TestComputeExpiry_UnknownTerm(t *testing.T) {
	p := newPolicy(t, DefaultRules)

	_, _, err := p.ComputeExpiry("2031-1", 100, date(2026, 3, 1))
	assert.ErrorIs(t, err, ErrInvalidTerm)
	assert.ErrorIs(t, err, term.ErrUnknownTerm)
}

func TestComputeTransportExpiry(t *testing.T) {
	p := newPolicy(t, DefaultRules)

	got, ok, err := p.ComputeTransportExpiry("2026-1", 100, date(2026, 3, 1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, date(2026, 4, 2), got)

	_, ok, err = p.ComputeTransportExpiry("2026-1", 99.9, date(2026, 3, 1))
	require.NoError(t, err)
	assert.False(t, ok)
}
