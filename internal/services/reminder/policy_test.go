package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToneFor(t *testing.T) {
	tests := []struct {
		weeksLeft int
		want      Tone
	}{
		{10, ToneGentle},
		{5, ToneGentle},
		{4, ToneFirm},
		{3, ToneFirm},
		{2, ToneFinal},
		{0, ToneFinal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToneFor(tt.weeksLeft), "weeks_left=%d", tt.weeksLeft)
	}
}

func TestIntervalDays(t *testing.T) {
	tests := []struct {
		name      string
		elapsed   int
		remaining int
		wantDays  int
		wantOK    bool
	}{
		{name: "first week of term", elapsed: 0, remaining: 10, wantOK: false},
		{name: "second week of term", elapsed: 1, remaining: 9, wantOK: false},
		{name: "mid term weekly", elapsed: 2, remaining: 8, wantDays: 7, wantOK: true},
		{name: "four weeks left", elapsed: 6, remaining: 4, wantDays: 4, wantOK: true},
		{name: "three weeks left", elapsed: 7, remaining: 3, wantDays: 4, wantOK: true},
		{name: "final two weeks", elapsed: 8, remaining: 2, wantDays: 2, wantOK: true},
		{name: "last week", elapsed: 9, remaining: 0, wantDays: 2, wantOK: true},
		{name: "short term ends early", elapsed: 0, remaining: 2, wantDays: 2, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, ok := IntervalDays(tt.elapsed, tt.remaining)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantDays, days)
		})
	}
}

func TestShouldSend(t *testing.T) {
	now := time.Date(2026, 3, 20, 8, 0, 0, 0, time.UTC)
	ago := func(days int) *time.Time {
		t := now.AddDate(0, 0, -days)
		return &t
	}

	tests := []struct {
		name      string
		last      *time.Time
		elapsed   int
		remaining int
		want      bool
	}{
		{name: "never sent", last: nil, elapsed: 3, remaining: 6, want: true},
		{name: "never sent but too early", last: nil, elapsed: 1, remaining: 9, want: false},
		{name: "weekly not yet", last: ago(6), elapsed: 3, remaining: 6, want: false},
		{name: "weekly due", last: ago(7), elapsed: 3, remaining: 6, want: true},
		{name: "four day cadence", last: ago(4), elapsed: 7, remaining: 3, want: true},
		{name: "four day cadence not yet", last: ago(3), elapsed: 7, remaining: 3, want: false},
		{name: "two day cadence", last: ago(2), elapsed: 9, remaining: 1, want: true},
		{name: "two day cadence not yet", last: ago(1), elapsed: 9, remaining: 1, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldSend(tt.last, tt.elapsed, tt.remaining, now))
		})
	}
}
