package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// instantTimer срабатывает сразу и запоминает запрошенные задержки.
type instantTimer struct {
	c      chan time.Time
	delays *[]time.Duration
}

func (t *instantTimer) Start(d time.Duration) {
	*t.delays = append(*t.delays, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Time{}
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

var errThrottled = errors.New("throttled")

func newTestRetrier(policy Policy, delays *[]time.Duration) *Retrier {
	return New(policy, WithTimerFactory(func() backoff.Timer {
		return &instantTimer{delays: delays}
	}))
}

func isThrottled(err error) bool { return errors.Is(err, errThrottled) }

func TestRetrier_SucceedsAfterRetries(t *testing.T) {
	var delays []time.Duration
	r := newTestRetrier(DefaultPolicy, &delays)

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errThrottled
		}
		return nil
	}, isThrottled, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{60 * time.Second, 120 * time.Second}, delays)
}

func TestRetrier_StopsAfterMaxAttempts(t *testing.T) {
	var delays []time.Duration
	r := newTestRetrier(DefaultPolicy, &delays)

	calls := 0
	notified := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return errThrottled
	}, isThrottled, func(error, time.Duration) { notified++ })

	assert.ErrorIs(t, err, errThrottled)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, notified)
}

func TestRetrier_PermanentErrorIsNotRetried(t *testing.T) {
	var delays []time.Duration
	r := newTestRetrier(DefaultPolicy, &delays)
	boom := errors.New("bad request")

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return boom
	}, isThrottled, nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestRealSleeper_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RealSleeper{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, RealSleeper{}.Sleep(context.Background(), 0))
}
