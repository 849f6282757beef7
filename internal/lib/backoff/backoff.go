// Package backoff реализует политику повторов с экспоненциальной задержкой.
//
// Задержки выполняются через backoff.Timer, поэтому в тестах время не тратится.
package backoff

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy параметры повторов.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultPolicy три попытки, начиная с 60 секунд.
var DefaultPolicy = Policy{
	MaxAttempts:     3,
	InitialInterval: 60 * time.Second,
	MaxInterval:     5 * time.Minute,
	Multiplier:      2,
}

// Retrier выполняет операцию с повторами по политике.
type Retrier struct {
	policy   Policy
	newTimer func() backoff.Timer
}

// Option настраивает Retrier.
type Option func(*Retrier)

// WithTimerFactory подменяет таймер ожидания между попытками.
func WithTimerFactory(f func() backoff.Timer) Option {
	return func(r *Retrier) { r.newTimer = f }
}

// New создаёт Retrier.
func New(policy Policy, opts ...Option) *Retrier {
	r := &Retrier{
		policy:   policy,
		newTimer: func() backoff.Timer { return nil },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do выполняет op, повторяя её пока retryable(err) и не исчерпаны попытки.
// notify вызывается перед каждым ожиданием и может быть nil.
func (r *Retrier) Do(ctx context.Context, op func() error, retryable func(error) bool, notify func(error, time.Duration)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval
	b.Multiplier = r.policy.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	retries := uint64(0)
	if r.policy.MaxAttempts > 1 {
		retries = uint64(r.policy.MaxAttempts - 1)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)

	operation := func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotifyWithTimer(operation, policy, notify, r.newTimer())
}

// Sleeper приостанавливает выполнение между пачками внешних вызовов.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper ждёт по настоящим часам с учётом отмены контекста.
type RealSleeper struct{}

// Sleep ждёт d или отмены ctx.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
