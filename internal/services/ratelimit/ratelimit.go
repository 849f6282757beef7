// Package ratelimit ведёт недельные счётчики запросов пропусков и определяет уровень обслуживания.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/datetime"
)

// Tier уровень обслуживания запроса.
type Tier string

const (
	TierFull     Tier = "full"
	TierDegraded Tier = "degraded"
	TierBlocked  Tier = "blocked"
)

// Thresholds пороги перехода между уровнями по числу предыдущих запросов за неделю.
type Thresholds struct {
	DegradedFrom int
	BlockedFrom  int
}

// DefaultThresholds: до 3 запросов полный уровень, 3-4 урезанный, с 5 блокировка.
var DefaultThresholds = Thresholds{DegradedFrom: 3, BlockedFrom: 5}

// TierFor классифицирует число запросов, сделанных до текущего.
func (t Thresholds) TierFor(countBefore int) Tier {
	switch {
	case countBefore >= t.BlockedFrom:
		return TierBlocked
	case countBefore >= t.DegradedFrom:
		return TierDegraded
	default:
		return TierFull
	}
}

// Repository хранилище недельных счётчиков.
type Repository interface {
	// IncrementRequestCount создаёт запись недели со счётчиком 1 либо увеличивает существующую
	// и возвращает значение счётчика после увеличения.
	IncrementRequestCount(ctx context.Context, subjectID string, weekStart, now time.Time) (int, error)
}

// Limiter проверяет и увеличивает счётчик запросов.
type Limiter struct {
	repo       Repository
	thresholds Thresholds
	log        *slog.Logger
}

// NewLimiter создает новый экземпляр Limiter.
func NewLimiter(repo Repository, thresholds Thresholds, log *slog.Logger) *Limiter {
	return &Limiter{
		repo:       repo,
		thresholds: thresholds,
		log:        log,
	}
}

// CheckAndIncrement возвращает число запросов до текущего и уровень обслуживания.
// Счётчик увеличивается всегда, в том числе для заблокированных запросов.
func (l *Limiter) CheckAndIncrement(ctx context.Context, subjectID string, now time.Time) (int, Tier, error) {
	const op = "ratelimit.CheckAndIncrement"

	weekStart := datetime.WeekStart(now)
	count, err := l.repo.IncrementRequestCount(ctx, subjectID, weekStart, now.UTC())
	if err != nil {
		return 0, "", fmt.Errorf("%s: %w", op, err)
	}

	countBefore := count - 1
	tier := l.thresholds.TierFor(countBefore)
	l.log.Debug("rate limit checked",
		slog.String("subject_id", subjectID),
		slog.Time("week_start", weekStart),
		slog.Int("count_before", countBefore),
		slog.String("tier", string(tier)),
	)
	return countBefore, tier, nil
}
