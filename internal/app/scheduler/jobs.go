package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/datetime"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/profilesync"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/reminder"
)

// ReminderRunner один проход рассылки напоминаний.
type ReminderRunner interface {
	Run(ctx context.Context, now time.Time) (reminder.Stats, error)
}

// ProfileSyncer пакетная синхронизация профилей.
type ProfileSyncer interface {
	SyncAll(ctx context.Context, now time.Time) (profilesync.SyncStats, error)
}

// EntitlementExpirer переводит пропуска с прошедшей датой в статус expired.
type EntitlementExpirer interface {
	ExpireEntitlements(ctx context.Context, day time.Time) (int, error)
}

// Jobs периодические задачи планировщика.
type Jobs struct {
	reminders    ReminderRunner
	profiles     ProfileSyncer
	entitlements EntitlementExpirer
	log          *slog.Logger
	now          func() time.Time
}

// NewJobs создаёт Jobs.
func NewJobs(reminders ReminderRunner, profiles ProfileSyncer, entitlements EntitlementExpirer, log *slog.Logger) *Jobs {
	return &Jobs{
		reminders:    reminders,
		profiles:     profiles,
		entitlements: entitlements,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Register добавляет задачи в планировщик. Каждая задача не запускается
// повторно, пока не завершился предыдущий запуск.
func (j *Jobs) Register(ctx context.Context, s gocron.Scheduler, reminderEvery, syncEvery time.Duration) error {
	const op = "scheduler.Jobs.Register"
	jobs := []struct {
		name       string
		definition gocron.JobDefinition
		task       func(context.Context)
		immediate  bool
	}{
		{name: "balance-reminders", definition: gocron.DurationJob(reminderEvery), task: j.Reminders, immediate: true},
		{name: "profile-sync", definition: gocron.DurationJob(syncEvery), task: j.SyncProfiles},
		{name: "expire-entitlements", definition: gocron.CronJob("5 0 * * *", false), task: j.ExpireEntitlements, immediate: true},
	}
	for _, job := range jobs {
		opts := []gocron.JobOption{
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithName(job.name),
		}
		if job.immediate {
			opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
		}
		task := job.task
		if _, err := s.NewJob(job.definition, gocron.NewTask(func() { task(ctx) }), opts...); err != nil {
			return fmt.Errorf("%s: %s: %w", op, job.name, err)
		}
	}
	return nil
}

// Reminders ставит в очередь напоминания о задолженности.
func (j *Jobs) Reminders(ctx context.Context) {
	log := j.log.With(slog.String("job", "balance-reminders"))
	stats, err := j.reminders.Run(ctx, j.now())
	if err != nil {
		log.Error("reminder run failed", sl.Err(err))
	}
	log.Info("reminder run finished",
		slog.Int("checked", stats.Checked),
		slog.Int("published", stats.Published),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
	)
}

// SyncProfiles обновляет контакты из школьной системы.
func (j *Jobs) SyncProfiles(ctx context.Context) {
	log := j.log.With(slog.String("job", "profile-sync"))
	stats, err := j.profiles.SyncAll(ctx, j.now())
	if err != nil {
		log.Error("profile sync failed", sl.Err(err))
	}
	log.Info("profile sync finished",
		slog.Int("pages", stats.Pages),
		slog.Int("synced", stats.Synced),
		slog.Int("failed", stats.Failed),
	)
}

// ExpireEntitlements закрывает пропуска, срок которых истёк до сегодняшнего дня.
func (j *Jobs) ExpireEntitlements(ctx context.Context) {
	log := j.log.With(slog.String("job", "expire-entitlements"))
	n, err := j.entitlements.ExpireEntitlements(ctx, datetime.Day(j.now()))
	if err != nil {
		log.Error("failed to expire entitlements", sl.Err(err))
		return
	}
	log.Info("entitlements expired", slog.Int("count", n))
}
