package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/robfig/cron/v3"
)

const jobTimeout = 30 * time.Second

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// StatsRefresher пересчёт кэшированной статистики админской панели
type StatsRefresher interface {
	RefreshAdminStats(ctx context.Context) error
}

// StatsRefresherFunc адаптер функции к StatsRefresher
type StatsRefresherFunc func(ctx context.Context) error

func (f StatsRefresherFunc) RefreshAdminStats(ctx context.Context) error { return f(ctx) }

// Scheduler фоновые задачи по расписанию
type Scheduler struct {
	log   *slog.Logger
	sched *cron.Cron
}

func New(log *slog.Logger) *Scheduler {
	return &Scheduler{
		log:   log.With(slog.String("component", "jobs")),
		sched: cron.New(cron.WithLocation(time.UTC), cron.WithParser(cronParser)),
	}
}

// AddStatsRefresh регистрирует пересчёт статистики по cron-выражению spec
func (s *Scheduler) AddStatsRefresh(spec string, r StatsRefresher) error {
	const op = "jobs.Scheduler.AddStatsRefresh"

	if _, err := s.sched.AddFunc(spec, s.wrap("stats_refresh", r.RefreshAdminStats)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// wrap ограничивает задачу по времени и не даёт панике уронить планировщик
func (s *Scheduler) wrap(name string, fn func(ctx context.Context) error) func() {
	return func() {
		log := s.log.With(slog.String("job", name))
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("job panicked", slog.Any("panic", rec))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		started := time.Now()
		if err := fn(ctx); err != nil {
			log.Error("job failed", logger.Err(err))
			return
		}
		log.Debug("job finished", slog.Duration("took", time.Since(started)))
	}
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// Stop останавливает планировщик и ждёт завершения запущенных задач
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.sched.Stop().Done():
	case <-ctx.Done():
	}
}
