package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Spok95/learning-platform-bot/internal/metrics"
	"github.com/Spok95/learning-platform-bot/internal/observability"
)

type Job func(ctx context.Context) error

type Runner struct {
	ctx  context.Context
	log  *zap.Logger
	cron *cron.Cron
}

func New(ctx context.Context, log *zap.Logger, loc *time.Location) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Runner{
		ctx:  ctx,
		log:  log,
		cron: cron.New(cron.WithLocation(loc)),
	}
}

// Every: тикер; первый запуск через interval.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

// Cron: запуск по расписанию в стандартном формате (5 полей), в часовом поясе раннера.
// Планировщик стартует при первой регистрации и останавливается вместе с ctx.
func (r *Runner) Cron(spec, name string, fn Job) error {
	if _, err := r.cron.AddFunc(spec, func() { r.run(name, fn) }); err != nil {
		return fmt.Errorf("cron %s %q: %w", name, spec, err)
	}
	if len(r.cron.Entries()) == 1 {
		r.cron.Start()
		go func() {
			<-r.ctx.Done()
			<-r.cron.Stop().Done()
		}()
	}
	return nil
}

func (r *Runner) run(name string, fn Job) {
	if r.ctx.Err() != nil {
		return
	}
	start := time.Now()
	result := "ok"
	defer func() {
		if rec := recover(); rec != nil {
			result = "panic"
			observability.CaptureErr(fmt.Errorf("panic in job %s: %v", name, rec))
			r.log.Error("job panic", zap.String("job", name), zap.Any("panic", rec))
		}
		metrics.ObserveJob(name, result, time.Since(start))
	}()
	if err := fn(r.ctx); err != nil {
		result = "error"
		observability.CaptureErr(err)
		r.log.Warn("job failed", zap.String("job", name), zap.Error(err))
	}
}
