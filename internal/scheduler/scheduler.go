// Package scheduler runs the periodic match jobs: moving due matches to
// IN_PROGRESS and ENDED, and reconciling the geo index with MySQL.  With
// Redis available both are periodic asynq tasks; asynq.Unique keeps a single
// run per interval even when several API instances are up.  Without Redis
// it falls back to in-process tickers.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/gommon/log"

	"github.com/kangminhyuk1111/hoops/internal/service"
)

// Asynq task types.
const (
	TaskTransitionMatches = "match:transition"
	TaskReindexMatches    = "match:reindex"
)

// Jobs is the work the scheduler drives.
type Jobs interface {
	TransitionDue(ctx context.Context) (service.TransitionResult, error)
	Reindex(ctx context.Context) (service.ReindexResult, error)
}

type Scheduler struct {
	jobs     Jobs
	interval time.Duration
	reindex  time.Duration
	redis    *asynq.RedisClientOpt
	log      *log.Logger
}

// New returns a scheduler.  A nil redis option selects the tickers.  The
// reindex interval never drops below the transition interval.
func New(jobs Jobs, interval, reindex time.Duration, redis *asynq.RedisClientOpt, l *log.Logger) *Scheduler {
	if interval < time.Second {
		interval = time.Minute
	}
	if reindex < interval {
		reindex = 10 * interval
	}
	return &Scheduler{jobs: jobs, interval: interval, reindex: reindex, redis: redis, log: l}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.redis == nil {
		s.log.Infof("scheduler: redis unavailable, using in-process tickers (transition %s)", s.interval)
		return s.runTicker(ctx)
	}
	return s.runAsynq(ctx)
}

func (s *Scheduler) runAsynq(ctx context.Context) error {
	sched := asynq.NewScheduler(*s.redis, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   s.log,
	})
	periodic := []struct {
		task  string
		every time.Duration
	}{
		{TaskTransitionMatches, s.interval},
		{TaskReindexMatches, s.reindex},
	}
	for _, p := range periodic {
		spec := fmt.Sprintf("@every %s", p.every)
		if _, err := sched.Register(spec, asynq.NewTask(p.task, nil),
			asynq.Unique(p.every), asynq.MaxRetry(0), asynq.Timeout(p.every)); err != nil {
			return fmt.Errorf("register %s: %w", p.task, err)
		}
		s.log.Infof("scheduler: %s registered (%s)", p.task, spec)
	}

	srv := asynq.NewServer(*s.redis, asynq.Config{
		Concurrency: 1,
		Logger:      s.log,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTransitionMatches, s.HandleTask)
	mux.HandleFunc(TaskReindexMatches, s.HandleReindex)

	if err := sched.Start(); err != nil {
		return fmt.Errorf("start asynq scheduler: %w", err)
	}
	if err := srv.Start(mux); err != nil {
		sched.Shutdown()
		return fmt.Errorf("start asynq server: %w", err)
	}

	<-ctx.Done()
	srv.Shutdown()
	sched.Shutdown()
	return nil
}

// HandleTask is the asynq handler of TaskTransitionMatches.
func (s *Scheduler) HandleTask(ctx context.Context, _ *asynq.Task) error {
	_, err := s.jobs.TransitionDue(ctx)
	return err
}

// HandleReindex is the asynq handler of TaskReindexMatches.
func (s *Scheduler) HandleReindex(ctx context.Context, _ *asynq.Task) error {
	_, err := s.jobs.Reindex(ctx)
	return err
}

func (s *Scheduler) runTicker(ctx context.Context) error {
	transition := time.NewTicker(s.interval)
	defer transition.Stop()
	reindex := time.NewTicker(s.reindex)
	defer reindex.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-transition.C:
			s.tick(ctx)
		case <-reindex.C:
			if _, err := s.jobs.Reindex(ctx); err != nil {
				s.log.Errorf("scheduler: reindex failed: %v", err)
			}
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.jobs.TransitionDue(ctx); err != nil {
		s.log.Errorf("scheduler: transition run failed: %v", err)
	}
}
