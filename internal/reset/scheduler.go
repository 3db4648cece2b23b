package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/pkg/lifecycle"
	"github.com/robfig/cron/v3"
)

// Scheduler fires BulkReset on a cron expression in the season timezone.
type Scheduler struct {
	cron     *cron.Cron
	exec     *Executor
	timeout  time.Duration
	log      *logger.Logger
	now      func() time.Time
	jobCtx   context.Context
	stopJobs context.CancelFunc
}

// NewScheduler registers the job. An empty schedule uses the policy's default
// schedule. A schedule that does not fire once per season is accepted with a
// warning.
func NewScheduler(exec *Executor, schedule string, timeout time.Duration, log *logger.Logger) (*Scheduler, error) {
	if schedule == "" {
		schedule = exec.Policy().DefaultSchedule()
	}
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, err
	}
	cl := cronLogger{log: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(exec.Policy().Location()),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		exec:    exec,
		timeout: timeout,
		log:     log,
		now:     time.Now,
	}
	s.jobCtx, s.stopJobs = context.WithCancel(context.Background())
	s.cron.Schedule(sched, cron.FuncJob(s.Trigger))
	if err := checkSchedule(sched, exec.Policy(), s.now()); err != nil {
		s.log.Warn("season schedule does not match policy", "schedule", schedule,
			"policy", exec.Policy().Name(), "default", exec.Policy().DefaultSchedule(), "error", err)
	}
	s.log.Info("season scheduler configured", "schedule", schedule, "policy", exec.Policy().Name(),
		"timezone", exec.Policy().Location().String())
	return s, nil
}

// Trigger runs one bulk reset with the configured timeout.
func (s *Scheduler) Trigger() {
	ctx := s.jobCtx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	now := s.now()
	done, err := s.exec.AlreadyReset(ctx, now)
	if err != nil {
		s.log.Warn("failed to read bulk reset checkpoint, resetting anyway", "error", err)
	}
	if done {
		s.log.Info("season already reset, skipping scheduled run", "season", s.exec.Policy().SeasonKey(now))
		return
	}

	report, err := s.exec.BulkReset(ctx, now)
	if err != nil {
		var partial *PartialBatchError
		if errors.As(err, &partial) {
			s.log.Error("scheduled season reset partially applied",
				"committed", partial.Committed, "failed", partial.Failed, "error", partial.Err)
			return
		}
		s.log.Error("scheduled season reset failed", "error", err)
		return
	}
	s.log.Info("scheduled season reset done", "season", report.SeasonKey, "profiles", report.Profiles)
}

// Next is the next planned run, zero before Run starts the cron.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Run blocks until the graceful handle is closed, then waits for a running
// job. The forceful handle cancels that job.
func (s *Scheduler) Run(graceful, forceful *lifecycle.Handle) {
	defer graceful.Close()
	defer forceful.Close()
	defer s.stopJobs()

	s.cron.Start()
	s.log.Info("season scheduler started", "next", s.Next())

	<-graceful.Done()
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.log.Info("season scheduler stopped")
	case <-forceful.Done():
		s.log.Warn("season scheduler forced to stop, cancelling running reset")
		s.stopJobs()
		<-stopped.Done()
	}
}

type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

const scheduleLookahead = 6

// checkSchedule walks the next few fires of sched and fails unless each one
// lands in the season right after the previous fire.
func checkSchedule(sched cron.Schedule, p season.Policy, from time.Time) error {
	prev := sched.Next(from.In(p.Location()))
	if prev.IsZero() {
		return errors.New("schedule never fires")
	}
	for i := 1; i < scheduleLookahead; i++ {
		next := sched.Next(prev)
		if next.IsZero() {
			return errors.New("schedule stops firing")
		}
		got, want := p.SeasonKey(next), p.SeasonKey(p.NextBoundary(prev))
		switch {
		case got == p.SeasonKey(prev):
			return fmt.Errorf("fires more than once in season %s", got)
		case got != want:
			return fmt.Errorf("skips season %s", want)
		}
		prev = next
	}
	return nil
}
