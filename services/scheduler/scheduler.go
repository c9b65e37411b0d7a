package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/FARHATREKAYA/quran-app/core"
)

// Jobs are the periodic khatm maintenance tasks.
type Jobs interface {
	SweepMissed(ctx context.Context) (int, error)
	NotifyMissed(ctx context.Context) (int, error)
	SendReminders(ctx context.Context) (int, error)
}

// Result counts what a single run did.
type Result struct {
	Missed    int
	Notified  int
	Reminders int
}

// Scheduler runs the khatm jobs on a cron schedule. A run is skipped while the previous one is still going.
type Scheduler struct {
	cron    *cron.Cron
	jobs    Jobs
	logger  core.Logger
	timeout time.Duration
}

func New(conf *core.Config, logger core.Logger, jobs Jobs) (*Scheduler, error) {
	cl := cronLogger{logger}
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		jobs:    jobs,
		logger:  logger,
		timeout: 4 * time.Minute,
	}
	if _, err := s.cron.AddFunc(conf.Khatm.SweepSchedule, s.run); err != nil {
		return nil, errors.Wrapf(err, "scheduling khatm jobs %q", conf.Khatm.SweepSchedule)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := RunOnce(ctx, s.jobs)
	if err != nil {
		s.logger.Error(fmt.Sprintf("running khatm jobs: %v", err), err)
	}
	if res != (Result{}) {
		s.logger.Info("khatm jobs done", map[string]interface{}{
			"missed":    res.Missed,
			"notified":  res.Notified,
			"reminders": res.Reminders,
		})
	}
}

// RunOnce sweeps the missed sessions, then sends the missed-day notifications and the reminders.
// Every job runs even when a previous one failed; the first error is returned.
func RunOnce(ctx context.Context, jobs Jobs) (Result, error) {
	var (
		res      Result
		firstErr error
		err      error
	)
	keep := func(err error, msg string) {
		if err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, msg)
		}
	}

	res.Missed, err = jobs.SweepMissed(ctx)
	keep(err, "sweeping missed sessions")
	res.Notified, err = jobs.NotifyMissed(ctx)
	keep(err, "notifying missed sessions")
	res.Reminders, err = jobs.SendReminders(ctx)
	keep(err, "sending reminders")
	return res, firstErr
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for the running one, until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, kvMap(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s: %v", msg, err), err, kvMap(keysAndValues))
}

func kvMap(keysAndValues []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		m[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return m
}
