package selftest

import (
	"context"
	"fmt"
	"io"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler reruns self-tests on a cron schedule. A run that is still going when the
// next one is due causes that next run to be skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	suites func() []Suite
	out    io.Writer
	log    *logrus.Logger
}

// ParseSchedule validates a standard five-field cron spec or a descriptor such as
// "@every 1h"
func ParseSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid self-test schedule %q: %w", spec, err)
	}
	return nil
}

// NewScheduler creates a stopped scheduler. suites is called at every run; out may be nil.
func NewScheduler(spec string, runner *Runner, suites func() []Suite, out io.Writer, log *logrus.Logger) (*Scheduler, error) {
	if log == nil {
		log = logrus.New()
	}
	cronLog := cron.PrintfLogger(log.WithField("component", "selftest-scheduler"))

	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		runner: runner,
		suites: suites,
		out:    out,
		log:    log,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid self-test schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins scheduling in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents further runs and waits for a running one to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	suites := s.suites()
	reports, err := s.runner.RunAll(context.Background(), suites, s.out)
	if err != nil {
		s.log.WithError(err).Warn("Scheduled self-tests interrupted")
		return
	}

	failing := 0
	for _, r := range reports {
		if r != nil && !r.OK() {
			failing++
		}
	}
	s.log.WithFields(logrus.Fields{
		"suites":  len(suites),
		"failing": failing,
	}).Info("Scheduled self-tests finished")
}
