// Package schedule runs periodic archive builds from a cron expression.
package schedule

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/robfig/cron/v3"

	"github.com/raoulx24/dropzip/internal/apperr"
	"github.com/raoulx24/dropzip/internal/logging"
)

type Scheduler struct {
	c   *cron.Cron
	log logging.Logger
}

func New(log logging.Logger) *Scheduler {
	return &Scheduler{
		c:   cron.New(),
		log: log,
	}
}

// Add registers fn under a standard five-field cron spec. Panics in fn are
// recovered and logged.
func (s *Scheduler) Add(spec string, name string, fn func()) error {
	_, err := s.c.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in scheduled job", "job", name, "recover", r)
			}
		}()
		s.log.Debug("scheduled job fired", "job", name)
		fn()
	})
	if err != nil {
		return goerr.Wrap(err, "invalid cron spec",
			goerr.V("spec", spec),
			goerr.V("job", name),
			goerr.T(apperr.TagConfig))
	}
	s.log.Info("scheduled job registered", "job", name, "spec", spec)
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.c.Entries())
}

func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduled jobs still running at shutdown")
	}
}
