package scheduler

import (
	"context"
	"fmt"
	"time"

	"customerSegments/pkg/logger"

	"github.com/robfig/cron/v3"
)

// cronLogger routes cron's own diagnostics into the process logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron_"+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron_"+msg, append(keysAndValues, "error", err)...)
}

// Scheduler runs one task on a cron expression. A tick that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	entryID cron.EntryID
	spec    string
}

func New(spec string, loc *time.Location, task func(ctx context.Context)) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)

	entryID, err := c.AddFunc(spec, func() { task(context.Background()) })
	if err != nil {
		return nil, fmt.Errorf("adding cron entry %q: %w", spec, err)
	}
	return &Scheduler{cron: c, entryID: entryID, spec: spec}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("scheduler_started", "cron", s.spec, "next", s.Next())
}

// Next is the next planned run, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// Stop prevents new runs and waits for a running one until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
