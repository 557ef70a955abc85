// Package scheduler drives the simulation clock.
package scheduler

import (
	"context"
	"time"

	"tradesim/internal/logger"
)

// IntervalScheduler calls a task once per Interval until its context is done.
// Firings are anchored to the start time and never coalesced: when the task
// falls behind, the missed firings run back to back, each with its own
// scheduled time.
type IntervalScheduler struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func NewIntervalScheduler(ctx context.Context, interval time.Duration) *IntervalScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &IntervalScheduler{
		Interval: interval,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

// Start blocks until the context is done. task receives the scheduled time of
// each firing.
func (s *IntervalScheduler) Start(task func(at time.Time)) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("%s: task is nil, exit", s.prefix())
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("%s: invalid interval=%s, exit", s.prefix(), s.Interval)
		return
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	anchor := s.nowFn()
	logger.Infof("%s: started interval=%s run_immediately=%v at=%s",
		s.prefix(), s.Interval, s.RunImmediately, anchor.UTC().Format(time.RFC3339))

	if s.RunImmediately {
		task(anchor)
	}

	var fired int64
	for {
		fired++
		nextAt := anchor.Add(time.Duration(fired) * s.Interval)
		if !s.waitUntil(nextAt) {
			logger.Infof("%s: ctx done after %d firings, exit", s.prefix(), fired-1)
			return
		}
		if lag := s.nowFn().Sub(nextAt); lag > s.Interval {
			logger.Debugf("%s: running behind by %s", s.prefix(), lag.Truncate(time.Millisecond))
		}
		task(nextAt)
	}
}

func (s *IntervalScheduler) prefix() string {
	if s.Name == "" {
		return "IntervalScheduler"
	}
	return "IntervalScheduler[" + s.Name + "]"
}

func (s *IntervalScheduler) waitUntil(target time.Time) bool {
	wait := target.Sub(s.nowFn())
	if wait <= 0 {
		select {
		case <-s.ctx.Done():
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(wait)
	select {
	case <-s.ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
		return true
	}
}
