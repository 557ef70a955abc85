package app

import (
	"fmt"
	"time"

	"tradesim/internal/config"
	"tradesim/internal/session"
)

// ReplayOptions drives a headless run. When State is set the run continues
// from it; otherwise a fresh session starts at Start.
type ReplayOptions struct {
	Ticks int
	Start time.Time
	State *session.State
}

type ReplayResult struct {
	Snapshot session.Snapshot
	State    session.State
	Fills    int
}

// Replay advances a session Ticks times, one interval apart, without wall
// clock waits. The same config, seed and start always give the same result.
func Replay(cfg *config.Config, opts ReplayOptions) (ReplayResult, error) {
	if cfg == nil {
		return ReplayResult{}, fmt.Errorf("nil config")
	}
	if opts.Ticks < 0 {
		return ReplayResult{}, fmt.Errorf("ticks must be >= 0, got %d", opts.Ticks)
	}
	sc, err := cfg.SessionConfig()
	if err != nil {
		return ReplayResult{}, err
	}

	var (
		sess  *session.Session
		start time.Time
	)
	if opts.State != nil {
		sess, err = session.Restore(sc, *opts.State)
		start = opts.State.Time
	} else {
		sess, err = session.New(sc, opts.Start)
		start = opts.Start
	}
	if err != nil {
		return ReplayResult{}, err
	}

	fills := 0
	for i := 1; i <= opts.Ticks; i++ {
		res := sess.Tick(start.Add(time.Duration(i) * sc.Interval))
		if res.Trade != nil {
			fills++
		}
	}
	st, err := sess.Export()
	if err != nil {
		return ReplayResult{}, err
	}
	return ReplayResult{Snapshot: sess.Snapshot(), State: st, Fills: fills}, nil
}
