// Package app wires the desk, its sinks and the outer surfaces together and
// runs them under one errgroup.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"tradesim/internal/config"
	"tradesim/internal/desk"
	"tradesim/internal/logger"
	"tradesim/internal/notifier"
	"tradesim/internal/scheduler"
	livehttp "tradesim/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg      *config.Config
	desk     *desk.Desk
	interval time.Duration
	liveHTTP *livehttp.Server
	fills    *notifier.FillNotifier
	watcher  *config.Watcher
	closers  []io.Closer
	Summary  *StartupSummary
}

// NewApp builds the application without starting it. watcher may be nil.
func NewApp(cfg *config.Config, watcher *config.Watcher) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg, watcher)
}

// Run starts the desk, the tick scheduler and every enabled surface, and
// blocks until ctx is done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.desk == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}

	a.desk.Start()
	defer a.close()

	group, ctx := errgroup.WithContext(ctx)

	if a.liveHTTP != nil {
		group.Go(func() error {
			if err := a.liveHTTP.Start(ctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}
	if a.fills != nil {
		group.Go(func() error {
			return a.fills.Run(ctx)
		})
	}
	if a.watcher != nil {
		a.watcher.Subscribe(func(c *config.Config) {
			view, err := a.desk.UpdateBot(ctx, c.BotUpdate())
			if err != nil {
				logger.Warnf("config reload: bot thresholds not applied: %v", err)
				return
			}
			logger.Infof("config reload: take_profit=%s%% stop_loss=%s%%", view.TakeProfitPct, view.StopLossPct)
		})
		a.watcher.Start()
	}

	group.Go(func() error {
		s := scheduler.NewIntervalScheduler(ctx, a.interval)
		s.Name = "tick"
		s.Start(func(at time.Time) {
			if err := a.desk.Tick(at); err != nil {
				logger.Warnf("tick at %s not enqueued: %v", at.Format(time.RFC3339Nano), err)
			}
		})
		return nil
	})

	return group.Wait()
}

// Desk exposes the running desk, for tests and replay harnesses.
func (a *App) Desk() *desk.Desk {
	if a == nil {
		return nil
	}
	return a.desk
}

// close stops the loop before the stores so no observer writes to a closed db.
func (a *App) close() {
	a.desk.Stop()
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logger.Warnf("close: %v", err)
		}
	}
}
