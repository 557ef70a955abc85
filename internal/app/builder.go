package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"tradesim/internal/chart"
	"tradesim/internal/config"
	"tradesim/internal/desk"
	"tradesim/internal/display"
	"tradesim/internal/logger"
	"tradesim/internal/notifier"
	"tradesim/internal/pkg/circuit"
	"tradesim/internal/session"
	"tradesim/internal/store/journal"
	"tradesim/internal/store/ticklog"
	livehttp "tradesim/internal/transport/http/live"
)

const (
	telegramBreakerThreshold = 3
	telegramBreakerCooldown  = time.Minute
)

type AppBuilder struct {
	cfg     *config.Config
	watcher *config.Watcher
	nowFn   func() time.Time

	notifierFn func(config.TelegramConfig) notifier.TextNotifier
	journalFn  func(string) (*journal.Journal, error)
	tickLogFn  func(string) (*ticklog.Recorder, error)
	liveHTTPFn func(livehttp.ServerConfig) (*livehttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithNotifier replaces the Telegram client, mainly for tests.
func WithNotifier(fn func(config.TelegramConfig) notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.notifierFn = fn
		}
	}
}

func WithClock(now func() time.Time) AppBuilderOption {
	return func(b *AppBuilder) {
		if now != nil {
			b.nowFn = now
		}
	}
}

func NewAppBuilder(cfg *config.Config, watcher *config.Watcher, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		watcher:    watcher,
		nowFn:      time.Now,
		notifierFn: buildTelegram,
		journalFn:  journal.Open,
		tickLogFn:  ticklog.Open,
		liveHTTPFn: livehttp.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildTelegram(tg config.TelegramConfig) notifier.TextNotifier {
	cb := circuit.NewCircuitBreaker("telegram", telegramBreakerThreshold, telegramBreakerCooldown)
	cb.SetStateChangeHandler(func(name string, from, to circuit.State) {
		logger.Warnf("circuit %s: %s -> %s", name, from, to)
	})
	return notifier.NewTelegram(tg.BotToken, tg.ChatID).WithBreaker(cb)
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	sc, err := cfg.SessionConfig()
	if err != nil {
		return nil, err
	}
	sess, err := session.New(sc, b.nowFn())
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	logger.Infof("✓ session %s started: %s @ %s, cash %s", sess.ID(), sc.Symbol, sess.Price().StringFixed(2), sc.StartingCash)

	var (
		closers []io.Closer
		fills   *notifier.FillNotifier
		chartR  *chart.Renderer
	)
	fail := func(err error) (*App, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}

	hub := display.NewWSHub()
	opts := []desk.Option{
		desk.WithSnapshotSink(display.Multi{hub, display.LogSink{}}),
	}
	if cfg.Chart.Enabled {
		chartR = chart.NewRenderer(chart.Options{
			Symbol:     sc.Symbol,
			SMAPeriod:  cfg.Chart.SMAPeriod,
			PNGEnabled: cfg.Chart.PNGEnabled,
		})
		opts = append(opts, desk.WithSeriesSink(chartR))
	}
	if cfg.Journal.Enabled {
		j, err := b.journalFn(cfg.Journal.Path)
		if err != nil {
			return fail(fmt.Errorf("open journal: %w", err))
		}
		closers = append(closers, j)
		opts = append(opts, desk.WithFillObserver(j))
		logger.Infof("✓ trade journal: %s", cfg.Journal.Path)
	}
	if cfg.TickLog.Enabled {
		r, err := b.tickLogFn(cfg.TickLog.Path)
		if err != nil {
			return fail(fmt.Errorf("open ticklog: %w", err))
		}
		closers = append(closers, r)
		opts = append(opts, desk.WithTickObserver(r))
		logger.Infof("✓ tick log: %s", cfg.TickLog.Path)
	}
	if cfg.Notify.Telegram.Enabled {
		fills = notifier.NewFillNotifier(b.notifierFn(cfg.Notify.Telegram), 0)
		opts = append(opts, desk.WithFillObserver(fills))
		logger.Infof("✓ telegram fill alerts enabled")
	}

	d, err := desk.New(sess, sc, opts...)
	if err != nil {
		return fail(err)
	}

	srvCfg := livehttp.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Desk:      d,
		Stream:    http.HandlerFunc(hub.ServeWS),
		RateLimit: cfg.HTTP.RateLimit,
		Burst:     cfg.HTTP.Burst,
	}
	if chartR != nil {
		srvCfg.Chart = chartR
		// first page is available before the first tick
		chartR.Render(sess.Series())
	}
	srv, err := b.liveHTTPFn(srvCfg)
	if err != nil {
		return fail(fmt.Errorf("build live http: %w", err))
	}

	return &App{
		cfg:      cfg,
		desk:     d,
		interval: sc.Interval,
		liveHTTP: srv,
		fills:    fills,
		watcher:  b.watcher,
		closers:  closers,
		Summary:  newStartupSummary(cfg, sc, sess.ID().String()),
	}, nil
}
