// Package desk runs the trading session behind a single event loop. Ticks,
// manual orders and bot changes are applied strictly in arrival order; readers
// get the last published view without entering the loop.
package desk

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"tradesim/internal/ledger"
	"tradesim/internal/logger"
	"tradesim/internal/market"
	"tradesim/internal/session"

	"github.com/shopspring/decimal"
)

var ErrStopped = errors.New("desk is stopped")

const (
	defaultQueueSize = 100
	slowEventWarn    = 100 * time.Millisecond
)

// view is the immutable read model swapped in after every change.
type view struct {
	snapshot session.Snapshot
	series   []market.Point
	trades   []ledger.Trade
}

type Desk struct {
	sess     *session.Session
	sessCfg  session.Config
	registry *HandlerRegistry

	snapshotSinks []SnapshotSink
	seriesSinks   []SeriesSink
	fillObs       []FillObserver
	tickObs       []TickObserver

	msgCh  chan EventEnvelope
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	published atomic.Value
	nowFn     func() time.Time
}

type Option func(*Desk)

func WithSnapshotSink(s SnapshotSink) Option {
	return func(d *Desk) {
		if s != nil {
			d.snapshotSinks = append(d.snapshotSinks, s)
		}
	}
}

func WithSeriesSink(s SeriesSink) Option {
	return func(d *Desk) {
		if s != nil {
			d.seriesSinks = append(d.seriesSinks, s)
		}
	}
}

func WithFillObserver(o FillObserver) Option {
	return func(d *Desk) {
		if o != nil {
			d.fillObs = append(d.fillObs, o)
		}
	}
}

func WithTickObserver(o TickObserver) Option {
	return func(d *Desk) {
		if o != nil {
			d.tickObs = append(d.tickObs, o)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Desk) {
		if now != nil {
			d.nowFn = now
		}
	}
}

func WithQueueSize(n int) Option {
	return func(d *Desk) {
		if n > 0 {
			d.msgCh = make(chan EventEnvelope, n)
		}
	}
}

// New wraps sess. cfg is used to rebuild the session on import.
func New(sess *session.Session, cfg session.Config, opts ...Option) (*Desk, error) {
	if sess == nil {
		return nil, fmt.Errorf("desk requires a session")
	}
	reg := NewHandlerRegistry()
	reg.RegisterDefaultHandlers()

	d := &Desk{
		sess:     sess,
		sessCfg:  cfg,
		registry: reg,
		msgCh:    make(chan EventEnvelope, defaultQueueSize),
		stopCh:   make(chan struct{}),
		nowFn:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.refreshView()
	return d, nil
}

func (d *Desk) Start() {
	d.wg.Add(1)
	go d.runLoop()
}

// Stop ends the loop. Queued events are dropped.
func (d *Desk) Stop() {
	d.once.Do(func() { close(d.stopCh) })
	d.wg.Wait()
}

func (d *Desk) Send(evt EventEnvelope) error {
	select {
	case <-d.stopCh:
		return ErrStopped
	default:
	}
	select {
	case d.msgCh <- evt:
		return nil
	case <-d.stopCh:
		return ErrStopped
	}
}

// SendSync enqueues evt and waits for its handler result.
func (d *Desk) SendSync(ctx context.Context, evt EventEnvelope) (any, error) {
	if evt.ReplyCh == nil {
		evt.ReplyCh = make(chan Reply, 1)
	}
	if err := d.Send(evt); err != nil {
		return nil, err
	}
	select {
	case r := <-evt.ReplyCh:
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.stopCh:
		return nil, fmt.Errorf("desk stopped during sync call: %w", ErrStopped)
	}
}

func (d *Desk) runLoop() {
	defer d.wg.Done()
	logger.Infof("Desk actor started")
	for {
		select {
		case evt := <-d.msgCh:
			d.handleEvent(evt)
		case <-d.stopCh:
			logger.Infof("Desk actor stopping")
			return
		}
	}
}

// handleEvent runs one handler. A panicking handler is reported to the caller
// as an error and the loop keeps going.
func (d *Desk) handleEvent(evt EventEnvelope) {
	var (
		value any
		err   error
	)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Desk panic handling event %s: %v\n%s", evt.Type, r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
			value = nil
		}
		if evt.ReplyCh != nil {
			evt.ReplyCh <- Reply{Value: value, Err: err}
			close(evt.ReplyCh)
		}
		if dur := time.Since(start); dur > slowEventWarn {
			logger.Warnf("Slow event %s took %v", evt.Type, dur)
		}
	}()

	handler, ok := d.registry.Get(evt.Type)
	if !ok {
		err = fmt.Errorf("no handler registered for event type %s", evt.Type)
		logger.Warnf("%v", err)
		return
	}
	value, err = handler.Handle(NewHandlerContext(d), evt.Payload, evt.ID)
	if err != nil {
		logger.Debugf("Desk %s (%s) failed: %v", evt.Type, evt.ID, err)
	}
}

func (d *Desk) handleTick(p TickPayload) (session.TickResult, error) {
	res := d.sess.Tick(p.At)
	if res.Trade != nil {
		logger.Infof("Bot %s %s %s @ %s (%s)", res.Bot.Reason, res.Trade.Side,
			res.Trade.Quantity.StringFixed(8), res.Trade.Price.StringFixed(2), res.Bot.Status)
		d.notifyFill(Fill{Trade: *res.Trade, Source: SourceBot, Symbol: d.sessCfg.Symbol})
	}
	evt := TickEvent{Tick: res.Tick, Point: res.Point, BotStatus: res.Bot.Status, Trade: res.Trade}
	for _, o := range d.tickObs {
		o.OnTick(evt)
	}
	d.publish(true)
	return res, nil
}

func (d *Desk) handleManualTrade(p ManualTradePayload, traceID string) (ledger.Trade, error) {
	trade, err := d.sess.ManualTrade(p.Side, p.Quantity, d.nowFn())
	if err != nil {
		return ledger.Trade{}, err
	}
	logger.Infof("Manual %s %s @ %s trace=%s", trade.Side, trade.Quantity.StringFixed(8), trade.Price.StringFixed(2), traceID)
	d.notifyFill(Fill{Trade: trade, Source: SourceManual, Symbol: d.sessCfg.Symbol})
	d.publish(false)
	return trade, nil
}

func (d *Desk) handleBotUpdate(u session.BotUpdate) (session.BotView, error) {
	if err := d.sess.ApplyBotUpdate(u); err != nil {
		return session.BotView{}, err
	}
	d.publish(false)
	return d.sess.Snapshot().Bot, nil
}

func (d *Desk) handleImport(st session.State) error {
	restored, err := session.Restore(d.sessCfg, st)
	if err != nil {
		return err
	}
	d.sess = restored
	logger.Infof("Desk: imported session %s at tick %d", st.SessionID, st.Tick)
	d.publish(true)
	return nil
}

func (d *Desk) notifyFill(f Fill) {
	for _, o := range d.fillObs {
		o.OnFill(f)
	}
}

// publish swaps the read model and pushes it to the sinks. The series only
// changes on ticks and imports.
func (d *Desk) publish(seriesChanged bool) {
	v := d.refreshView()
	for _, s := range d.snapshotSinks {
		s.Publish(v.snapshot)
	}
	if !seriesChanged {
		return
	}
	for _, s := range d.seriesSinks {
		s.Render(v.series)
	}
}

func (d *Desk) refreshView() *view {
	v := &view{
		snapshot: d.sess.Snapshot(),
		series:   d.sess.Series(),
		trades:   d.sess.Trades(0),
	}
	d.published.Store(v)
	return v
}

func (d *Desk) loadView() *view {
	return d.published.Load().(*view)
}

// Snapshot returns the last published display payload.
func (d *Desk) Snapshot() session.Snapshot {
	return d.loadView().snapshot
}

func (d *Desk) Series() []market.Point {
	src := d.loadView().series
	out := make([]market.Point, len(src))
	copy(out, src)
	return out
}

// Trades returns up to limit fills from the last published view, newest
// first. limit <= 0 returns all retained fills.
func (d *Desk) Trades(limit int) []ledger.Trade {
	src := d.loadView().trades
	n := len(src)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]ledger.Trade, n)
	copy(out, src[:n])
	return out
}

// Tick enqueues one price step. It blocks while the queue is full so no
// scheduled step is lost.
func (d *Desk) Tick(at time.Time) error {
	return d.Send(EventEnvelope{
		ID:        newEventID("tick"),
		Type:      EvtTick,
		Payload:   TickPayload{At: at},
		CreatedAt: d.nowFn(),
	})
}

func (d *Desk) ManualTrade(ctx context.Context, side ledger.Side, qty decimal.Decimal) (ledger.Trade, error) {
	v, err := d.SendSync(ctx, EventEnvelope{
		ID:        newEventID("manual"),
		Type:      EvtManualTrade,
		Payload:   ManualTradePayload{Side: side, Quantity: qty},
		CreatedAt: d.nowFn(),
	})
	if err != nil {
		return ledger.Trade{}, err
	}
	return v.(ledger.Trade), nil
}

func (d *Desk) SizeOrder(ctx context.Context, side ledger.Side, pct decimal.Decimal) (decimal.Decimal, error) {
	v, err := d.SendSync(ctx, EventEnvelope{
		ID:        newEventID("size"),
		Type:      EvtSizeOrder,
		Payload:   SizeOrderPayload{Side: side, Percent: pct},
		CreatedAt: d.nowFn(),
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

func (d *Desk) UpdateBot(ctx context.Context, u session.BotUpdate) (session.BotView, error) {
	v, err := d.SendSync(ctx, EventEnvelope{
		ID:        newEventID("bot"),
		Type:      EvtBotUpdate,
		Payload:   u,
		CreatedAt: d.nowFn(),
	})
	if err != nil {
		return session.BotView{}, err
	}
	return v.(session.BotView), nil
}

func (d *Desk) Export(ctx context.Context) (session.State, error) {
	v, err := d.SendSync(ctx, EventEnvelope{
		ID:        newEventID("export"),
		Type:      EvtExport,
		CreatedAt: d.nowFn(),
	})
	if err != nil {
		return session.State{}, err
	}
	return v.(session.State), nil
}

func (d *Desk) Import(ctx context.Context, st session.State) error {
	_, err := d.SendSync(ctx, EventEnvelope{
		ID:        newEventID("import"),
		Type:      EvtImport,
		Payload:   st,
		CreatedAt: d.nowFn(),
	})
	return err
}
