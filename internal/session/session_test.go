package session

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"tradesim/internal/bot"
	"tradesim/internal/ledger"
	"tradesim/internal/market"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func flatConfig() Config {
	cfg := DefaultConfig()
	cfg.SeedPoints = 0
	return cfg
}

func newSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	s, err := New(cfg, t0)
	require.NoError(t, err)
	return s
}

func TestNewSeedsSeries(t *testing.T) {
	s := newSession(t, DefaultConfig())
	pts := s.Series()
	require.Len(t, pts, market.DefaultSeedPoints)
	assert.Equal(t, t0.Add(-60*time.Second), pts[0].Time)
	assert.Equal(t, t0.Add(-time.Second), pts[len(pts)-1].Time)
	assert.True(t, s.Price().Equal(pts[len(pts)-1].Price))
	assert.Equal(t, bot.StatusIdle, s.Snapshot().Bot.Status)
}

func TestManualBuyAndSell(t *testing.T) {
	s := newSession(t, flatConfig())
	require.Equal(t, "42500", s.Price().String())

	buy, err := s.ManualTrade(ledger.SideBuy, d("0.1"), t0)
	require.NoError(t, err)
	assert.Equal(t, ledger.NoteManual, buy.Note)
	assert.Equal(t, ledger.StatusFilled, buy.Status)

	snap := s.Snapshot()
	assert.Equal(t, "5745.75", snap.CashBalance.String())
	assert.Equal(t, "0.1", snap.AssetHoldings.String())
	assert.Equal(t, "42500", snap.EntryPrice.String())
	assert.Equal(t, "4250", snap.PositionValue.String())
	assert.Equal(t, "-4.25", snap.TotalProfit.String())
	assert.Equal(t, 1, snap.TradeCount)
	assert.Equal(t, 0, snap.WinRatePct)

	_, err = s.ManualTrade(ledger.SideSell, d("0.2"), t0)
	assert.ErrorIs(t, err, ledger.ErrInsufficientHoldings)
	_, err = s.ManualTrade(ledger.SideBuy, d("0"), t0)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = s.ManualTrade(ledger.SideBuy, d("1"), t0)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	after := s.Snapshot()
	assert.Equal(t, "5745.75", after.CashBalance.String())
	assert.Equal(t, 1, after.TradeCount)
}

func TestHistoryAndSeriesStayBounded(t *testing.T) {
	s := newSession(t, DefaultConfig())
	for i := 0; i < 60; i++ {
		_, err := s.ManualTrade(ledger.SideBuy, d("0.001"), t0)
		require.NoError(t, err)
	}
	for i := 1; i <= 150; i++ {
		s.Tick(t0.Add(time.Duration(i) * time.Second))
	}
	snap := s.Snapshot()
	assert.Equal(t, 50, snap.TradeCount)
	assert.Len(t, snap.Trades, 10)
	assert.Len(t, s.Trades(0), 50)
	assert.Len(t, s.Series(), 100)
	assert.Equal(t, uint64(150), snap.Tick)
	assert.Equal(t, t0.Add(150*time.Second), snap.Time)
}

func TestTickAppendsPoint(t *testing.T) {
	s := newSession(t, flatConfig())
	res := s.Tick(t0.Add(time.Second))
	assert.Equal(t, uint64(1), res.Tick)
	assert.True(t, res.Point.Price.Equal(s.Price()))
	assert.Len(t, s.Series(), 1)
	assert.Equal(t, bot.StateIdle, res.Bot.State)
	assert.Nil(t, res.Trade)
}

func TestBotUpdates(t *testing.T) {
	s := newSession(t, flatConfig())

	err := s.SetThresholds(d("0"), d("2"))
	assert.ErrorIs(t, err, ErrInvalidThreshold)
	err = s.SetThresholds(d("3"), d("-1"))
	assert.ErrorIs(t, err, ErrInvalidThreshold)
	assert.Equal(t, "1.5", s.Snapshot().Bot.TakeProfitPct.String())

	require.NoError(t, s.SetThresholds(d("3"), d("4")))
	view := s.Snapshot().Bot
	assert.Equal(t, "3", view.TakeProfitPct.String())
	assert.Equal(t, "4", view.StopLossPct.String())

	on := true
	tp := d("2.5")
	require.NoError(t, s.ApplyBotUpdate(BotUpdate{Active: &on, TakeProfitPct: &tp}))
	view = s.Snapshot().Bot
	assert.True(t, view.Active)
	assert.Equal(t, bot.StatusActive, view.Status)
	assert.Equal(t, "2.5", view.TakeProfitPct.String())

	s.SetBotActive(false)
	assert.Equal(t, bot.StatusStopped, s.Snapshot().Bot.Status)
}

func TestSizeOrder(t *testing.T) {
	s := newSession(t, flatConfig())
	qty, err := s.SizeOrder(ledger.SideBuy, d("0.5"))
	require.NoError(t, err)
	assert.Equal(t, "0.11647", qty.String())

	qty, err = s.SizeOrder(ledger.SideSell, d("1"))
	require.NoError(t, err)
	assert.True(t, qty.IsZero())
}

func TestFullSellAfterFractionalBuyLetsBotScanAgain(t *testing.T) {
	cfg := flatConfig()
	cfg.BotEnabled = true
	s := newSession(t, cfg)

	qty := s.Snapshot().CashBalance.Mul(d("0.5")).Div(s.Price())
	_, err := s.ManualTrade(ledger.SideBuy, qty, t0)
	require.NoError(t, err)

	sell, err := s.SizeOrder(ledger.SideSell, d("1"))
	require.NoError(t, err)
	_, err = s.ManualTrade(ledger.SideSell, sell, t0)
	require.NoError(t, err)
	require.True(t, s.Snapshot().AssetHoldings.IsZero(), s.Snapshot().AssetHoldings.String())

	res := s.Tick(t0.Add(time.Second))
	assert.Equal(t, bot.StateScanning, res.Bot.State)
}

func runTicks(s *Session, from, n int) {
	for i := from; i < from+n; i++ {
		s.Tick(t0.Add(time.Duration(i) * time.Second))
	}
}

func exportJSON(t *testing.T, s *Session) string {
	t.Helper()
	st, err := s.Export()
	require.NoError(t, err)
	raw, err := json.Marshal(st)
	require.NoError(t, err)
	return string(raw)
}

func TestExportRestoreReplaysIdentically(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.BotEnabled = true
	s := newSession(t, cfg)
	runTicks(s, 1, 40)
	_, err := s.ManualTrade(ledger.SideBuy, d("0.05"), t0.Add(40*time.Second))
	require.NoError(t, err)

	raw := exportJSON(t, s)
	st, err := DecodeState([]byte(raw))
	require.NoError(t, err)
	restored, err := Restore(cfg, st)
	require.NoError(t, err)
	require.JSONEq(t, raw, exportJSON(t, restored))

	runTicks(s, 41, 200)
	runTicks(restored, 41, 200)

	assert.JSONEq(t, exportJSON(t, s), exportJSON(t, restored))
	a, err := json.Marshal(s.Snapshot())
	require.NoError(t, err)
	b, err := json.Marshal(restored.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestSameSeedSameWalk(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 7
	a := newSession(t, cfg)
	b := newSession(t, cfg)
	runTicks(a, 1, 50)
	runTicks(b, 1, 50)
	assert.True(t, a.Price().Equal(b.Price()))
}

func TestDecodeStateRejectsBadPayloads(t *testing.T) {
	s := newSession(t, flatConfig())
	good := exportJSON(t, s)

	cases := map[string]string{
		"empty":          "",
		"not json":       "{version: 1",
		"wrong version":  strings.Replace(good, `"version":1`, `"version":9`, 1),
		"negative cash":  strings.Replace(good, `"cash":"10000"`, `"cash":"-5"`, 1),
		"missing series": strings.Replace(good, `"series":`, `"seriez":`, 1),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeState([]byte(payload))
			assert.ErrorIs(t, err, ErrSnapshotInvalid)
		})
	}
}

func TestRestoreRejectsCorruptState(t *testing.T) {
	s := newSession(t, flatConfig())
	st, err := s.Export()
	require.NoError(t, err)

	bad := st
	bad.RandState = "not-base64!"
	_, err = Restore(flatConfig(), bad)
	assert.ErrorIs(t, err, ErrSnapshotInvalid)

	bad = st
	bad.Price = decimal.Zero
	_, err = Restore(flatConfig(), bad)
	assert.ErrorIs(t, err, ErrSnapshotInvalid)

	bad = st
	bad.SessionID = "nope"
	_, err = Restore(flatConfig(), bad)
	assert.ErrorIs(t, err, ErrSnapshotInvalid)
}

func TestEncodeYAML(t *testing.T) {
	s := newSession(t, flatConfig())
	_, err := s.ManualTrade(ledger.SideBuy, d("0.1"), t0)
	require.NoError(t, err)
	st, err := s.Export()
	require.NoError(t, err)

	out, err := EncodeYAML(st)
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "session_id: "+s.ID().String())
	assert.Contains(t, text, "cash: \"5745.75\"")
	assert.Contains(t, text, "note: Manual Trade")
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.SeedPoints = 101
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.InitialPrice = decimal.Zero
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.DisplayLimit = 60
	assert.Error(t, bad.Validate())

	_, err := New(bad, t0)
	assert.Error(t, err)
}
