package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "BTC/USD", cfg.Market.Symbol)
	assert.True(t, cfg.Chart.Enabled)
	assert.False(t, cfg.Bot.Enabled)

	missing, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, cfg, missing)

	sc, err := cfg.SessionConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Second, sc.Interval)
	assert.Equal(t, "42500", sc.InitialPrice.String())
	assert.Equal(t, "10000", sc.StartingCash.String())
	assert.Equal(t, "0.001", sc.FeeRate.String())
	assert.Equal(t, "1.5", sc.Bot.TakeProfitPct.String())
	assert.Equal(t, "2", sc.Bot.StopLossPct.String())
	assert.Equal(t, 60, sc.SeedPoints)
	require.NoError(t, sc.Validate())
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
market:
  symbol: btc-usd
  seed: 9
  interval: 500ms
bot:
  take_profit_pct: 2
`)
	main := writeFile(t, dir, "config.yaml", `
include:
  - base.yaml
bot:
  enabled: true
  take_profit_pct: 3
chart:
  enabled: false
ledger:
  fee_rate: 0
`)
	cfg, err := Load(main)
	require.NoError(t, err)
	assert.Equal(t, "btc-usd", cfg.Market.Symbol)
	assert.Equal(t, uint64(9), cfg.Market.Seed)
	assert.Equal(t, 3.0, cfg.Bot.TakeProfitPct)
	assert.True(t, cfg.Bot.Enabled)
	assert.False(t, cfg.Chart.Enabled, "explicit false must survive defaults")
	assert.Equal(t, 0.0, cfg.Ledger.FeeRate)
	assert.Equal(t, 10, cfg.Chart.SMAPeriod)

	sc, err := cfg.SessionConfig()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, sc.Interval)
	assert.True(t, sc.FeeRate.IsZero())
	assert.True(t, sc.BotEnabled)
	assert.Equal(t, "BTC/USD", sc.Symbol)
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"interval":  "market:\n  interval: soon\n",
		"log level": "app:\n  log_level: loud\n",
		"telegram":  "notify:\n  telegram:\n    enabled: true\n",
		"seed pts":  "market:\n  seed_points: 500\n",
		"fee":       "ledger:\n  fee_rate: 1.5\n",
		"journal":   "journal:\n  enabled: true\n  path: \"\"\n",
		"symbol":    "market:\n  symbol: bitcoin\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(p)
			assert.Error(t, err)
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvPath, "/etc/tradesim.yaml")
	assert.Equal(t, "flag.yaml", ResolvePath(" flag.yaml "))
	assert.Equal(t, "/etc/tradesim.yaml", ResolvePath(""))
}

func TestWatcherReloadNotifiesListeners(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", "bot:\n  take_profit_pct: 1.5\n")
	w, err := NewWatcher(p)
	require.NoError(t, err)

	var got []*Config
	w.Subscribe(func(c *Config) { got = append(got, c) })

	writeFile(t, dir, "config.yaml", "bot:\n  take_profit_pct: 4\n  stop_loss_pct: 1\n")
	require.NoError(t, w.reload())
	require.Len(t, got, 1)
	assert.Equal(t, 4.0, w.Current().Bot.TakeProfitPct)

	upd := got[0].BotUpdate()
	assert.Nil(t, upd.Active)
	assert.Equal(t, "4", upd.TakeProfitPct.String())
	assert.Equal(t, "1", upd.StopLossPct.String())

	writeFile(t, dir, "config.yaml", "market:\n  interval: never\n")
	assert.Error(t, w.reload())
	assert.Len(t, got, 1)
	assert.Equal(t, 4.0, w.Current().Bot.TakeProfitPct)
}
