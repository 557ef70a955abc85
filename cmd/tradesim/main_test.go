package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"tradesim/internal/config"
	"tradesim/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile = ""
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestReplayPrintsSnapshot(t *testing.T) {
	t.Setenv(config.EnvPath, "")
	out, err := runCLI(t, "replay", "--ticks", "25")
	require.NoError(t, err)

	var snap session.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, uint64(25), snap.Tick)
	assert.Equal(t, "BTC/USD", snap.Symbol)
}

func TestReplayContinuesFromExport(t *testing.T) {
	t.Setenv(config.EnvPath, "")
	exported, err := runCLI(t, "replay", "--ticks", "10", "--format", "json")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(exported), 0o644))

	out, err := runCLI(t, "replay", "--ticks", "5", "--from", path)
	require.NoError(t, err)
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, uint64(15), snap.Tick)
}

func TestReplayRejectsBadFlags(t *testing.T) {
	t.Setenv(config.EnvPath, "")
	_, err := runCLI(t, "replay", "--format", "xml", "--ticks", "1")
	assert.Error(t, err)
	_, err = runCLI(t, "replay", "--start", "yesterday")
	assert.Error(t, err)
}
