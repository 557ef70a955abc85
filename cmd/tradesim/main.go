package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tradesim/internal/app"
	"tradesim/internal/config"
	"tradesim/internal/logger"
	"tradesim/internal/session"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tradesim",
		Short:         "Simulated BTC/USD paper-trading desk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $"+config.EnvPath+", else built-in defaults)")
	root.AddCommand(newServeCmd(), newReplayCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the desk with its HTTP and websocket surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ResolvePath(cfgFile)
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logFile, err := setupLogOutput(cfg.App.LogPath)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			if logFile != nil {
				defer logFile.Close()
			}
			logger.SetLevel(cfg.App.LogLevel)
			logger.Infof("✓ config loaded (env=%s, file=%q)", cfg.App.Env, path)

			var watcher *config.Watcher
			if path != "" {
				if _, statErr := os.Stat(path); statErr == nil {
					if watcher, err = config.NewWatcher(path); err != nil {
						return err
					}
				}
			}

			a, err := app.NewApp(cfg, watcher)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Run(ctx)
		},
	}
}

func newReplayCmd() *cobra.Command {
	var (
		ticks  int
		from   string
		start  string
		format string
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run ticks headless from the configured seed and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.ResolvePath(cfgFile))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.SetLevel(cfg.App.LogLevel)
			logger.SetOutput(cmd.ErrOrStderr())

			opts := app.ReplayOptions{Ticks: ticks}
			if from != "" {
				raw, err := os.ReadFile(from)
				if err != nil {
					return err
				}
				st, err := session.DecodeState(raw)
				if err != nil {
					return err
				}
				opts.State = &st
			} else {
				opts.Start, err = time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
			}

			res, err := app.Replay(cfg, opts)
			if err != nil {
				return err
			}
			logger.Infof("replay done: %d ticks, %d bot fills", ticks, res.Fills)
			return writeReplay(cmd.OutOrStdout(), format, res)
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 600, "number of ticks to run")
	cmd.Flags().StringVar(&from, "from", "", "continue from an exported JSON session")
	cmd.Flags().StringVar(&start, "start", "2024-01-01T00:00:00Z", "session start time (RFC3339) when not using --from")
	cmd.Flags().StringVar(&format, "format", "snapshot", "output: snapshot (json), json or yaml (full session export)")
	return cmd
}

func writeReplay(w io.Writer, format string, res app.ReplayResult) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "snapshot":
		return writeJSON(w, res.Snapshot)
	case "json":
		return writeJSON(w, res.State)
	case "yaml":
		out, err := session.EncodeYAML(res.State)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unknown --format %q", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

