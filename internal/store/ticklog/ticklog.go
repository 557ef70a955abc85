// Package ticklog records every price step into a sqlite file. It is an
// audit output only; nothing reads it back at startup.
package ticklog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradesim/internal/desk"
	"tradesim/internal/logger"

	_ "modernc.org/sqlite"
)

const writeTimeout = 2 * time.Second

type Recorder struct {
	db *sql.DB
}

func Open(path string) (*Recorder, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("ticklog path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Recorder{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ticks (
			tick       INTEGER PRIMARY KEY,
			at         INTEGER NOT NULL,
			price      TEXT NOT NULL,
			bot_status TEXT NOT NULL DEFAULT '',
			trade_id   TEXT NOT NULL DEFAULT '',
			inserted_at INTEGER NOT NULL DEFAULT (strftime('%s','now') * 1000)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_at ON ticks(at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordTick upserts one row per tick number; a tick seen again after an
// import overwrites the earlier row.
func (r *Recorder) RecordTick(ctx context.Context, evt desk.TickEvent) error {
	tradeID := ""
	if evt.Trade != nil {
		tradeID = evt.Trade.ID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ticks (tick, at, price, bot_status, trade_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tick) DO UPDATE SET
		    at=excluded.at,
		    price=excluded.price,
		    bot_status=excluded.bot_status,
		    trade_id=excluded.trade_id`,
		int64(evt.Tick), evt.Point.Time.UnixMilli(), evt.Point.Price.String(), evt.BotStatus, tradeID)
	return err
}

func (r *Recorder) OnTick(evt desk.TickEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.RecordTick(ctx, evt); err != nil {
		logger.Warnf("ticklog: record tick %d failed: %v", evt.Tick, err)
	}
}

func (r *Recorder) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM ticks`).Scan(&n)
	return n, err
}

// LastPrice returns the price string of the highest recorded tick.
func (r *Recorder) LastPrice(ctx context.Context) (uint64, string, error) {
	var (
		tick  int64
		price string
	)
	err := r.db.QueryRowContext(ctx, `SELECT tick, price FROM ticks ORDER BY tick DESC LIMIT 1`).Scan(&tick, &price)
	if err != nil {
		return 0, "", err
	}
	return uint64(tick), price, nil
}

func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
