// Package journal is a write-only audit log of fills kept in sqlite via gorm.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradesim/internal/desk"
	"tradesim/internal/logger"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const writeTimeout = 2 * time.Second

type Journal struct {
	db    *gorm.DB
	nowFn func() time.Time
}

func Open(path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&FillModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Journal{db: db, nowFn: time.Now}, nil
}

// RecordFill inserts f. A trade id already present is ignored, so replaying
// an imported session does not duplicate rows.
func (j *Journal) RecordFill(ctx context.Context, f desk.Fill) error {
	raw, err := json.Marshal(f.Trade)
	if err != nil {
		return err
	}
	rec := FillModel{
		TradeID:     f.Trade.ID,
		Symbol:      f.Symbol,
		Source:      string(f.Source),
		Side:        string(f.Trade.Side),
		Price:       f.Trade.Price.String(),
		Quantity:    f.Trade.Quantity.String(),
		Notional:    f.Trade.Notional.String(),
		Fee:         f.Trade.Fee.String(),
		Note:        f.Trade.Note,
		ExecutedAt:  f.Trade.Time.UnixMilli(),
		RawData:     datatypes.JSON(raw),
		CreatedUnix: j.nowFn().UnixMilli(),
	}
	return j.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "trade_id"}}, DoNothing: true}).
		Create(&rec).Error
}

// OnFill runs on the desk loop; failures are logged and never reach the session.
func (j *Journal) OnFill(f desk.Fill) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := j.RecordFill(ctx, f); err != nil {
		logger.Warnf("journal: record fill %s failed: %v", f.Trade.ID, err)
	}
}

// List returns up to limit fills, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]FillModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []FillModel
	err := j.db.WithContext(ctx).Order("executed_at desc, id desc").Limit(limit).Find(&out).Error
	return out, err
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
