package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"MarketLens/internal/domain/models"
	pkgch "MarketLens/pkg/clickhouse"
	applogger "MarketLens/pkg/logger"
)

const barsTable = "marketlens.daily_bars"

// BarArchiveSchema creates the archive table. ReplacingMergeTree keyed by
// (symbol, ts) collapses re-fetched days to the newest row.
var BarArchiveSchema = []string{
	`CREATE DATABASE IF NOT EXISTS marketlens`,
	`CREATE TABLE IF NOT EXISTS ` + barsTable + ` (
        symbol   String,
        ts       DateTime,
        open     Float64,
        high     Float64,
        low      Float64,
        close    Float64,
        volume   Int64,
        ingested DateTime DEFAULT now()
    ) ENGINE = ReplacingMergeTree(ingested)
    ORDER BY (symbol, ts)`,
}

// CHBarArchive implements domain.repository.BarArchive on ClickHouse.
// Writes are best-effort by contract; callers log and move on.
type CHBarArchive struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHBarArchive(ch *pkgch.Client) *CHBarArchive {
	return &CHBarArchive{db: ch.DB(), l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (a *CHBarArchive) SetLogger(l *applogger.Logger) { a.l = l }

// InsertSeries archives every bar of a fetched series.
func (a *CHBarArchive) InsertSeries(ctx context.Context, series models.PriceSeries) error {
	if len(series.Points) == 0 {
		return nil
	}

	start := time.Now()
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+barsTable+` (symbol, ts, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range series.Points {
		if _, err := stmt.ExecContext(ctx, series.Meta.Symbol, p.Timestamp, p.Open, p.High, p.Low, p.Close, p.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert bar: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}

	a.l.Debug("bars archived",
		applogger.String("symbol", series.Meta.Symbol),
		applogger.Int("rows", len(series.Points)),
		applogger.Duration("duration", time.Since(start)),
	)
	return nil
}

// LatestBar returns the most recent archived bar for a symbol.
func (a *CHBarArchive) LatestBar(ctx context.Context, symbol string) (models.PricePoint, bool, error) {
	const q = `
        SELECT ts, open, high, low, close, volume
        FROM ` + barsTable + ` FINAL
        WHERE symbol = ?
        ORDER BY ts DESC
        LIMIT 1
    `

	var p models.PricePoint
	err := a.db.QueryRowContext(ctx, q, symbol).Scan(&p.Timestamp, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume)
	if err == sql.ErrNoRows {
		return models.PricePoint{}, false, nil
	}
	if err != nil {
		a.l.Error("clickhouse latest_bar query error",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return models.PricePoint{}, false, fmt.Errorf("latest bar: %w", err)
	}

	return p, true, nil
}
