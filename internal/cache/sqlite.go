package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"sentinel-signals/internal/model"
)

// DefaultMaxBars is the per (symbol, timeframe) retention of a new SQLiteCache.
const DefaultMaxBars = 1000

// SQLiteCache persists bars and market context to a SQLite database.
type SQLiteCache struct {
	// MaxBars is how many of the newest bars Save keeps per (symbol, timeframe).
	// Zero or less disables pruning.
	MaxBars int

	db  *sql.DB
	mu  sync.Mutex
	log logrus.FieldLogger
}

// NewSQLiteCache opens (or creates) the SQLite database and runs migrations.
func NewSQLiteCache(dbPath string, log logrus.FieldLogger) (*SQLiteCache, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the report readers run while a cycle writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	c := &SQLiteCache{MaxBars: DefaultMaxBars, db: db, log: log}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("path", dbPath).Info("sqlite cache opened")
	return c, nil
}

func (c *SQLiteCache) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS klines (
			symbol    TEXT    NOT NULL,
			timeframe TEXT    NOT NULL,
			ts        INTEGER NOT NULL,
			open      REAL,
			high      REAL,
			low       REAL,
			close     REAL,
			volume    REAL,
			PRIMARY KEY (symbol, timeframe, ts)
		)`,

		`CREATE TABLE IF NOT EXISTS market_meta (
			symbol        TEXT NOT NULL,
			timeframe     TEXT NOT NULL,
			exchange      TEXT,
			funding_rate  REAL,
			open_interest REAL,
			spot_last     REAL,
			spot_bid      REAL,
			spot_ask      REAL,
			spot_volume   REAL,
			fetched_at    INTEGER,
			PRIMARY KEY (symbol, timeframe)
		)`,
	}

	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Save upserts every bar, prunes bars beyond MaxBars and replaces the market
// context row, all in one transaction.
func (c *SQLiteCache) Save(series *model.MarketSeries) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO klines
		(symbol, timeframe, ts, open, high, low, close, volume)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare klines: %w", err)
	}
	defer stmt.Close()

	for _, b := range series.Bars {
		if _, err := stmt.Exec(series.Symbol, series.Timeframe, b.Time.UnixMilli(),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("insert kline: %w", err)
		}
	}

	if c.MaxBars > 0 {
		res, err := tx.Exec(`DELETE FROM klines
			WHERE symbol = ? AND timeframe = ? AND ts < (
				SELECT ts FROM klines WHERE symbol = ? AND timeframe = ?
				ORDER BY ts DESC LIMIT 1 OFFSET ?)`,
			series.Symbol, series.Timeframe, series.Symbol, series.Timeframe, c.MaxBars-1)
		if err != nil {
			return fmt.Errorf("prune klines: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			c.log.WithFields(logrus.Fields{
				"symbol": series.Symbol, "timeframe": series.Timeframe, "pruned": n,
			}).Debug("old bars pruned")
		}
	}

	var spotLast, spotBid, spotAsk, spotVol sql.NullFloat64
	if series.Spot != nil {
		spotLast = sql.NullFloat64{Float64: series.Spot.Last, Valid: true}
		spotBid = sql.NullFloat64{Float64: series.Spot.Bid, Valid: true}
		spotAsk = sql.NullFloat64{Float64: series.Spot.Ask, Valid: true}
		spotVol = sql.NullFloat64{Float64: series.Spot.Volume, Valid: true}
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO market_meta
		(symbol, timeframe, exchange, funding_rate, open_interest,
		 spot_last, spot_bid, spot_ask, spot_volume, fetched_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		series.Symbol, series.Timeframe, series.Exchange, series.FundingRate, series.OpenInterest,
		spotLast, spotBid, spotAsk, spotVol, series.FetchedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("upsert market_meta: %w", err)
	}

	return tx.Commit()
}

// Load returns the newest limit bars plus the last saved context. limit <= 0 loads everything.
func (c *SQLiteCache) Load(symbol, timeframe string, limit int) (*model.MarketSeries, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := c.db.Query(`SELECT ts, open, high, low, close, volume FROM klines
		WHERE symbol = ? AND timeframe = ?
		ORDER BY ts DESC LIMIT ?`, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("query klines: %w", err)
	}
	defer rows.Close()

	var bars []model.OHLCV
	for rows.Next() {
		var ts int64
		var b model.OHLCV
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan kline: %w", err)
		}
		b.Time = time.UnixMilli(ts).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate klines: %w", err)
	}
	if len(bars) == 0 {
		return nil, ErrMiss
	}
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	series := &model.MarketSeries{Symbol: symbol, Timeframe: timeframe, Bars: bars}

	var exchange sql.NullString
	var funding, oi, spotLast, spotBid, spotAsk, spotVol sql.NullFloat64
	var fetchedAt sql.NullInt64
	err = c.db.QueryRow(`SELECT exchange, funding_rate, open_interest,
		spot_last, spot_bid, spot_ask, spot_volume, fetched_at
		FROM market_meta WHERE symbol = ? AND timeframe = ?`, symbol, timeframe).
		Scan(&exchange, &funding, &oi, &spotLast, &spotBid, &spotAsk, &spotVol, &fetchedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return series, nil
	case err != nil:
		return nil, fmt.Errorf("query market_meta: %w", err)
	}

	series.Exchange = exchange.String
	series.FundingRate = funding.Float64
	series.OpenInterest = oi.Float64
	if spotLast.Valid {
		series.Spot = &model.Ticker{
			Last: spotLast.Float64, Bid: spotBid.Float64, Ask: spotAsk.Float64, Volume: spotVol.Float64,
		}
	}
	if fetchedAt.Valid && fetchedAt.Int64 > 0 {
		series.FetchedAt = time.UnixMilli(fetchedAt.Int64).UTC()
	}
	return series, nil
}

func (c *SQLiteCache) Close() error {
	c.log.Info("closing sqlite cache")
	return c.db.Close()
}
