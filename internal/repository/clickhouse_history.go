package repository

import (
	"context"
	"fmt"

	"QuotePulse/internal/domain/models"
	drepo "QuotePulse/internal/domain/repository"
	"QuotePulse/pkg/clickhouse"
)

var historySchema = []string{
	`CREATE TABLE IF NOT EXISTS quote_history (
		symbol         String,
		price          Float64,
		change         Float64,
		change_percent Float64,
		high           Float64,
		low            Float64,
		open           Float64,
		previous_close Float64,
		volume         Int64,
		data_source    LowCardinality(String),
		is_real_time   UInt8,
		ts             DateTime64(3)
	) ENGINE = MergeTree
	PARTITION BY toYYYYMM(ts)
	ORDER BY (symbol, ts)
	TTL toDateTime(ts) + INTERVAL 90 DAY`,
}

// ClickHouseHistory archives every refreshed quote directly into a
// time-partitioned table.
type ClickHouseHistory struct {
	client *clickhouse.Client
}

var _ drepo.HistorySink = (*ClickHouseHistory)(nil)

// NewClickHouseHistory ensures the history table exists and returns
// the sink.
func NewClickHouseHistory(ctx context.Context, client *clickhouse.Client) (*ClickHouseHistory, error) {
	if err := client.InitSchema(ctx, historySchema); err != nil {
		return nil, err
	}
	return &ClickHouseHistory{client: client}, nil
}

// Archive inserts one quote row.
func (s *ClickHouseHistory) Archive(ctx context.Context, q *models.Quote) error {
	const stmt = `INSERT INTO quote_history
		(symbol, price, change, change_percent, high, low, open, previous_close, volume, data_source, is_real_time, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	isReal := uint8(0)
	if q.IsRealTime {
		isReal = 1
	}
	_, err := s.client.DB().ExecContext(ctx, stmt,
		q.Symbol, q.Price, q.Change, q.ChangePercent,
		q.High, q.Low, q.Open, q.PreviousClose,
		q.Volume, string(q.DataSource), isReal, q.Timestamp)
	if err != nil {
		return fmt.Errorf("history archive %s: %w", q.Symbol, err)
	}
	return nil
}

// Close is a no-op; the underlying client is shared and closed by its
// owner.
func (s *ClickHouseHistory) Close() error {
	return nil
}
