package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"QuotePulse/internal/domain/models"
	drepo "QuotePulse/internal/domain/repository"
	"QuotePulse/pkg/clickhouse"
)

var instrumentSchema = []string{
	`CREATE TABLE IF NOT EXISTS instruments (
		symbol   String,
		name     String,
		exchange String,
		sector   String,
		updated_at DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY symbol`,
}

// ClickHouseInstruments persists instrument metadata discovered via
// search. ReplacingMergeTree keeps the latest row per symbol.
type ClickHouseInstruments struct {
	client *clickhouse.Client
}

var _ drepo.InstrumentStore = (*ClickHouseInstruments)(nil)

// NewClickHouseInstruments ensures the table exists and returns the
// store.
func NewClickHouseInstruments(ctx context.Context, client *clickhouse.Client) (*ClickHouseInstruments, error) {
	if err := client.InitSchema(ctx, instrumentSchema); err != nil {
		return nil, err
	}
	return &ClickHouseInstruments{client: client}, nil
}

// Upsert writes the instrument; the engine collapses older versions.
func (s *ClickHouseInstruments) Upsert(ctx context.Context, ins *models.Instrument) error {
	const q = `INSERT INTO instruments (symbol, name, exchange, sector) VALUES (?, ?, ?, ?)`
	if _, err := s.client.DB().ExecContext(ctx, q, ins.Symbol, ins.Name, ins.Exchange, ins.Sector); err != nil {
		return fmt.Errorf("instrument upsert %s: %w", ins.Symbol, err)
	}
	return nil
}

// BySymbol returns the latest metadata row, or (nil, nil) when the
// symbol is unknown.
func (s *ClickHouseInstruments) BySymbol(ctx context.Context, symbol string) (*models.Instrument, error) {
	const q = `SELECT symbol, name, exchange, sector
		FROM instruments FINAL
		WHERE symbol = ?
		LIMIT 1`

	var ins models.Instrument
	row := s.client.DB().QueryRowContext(ctx, q, symbol)
	if err := row.Scan(&ins.Symbol, &ins.Name, &ins.Exchange, &ins.Sector); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("instrument lookup %s: %w", symbol, err)
	}
	return &ins, nil
}
