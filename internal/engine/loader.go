package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"signal-engine/internal/model"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
)

// DataLoader reads recorded ticks from the market_ticks table.
type DataLoader struct {
	pool *pgxpool.Pool
}

func NewDataLoader(pool *pgxpool.Pool) *DataLoader {
	return &DataLoader{pool: pool}
}

// Stream opens a cursor over the ticks of symbol in [start, end], oldest first.
// The returned source must be closed.
func (l *DataLoader) Stream(ctx context.Context, symbol string, start, end time.Time) (*PostgresSource, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT time, symbol, price
		FROM market_ticks
		WHERE symbol = $1 AND time >= $2 AND time <= $3
		ORDER BY time ASC`,
		symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	return &PostgresSource{rows: rows}, nil
}

// LoadTicks returns the latest limit ticks of symbol, oldest first.
func (l *DataLoader) LoadTicks(ctx context.Context, symbol string, limit int) ([]model.Tick, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT time, symbol, price FROM (
			SELECT time, symbol, price
			FROM market_ticks
			WHERE symbol = $1
			ORDER BY time DESC
			LIMIT $2
		) latest ORDER BY time ASC`,
		symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	src := &PostgresSource{rows: rows}
	defer src.Close()
	return Collect(ctx, src)
}

// PostgresSource is a TickSource backed by an open query.
type PostgresSource struct {
	rows pgx.Rows
}

func (s *PostgresSource) Next(ctx context.Context) (model.Tick, error) {
	if err := ctx.Err(); err != nil {
		return model.Tick{}, err
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return model.Tick{}, err
		}
		return model.Tick{}, io.EOF
	}

	var (
		tk    model.Tick
		price decimal.Decimal
	)
	if err := s.rows.Scan(&tk.Timestamp, &tk.Symbol, &price); err != nil {
		return model.Tick{}, fmt.Errorf("scan tick: %w", err)
	}
	tk.Price = price.InexactFloat64()
	return tk, nil
}

func (s *PostgresSource) Close() {
	s.rows.Close()
}
