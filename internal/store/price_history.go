// Package store persists mandi price history in PostgreSQL.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"krishi-advisor/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS daily_prices (
    crop_name    TEXT        NOT NULL,
    market_name  TEXT        NOT NULL,
    price_per_kg DOUBLE PRECISION NOT NULL,
    price_trend  TEXT        NOT NULL DEFAULT 'stable',
    recorded_on  DATE        NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (crop_name, market_name, recorded_on)
)`

const upsertPriceSQL = `INSERT INTO daily_prices (crop_name, market_name, price_per_kg, price_trend, recorded_on)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (crop_name, market_name, recorded_on) DO UPDATE
SET price_per_kg = EXCLUDED.price_per_kg,
    price_trend = EXCLUDED.price_trend,
    updated_at = NOW()`

const historySQL = `
    SELECT recorded_on, AVG(price_per_kg)
    FROM daily_prices
    WHERE LOWER(crop_name) = LOWER($1) AND recorded_on >= $2
    GROUP BY recorded_on
    ORDER BY recorded_on
`

// PriceStore wraps database access for price history.
type PriceStore struct {
	pool *pgxpool.Pool
}

// New creates a PriceStore backed by a pgx pool and ensures the table exists.
func New(ctx context.Context, databaseURL string) (*PriceStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, err
	}
	return &PriceStore{pool: pool}, nil
}

// Close releases the pool resources.
func (s *PriceStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks database connectivity.
func (s *PriceStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Record upserts one row per (crop, market, day).
func (s *PriceStore) Record(ctx context.Context, points []models.MarketPricePoint) error {
	if len(points) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range points {
		day := p.UpdatedAt
		if day.IsZero() {
			day = time.Now()
		}
		batch.Queue(upsertPriceSQL, p.CropName, p.MarketName, p.PricePerKg, p.PriceTrend, day.UTC().Format("2006-01-02"))
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range points {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// History returns daily average prices for a crop over the last days, oldest first.
func (s *PriceStore) History(ctx context.Context, crop string, days int) ([]float64, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")
	rows, err := s.pool.Query(ctx, historySQL, crop, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make([]float64, 0, days)
	for rows.Next() {
		var day time.Time
		var price float64
		if err := rows.Scan(&day, &price); err != nil {
			return nil, err
		}
		prices = append(prices, price)
	}
	return prices, rows.Err()
}
