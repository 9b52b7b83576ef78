package store

import (
	"context"

	"github.com/pkg/errors"
)

// ddl is the full schema. Statements are idempotent so EnsureSchema may
// run on every start. Coordinates live both as per-axis doubles (served
// by btree indexes for the planner's box queries) and as an indexed
// POINTZ geometry under the identity spatial reference.
var ddl = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,

	`CREATE TABLE IF NOT EXISTS systems (
		system_address  BIGINT PRIMARY KEY,
		name            VARCHAR(255) NOT NULL DEFAULT '',
		x               DOUBLE PRECISION NOT NULL DEFAULT 999999.999,
		y               DOUBLE PRECISION NOT NULL DEFAULT 999999.999,
		z               DOUBLE PRECISION NOT NULL DEFAULT 999999.999,
		coords          geometry(POINTZ, 0) NOT NULL,
		requires_permit BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS systems_name_idx ON systems (name)`,
	`CREATE INDEX IF NOT EXISTS systems_coords_idx ON systems USING GIST (coords)`,
	`CREATE INDEX IF NOT EXISTS systems_x_idx ON systems (x)`,
	`CREATE INDEX IF NOT EXISTS systems_y_idx ON systems (y)`,
	`CREATE INDEX IF NOT EXISTS systems_z_idx ON systems (z)`,

	`CREATE TABLE IF NOT EXISTS commodities (
		id   BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE
	)`,

	`CREATE TABLE IF NOT EXISTS stations (
		market_id      BIGINT PRIMARY KEY,
		name           VARCHAR(255) NOT NULL,
		prohibited     TEXT[] NOT NULL DEFAULT '{}',
		system_address BIGINT REFERENCES systems (system_address),
		updated_at     TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS station_commodities (
		station_market_id BIGINT NOT NULL REFERENCES stations (market_id),
		commodity_id      BIGINT NOT NULL REFERENCES commodities (id),
		buy_price         BIGINT NOT NULL DEFAULT 0,
		sell_price        BIGINT NOT NULL DEFAULT 0,
		demand            BIGINT NOT NULL DEFAULT 0,
		demand_bracket    BIGINT NOT NULL DEFAULT 0,
		stock             BIGINT NOT NULL DEFAULT 0,
		stock_bracket     BIGINT NOT NULL DEFAULT 0,
		mean_price        BIGINT NOT NULL DEFAULT 0,
		updated_at        TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (station_market_id, commodity_id)
	)`,
}

// EnsureSchema creates any missing tables and indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "applying schema")
		}
	}
	return nil
}
