// Package store owns the PostGIS persistence of systems, stations,
// commodities, and station commodity listings. All writes are
// freshness-guarded: a row's updated_at is monotonically non-decreasing,
// which makes ingestion idempotent under duplicated, reordered, and
// re-delivered feed frames.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Store is a pooled connection to the spatial database. Each operation
// runs as one transaction: partial batches are never committed.
type Store struct {
	pool *pgxpool.Pool
}

// Open dials the database and verifies connectivity.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "creating connection pool")
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "pinging database")
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

const systemColumns = `system_address, name, x, y, z, requires_permit, updated_at`

func scanSystem(row pgx.Row) (*System, error) {
	var sys System
	var err = row.Scan(&sys.SystemAddress, &sys.Name,
		&sys.X, &sys.Y, &sys.Z, &sys.RequiresPermit, &sys.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "scanning system")
	}
	return &sys, nil
}

// LookupSystemByAddress fetches a system by its feed address,
// or nil if absent.
func (s *Store) LookupSystemByAddress(ctx context.Context, addr int64) (*System, error) {
	return scanSystem(s.pool.QueryRow(ctx,
		`SELECT `+systemColumns+` FROM systems WHERE system_address = $1`, addr))
}

// LookupSystemByName fetches a system by exact, case-sensitive name,
// or nil if absent. Names are not unique; an arbitrary match is returned.
func (s *Store) LookupSystemByName(ctx context.Context, name string) (*System, error) {
	return scanSystem(s.pool.QueryRow(ctx,
		`SELECT `+systemColumns+` FROM systems WHERE name = $1 LIMIT 1`, name))
}

// BulkUpsertSystems inserts each record, or overwrites the existing row
// only when the incoming updated_at is strictly greater than the stored
// one. It returns the number of rows actually modified. Records sharing
// a system_address within one batch are reduced to the freshest first.
func (s *Store) BulkUpsertSystems(ctx context.Context, records []SystemRecord) (int64, error) {
	records = dedupeByAddress(records)
	if len(records) == 0 {
		return 0, nil
	}

	var query, args = buildSystemsUpsert(records)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "bulk upserting systems")
	}
	return tag.RowsAffected(), nil
}

// dedupeByAddress keeps, for each address, the record bearing the maximum
// updated_at (ties keep the earliest occurrence). A multi-row INSERT may
// not touch the same key twice, and last-writer-wins makes any other
// occurrence a no-op anyway.
func dedupeByAddress(records []SystemRecord) []SystemRecord {
	var index = make(map[int64]int, len(records))
	var out = records[:0:0]

	for _, rec := range records {
		if at, ok := index[rec.SystemAddress]; ok {
			if rec.UpdatedAt.After(out[at].UpdatedAt) {
				out[at] = rec
			}
			continue
		}
		index[rec.SystemAddress] = len(out)
		out = append(out, rec)
	}
	return out
}

func buildSystemsUpsert(records []SystemRecord) (string, []interface{}) {
	var sb strings.Builder
	var args = make([]interface{}, 0, len(records)*7)

	sb.WriteString(`INSERT INTO systems (system_address, name, x, y, z, coords, requires_permit, updated_at) VALUES `)

	for i, rec := range records {
		var name = ""
		if rec.Name != nil {
			name = *rec.Name
		}
		var x, y, z = coalesceCoord(rec.X), coalesceCoord(rec.Y), coalesceCoord(rec.Z)
		var permit = rec.RequiresPermit != nil && *rec.RequiresPermit

		if i > 0 {
			sb.WriteByte(',')
		}
		var b = i * 7
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,ST_SetSRID(ST_MakePoint($%d,$%d,$%d),0),$%d,$%d)",
			b+1, b+2, b+3, b+4, b+5, b+3, b+4, b+5, b+6, b+7)
		args = append(args, rec.SystemAddress, name, x, y, z, permit, rec.UpdatedAt.UTC())
	}

	sb.WriteString(` ON CONFLICT (system_address) DO UPDATE SET
		name = EXCLUDED.name,
		x = EXCLUDED.x, y = EXCLUDED.y, z = EXCLUDED.z,
		coords = EXCLUDED.coords,
		requires_permit = EXCLUDED.requires_permit,
		updated_at = EXCLUDED.updated_at
		WHERE systems.updated_at < EXCLUDED.updated_at`)

	return sb.String(), args
}

func coalesceCoord(v *float64) float64 {
	if v == nil {
		return CoordSentinel
	}
	return *v
}

// UpsertStationAndListings applies one commodity snapshot in a single
// transaction: the station-level freshness guard, the station upsert,
// creation of any novel commodity names, and an unconditional bulk upsert
// of the listings (freshness is already enforced at station granularity).
// ErrStale is returned when the stored station is at least as new as |ts|.
func (s *Store) UpsertStationAndListings(
	ctx context.Context,
	marketID int64,
	attrs StationAttrs,
	listings []Listing,
	ts time.Time,
) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback(ctx)

	var existing time.Time
	err = tx.QueryRow(ctx,
		`SELECT updated_at FROM stations WHERE market_id = $1`, marketID).Scan(&existing)
	if err == nil && !existing.Before(ts) {
		return ErrStale
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrap(err, "checking station freshness")
	}

	var prohibited = attrs.Prohibited
	if prohibited == nil {
		prohibited = []string{}
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO stations (market_id, name, prohibited, system_address, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (market_id) DO UPDATE SET
			name = EXCLUDED.name,
			prohibited = EXCLUDED.prohibited,
			system_address = EXCLUDED.system_address,
			updated_at = EXCLUDED.updated_at`,
		marketID, attrs.Name, prohibited, attrs.SystemAddress, ts.UTC())
	if err != nil {
		return errors.Wrap(err, "upserting station")
	}

	if len(listings) > 0 {
		ids, err := resolveCommodityIDs(ctx, tx, listings)
		if err != nil {
			return err
		}
		if err = upsertListings(ctx, tx, marketID, listings, ids, ts); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "committing station snapshot")
	}
	return nil
}

// resolveCommodityIDs materialises an id for every commodity name in the
// snapshot, creating rows for novel names within the open transaction.
// The returned map serves all listing references of this one message, so
// a name appearing twice cannot be inserted twice.
func resolveCommodityIDs(ctx context.Context, tx pgx.Tx, listings []Listing) (map[string]int64, error) {
	var names = make([]string, 0, len(listings))
	var seen = make(map[string]struct{}, len(listings))

	for _, l := range listings {
		if l.CommodityName == "" {
			continue
		}
		if _, ok := seen[l.CommodityName]; ok {
			continue
		}
		seen[l.CommodityName] = struct{}{}
		names = append(names, l.CommodityName)
	}
	if len(names) == 0 {
		return nil, nil
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO commodities (name)
		 SELECT unnest($1::text[])
		 ON CONFLICT (name) DO NOTHING`, names)
	if err != nil {
		return nil, errors.Wrap(err, "creating commodities")
	}

	rows, err := tx.Query(ctx,
		`SELECT id, name FROM commodities WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, errors.Wrap(err, "resolving commodity ids")
	}
	defer rows.Close()

	var ids = make(map[string]int64, len(names))
	for rows.Next() {
		var id int64
		var name string
		if err = rows.Scan(&id, &name); err != nil {
			return nil, errors.Wrap(err, "scanning commodity id")
		}
		ids[name] = id
	}
	return ids, rows.Err()
}

func upsertListings(
	ctx context.Context,
	tx pgx.Tx,
	marketID int64,
	listings []Listing,
	ids map[string]int64,
	ts time.Time,
) error {
	var sb strings.Builder
	var args = []interface{}{marketID, ts.UTC()}
	var seen = make(map[int64]struct{}, len(listings))
	var n int

	sb.WriteString(`INSERT INTO station_commodities
		(station_market_id, commodity_id, buy_price, sell_price,
		 demand, demand_bracket, stock, stock_bracket, mean_price, updated_at) VALUES `)

	for _, l := range listings {
		id, ok := ids[l.CommodityName]
		if !ok {
			continue
		}
		// A snapshot may repeat a commodity; the first entry wins.
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if n > 0 {
			sb.WriteByte(',')
		}
		var b = 2 + n*8
		fmt.Fprintf(&sb, "($1,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$2)",
			b+1, b+2, b+3, b+4, b+5, b+6, b+7, b+8)
		args = append(args, id, l.BuyPrice, l.SellPrice,
			l.Demand, l.DemandBracket, l.Stock, l.StockBracket, l.MeanPrice)
		n++
	}
	if n == 0 {
		return nil
	}

	sb.WriteString(` ON CONFLICT (station_market_id, commodity_id) DO UPDATE SET
		buy_price = EXCLUDED.buy_price,
		sell_price = EXCLUDED.sell_price,
		demand = EXCLUDED.demand,
		demand_bracket = EXCLUDED.demand_bracket,
		stock = EXCLUDED.stock,
		stock_bracket = EXCLUDED.stock_bracket,
		mean_price = EXCLUDED.mean_price,
		updated_at = EXCLUDED.updated_at`)

	if _, err := tx.Exec(ctx, sb.String(), args...); err != nil {
		return errors.Wrap(err, "bulk upserting listings")
	}
	return nil
}

// SystemsInBox returns all systems within the axis-aligned box. The
// planner issues cube queries through this; per-axis range predicates
// are served by the btree indexes in sub-linear time.
func (s *Store) SystemsInBox(ctx context.Context, box Box) ([]System, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+systemColumns+` FROM systems
		 WHERE x BETWEEN $1 AND $2
		   AND y BETWEEN $3 AND $4
		   AND z BETWEEN $5 AND $6`,
		box.MinX, box.MaxX, box.MinY, box.MaxY, box.MinZ, box.MaxZ)
	if err != nil {
		return nil, errors.Wrap(err, "querying box")
	}
	defer rows.Close()

	var out []System
	for rows.Next() {
		var sys System
		if err = rows.Scan(&sys.SystemAddress, &sys.Name,
			&sys.X, &sys.Y, &sys.Z, &sys.RequiresPermit, &sys.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning system")
		}
		out = append(out, sys)
	}
	return out, rows.Err()
}

// StreamSystemNames invokes |emit| once per system name in lexicographic
// order, without materialising the full set.
func (s *Store) StreamSystemNames(ctx context.Context, emit func(name string) error) error {
	rows, err := s.pool.Query(ctx, `SELECT name FROM systems ORDER BY name`)
	if err != nil {
		return errors.Wrap(err, "querying system names")
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return errors.Wrap(err, "scanning system name")
		}
		if err = emit(name); err != nil {
			return err
		}
		count++
	}
	log.WithField("systems", count).Debug("streamed system names")
	return rows.Err()
}
