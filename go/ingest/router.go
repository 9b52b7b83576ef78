package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/resupply-planner/resupply/go/store"
	log "github.com/sirupsen/logrus"
)

// Result classifies the outcome of one frame: accepted frames modified
// the store, ignored frames did not (unknown schema, missing mandatory
// field, or refused by the freshness guard).
type Result int

const (
	Ignored Result = iota
	Accepted
)

// SystemStore is the slice of the store the system ingestor needs.
type SystemStore interface {
	LookupSystemByAddress(ctx context.Context, addr int64) (*store.System, error)
	BulkUpsertSystems(ctx context.Context, records []store.SystemRecord) (int64, error)
}

// MarketStore is the slice of the store the commodity ingestor needs.
type MarketStore interface {
	LookupSystemByName(ctx context.Context, name string) (*store.System, error)
	UpsertStationAndListings(ctx context.Context, marketID int64,
		attrs store.StationAttrs, listings []store.Listing, ts time.Time) error
}

// Router dispatches decoded frames on their schema URI.
type Router struct {
	systems *SystemIngestor
	markets *CommodityIngestor
}

// NewRouter builds a Router over the given store slices.
func NewRouter(systems SystemStore, markets MarketStore) *Router {
	return &Router{
		systems: NewSystemIngestor(systems),
		markets: NewCommodityIngestor(markets),
	}
}

// Route decodes one frame and dispatches it. Malformed JSON is an error
// (the caller logs and drops the frame); an unroutable or stale frame is
// (Ignored, nil).
func (r *Router) Route(ctx context.Context, frame []byte) (Result, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Ignored, err
	}

	ts, err := env.EffectiveTimestamp()
	if err != nil {
		log.WithFields(log.Fields{"schema": env.SchemaRef, "reason": err}).
			Warn("dropping frame without resolvable timestamp")
		return Ignored, nil
	}

	switch {
	case env.SchemaRef == CommoditySchema:
		return r.markets.Ingest(ctx, env.Message, ts)
	default:
		if _, ok := systemSchemas[env.SchemaRef]; ok {
			return r.systems.Ingest(ctx, env.Message, ts)
		}
		log.WithField("schema", env.SchemaRef).Debug("ignoring unsupported schema")
		return Ignored, nil
	}
}
