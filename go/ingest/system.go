package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/resupply-planner/resupply/go/store"
	log "github.com/sirupsen/logrus"
)

// SystemIngestor turns system-bearing messages into freshness-guarded
// upsert records. NavRoute messages embed a Route list of systems, each
// ingested under the parent frame's timestamp.
type SystemIngestor struct {
	store SystemStore
}

// NewSystemIngestor builds a SystemIngestor over a store slice.
func NewSystemIngestor(s SystemStore) *SystemIngestor {
	return &SystemIngestor{store: s}
}

type systemMessage struct {
	SystemAddress int64             `json:"SystemAddress"`
	StarSystem    string            `json:"StarSystem"`
	System        string            `json:"System"`
	StarPos       []float64         `json:"StarPos"`
	Route         []json.RawMessage `json:"Route"`
	Event         string            `json:"event"`
}

// Ingest parses one message body and submits an upsert when it carries a
// fresher observation than the stored row.
func (ing *SystemIngestor) Ingest(ctx context.Context, body json.RawMessage, ts time.Time) (Result, error) {
	var msg systemMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return Ignored, err
	}

	// NavRoute: recurse into each element with the same timestamp.
	// The frame is accepted if any element was.
	if msg.Route != nil {
		var result = Ignored
		for _, item := range msg.Route {
			r, err := ing.Ingest(ctx, item, ts)
			if err != nil {
				return Ignored, err
			}
			if r == Accepted {
				result = Accepted
			}
		}
		return result, nil
	}

	if msg.SystemAddress == 0 {
		log.WithField("event", msg.Event).Debug("skipping message without SystemAddress")
		return Ignored, nil
	}

	existing, err := ing.store.LookupSystemByAddress(ctx, msg.SystemAddress)
	if err != nil {
		return Ignored, err
	}
	if existing != nil && !existing.UpdatedAt.Before(ts) {
		log.WithFields(log.Fields{
			"system": msg.SystemAddress,
			"stored": existing.UpdatedAt,
			"frame":  ts,
		}).Debug("skipping stale system update")
		return Ignored, nil
	}

	var rec = store.SystemRecord{SystemAddress: msg.SystemAddress, UpdatedAt: ts}

	// A missing name or malformed StarPos does not block acceptance:
	// the update still advances updated_at. Attributes absent from the
	// message carry forward from the row fetched for the freshness
	// check; the store applies its insert defaults for brand-new rows.
	var name = msg.StarSystem
	if name == "" {
		name = msg.System
	}
	switch {
	case name != "":
		rec.Name = &name
	case existing != nil:
		rec.Name = &existing.Name
	}

	switch {
	case len(msg.StarPos) == 3:
		rec.X, rec.Y, rec.Z = &msg.StarPos[0], &msg.StarPos[1], &msg.StarPos[2]
	case existing != nil:
		rec.X, rec.Y, rec.Z = &existing.X, &existing.Y, &existing.Z
	}
	if existing != nil {
		rec.RequiresPermit = &existing.RequiresPermit
	}

	if _, err = ing.store.BulkUpsertSystems(ctx, []store.SystemRecord{rec}); err != nil {
		return Ignored, err
	}
	log.WithFields(log.Fields{
		"system":    msg.SystemAddress,
		"name":      name,
		"timestamp": ts,
	}).Info("upserted system")
	return Accepted, nil
}
