package ingest

import (
	"context"
	"time"

	"github.com/resupply-planner/resupply/go/store"
)

// fakeStore implements SystemStore and MarketStore in memory with the
// same freshness semantics as the real store.
type fakeStore struct {
	systems map[int64]store.System

	upserts   []store.SystemRecord
	snapshots []snapshot
}

type snapshot struct {
	marketID int64
	attrs    store.StationAttrs
	listings []store.Listing
	ts       time.Time
}

func newFakeStore(systems ...store.System) *fakeStore {
	var f = &fakeStore{systems: make(map[int64]store.System)}
	for _, sys := range systems {
		f.systems[sys.SystemAddress] = sys
	}
	return f
}

func (f *fakeStore) LookupSystemByAddress(_ context.Context, addr int64) (*store.System, error) {
	if sys, ok := f.systems[addr]; ok {
		return &sys, nil
	}
	return nil, nil
}

func (f *fakeStore) LookupSystemByName(_ context.Context, name string) (*store.System, error) {
	for _, sys := range f.systems {
		if sys.Name == name {
			var out = sys
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) BulkUpsertSystems(_ context.Context, records []store.SystemRecord) (int64, error) {
	var affected int64
	for _, rec := range records {
		f.upserts = append(f.upserts, rec)

		if existing, ok := f.systems[rec.SystemAddress]; ok && !existing.UpdatedAt.Before(rec.UpdatedAt) {
			continue
		}
		var sys = store.System{
			SystemAddress: rec.SystemAddress,
			X:             store.CoordSentinel,
			Y:             store.CoordSentinel,
			Z:             store.CoordSentinel,
			UpdatedAt:     rec.UpdatedAt,
		}
		if rec.Name != nil {
			sys.Name = *rec.Name
		}
		if rec.X != nil {
			sys.X, sys.Y, sys.Z = *rec.X, *rec.Y, *rec.Z
		}
		if rec.RequiresPermit != nil {
			sys.RequiresPermit = *rec.RequiresPermit
		}
		f.systems[rec.SystemAddress] = sys
		affected++
	}
	return affected, nil
}

func (f *fakeStore) UpsertStationAndListings(
	_ context.Context,
	marketID int64,
	attrs store.StationAttrs,
	listings []store.Listing,
	ts time.Time,
) error {
	for _, prior := range f.snapshots {
		if prior.marketID == marketID && !prior.ts.Before(ts) {
			return store.ErrStale
		}
	}
	f.snapshots = append(f.snapshots, snapshot{marketID, attrs, listings, ts})
	return nil
}
