package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/resupply-planner/resupply/go/store"
	"github.com/stretchr/testify/require"
)

func TestCommodityIngestBasic(t *testing.T) {
	var f = newFakeStore(store.System{SystemAddress: 99, Name: "Lembava", UpdatedAt: t0})
	var ing = NewCommodityIngestor(f)

	var body = `{
		"marketId": 128000000,
		"stationName": "Goldstein Port",
		"systemName": "Lembava",
		"prohibited": ["Slaves", "Narcotics"],
		"commodities": [
			{"name": "tritium", "buyPrice": 40000, "sellPrice": 41000, "demand": 500, "demandBracket": 2, "stock": 120, "stockBracket": 1, "meanPrice": 40500},
			{"name": "gold", "buyPrice": null, "sellPrice": 9400, "demand": -3, "stock": 0}
		]
	}`
	result, err := ing.Ingest(context.Background(), json.RawMessage(body), t0)
	require.NoError(t, err)
	require.Equal(t, Accepted, result)

	require.Len(t, f.snapshots, 1)
	var snap = f.snapshots[0]
	require.Equal(t, int64(128000000), snap.marketID)
	require.Equal(t, "Goldstein Port", snap.attrs.Name)
	require.Equal(t, []string{"Slaves", "Narcotics"}, snap.attrs.Prohibited)
	require.NotNil(t, snap.attrs.SystemAddress)
	require.Equal(t, int64(99), *snap.attrs.SystemAddress)

	require.Len(t, snap.listings, 2)
	require.Equal(t, store.Listing{
		CommodityName: "tritium",
		BuyPrice:      40000, SellPrice: 41000,
		Demand: 500, DemandBracket: 2,
		Stock: 120, StockBracket: 1,
		MeanPrice: 40500,
	}, snap.listings[0])

	// null and negative numeric fields both coerce to zero.
	var gold = snap.listings[1]
	require.Equal(t, int64(0), gold.BuyPrice)
	require.Equal(t, int64(0), gold.Demand)
	require.Equal(t, int64(9400), gold.SellPrice)
}

func TestCommodityIngestFastRejects(t *testing.T) {
	var f = newFakeStore()
	var ing = NewCommodityIngestor(f)

	var cases = []string{
		`{"stationName":"Port","systemName":"Sol"}`,
		`{"marketId":1,"systemName":"Sol"}`,
		`{"marketId":1,"stationName":"Port"}`,
	}
	for _, body := range cases {
		result, err := ing.Ingest(context.Background(), json.RawMessage(body), t0)
		require.NoError(t, err, body)
		require.Equal(t, Ignored, result, body)
	}
	require.Empty(t, f.snapshots)
}

func TestCommodityIngestUnknownSystem(t *testing.T) {
	var f = newFakeStore()
	var ing = NewCommodityIngestor(f)

	// The station arrives before its system: the back-reference is null
	// and the snapshot is still applied.
	var body = `{"marketId":5,"stationName":"Port","systemName":"Nowhere","commodities":[]}`
	result, err := ing.Ingest(context.Background(), json.RawMessage(body), t0)
	require.NoError(t, err)
	require.Equal(t, Accepted, result)
	require.Nil(t, f.snapshots[0].attrs.SystemAddress)
}

func TestCommodityIngestStaleSnapshot(t *testing.T) {
	var f = newFakeStore()
	var ing = NewCommodityIngestor(f)

	var body = `{"marketId":5,"stationName":"Port","systemName":"Sol","commodities":[]}`
	result, err := ing.Ingest(context.Background(), json.RawMessage(body), t0)
	require.NoError(t, err)
	require.Equal(t, Accepted, result)

	// Replaying the same snapshot is refused by the freshness guard and
	// surfaces as an ignored frame, not an error.
	result, err = ing.Ingest(context.Background(), json.RawMessage(body), t0)
	require.NoError(t, err)
	require.Equal(t, Ignored, result)
	require.Len(t, f.snapshots, 1)
}

func TestCoerceCount(t *testing.T) {
	var n = func(v float64) *float64 { return &v }

	require.Equal(t, int64(0), coerceCount(nil))
	require.Equal(t, int64(0), coerceCount(n(-1)))
	require.Equal(t, int64(7), coerceCount(n(7)))
	require.Equal(t, int64(7), coerceCount(n(7.9)))
}
