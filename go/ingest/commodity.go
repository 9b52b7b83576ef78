package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/resupply-planner/resupply/go/store"
	log "github.com/sirupsen/logrus"
)

// CommodityIngestor applies station commodity snapshots. The freshness
// guard runs at station granularity inside the store's transaction;
// listings within an admitted snapshot replace unconditionally.
type CommodityIngestor struct {
	store MarketStore
}

// NewCommodityIngestor builds a CommodityIngestor over a store slice.
func NewCommodityIngestor(s MarketStore) *CommodityIngestor {
	return &CommodityIngestor{store: s}
}

type commodityMessage struct {
	MarketID    int64            `json:"marketId"`
	StationName string           `json:"stationName"`
	SystemName  string           `json:"systemName"`
	Prohibited  []string         `json:"prohibited"`
	Commodities []commodityEntry `json:"commodities"`
}

type commodityEntry struct {
	Name          string   `json:"name"`
	BuyPrice      *float64 `json:"buyPrice"`
	SellPrice     *float64 `json:"sellPrice"`
	Demand        *float64 `json:"demand"`
	DemandBracket *float64 `json:"demandBracket"`
	Stock         *float64 `json:"stock"`
	StockBracket  *float64 `json:"stockBracket"`
	MeanPrice     *float64 `json:"meanPrice"`
}

// Ingest parses one commodity snapshot and applies it.
func (ing *CommodityIngestor) Ingest(ctx context.Context, body json.RawMessage, ts time.Time) (Result, error) {
	var msg commodityMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return Ignored, err
	}

	if msg.MarketID == 0 {
		log.Debug("skipping commodity message without marketId")
		return Ignored, nil
	}
	if msg.StationName == "" || msg.SystemName == "" {
		log.WithField("market", msg.MarketID).
			Debug("skipping commodity message missing station or system name")
		return Ignored, nil
	}

	// Stations may arrive before their system; the back-reference stays
	// null and a later system arrival links them implicitly.
	var attrs = store.StationAttrs{
		Name:       msg.StationName,
		Prohibited: msg.Prohibited,
	}
	parent, err := ing.store.LookupSystemByName(ctx, msg.SystemName)
	if err != nil {
		return Ignored, err
	}
	if parent != nil {
		attrs.SystemAddress = &parent.SystemAddress
	}

	var listings = make([]store.Listing, 0, len(msg.Commodities))
	for _, c := range msg.Commodities {
		listings = append(listings, store.Listing{
			CommodityName: c.Name,
			BuyPrice:      coerceCount(c.BuyPrice),
			SellPrice:     coerceCount(c.SellPrice),
			Demand:        coerceCount(c.Demand),
			DemandBracket: coerceCount(c.DemandBracket),
			Stock:         coerceCount(c.Stock),
			StockBracket:  coerceCount(c.StockBracket),
			MeanPrice:     coerceCount(c.MeanPrice),
		})
	}

	err = ing.store.UpsertStationAndListings(ctx, msg.MarketID, attrs, listings, ts)
	if errors.Is(err, store.ErrStale) {
		log.WithFields(log.Fields{"market": msg.MarketID, "frame": ts}).
			Debug("skipping stale commodity snapshot")
		return Ignored, nil
	} else if err != nil {
		return Ignored, err
	}

	log.WithFields(log.Fields{
		"market":      msg.MarketID,
		"station":     msg.StationName,
		"commodities": len(listings),
	}).Info("processed commodity snapshot")
	return Accepted, nil
}

// coerceCount maps a possibly-absent numeric field to a non-negative
// integer, with null and negative values both collapsing to zero.
func coerceCount(v *float64) int64 {
	if v == nil || *v < 0 {
		return 0
	}
	return int64(*v)
}
