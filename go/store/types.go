package store

import (
	"time"

	"github.com/pkg/errors"
)

// CoordSentinel marks an axis whose true coordinate is unknown.
const CoordSentinel = 999999.999

// ErrStale is returned when the freshness guard refuses a write because
// the stored row is at least as new as the incoming observation.
var ErrStale = errors.New("stale update refused by freshness guard")

// System is a star system row. Systems are keyed by the upstream feed's
// 64-bit SystemAddress; they are created and updated in place, never
// deleted.
type System struct {
	SystemAddress  int64
	Name           string
	X, Y, Z        float64
	RequiresPermit bool
	UpdatedAt      time.Time
}

// SystemRecord is one system observation submitted for upsert. Nil fields
// mean the observation did not carry that attribute: on insert the store
// substitutes the empty name, the coordinate sentinel, or false.
type SystemRecord struct {
	SystemAddress  int64
	Name           *string
	X, Y, Z        *float64
	RequiresPermit *bool
	UpdatedAt      time.Time
}

// StationAttrs are the station-level attributes of a commodity snapshot.
// SystemAddress is nil when the parent system is not yet known; a later
// system arrival links them implicitly.
type StationAttrs struct {
	Name          string
	Prohibited    []string
	SystemAddress *int64
}

// Listing is one commodity listing at a station. All numeric fields are
// non-negative; snapshots replace rather than accumulate.
type Listing struct {
	CommodityName string
	BuyPrice      int64
	SellPrice     int64
	Demand        int64
	DemandBracket int64
	Stock         int64
	StockBracket  int64
	MeanPrice     int64
}

// Box is an axis-aligned box in the galaxy's Cartesian frame.
type Box struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}
