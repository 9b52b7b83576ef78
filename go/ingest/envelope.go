// Package ingest routes decoded EDDN frames to the system and commodity
// ingestors, and implements their parsing and freshness semantics.
package ingest

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the top-level shape of every feed frame.
type Envelope struct {
	SchemaRef string `json:"$schemaRef"`
	Header    struct {
		GatewayTimestamp string `json:"gatewayTimestamp"`
	} `json:"header"`
	Message json.RawMessage `json:"message"`
}

// CommoditySchema identifies station commodity snapshots.
const CommoditySchema = "https://eddn.edcd.io/schemas/commodity/3"

// systemSchemas is the allow-list of journal/FSS/nav schemas that carry
// system observations. Anything not listed here (and not the commodity
// schema) is ignored.
var systemSchemas = map[string]struct{}{
	"https://eddn.edcd.io/schemas/journal/1":             {},
	"https://eddn.edcd.io/schemas/fssallbodiesfound/1":   {},
	"https://eddn.edcd.io/schemas/navroute/1":            {},
	"https://eddn.edcd.io/schemas/approachsettlement/1":  {},
	"https://eddn.edcd.io/schemas/codexentry/1":          {},
	"https://eddn.edcd.io/schemas/fssbodysignals/1":      {},
	"https://eddn.edcd.io/schemas/fssdiscoveryscan/1":    {},
	"https://eddn.edcd.io/schemas/fsssignaldiscovered/1": {},
	"https://eddn.edcd.io/schemas/navbeaconscan/1":       {},
	"https://eddn.edcd.io/schemas/scanbarycentre/1":      {},
}

// EffectiveTimestamp resolves the authoritative instant of an envelope:
// message.timestamp when present, else header.gatewayTimestamp. Both
// absent (or unparseable) is an error; callers treat it as an ignored
// frame, never a failure. Instants are normalised to UTC; a trailing Z
// and explicit offsets are both accepted.
func (e *Envelope) EffectiveTimestamp() (time.Time, error) {
	var body struct {
		Timestamp string `json:"timestamp"`
	}
	// Message may be absent or non-object; a decode failure just means
	// there is no body timestamp to prefer.
	_ = json.Unmarshal(e.Message, &body)

	if body.Timestamp != "" {
		return parseInstant(body.Timestamp)
	}
	if e.Header.GatewayTimestamp != "" {
		return parseInstant(e.Header.GatewayTimestamp)
	}
	return time.Time{}, fmt.Errorf("no timestamp in message body or header")
}

func parseInstant(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
