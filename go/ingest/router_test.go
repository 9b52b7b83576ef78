package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func frame(schema, message string) []byte {
	return []byte(fmt.Sprintf(
		`{"$schemaRef":%q,"header":{"gatewayTimestamp":"2025-01-01T00:00:00Z"},"message":%s}`,
		schema, message))
}

func TestRouterDispatchesSystemSchemas(t *testing.T) {
	var f = newFakeStore()
	var router = NewRouter(f, f)

	result, err := router.Route(context.Background(),
		frame("https://eddn.edcd.io/schemas/journal/1",
			`{"SystemAddress":1,"StarSystem":"Sol","StarPos":[0,0,0]}`))
	require.NoError(t, err)
	require.Equal(t, Accepted, result)
	require.Len(t, f.upserts, 1)
	require.Empty(t, f.snapshots)
}

func TestRouterDispatchesCommoditySchema(t *testing.T) {
	var f = newFakeStore()
	var router = NewRouter(f, f)

	result, err := router.Route(context.Background(),
		frame(CommoditySchema,
			`{"marketId":7,"stationName":"Port","systemName":"Sol","commodities":[]}`))
	require.NoError(t, err)
	require.Equal(t, Accepted, result)
	require.Len(t, f.snapshots, 1)
	require.Empty(t, f.upserts)
}

func TestRouterIgnoresUnknownSchema(t *testing.T) {
	var f = newFakeStore()
	var router = NewRouter(f, f)

	result, err := router.Route(context.Background(),
		frame("https://eddn.edcd.io/schemas/shipyard/2", `{"marketId":7}`))
	require.NoError(t, err)
	require.Equal(t, Ignored, result)
	require.Empty(t, f.upserts)
	require.Empty(t, f.snapshots)
}

func TestRouterDropsFrameWithoutTimestamp(t *testing.T) {
	var f = newFakeStore()
	var router = NewRouter(f, f)

	result, err := router.Route(context.Background(),
		[]byte(`{"$schemaRef":"https://eddn.edcd.io/schemas/journal/1","header":{},"message":{"SystemAddress":1}}`))
	require.NoError(t, err)
	require.Equal(t, Ignored, result)
	require.Empty(t, f.upserts)
}

func TestRouterMalformedJSONIsAnError(t *testing.T) {
	var router = NewRouter(newFakeStore(), newFakeStore())

	_, err := router.Route(context.Background(), []byte(`{"$schemaRef": not json`))
	require.Error(t, err)
}

func TestRouterAllowList(t *testing.T) {
	// Every schema of the original listener's allow-list routes to the
	// system ingestor.
	var schemas = []string{
		"https://eddn.edcd.io/schemas/journal/1",
		"https://eddn.edcd.io/schemas/fssallbodiesfound/1",
		"https://eddn.edcd.io/schemas/navroute/1",
		"https://eddn.edcd.io/schemas/approachsettlement/1",
		"https://eddn.edcd.io/schemas/codexentry/1",
		"https://eddn.edcd.io/schemas/fssbodysignals/1",
		"https://eddn.edcd.io/schemas/fssdiscoveryscan/1",
		"https://eddn.edcd.io/schemas/fsssignaldiscovered/1",
		"https://eddn.edcd.io/schemas/navbeaconscan/1",
		"https://eddn.edcd.io/schemas/scanbarycentre/1",
	}
	for i, schema := range schemas {
		var f = newFakeStore()
		var router = NewRouter(f, f)

		result, err := router.Route(context.Background(),
			frame(schema, fmt.Sprintf(`{"SystemAddress":%d}`, i+1)))
		require.NoError(t, err, schema)
		require.Equal(t, Accepted, result, schema)
		require.Len(t, f.upserts, 1, schema)
	}
}
