package route

import (
	"context"
	"testing"
	"time"

	"github.com/resupply-planner/resupply/go/store"
	"github.com/stretchr/testify/require"
)

// fakeGalaxy answers box queries from an in-memory system list and
// records each queried box.
type fakeGalaxy struct {
	systems []store.System
	boxes   []store.Box
}

func (g *fakeGalaxy) SystemsInBox(_ context.Context, box store.Box) ([]store.System, error) {
	g.boxes = append(g.boxes, box)

	var out []store.System
	for _, sys := range g.systems {
		if sys.X >= box.MinX && sys.X <= box.MaxX &&
			sys.Y >= box.MinY && sys.Y <= box.MaxY &&
			sys.Z >= box.MinZ && sys.Z <= box.MaxZ {
			out = append(out, sys)
		}
	}
	return out, nil
}

func sys(addr int64, name string, x, y, z float64) store.System {
	return store.System{
		SystemAddress: addr, Name: name,
		X: x, Y: y, Z: z,
		UpdatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// requireValidRoute asserts the route validity property: endpoints
// match, every jump is within range, and no system repeats.
func requireValidRoute(t *testing.T, route []store.System, start, goal store.System, maxRange float64) {
	t.Helper()
	require.NotEmpty(t, route)
	require.Equal(t, start.SystemAddress, route[0].SystemAddress)
	require.Equal(t, goal.SystemAddress, route[len(route)-1].SystemAddress)

	var seen = map[int64]struct{}{}
	for i, hop := range route {
		_, dup := seen[hop.SystemAddress]
		require.False(t, dup, "system %s repeats", hop.Name)
		seen[hop.SystemAddress] = struct{}{}

		if i > 0 {
			require.LessOrEqual(t, Distance(route[i-1], hop), maxRange,
				"jump %d exceeds range", i)
		}
	}
}

func TestPlanDirectJump(t *testing.T) {
	var start = sys(1, "Sol", 0, 0, 0)
	var goal = sys(2, "Barnard's Star", 3, 4, 0)
	var p = &Planner{Store: &fakeGalaxy{}}

	route, err := p.Plan(context.Background(), start, goal, 10.0)
	require.NoError(t, err)
	require.Equal(t, []store.System{start, goal}, route)
}

func TestPlanMultiHopChain(t *testing.T) {
	// Waypoints spaced 4.9 LY along a 19.6 LY line with a 5.0 LY range:
	// every chosen hop must stay within range and reach the goal.
	var start = sys(1, "Start", 0, 0, 0)
	var goal = sys(5, "Goal", 19.6, 0, 0)
	var g = &fakeGalaxy{systems: []store.System{
		start,
		sys(2, "Hop A", 4.9, 0, 0),
		sys(3, "Hop B", 9.8, 0, 0),
		sys(4, "Hop C", 14.7, 0, 0),
		goal,
	}}
	var p = &Planner{Store: g}

	route, err := p.Plan(context.Background(), start, goal, 5.0)
	require.NoError(t, err)
	requireValidRoute(t, route, start, goal, 5.0)
	require.Len(t, route, 5)
}

func TestPlanFirstHopStartsAtRadiusFive(t *testing.T) {
	var start = sys(1, "Start", 0, 0, 0)
	var goal = sys(2, "Goal", 50, 0, 0)
	var g = &fakeGalaxy{systems: []store.System{
		start,
		sys(3, "Near Target", 9, 0, 0),
		goal,
	}}
	var p = &Planner{Store: g}

	_, _ = p.Plan(context.Background(), start, goal, 10.0)
	require.NotEmpty(t, g.boxes)
	// First hop skips radii 1-4: the first queried cube has half-side 5.
	require.Equal(t, 10.0, g.boxes[0].MaxX-g.boxes[0].MinX)
}

func TestPlanPrefersJumpNearestFullRange(t *testing.T) {
	var start = sys(1, "Start", 0, 0, 0)
	var goal = sys(4, "Goal", 19, 0, 0)
	var g = &fakeGalaxy{systems: []store.System{
		start,
		sys(2, "Short", 6, 0, 0),
		sys(3, "Long", 9.5, 0, 0),
		goal,
	}}
	var p = &Planner{Store: g}

	// Both candidates are reachable; the one whose jump distance best
	// approaches the full range wins.
	route, err := p.Plan(context.Background(), start, goal, 10.0)
	require.NoError(t, err)
	requireValidRoute(t, route, start, goal, 10.0)
	require.Equal(t, "Long", route[1].Name)
}

func TestPlanNoRouteAcrossGap(t *testing.T) {
	var start = sys(1, "Start", 0, 0, 0)
	var goal = sys(2, "Goal", 100, 0, 0)
	var p = &Planner{Store: &fakeGalaxy{systems: []store.System{start, goal}}}

	_, err := p.Plan(context.Background(), start, goal, 10.0)
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestPlanSubLightYearRangeFails(t *testing.T) {
	var start = sys(1, "Start", 0, 0, 0)
	var goal = sys(2, "Goal", 10, 0, 0)
	var p = &Planner{Store: &fakeGalaxy{}}

	// floor(0.9) leaves no bubble radii to search.
	_, err := p.Plan(context.Background(), start, goal, 0.9)
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestDistance(t *testing.T) {
	require.Equal(t, 5.0, Distance(sys(1, "a", 0, 0, 0), sys(2, "b", 3, 4, 0)))
	require.Equal(t, 0.0, Distance(sys(1, "a", 1, 2, 3), sys(2, "b", 1, 2, 3)))
}

func TestFormat(t *testing.T) {
	var out = Format([]store.System{
		sys(1, "Sol", 0, 0, 0),
		sys(2, "Alpha Centauri", 3, 4, 0),
	})
	require.Contains(t, out, "Jump  1: Sol")
	require.Contains(t, out, "(  5.00 LY)")
	require.Contains(t, out, "Total Jumps: 1")
	require.Contains(t, out, "Total Distance: 5.00 LY")
}
