// Package route plans multi-hop routes between star systems under a
// bounded per-jump range. The planner is greedy: each hop aims at the
// point where a jump of exactly the maximum range along the straight
// line to the goal would land, and grows an axis-aligned search box
// around that target until a reachable candidate appears. No graph is
// ever materialised.
package route

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/resupply-planner/resupply/go/store"
	log "github.com/sirupsen/logrus"
)

// MaxHops bounds the greedy loop; exceeding it is a failure.
const MaxHops = 100

// ErrNoRoute is returned when no route exists within MaxHops, a hop has
// no reachable candidate, or the search revisits a system.
var ErrNoRoute = errors.New("no route found")

// BoxQuerier is the read-only slice of the store the planner needs.
type BoxQuerier interface {
	SystemsInBox(ctx context.Context, box store.Box) ([]store.System, error)
}

// Distance is the 3-D Euclidean distance between two systems in
// light-years.
func Distance(a, b store.System) float64 {
	var dx, dy, dz = a.X - b.X, a.Y - b.Y, a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Planner finds routes against a box-queryable system store.
type Planner struct {
	Store BoxQuerier
}

// Plan produces an ordered route [start, ..., goal] whose consecutive
// pairs are within maxRange of each other, or ErrNoRoute.
func (p *Planner) Plan(ctx context.Context, start, goal store.System, maxRange float64) ([]store.System, error) {
	log.WithFields(log.Fields{
		"start":    start.Name,
		"goal":     goal.Name,
		"maxRange": maxRange,
	}).Info("planning route")

	if Distance(start, goal) <= maxRange {
		return []store.System{start, goal}, nil
	}

	var route = []store.System{start}
	var visited = map[int64]struct{}{start.SystemAddress: {}}
	var current = start
	// Sentinel: the first hop picks its own starting radius.
	var previousIndex = -1

	for hop := 0; hop < MaxHops; hop++ {
		if Distance(current, goal) <= maxRange {
			return append(route, goal), nil
		}

		next, radiusIndex, err := p.findNextHop(ctx, current, goal, maxRange, previousIndex)
		if err != nil {
			return nil, err
		}
		if _, seen := visited[next.SystemAddress]; seen {
			log.WithField("system", next.Name).Warn("best candidate already visited")
			return nil, ErrNoRoute
		}

		route = append(route, *next)
		visited[next.SystemAddress] = struct{}{}
		current = *next
		previousIndex = radiusIndex

		log.WithFields(log.Fields{
			"hop":        hop + 1,
			"system":     next.Name,
			"distToGoal": Distance(*next, goal),
		}).Debug("added hop")
	}
	log.WithField("maxHops", MaxHops).Warn("hop limit exceeded")
	return nil, ErrNoRoute
}

// findNextHop searches expanding cubes around the projected target for
// the reachable candidate whose jump distance best approaches maxRange.
// Starting one radius below the previous hop's winning radius amortises
// density transitions between sparse and dense regions.
func (p *Planner) findNextHop(
	ctx context.Context,
	current, goal store.System,
	maxRange float64,
	previousIndex int,
) (*store.System, int, error) {
	var tx, ty, tz = targetCoordinates(current, goal, maxRange)

	var maxRadius = int(math.Floor(maxRange))
	if maxRadius < 1 {
		return nil, 0, ErrNoRoute
	}

	var startIndex int
	if previousIndex < 0 {
		// First hop: skip the smallest bubbles and begin at radius 5.
		startIndex = 4
		if startIndex > maxRadius-1 {
			startIndex = maxRadius - 1
		}
	} else if startIndex = previousIndex - 1; startIndex < 0 {
		startIndex = 0
	}

	for i := startIndex; i < maxRadius; i++ {
		var r = float64(i + 1)
		candidates, err := p.Store.SystemsInBox(ctx, store.Box{
			MinX: tx - r, MaxX: tx + r,
			MinY: ty - r, MaxY: ty + r,
			MinZ: tz - r, MaxZ: tz + r,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("box query at radius %.0f: %w", r, err)
		}

		var best *store.System
		var bestScore = math.Inf(1)
		for c := range candidates {
			var candidate = candidates[c]
			if candidate.SystemAddress == current.SystemAddress {
				continue
			}
			var dist = Distance(current, candidate)
			if dist > maxRange {
				continue
			}
			// Prefer jumps as close to the full range as possible.
			if score := math.Abs(dist - maxRange); score < bestScore {
				bestScore = score
				best = &candidate
			}
		}
		if best != nil {
			log.WithFields(log.Fields{
				"system": best.Name,
				"radius": r,
				"dist":   Distance(current, *best),
			}).Debug("found next hop")
			return best, i, nil
		}
	}
	log.WithFields(log.Fields{
		"from":   current.Name,
		"radius": maxRadius,
	}).Warn("no reachable system near target coordinates")
	return nil, 0, ErrNoRoute
}

// targetCoordinates is the point at distance maxRange from |current|
// along the straight line toward |goal|.
func targetCoordinates(current, goal store.System, maxRange float64) (x, y, z float64) {
	var total = Distance(current, goal)
	x = current.X + (goal.X-current.X)/total*maxRange
	y = current.Y + (goal.Y-current.Y)/total*maxRange
	z = current.Z + (goal.Z-current.Z)/total*maxRange
	return
}

// Format renders a route as the numbered jump list the CLI prints.
func Format(route []store.System) string {
	var sb strings.Builder
	var total float64

	sb.WriteString("\n--- Route Plan ---\n")
	for i := 0; i+1 < len(route); i++ {
		var dist = Distance(route[i], route[i+1])
		total += dist
		fmt.Fprintf(&sb, "Jump %2d: %-20s -> %-20s (%6.2f LY)\n",
			i+1, route[i].Name, route[i+1].Name, dist)
	}
	sb.WriteString("------------------\n")
	fmt.Fprintf(&sb, "Total Jumps: %d\n", len(route)-1)
	fmt.Fprintf(&sb, "Total Distance: %.2f LY\n", total)
	return sb.String()
}
