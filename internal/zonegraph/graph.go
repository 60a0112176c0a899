// Package zonegraph provides the spatial queries and topology operations
// over a world's zones: adjacency, bounded BFS, cost-based pathfinding,
// exit usability, bidirectional mirroring, discovery tracking, and the
// mutating exit operations that publish zone-topology events.
//
// Query functions are pure over the world; only the operations in
// mutate.go and discovery.go change state.
package zonegraph

import (
	"container/heap"
	"fmt"
	"math"
	"sort"

	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// DefaultMaxDepth bounds BFS traversals.
const DefaultMaxDepth = 50

// GetZone resolves a zone id, failing with world.ErrZoneNotFound.
func GetZone(w *world.GameState, id string) (*world.Zone, error) {
	z, ok := w.Zone(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", world.ErrZoneNotFound, id)
	}
	return z, nil
}

// IsAdjacent reports whether b is directly reachable from a. O(deg(a)).
func IsAdjacent(w *world.GameState, a, b string, allowBlocked bool) bool {
	za, ok := w.Zone(a)
	if !ok {
		return false
	}
	for _, x := range za.Exits {
		if x.To == b && (allowBlocked || !x.Blocked) {
			return true
		}
	}
	return false
}

// neighbors returns successor zone ids in deterministic order: exit order,
// then lexicographic for duplicates.
func neighbors(w *world.GameState, zoneID string, allowBlocked bool) []string {
	z, ok := w.Zone(zoneID)
	if !ok {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, x := range z.Exits {
		if x.Blocked && !allowBlocked {
			continue
		}
		if !seen[x.To] {
			seen[x.To] = true
			out = append(out, x.To)
		}
	}
	return out
}

// PathExists reports reachability within maxDepth hops (bounded BFS).
// maxDepth <= 0 uses DefaultMaxDepth.
func PathExists(w *world.GameState, start, goal string, allowBlocked bool, maxDepth int) bool {
	return FindShortestPath(w, start, goal, allowBlocked, maxDepth) != nil
}

// FindShortestPath runs BFS and returns the first path found (fewest hops),
// including both endpoints, or nil when unreachable within maxDepth.
func FindShortestPath(w *world.GameState, start, goal string, allowBlocked bool, maxDepth int) []string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if _, ok := w.Zone(start); !ok {
		return nil
	}
	if _, ok := w.Zone(goal); !ok {
		return nil
	}
	if start == goal {
		return []string{start}
	}

	type node struct {
		id    string
		depth int
	}
	prev := map[string]string{start: ""}
	queue := []node{{start, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, next := range neighbors(w, cur.id, allowBlocked) {
			if _, visited := prev[next]; visited {
				continue
			}
			prev[next] = cur.id
			if next == goal {
				return rebuildPath(prev, start, goal)
			}
			queue = append(queue, node{next, cur.depth + 1})
		}
	}
	return nil
}

func rebuildPath(prev map[string]string, start, goal string) []string {
	var path []string
	for at := goal; at != ""; at = prev[at] {
		path = append(path, at)
		if at == start {
			break
		}
	}
	// Reverse in place.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// CostPath is a weighted path result.
type CostPath struct {
	Zones []string
	Cost  float64
}

// pqItem is a priority queue entry for Dijkstra.
type pqItem struct {
	id   string
	cost float64
}

type pq []pqItem

func (q pq) Len() int { return len(q) }
func (q pq) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return q[i].id < q[j].id // lexicographic tie-break for determinism
}
func (q pq) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *pq) Push(x interface{}) { *q = append(*q, x.(pqItem)) }
func (q *pq) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// FindLowestCostPath runs Dijkstra over edge weights
// exit.cost * terrainModifier(actor, terrain), floored at 0.1.
// Ties between equally cheap successors break on lexicographic zone id.
// maxCost <= 0 means unbounded. actor may be nil; mods may be nil to use
// DefaultTerrainModifiers.
func FindLowestCostPath(w *world.GameState, start, goal string, actor *world.Entity, mods TerrainModifiers, allowBlocked bool, maxCost float64) *CostPath {
	if _, ok := w.Zone(start); !ok {
		return nil
	}
	if _, ok := w.Zone(goal); !ok {
		return nil
	}
	return dijkstra(w, start, goal, actor, mods, allowBlocked, maxCost, nil)
}

// edgeKey identifies a directed edge for exclusion in multi-path search.
type edgeKey struct{ from, to string }

func dijkstra(w *world.GameState, start, goal string, actor *world.Entity, mods TerrainModifiers, allowBlocked bool, maxCost float64, excluded map[edgeKey]bool) *CostPath {
	dist := map[string]float64{start: 0}
	prev := map[string]string{}
	done := map[string]bool{}

	q := &pq{{id: start, cost: 0}}
	heap.Init(q)

	for q.Len() > 0 {
		cur := heap.Pop(q).(pqItem)
		if done[cur.id] {
			continue
		}
		done[cur.id] = true
		if cur.id == goal {
			break
		}
		z, ok := w.Zone(cur.id)
		if !ok {
			continue
		}
		// Deterministic expansion order: sort exits by (to) id.
		exits := append([]world.Exit(nil), z.Exits...)
		sort.SliceStable(exits, func(i, j int) bool { return exits[i].To < exits[j].To })
		for _, x := range exits {
			if x.Blocked && !allowBlocked {
				continue
			}
			if excluded != nil && excluded[edgeKey{cur.id, x.To}] {
				continue
			}
			weight := EdgeWeight(&x, actor, mods)
			nd := cur.cost + weight
			if maxCost > 0 && nd > maxCost {
				continue
			}
			if old, seen := dist[x.To]; !seen || nd < old {
				dist[x.To] = nd
				prev[x.To] = cur.id
				heap.Push(q, pqItem{id: x.To, cost: nd})
			}
		}
	}

	total, ok := dist[goal]
	if !ok || !done[goal] {
		return nil
	}
	if start == goal {
		return &CostPath{Zones: []string{start}, Cost: 0}
	}
	prevStr := make(map[string]string, len(prev)+1)
	for k, v := range prev {
		prevStr[k] = v
	}
	prevStr[start] = ""
	return &CostPath{Zones: rebuildPath(prevStr, start, goal), Cost: total}
}

// FindMultiplePaths returns up to maxPaths distinct paths by successive
// shortest-path search, excluding every directed edge used by earlier
// results. Output is sorted by total cost.
func FindMultiplePaths(w *world.GameState, start, goal string, actor *world.Entity, mods TerrainModifiers, allowBlocked bool, maxPaths int) []CostPath {
	if maxPaths <= 0 {
		maxPaths = 1
	}
	excluded := make(map[edgeKey]bool)
	var out []CostPath
	for i := 0; i < maxPaths; i++ {
		p := dijkstra(w, start, goal, actor, mods, allowBlocked, 0, excluded)
		if p == nil {
			break
		}
		out = append(out, *p)
		for j := 0; j+1 < len(p.Zones); j++ {
			excluded[edgeKey{p.Zones[j], p.Zones[j+1]}] = true
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Cost < out[j].Cost })
	return out
}

// GetReachableZones returns every zone within maxDepth hops of start,
// excluding start itself, sorted for determinism.
func GetReachableZones(w *world.GameState, start string, maxDepth int, allowBlocked bool) []string {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if _, ok := w.Zone(start); !ok {
		return nil
	}
	depth := map[string]int{start: 0}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if depth[cur] >= maxDepth {
			continue
		}
		for _, next := range neighbors(w, cur, allowBlocked) {
			if _, seen := depth[next]; seen {
				continue
			}
			depth[next] = depth[cur] + 1
			queue = append(queue, next)
		}
	}
	var out []string
	for id := range depth {
		if id != start {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// GetReachableZonesWithCost returns zone -> lowest travel cost for every
// zone reachable within maxCost.
func GetReachableZonesWithCost(w *world.GameState, start string, maxCost float64, actor *world.Entity, mods TerrainModifiers, allowBlocked bool) map[string]float64 {
	if _, ok := w.Zone(start); !ok {
		return nil
	}
	dist := map[string]float64{start: 0}
	done := map[string]bool{}
	q := &pq{{id: start, cost: 0}}
	heap.Init(q)
	for q.Len() > 0 {
		cur := heap.Pop(q).(pqItem)
		if done[cur.id] {
			continue
		}
		done[cur.id] = true
		z, ok := w.Zone(cur.id)
		if !ok {
			continue
		}
		for _, x := range z.Exits {
			if x.Blocked && !allowBlocked {
				continue
			}
			nd := cur.cost + EdgeWeight(&x, actor, mods)
			if maxCost > 0 && nd > maxCost {
				continue
			}
			if old, seen := dist[x.To]; !seen || nd < old {
				dist[x.To] = nd
				heap.Push(q, pqItem{id: x.To, cost: nd})
			}
		}
	}
	out := make(map[string]float64, len(dist))
	for id, d := range dist {
		if id != start && d <= maxCost+1e-9 {
			out[id] = d
		}
	}
	logging.ZonesDebug("reachable-with-cost from %s: %d zones within %.2f", start, len(out), maxCost)
	return out
}

// PathCost recomputes a path's cost with the same parameters; used by the
// admissibility tests.
func PathCost(w *world.GameState, path []string, actor *world.Entity, mods TerrainModifiers) float64 {
	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		z, ok := w.Zone(path[i])
		if !ok {
			return math.Inf(1)
		}
		best := math.Inf(1)
		for _, x := range z.Exits {
			if x.To == path[i+1] {
				if c := EdgeWeight(&x, actor, mods); c < best {
					best = c
				}
			}
		}
		total += best
	}
	return total
}
