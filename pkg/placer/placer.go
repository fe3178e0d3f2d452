// Package placer implements the recursive partitioner and placer (C3): it
// splits a collapsed device adjacency graph into balanced partitions and
// assigns each partition a point on a rectangular grid, minimizing the
// weighted Manhattan distance between partitions with heavy traffic between
// them. Every function here is a pure, deterministic function of its graph
// and size arguments (law L1) — no math/rand, no clock, no goroutine-order
// dependence anywhere in the package.
package placer

import "github.com/sarchlab/polite/pkg/graph"

// PartId identifies one partition produced by Place, in [0, Width*Height).
type PartId int

// DefaultEffort is the number of deterministic grid-placement refinement
// passes Place runs when the caller doesn't need a different tradeoff
// between placement quality and compile time.
const DefaultEffort = 8

// Placement is the result of partitioning and placing a graph onto a
// Width x Height grid.
type Placement struct {
	Width, Height uint32

	// Mapping[y][x] is the PartId placed at grid point (x, y).
	Mapping [][]PartId

	// Parts[id] is the induced subgraph of the devices assigned to
	// partition id. Parts[id].Labels[i] is the original DeviceId of local
	// vertex i within that partition — the only way the rest of the
	// compiler ever learns which device ended up where.
	Parts []*AdjGraph

	// PositionOf maps PartId to its (x, y) grid point; the inverse of
	// Mapping.
	PositionOf []Point
}

// Place partitions g into width*height balanced parts and places them on a
// width x height grid, running effort passes of grid-placement refinement.
// width*height must be at least 1; when g has fewer vertices than grid
// points, the excess parts are empty subgraphs placed deterministically like
// any other part.
func Place(g *AdjGraph, width, height uint32, effort int) *Placement {
	k := int(width) * int(height)
	partOf := recursivePartition(g, k)

	vertices := make([][]int, k)
	for v, p := range partOf {
		vertices[p] = append(vertices[p], v)
	}

	parts := make([]*AdjGraph, k)
	for p := 0; p < k; p++ {
		parts[p] = g.Induced(vertices[p])
	}

	cutWeight := interPartWeight(g, partOf, k)
	positions := placeOnGrid(cutWeight, width, height, effort)

	mapping := make([][]PartId, height)
	for y := range mapping {
		mapping[y] = make([]PartId, width)
	}
	for p, pt := range positions {
		mapping[pt.Y][pt.X] = PartId(p)
	}

	return &Placement{
		Width:      width,
		Height:     height,
		Mapping:    mapping,
		Parts:      parts,
		PositionOf: positions,
	}
}

// interPartWeight computes the k x k symmetric matrix of total edge weight
// crossing between each pair of partitions in g, given a vertex -> partition
// assignment.
func interPartWeight(g *AdjGraph, partOf []int, k int) [][]uint32 {
	m := make([][]uint32, k)
	for i := range m {
		m[i] = make([]uint32, k)
	}
	for u := 0; u < g.N; u++ {
		pu := partOf[u]
		for _, nb := range g.Adj[u] {
			pv := partOf[nb.To]
			if pu != pv {
				m[pu][pv] += nb.Weight
			}
		}
	}
	return m
}

// CutWeight returns the total edge weight crossing between parts a and b of
// a Placement, recomputed from the original graph — exposed for tests and
// reporting rather than routing, which reads from graph.Store directly.
func CutWeight(g *AdjGraph, placement *Placement, a, b PartId) uint32 {
	labelSet := func(p *AdjGraph) map[graph.DeviceId]bool {
		m := make(map[graph.DeviceId]bool, len(p.Labels))
		for _, l := range p.Labels {
			m[l] = true
		}
		return m
	}
	inA := labelSet(placement.Parts[a])
	inB := labelSet(placement.Parts[b])

	w := uint32(0)
	for u := 0; u < g.N; u++ {
		if !inA[g.Labels[u]] {
			continue
		}
		for _, nb := range g.Adj[u] {
			if inB[g.Labels[nb.To]] {
				w += nb.Weight
			}
		}
	}
	return w
}
