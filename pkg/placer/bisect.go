package placer

import "sort"

// cutBetween returns the total edge weight crossing between side and the
// complement, given a vertex->side assignment (side[v] == true means "in the
// set").
func cutBetween(g *AdjGraph, side []bool) uint32 {
	cut := uint32(0)
	for u := 0; u < g.N; u++ {
		if !side[u] {
			continue
		}
		for _, nb := range g.Adj[u] {
			if !side[nb.To] {
				cut += nb.Weight
			}
		}
	}
	return cut
}

// bisect splits g's vertices into two sides sized target and g.N-target,
// minimizing the cut weight between them. It starts from a deterministic
// BFS order (keeps locally-connected vertices on the same side before any
// refinement) and then runs a bounded number of Kernighan-Lin style
// swap passes: on each pass, find the single highest-gain swap of one
// vertex from each side that keeps the sizes exactly fixed, apply it if the
// gain is positive, and stop once no positive-gain swap remains. Ties are
// broken by lowest vertex index on both sides, so the result depends only on
// g and target, never on map iteration order or wall-clock time.
func bisect(g *AdjGraph, target int) []bool {
	order := bfsOrder(g)
	side := make([]bool, g.N)
	for i := 0; i < target; i++ {
		side[order[i]] = true
	}

	maxPasses := g.N + 1
	for pass := 0; pass < maxPasses; pass++ {
		var a, b []int
		for v := 0; v < g.N; v++ {
			if side[v] {
				a = append(a, v)
			} else {
				b = append(b, v)
			}
		}

		bestGain := int64(0)
		bestU, bestV := -1, -1
		for _, u := range a {
			for _, v := range b {
				gain := swapGain(g, side, u, v)
				if gain > bestGain || (gain == bestGain && gain > 0 && (bestU < 0 || u < bestU || (u == bestU && v < bestV))) {
					bestGain, bestU, bestV = gain, u, v
				}
			}
		}

		if bestGain <= 0 {
			break
		}
		side[bestU], side[bestV] = side[bestV], side[bestU]
	}

	return side
}

// swapGain is the reduction in cut weight from swapping u (currently on
// side[u]) and v (currently on the other side): the edges between u and v
// contribute nothing to the gain since a swap keeps them cut either way.
func swapGain(g *AdjGraph, side []bool, u, v int) int64 {
	before := int64(cutContribution(g, side, u) + cutContribution(g, side, v))

	side[u], side[v] = side[v], side[u]
	after := int64(cutContribution(g, side, u) + cutContribution(g, side, v))
	side[u], side[v] = side[v], side[u]

	return before - after
}

// cutContribution is the total weight of edges from v that cross to the
// other side, under the current assignment.
func cutContribution(g *AdjGraph, side []bool, v int) uint32 {
	w := uint32(0)
	for _, nb := range g.Adj[v] {
		if side[nb.To] != side[v] {
			w += nb.Weight
		}
	}
	return w
}

// bfsOrder returns a deterministic vertex order: breadth-first from vertex
// 0, restarting (in ascending vertex-id order) on every component not yet
// visited, descending into neighbors in ascending neighbor-id order. Vertices
// reachable from each other end up adjacent in the order, giving the initial
// bisection a head start before any refinement runs.
func bfsOrder(g *AdjGraph) []int {
	visited := make([]bool, g.N)
	order := make([]int, 0, g.N)

	for start := 0; start < g.N; start++ {
		if visited[start] {
			continue
		}
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			order = append(order, v)

			neighbors := make([]int, len(g.Adj[v]))
			for i, nb := range g.Adj[v] {
				neighbors[i] = nb.To
			}
			sort.Ints(neighbors)
			for _, n := range neighbors {
				if !visited[n] {
					visited[n] = true
					queue = append(queue, n)
				}
			}
		}
	}
	return order
}

// recursivePartition assigns every vertex of g a part id in [0, k), by
// recursively bisecting into balanced halves until each half holds exactly
// one part, rounding odd splits so the left half gets the larger share. Each
// split sizes its halves in proportion to their part counts (n*k1/k, rounded
// down), so parts stay within ±5% of n/k up to rounding to whole vertices;
// it is deterministic given g and k.
func recursivePartition(g *AdjGraph, k int) []int {
	partOf := make([]int, g.N)
	if k <= 1 {
		return partOf
	}
	assignPartition(g, allVertices(g.N), k, 0, partOf)
	return partOf
}

func allVertices(n int) []int {
	v := make([]int, n)
	for i := range v {
		v[i] = i
	}
	return v
}

// assignPartition recursively splits the induced subgraph over vertices
// (original ids) into k parts, writing the resulting part id (offset by
// base) into partOf, indexed by original vertex id.
func assignPartition(parent *AdjGraph, vertices []int, k, base int, partOf []int) {
	if k == 1 {
		for _, v := range vertices {
			partOf[v] = base
		}
		return
	}

	k1 := (k + 1) / 2
	k2 := k / 2
	n := len(vertices)
	target := n * k1 / k

	sub := parent.Induced(vertices)
	side := bisect(sub, target)

	var left, right []int
	for i, v := range vertices {
		if side[i] {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}

	assignPartition(parent, left, k1, base, partOf)
	assignPartition(parent, right, k2, base+k1, partOf)
}
