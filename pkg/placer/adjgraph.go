package placer

import (
	"sort"

	"github.com/sarchlab/polite/pkg/graph"
)

// Neighbor is one weighted entry in an AdjGraph adjacency list.
type Neighbor struct {
	To     int
	Weight uint32
}

// AdjGraph is an undirected, edge-weighted graph over a dense local vertex
// index [0, N). It is the collapsed structure the placer partitions and
// places — it only needs connectivity and cut weight, not the full
// per-pin, per-label structure the router builder later reads from the
// original graph.Store.
//
// Labels maps a local vertex index back to the DeviceId it represents at
// the top of the recursion; Induced subgraphs carry the same DeviceId
// through every level, so the bottom of the recursion always knows which
// original device a local index stands for.
type AdjGraph struct {
	N      int
	Labels []graph.DeviceId
	Adj    [][]Neighbor // Adj[i] sorted by To, ascending — keeps every pass over it deterministic
}

// NewAdjGraph creates an edgeless graph over n vertices labelled 0..n-1.
func NewAdjGraph(n int) *AdjGraph {
	labels := make([]graph.DeviceId, n)
	for i := range labels {
		labels[i] = graph.DeviceId(i)
	}
	return &AdjGraph{N: n, Labels: labels, Adj: make([][]Neighbor, n)}
}

// BuildAdjacency collapses a graph.Store into the undirected weighted
// adjacency the placer needs: every directed (device,pin)->device edge adds
// weight to the corresponding undirected pair, self-loops (e.g. the single
// device of a heat-diffusion scenario wired to itself) are dropped since
// they never contribute to any cut.
func BuildAdjacency[E any](s *graph.Store[E]) *AdjGraph {
	n := s.NumDevices()
	g := NewAdjGraph(n)
	weights := make([]map[int]uint32, n)
	for i := range weights {
		weights[i] = make(map[int]uint32)
	}

	s.AllEdgesInOrder(func(from graph.DeviceId, _ graph.PinId, _ int, _ E, to graph.DeviceId) bool {
		u, v := int(from), int(to)
		if u == v {
			return true
		}
		weights[u][v]++
		weights[v][u]++
		return true
	})

	for i, m := range weights {
		for to, w := range m {
			g.Adj[i] = append(g.Adj[i], Neighbor{To: to, Weight: w})
		}
		sort.Slice(g.Adj[i], func(a, b int) bool { return g.Adj[i][a].To < g.Adj[i][b].To })
	}
	return g
}

// weightTo returns the edge weight from vertex u to vertex v (0 if absent).
// Adj[u] is sorted, so this is a binary search rather than a linear scan.
func (g *AdjGraph) weightTo(u, v int) uint32 {
	adj := g.Adj[u]
	i := sort.Search(len(adj), func(i int) bool { return adj[i].To >= v })
	if i < len(adj) && adj[i].To == v {
		return adj[i].Weight
	}
	return 0
}

// Induced returns the subgraph induced by vertices (local indices into g),
// re-indexed 0..len(vertices)-1 in the order given. The returned graph's
// Labels still point at the original top-level DeviceId of each vertex.
func (g *AdjGraph) Induced(vertices []int) *AdjGraph {
	n := len(vertices)
	pos := make(map[int]int, n)
	for i, v := range vertices {
		pos[v] = i
	}

	out := &AdjGraph{N: n, Labels: make([]graph.DeviceId, n), Adj: make([][]Neighbor, n)}
	for i, v := range vertices {
		out.Labels[i] = g.Labels[v]
		for _, nb := range g.Adj[v] {
			if j, ok := pos[nb.To]; ok {
				out.Adj[i] = append(out.Adj[i], Neighbor{To: j, Weight: nb.Weight})
			}
		}
		sort.Slice(out.Adj[i], func(a, b int) bool { return out.Adj[i][a].To < out.Adj[i][b].To })
	}
	return out
}

// TotalWeight returns the sum of edge weights incident to vertex v.
func (g *AdjGraph) TotalWeight(v int) uint32 {
	w := uint32(0)
	for _, nb := range g.Adj[v] {
		w += nb.Weight
	}
	return w
}
