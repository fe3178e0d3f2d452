package placer

import "sort"

// Point is a grid coordinate.
type Point struct{ X, Y uint32 }

// placeOnGrid assigns each of the k parts (identified by index into
// cutWeight, a symmetric k x k matrix of inter-part edge weight) a distinct
// point on a width x height grid, minimizing the weighted total Manhattan
// distance between every pair of parts. It never calls into math/rand or
// the clock: the initial layout is built by a fixed center-of-gravity
// heuristic (most-connected part first, at the grid center; every later
// part at the empty cell nearest the centroid of its already-placed
// neighbors), then a bounded number of deterministic pairwise-swap passes
// (the "annealing" passes, effort of them) greedily accepts any swap that
// lowers the total cost, scanning candidate pairs in a fixed part-index order so
// the result depends only on cutWeight, width, height and effort.
func placeOnGrid(cutWeight [][]uint32, width, height uint32, effort int) []Point {
	k := len(cutWeight)
	points := make([]Point, 0, width*height)
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			points = append(points, Point{X: x, Y: y})
		}
	}

	pos := initialLayout(cutWeight, points)

	for pass := 0; pass < effort; pass++ {
		improved := false
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				delta := swapDelta(cutWeight, pos, i, j)
				if delta < 0 {
					pos[i], pos[j] = pos[j], pos[i]
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}

	return pos
}

// initialLayout places the most-connected part at the grid center, then
// each remaining part (in descending total-weight order, ties broken by
// part index) at the empty point closest to the weighted centroid of its
// neighbors already placed, or the grid center if none are placed yet.
func initialLayout(cutWeight [][]uint32, points []Point) []Point {
	k := len(cutWeight)
	pos := make([]Point, k)
	placed := make([]bool, k)
	used := make([]bool, len(points))

	total := make([]uint32, k)
	for i := range cutWeight {
		for j, w := range cutWeight[i] {
			if i != j {
				total[i] += w
			}
		}
	}

	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if total[order[a]] != total[order[b]] {
			return total[order[a]] > total[order[b]]
		}
		return order[a] < order[b]
	})

	center := points[len(points)/2]

	for _, p := range order {
		target := center
		var sumX, sumY, sumW float64
		for q := 0; q < k; q++ {
			if placed[q] && cutWeight[p][q] > 0 {
				w := float64(cutWeight[p][q])
				sumX += w * float64(pos[q].X)
				sumY += w * float64(pos[q].Y)
				sumW += w
			}
		}
		if sumW > 0 {
			target = Point{X: uint32(sumX / sumW), Y: uint32(sumY / sumW)}
		}

		best := -1
		bestDist := int64(-1)
		for idx, pt := range points {
			if used[idx] {
				continue
			}
			d := manhattan(pt, target)
			if bestDist < 0 || d < bestDist || (d == bestDist && idx < best) {
				bestDist, best = d, idx
			}
		}
		used[best] = true
		pos[p] = points[best]
		placed[p] = true
	}

	return pos
}

func manhattan(a, b Point) int64 {
	dx := int64(a.X) - int64(b.X)
	dy := int64(a.Y) - int64(b.Y)
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// swapDelta is the change in total weighted Manhattan cost from swapping
// the grid positions of parts i and j (negative means improvement).
func swapDelta(cutWeight [][]uint32, pos []Point, i, j int) int64 {
	before := int64(0)
	after := int64(0)
	pi, pj := pos[i], pos[j]
	for m := range cutWeight {
		if m == i || m == j {
			continue
		}
		w := int64(cutWeight[i][m])
		before += w * manhattan(pi, pos[m])
		after += w * manhattan(pj, pos[m])

		w = int64(cutWeight[j][m])
		before += w * manhattan(pj, pos[m])
		after += w * manhattan(pi, pos[m])
	}
	return after - before
}
