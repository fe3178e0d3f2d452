// Package routing builds the per-thread in-edge tables and per-(device,pin)
// sender routing destinations from a placed graph — the router builder (C4).
// It never models the hardware link topology directly: in this simulated
// mesh, delivery is a direct port send (see pkg/runtime), so what matters
// here is purely the addressing data threads read at send/receive time.
package routing

import (
	"fmt"

	"github.com/sarchlab/polite/pkg/addr"
	"github.com/sarchlab/polite/pkg/graph"
)

// KeySpaceExhaustedError is returned when a thread accumulates more incoming
// edges than a 16-bit edge index can address (65536 edges landing on one
// thread) — a graph/placement combination too lopsided to route, not a
// programmer error.
type KeySpaceExhaustedError struct {
	Thread addr.ThreadId
	Count  int
}

func (e *KeySpaceExhaustedError) Error() string {
	return fmt.Sprintf("routing: thread %d accumulated %d in-edges, exceeding the 16-bit edge index space", e.Thread, e.Count)
}

// RoutingDest is one entry a sender-side device writes into its pin's
// routing destination list: the address of the receiving device and the
// routing key a receiving thread uses to find the matching in-edge entry.
type RoutingDest struct {
	Addr addr.DeviceAddr
	Key  addr.RoutingKey
}

// Tables is the full routing-relevant output of building: in-edge tables
// indexed by destination thread, and routing destination lists indexed by
// (sending device, pin).
type Tables[E any] struct {
	// InEdges[threadId][edgeIndex] is the label of the edge assigned that
	// index in thread threadId's in-edge table — the exact value every
	// receive on that thread looks up via the routing key's edge index.
	InEdges [][]E

	// OutEdges[dev][pin] is the ordered routing destination list for
	// device dev's pin, one entry per edge at that (dev, pin) in insertion
	// order — the order a device's send handler iterates to fan a message
	// out.
	OutEdges [][][]RoutingDest
}

// Build walks every edge of s in (device, pin, insertion) order — the same
// total order graph.Store.AllEdgesInOrder exposes — and, for each edge,
// appends its label to the destination thread's in-edge table and records
// the resulting edge index in a RoutingDest appended to the source
// (device, pin)'s out-edge list. toAddr must return the DeviceAddr a device
// was placed at; numThreads bounds the in-edge table slice.
func Build[E any](s *graph.Store[E], numThreads int, toAddr func(graph.DeviceId) addr.DeviceAddr) (*Tables[E], error) {
	t := &Tables[E]{
		InEdges:  make([][]E, numThreads),
		OutEdges: make([][][]RoutingDest, s.NumDevices()),
	}
	for d := range t.OutEdges {
		t.OutEdges[d] = make([][]RoutingDest, s.PMax())
	}

	var buildErr error
	s.AllEdgesInOrder(func(from graph.DeviceId, pin graph.PinId, _ int, label E, to graph.DeviceId) bool {
		toAddrVal := toAddr(to)
		tid := toAddrVal.ThreadId()

		edgeIdx := len(t.InEdges[tid])
		if edgeIdx > 0xffff {
			buildErr = &KeySpaceExhaustedError{Thread: tid, Count: edgeIdx + 1}
			return false
		}
		t.InEdges[tid] = append(t.InEdges[tid], label)

		key := addr.MakeRoutingKey(toAddrVal.LocalDeviceId(), uint16(edgeIdx))
		t.OutEdges[from][pin] = append(t.OutEdges[from][pin], RoutingDest{Addr: toAddrVal, Key: key})
		return true
	})

	if buildErr != nil {
		return nil, buildErr
	}
	return t, nil
}

// BoardRouting is the per-board compaction of a sender's routing
// destinations: every destination reachable from devices placed on one
// board, grouped by destination thread. It mirrors the programmable
// router's per-board destination table without modeling the router's
// internal link-path compression, since delivery in this simulated mesh
// never leaves the direct inter-thread ports pkg/runtime wires up.
type BoardRouting struct {
	Board        uint32
	Destinations map[addr.ThreadId][]RoutingDest
}

// CompactByBoard groups a flat list of routing destinations by the board
// hosting each destination thread, as the per-board programmable router
// would at mesh-build time.
func CompactByBoard(dests []RoutingDest, boardOf func(addr.ThreadId) uint32) map[uint32]*BoardRouting {
	out := make(map[uint32]*BoardRouting)
	for _, d := range dests {
		tid := d.Addr.ThreadId()
		board := boardOf(tid)
		br, ok := out[board]
		if !ok {
			br = &BoardRouting{Board: board, Destinations: make(map[addr.ThreadId][]RoutingDest)}
			out[board] = br
		}
		br.Destinations[tid] = append(br.Destinations[tid], d)
	}
	return out
}

// MaxBoardDestinationThreads bounds how many distinct destination threads
// one board's programmable router contents may name. A board's router
// table is keyed by destination thread the same way a receiving thread's
// in-edge table is keyed by a 16-bit edge index, so it shares that index
// width.
const MaxBoardDestinationThreads = 0xffff

// BoardCapacityError is returned when a board's compacted router contents
// would have to name more distinct destination threads than
// MaxBoardDestinationThreads allows — a board too many other boards route
// into, not a programmer error.
type BoardCapacityError struct {
	Board uint32
	Count int
}

func (e *BoardCapacityError) Error() string {
	return fmt.Sprintf("routing: board %d routes to %d distinct destination threads, exceeding the board router's capacity", e.Board, e.Count)
}

// CheckBoardCapacity reports a BoardCapacityError for the first board (in
// map iteration order) whose compacted router contents name more distinct
// destination threads than MaxBoardDestinationThreads allows.
func CheckBoardCapacity(byBoard map[uint32]*BoardRouting) error {
	for board, br := range byBoard {
		if len(br.Destinations) > MaxBoardDestinationThreads {
			return &BoardCapacityError{Board: board, Count: len(br.Destinations)}
		}
	}
	return nil
}
