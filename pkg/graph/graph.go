// Package graph holds the device/edge multigraph built by the caller before
// mapping: devices, their outgoing pins, and the incoming index used for
// fan-in queries and in-edge ordering. map() leaves the store unchanged —
// the placer and router builder read it but never mutate it.
package graph

import "fmt"

// DeviceId identifies a device in a Store.
type DeviceId uint32

// PinId identifies one of a device's outgoing pins.
type PinId uint32

// PinOutOfRangeError is returned when a caller references a pin at or
// beyond the compile-time bound PMax.
type PinOutOfRangeError struct {
	Device DeviceId
	Pin    PinId
	PMax   uint32
}

func (e *PinOutOfRangeError) Error() string {
	return fmt.Sprintf("graph: pin %d on device %d exceeds PMax=%d", e.Pin, e.Device, e.PMax)
}

// edge is one outgoing edge from a (device, pin) pair: a label and a
// destination device id. Edges are insertion-ordered per (device, pin) and
// duplicates are preserved — the graph is a multigraph.
type edge[E any] struct {
	Label E
	To    DeviceId
}

// Store holds a device/edge multigraph whose edges carry a label of type E.
// Pin index is bounded by PMax, a compile-time constant of the graph (the
// POLITE_NUM_PINS of the original implementation).
type Store[E any] struct {
	pMax uint32

	// outgoing[d][p] is the ordered sequence of edges leaving device d on
	// pin p.
	outgoing [][]([]edge[E])

	// incoming[d] holds the source device of every edge landing on d, one
	// entry per edge, recorded in the order those edges were added — it
	// exists purely to answer FanIn without rescanning the whole graph.
	incoming [][]DeviceId
}

// NewStore creates an empty graph store whose devices may use pins
// [0, pMax).
func NewStore[E any](pMax uint32) *Store[E] {
	return &Store[E]{pMax: pMax}
}

// PMax returns the compile-time bound on pin indices.
func (s *Store[E]) PMax() uint32 { return s.pMax }

// NumDevices returns the number of devices created so far.
func (s *Store[E]) NumDevices() int { return len(s.outgoing) }

// NewDevice creates a new device and returns its dense id.
func (s *Store[E]) NewDevice() DeviceId {
	id := DeviceId(len(s.outgoing))
	s.outgoing = append(s.outgoing, make([][]edge[E], s.pMax))
	s.incoming = append(s.incoming, nil)
	return id
}

// AddEdge adds an unlabelled edge (E's zero value) from (from, pin) to to.
func (s *Store[E]) AddEdge(from DeviceId, pin PinId, to DeviceId) error {
	var zero E
	return s.AddLabelledEdge(zero, from, pin, to)
}

// AddLabelledEdge adds an edge carrying label from (from, pin) to to.
// Repeated calls with identical arguments append distinct edges — the
// multigraph preserves duplicates and their insertion order (law L2).
func (s *Store[E]) AddLabelledEdge(label E, from DeviceId, pin PinId, to DeviceId) error {
	if uint32(pin) >= s.pMax {
		return &PinOutOfRangeError{Device: from, Pin: pin, PMax: s.pMax}
	}
	s.outgoing[from][pin] = append(s.outgoing[from][pin], edge[E]{Label: label, To: to})
	s.incoming[to] = append(s.incoming[to], from)
	return nil
}

// Outgoing returns the ordered sequence of (label, destination) pairs
// leaving device d on pin p. The returned slice must not be mutated by the
// caller.
func (s *Store[E]) Outgoing(d DeviceId, p PinId) []struct {
	Label E
	To    DeviceId
} {
	edges := s.outgoing[d][p]
	out := make([]struct {
		Label E
		To    DeviceId
	}, len(edges))
	for i, e := range edges {
		out[i] = struct {
			Label E
			To    DeviceId
		}{Label: e.Label, To: e.To}
	}
	return out
}

// FanOut returns the total number of outgoing edges of device d, across all
// pins.
func (s *Store[E]) FanOut(d DeviceId) uint32 {
	n := uint32(0)
	for _, p := range s.outgoing[d] {
		n += uint32(len(p))
	}
	return n
}

// FanIn returns the number of incoming edges of device d.
func (s *Store[E]) FanIn(d DeviceId) uint32 {
	return uint32(len(s.incoming[d]))
}

// AllEdgesInOrder walks every device and pin, in (device, pin, insertion)
// order — the total order the router builder uses to assign edge_index
// values (spec §4.4.a). fn is called once per edge; returning false from fn
// stops the walk early.
func (s *Store[E]) AllEdgesInOrder(fn func(from DeviceId, pin PinId, index int, label E, to DeviceId) bool) {
	for d := 0; d < len(s.outgoing); d++ {
		for p := 0; p < len(s.outgoing[d]); p++ {
			for i, e := range s.outgoing[d][p] {
				if !fn(DeviceId(d), PinId(p), i, e.Label, e.To) {
					return
				}
			}
		}
	}
}
