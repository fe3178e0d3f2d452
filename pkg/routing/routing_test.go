package routing

import (
	"testing"

	"github.com/sarchlab/polite/pkg/addr"
	"github.com/sarchlab/polite/pkg/graph"
)

// linearPlacement maps device i to thread i (one device per thread), local
// id always 0 — enough to exercise Build without pulling in the placer.
func linearPlacement(t *testing.T, n int) func(graph.DeviceId) addr.DeviceAddr {
	t.Helper()
	return func(d graph.DeviceId) addr.DeviceAddr {
		return addr.MakeDeviceAddr(addr.ThreadId(uint32(d)), 0)
	}
}

func TestBuildAssignsDenseEdgeIndices(t *testing.T) {
	s := graph.NewStore[string](2)
	a := s.NewDevice()
	b := s.NewDevice()
	c := s.NewDevice()

	_ = s.AddLabelledEdge("a->c#1", a, 0, c)
	_ = s.AddLabelledEdge("a->c#2", a, 1, c)
	_ = s.AddLabelledEdge("b->c#1", b, 0, c)

	toAddr := linearPlacement(t, 3)
	tables, err := Build(s, 3, toAddr)
	if err != nil {
		t.Fatal(err)
	}

	cThread := toAddr(c).ThreadId()
	inEdges := tables.InEdges[cThread]
	if len(inEdges) != 3 {
		t.Fatalf("expected 3 in-edges on device c's thread, got %d", len(inEdges))
	}
	// Edge index assignment follows AllEdgesInOrder: (a,0) before (a,1) before (b,0).
	want := []string{"a->c#1", "a->c#2", "b->c#1"}
	for i, w := range want {
		if inEdges[i] != w {
			t.Fatalf("in-edge %d: want %q got %q", i, w, inEdges[i])
		}
	}

	outA0 := tables.OutEdges[a][0]
	if len(outA0) != 1 || outA0[0].Key.EdgeIndex() != 0 {
		t.Fatalf("expected (a,0) to route with edge index 0, got %+v", outA0)
	}
	outA1 := tables.OutEdges[a][1]
	if len(outA1) != 1 || outA1[0].Key.EdgeIndex() != 1 {
		t.Fatalf("expected (a,1) to route with edge index 1, got %+v", outA1)
	}
	outB0 := tables.OutEdges[b][0]
	if len(outB0) != 1 || outB0[0].Key.EdgeIndex() != 2 {
		t.Fatalf("expected (b,0) to route with edge index 2, got %+v", outB0)
	}
}

func TestRoutingKeyRoundTripsThroughBuild(t *testing.T) {
	s := graph.NewStore[int](1)
	a := s.NewDevice()
	b := s.NewDevice()
	_ = s.AddEdge(a, 0, b)

	toAddr := linearPlacement(t, 2)
	tables, err := Build(s, 2, toAddr)
	if err != nil {
		t.Fatal(err)
	}

	dest := tables.OutEdges[a][0][0]
	if dest.Key.LocalDeviceId() != toAddr(b).LocalDeviceId() {
		t.Fatalf("routing key local device id mismatch: got %d want %d", dest.Key.LocalDeviceId(), toAddr(b).LocalDeviceId())
	}
	if dest.Addr != toAddr(b) {
		t.Fatalf("routing destination address mismatch: got %d want %d", dest.Addr, toAddr(b))
	}
}

func TestCompactByBoardGroupsDestinations(t *testing.T) {
	p := addr.DefaultParams
	threadA := addr.MakeThreadId(p, addr.ThreadCoord{BoardX: 0, BoardY: 0})
	threadB := addr.MakeThreadId(p, addr.ThreadCoord{BoardX: 1, BoardY: 0})

	dests := []RoutingDest{
		{Addr: addr.MakeDeviceAddr(threadA, 0), Key: addr.MakeRoutingKey(0, 0)},
		{Addr: addr.MakeDeviceAddr(threadA, 1), Key: addr.MakeRoutingKey(1, 1)},
		{Addr: addr.MakeDeviceAddr(threadB, 0), Key: addr.MakeRoutingKey(0, 0)},
	}

	boardsX := uint32(1) << p.MeshXBits
	boardOf := func(t addr.ThreadId) uint32 { return addr.BoardIdOf(p, boardsX, t) }

	byBoard := CompactByBoard(dests, boardOf)
	if len(byBoard) != 2 {
		t.Fatalf("expected destinations grouped into 2 boards, got %d", len(byBoard))
	}
	boardA := boardOf(threadA)
	if got := len(byBoard[boardA].Destinations[threadA]); got != 2 {
		t.Fatalf("expected 2 destinations on thread A, got %d", got)
	}
}

func TestCheckBoardCapacityAcceptsASmallBoard(t *testing.T) {
	p := addr.DefaultParams
	threadA := addr.MakeThreadId(p, addr.ThreadCoord{BoardX: 0, BoardY: 0})

	dests := []RoutingDest{
		{Addr: addr.MakeDeviceAddr(threadA, 0), Key: addr.MakeRoutingKey(0, 0)},
	}
	boardsX := uint32(1) << p.MeshXBits
	boardOf := func(t addr.ThreadId) uint32 { return addr.BoardIdOf(p, boardsX, t) }

	byBoard := CompactByBoard(dests, boardOf)
	if err := CheckBoardCapacity(byBoard); err != nil {
		t.Fatalf("unexpected error on a tiny board: %v", err)
	}
}

func TestCheckBoardCapacityDetectsExhaustion(t *testing.T) {
	// Not economical to actually route 65537 distinct destination threads
	// through a real placement — this documents the contract via a
	// synthetic BoardRouting shaped like the production code's overflow
	// condition, exercised directly.
	board := &BoardRouting{Board: 0, Destinations: make(map[addr.ThreadId][]RoutingDest)}
	for tid := addr.ThreadId(0); int(tid) <= MaxBoardDestinationThreads; tid++ {
		board.Destinations[tid] = []RoutingDest{{Addr: addr.MakeDeviceAddr(tid, 0)}}
	}

	err := CheckBoardCapacity(map[uint32]*BoardRouting{0: board})
	if err == nil {
		t.Fatal("expected BoardCapacityError when a board exceeds MaxBoardDestinationThreads")
	}
	bce, ok := err.(*BoardCapacityError)
	if !ok {
		t.Fatalf("expected *BoardCapacityError, got %T", err)
	}
	if bce.Board != 0 || bce.Count != MaxBoardDestinationThreads+1 {
		t.Fatalf("unexpected error fields: %+v", bce)
	}
}

func TestBuildDetectsKeySpaceExhaustion(t *testing.T) {
	// A tiny graph builds; one edge more than a 16-bit edge index can
	// address, all landing on one thread, is refused.
	s := graph.NewStore[int](1)
	a := s.NewDevice()
	b := s.NewDevice()
	_ = s.AddEdge(a, 0, b)

	toAddr := linearPlacement(t, 2)
	_, err := Build(s, 2, toAddr)
	if err != nil {
		t.Fatalf("unexpected error on a tiny graph: %v", err)
	}

	big := graph.NewStore[int](1)
	x := big.NewDevice()
	y := big.NewDevice()
	for i := 0; i < 0x10001; i++ {
		_ = big.AddEdge(x, 0, y)
	}
	_, err = Build(big, 2, toAddr)
	kse, ok := err.(*KeySpaceExhaustedError)
	if !ok {
		t.Fatalf("expected *KeySpaceExhaustedError, got %T (%v)", err, err)
	}
	if kse.Thread != toAddr(y).ThreadId() || kse.Count != 0x10001 {
		t.Fatalf("unexpected error fields: %+v", kse)
	}
}
