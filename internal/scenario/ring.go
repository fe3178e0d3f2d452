// Package scenario builds the small demo graphs spec.md's worked examples
// describe (token ring, heat diffusion, two-sorter) against the real
// pkg/compiler + pkg/runtime pipeline, the way test/ring, test/add, and
// friends exercise the teacher's own core/config packages end to end.
package scenario

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/polite/pkg/addr"
	"github.com/sarchlab/polite/pkg/compiler"
	"github.com/sarchlab/polite/pkg/graph"
	"github.com/sarchlab/polite/pkg/layout"
	"github.com/sarchlab/polite/pkg/placer"
	"github.com/sarchlab/polite/pkg/report"
	"github.com/sarchlab/polite/pkg/runtime"
)

// Tracker observes one thread's live counters as soon as it is built, the
// hook cmd/polite's --dashboard flag uses to register every thread with
// pkg/dashboard before the engine starts ticking.
type Tracker func(addr.ThreadId, *runtime.ThreadStats)

// RingLength, RingTokens, and RingLoops are the token-ring scenario's
// constants, matching apps/ring/ring.c's RING_LENGTH/NUM_TOKENS/NUM_LOOPS.
const (
	RingLength = 70
	RingTokens = 2
	RingLoops  = 2
)

// RingToken is the single message type the ring passes hand to hand. Left
// is the number of further hops the token must make before it has
// completed RingLoops full laps; a device that receives Left == 0 is, by
// construction, the device that originated this token.
type RingToken struct {
	Left int
}

// RingState is every ring device's application state. Queue holds the hop
// counts of tokens this device has yet to forward on its single pin,
// FIFO. Done counts tokens this device has seen return fully spent
// (Left == 0) — only the originating device (0) ever increments it, since
// each token's total hop count, RingLoops*RingLength, is a multiple of
// RingLength.
type RingState struct {
	Queue    []int
	Done     int
	Received int
}

// ringHandler runs identically on every device; no device carries its own
// identity, mirroring the original's single PDevice-per-thread program.
type ringHandler struct{}

func (ringHandler) Init(s *runtime.State[RingState]) {
	s.Ready[0] = len(s.App.Queue) > 0
}

func (ringHandler) Send(s *runtime.State[RingState], pin int) RingToken {
	left := s.App.Queue[0]
	s.App.Queue = s.App.Queue[1:]
	s.Ready[pin] = len(s.App.Queue) > 0
	return RingToken{Left: left}
}

func (ringHandler) Recv(s *runtime.State[RingState], _ struct{}, msg RingToken) {
	s.App.Received++
	if msg.Left > 0 {
		s.App.Queue = append(s.App.Queue, msg.Left-1)
		s.Ready[0] = true
		return
	}
	s.App.Done++
}

func (ringHandler) Step(*runtime.State[RingState]) bool { return false }

// Finish reports every device's receipt count under "received" (S1 asserts
// every device sees exactly RingTokens*RingLoops of them) and, on whichever
// device originated both of its tokens, an "exit" key exactly once.
func (ringHandler) Finish(s *runtime.State[RingState], emit func(key string, value uint32)) {
	emit("received", uint32(s.App.Received))
	if s.App.Done >= RingTokens {
		emit("exit", 1)
	}
}

// RingParams is the small machine RunRing maps the ring onto — 2x2 boards,
// 2x2 mailboxes per board, 4 threads per mailbox: 64 thread slots for
// RingLength (70) devices, so some threads host more than one device.
var RingParams = addr.MachineParams{
	MeshXBits:          1,
	MeshYBits:          1,
	MailboxMeshXBits:   1,
	MailboxMeshYBits:   1,
	LogCoresPerMailbox: 2,
	LogThreadsPerCore:  0,
}

// BuildRing constructs the RingLength-device ring graph: device i has one
// out-pin to device (i+1) mod RingLength. Device 0's initial state queues
// RingTokens tokens, each needing RingLoops*RingLength-1 further hops to
// complete all RingLoops laps (the send that originates it is the 0th hop).
func BuildRing() (*compiler.Graph[struct{}], map[graph.DeviceId]RingState) {
	g := compiler.NewGraph[struct{}](1, RingParams)
	ids := make([]graph.DeviceId, RingLength)
	for i := range ids {
		ids[i] = g.NewDevice()
	}
	for i, id := range ids {
		next := ids[(i+1)%RingLength]
		if err := g.AddEdge(id, 0, next); err != nil {
			panic(err)
		}
	}

	queue := make([]int, RingTokens)
	for i := range queue {
		queue[i] = RingLoops*RingLength - 1
	}
	initial := map[graph.DeviceId]RingState{
		ids[0]: {Queue: queue},
	}
	return g, initial
}

// RingResult is what RunRing reports back: the per-device message
// receipts S1 asserts on, and how many times the exit key was emitted
// (expected exactly once, by device 0).
type RingResult struct {
	ReceivedByDevice map[addr.DeviceAddr]int
	ExitCount        int
	Threads          []report.ThreadSummary
}

// RunRing maps, builds, and runs the token-ring graph to completion on a
// fresh serial engine, the way test/ring's harness would run apps/ring
// against a real Tinsel mesh. Any tracker supplied is called once per
// thread right after it is built, before the engine starts ticking.
func RunRing(track ...Tracker) (RingResult, error) {
	g, initial := BuildRing()
	mapped, err := compiler.Map[struct{}](g, 0, placer.DefaultEffort, layout.DefaultBudget)
	if err != nil {
		return RingResult{}, err
	}

	engine := sim.NewSerialEngine()
	result := RingResult{ReceivedByDevice: make(map[addr.DeviceAddr]int)}

	threads, _ := compiler.Build[RingState, struct{}, RingToken](
		mapped, ringHandler{}, 1, initial, engine, 1*sim.GHz,
		func(da addr.DeviceAddr, key string, value uint32) {
			switch key {
			case "exit":
				result.ExitCount += int(value)
			case "received":
				result.ReceivedByDevice[da] = int(value)
			}
		},
	)

	ids := mapped.Threads()
	comps := make([]runtime.MeshComponent, len(threads))
	for i, th := range threads {
		comps[i] = th
		for _, t := range track {
			t(ids[i], &th.Stats)
		}
	}
	runtime.BuildMesh(comps, engine, 1*sim.GHz, "Ring.Mesh")

	if err := engine.Run(); err != nil {
		return RingResult{}, err
	}

	result.Threads = summarize(mapped, threads)
	return result, nil
}
