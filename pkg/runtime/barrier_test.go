package runtime

import (
	"testing"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/polite/pkg/addr"
	"github.com/sarchlab/polite/pkg/routing"
)

// countingHandler has no sends or receives — it exercises the idle rule in
// isolation — and counts every Step call so tests can tell exactly when the
// barrier let a thread step.
type countingHandler struct {
	steps *int
	limit int
}

func (h *countingHandler) Init(*State[int])           {}
func (h *countingHandler) Send(*State[int], int) int  { return 0 }
func (h *countingHandler) Recv(*State[int], int, int) {}
func (h *countingHandler) Step(*State[int]) bool {
	*h.steps++
	return *h.steps < h.limit
}
func (h *countingHandler) Finish(*State[int], func(string, uint32)) {}

func newBarrierTestThread(handler Handler[int, int, int], barrier *Barrier, idx int) *Thread[int, int, int] {
	th := &Thread[int, int, int]{
		handler:    handler,
		port:       newFakePort("T"),
		states:     []*State[int]{NewState[int](1)},
		inEdges:    nil,
		outEdges:   [][][]routing.RoutingDest{{{}}},
		remoteOf:   func(addr.ThreadId) sim.RemotePort { return "" },
		inStack:    make([]bool, 1),
		pending:    make(map[int]*pendingSend[int]),
		active:     []bool{true},
		doneFinish: make([]bool, 1),
		barrier:    barrier,
		barrierIdx: idx,
		initDone:   true,
	}
	th.emit = func(int, string, uint32) {}
	return th
}

// TestBarrierGatesStepAcrossThreads checks that a thread with nothing to
// send or receive never steps on its own — it only steps once every thread
// sharing its Barrier has also voted idle, per spec.md §4.5.3 rule 3.
func TestBarrierGatesStepAcrossThreads(t *testing.T) {
	barrier := NewBarrier(2)
	var stepsA, stepsB int
	tA := newBarrierTestThread(&countingHandler{steps: &stepsA, limit: 1}, barrier, 0)
	tB := newBarrierTestThread(&countingHandler{steps: &stepsB, limit: 1}, barrier, 1)

	for i := 0; i < 5; i++ {
		tA.Tick(0)
	}
	if stepsA != 0 {
		t.Fatalf("thread A stepped before thread B voted: stepsA=%d", stepsA)
	}

	tB.Tick(0)
	if stepsB != 1 {
		t.Fatalf("expected thread B to step once its own vote resolved the round, got %d", stepsB)
	}
	if stepsA != 0 {
		t.Fatalf("thread A must not step until it itself ticks past the resolved round, got %d", stepsA)
	}

	tA.Tick(0)
	if stepsA != 1 {
		t.Fatalf("expected thread A to step exactly once after the barrier resolved, got %d", stepsA)
	}
}

// TestBarrierTerminatesOnlyWhenEveryThreadIsInactive checks idle_level 2:
// the mesh only agrees to terminate once every thread's vote is inactive,
// and no thread steps on the way there.
func TestBarrierTerminatesOnlyWhenEveryThreadIsInactive(t *testing.T) {
	barrier := NewBarrier(2)
	var stepsA, stepsB int
	tA := newBarrierTestThread(&countingHandler{steps: &stepsA, limit: 0}, barrier, 0)
	tB := newBarrierTestThread(&countingHandler{steps: &stepsB, limit: 0}, barrier, 1)
	tA.active[0] = false
	tB.active[0] = false

	tA.Tick(0)
	if tA.terminated {
		t.Fatal("thread A terminated before thread B voted")
	}

	tB.Tick(0)
	if !tB.terminated {
		t.Fatal("expected thread B to terminate once its own vote resolved the round")
	}

	tA.Tick(0)
	if !tA.terminated {
		t.Fatal("expected thread A to terminate once it ticked past the resolved round")
	}

	if stepsA != 0 || stepsB != 0 {
		t.Fatalf("expected no Step calls when every thread voted inactive, got A=%d B=%d", stepsA, stepsB)
	}
}
