package runtime

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/polite/pkg/addr"
	"github.com/sarchlab/polite/pkg/routing"
)

// pendingSend is an in-flight device send that hasn't finished fanning out
// to every routing destination of its pin yet — a device may have more
// destinations on one pin than the port can drain in a single tick.
type pendingSend[M any] struct {
	pin       int
	msg       M
	remaining []routing.RoutingDest
}

// ThreadStats accumulates the per-thread message counters pkg/report
// surfaces in its summary table (POLITE_COUNT_MSGS in the original).
type ThreadStats struct {
	Sent     uint64
	Received uint64
	Steps    uint64
}

// Thread is one hardware thread: a fixed set of local devices running the
// same Handler, a single mesh Port, and the event loop that enforces the
// send/receive/idle priority the original PThread::run hand-rolled in
// assembly. Every local device index below is the device's LocalDeviceId —
// dense, starting at 0, as placement assigns them.
type Thread[S, E, M any] struct {
	*sim.TickingComponent

	handler Handler[S, E, M]
	port    Port

	states   []*State[S]
	inEdges  []E
	outEdges [][][]routing.RoutingDest // outEdges[local][pin]

	remoteOf func(addr.ThreadId) sim.RemotePort

	stack   []int
	inStack []bool
	pending map[int]*pendingSend[M]

	active     []bool
	initDone   bool
	doneFinish []bool
	allFinish  bool

	// barrier is the mesh-wide idle handshake gating this thread's Step
	// phase against every other Thread sharing it (see barrier.go); nil
	// for a thread built without one, which falls back to stepping as
	// soon as it locally has nothing pending, with no cross-thread vote.
	barrier    *Barrier
	barrierIdx int
	stepping   bool
	stepQueue  []int
	terminated bool

	emit func(local int, key string, value uint32)

	Stats ThreadStats
}

// NewThread creates a thread with numLocal local devices, numbered
// 0..numLocal-1, all sharing handler. inEdges is this thread's slice of the
// routing.Tables.InEdges table; outEdges[local][pin] is the corresponding
// slice of routing.Tables.OutEdges for each device placed here. initial, if
// non-nil, seeds each local device's App before Init runs on it — the
// runtime equivalent of a caller mutating a device's state through
// PGraph's devices[id] pointer before the fabric is booted; a nil initial
// leaves every device's App at S's zero value. remoteOf resolves a
// destination ThreadId to the mesh port it should be addressed through
// (see mesh.go). barrier, if non-nil, is the shared mesh-wide idle
// handshake this thread votes into at barrierIdx every superstep; a nil
// barrier leaves this thread stepping independently, with no cross-thread
// coordination.
func NewThread[S, E, M any](
	name string,
	engine sim.Engine,
	freq sim.Freq,
	handler Handler[S, E, M],
	pMax uint32,
	numLocal int,
	initial []S,
	inEdges []E,
	outEdges [][][]routing.RoutingDest,
	remoteOf func(addr.ThreadId) sim.RemotePort,
	emit func(local int, key string, value uint32),
	barrier *Barrier,
	barrierIdx int,
) *Thread[S, E, M] {
	t := &Thread[S, E, M]{
		handler:    handler,
		inEdges:    inEdges,
		outEdges:   outEdges,
		remoteOf:   remoteOf,
		inStack:    make([]bool, numLocal),
		pending:    make(map[int]*pendingSend[M]),
		active:     make([]bool, numLocal),
		doneFinish: make([]bool, numLocal),
		emit:       emit,
		barrier:    barrier,
		barrierIdx: barrierIdx,
	}
	t.TickingComponent = sim.NewTickingComponent(name, engine, freq, t)
	t.port = NewPort(t, 64, 1, name+".Mesh")
	t.AddPort("Mesh", t.port)

	t.states = make([]*State[S], numLocal)
	for i := range t.states {
		t.states[i] = NewState[S](pMax)
		if initial != nil {
			t.states[i].App = initial[i]
		}
		t.active[i] = true
	}

	return t
}

// Port returns the thread's mesh-facing port, for plugging into the shared
// fabric connection.
func (t *Thread[S, E, M]) Port() Port { return t.port }

// Tick runs one cycle of the event loop: initialize on the very first
// tick, then prefer sending over receiving over stepping over finishing,
// matching the original's send/receive/idle priority (spec §4.5's send
// rule always wins when both a send and a receive are possible, since a
// blocked sender risks starving its neighbors; receiving always drains
// before stepping, since new messages can flip a device active again
// before the idle rule would otherwise retire it). When this thread has a
// Barrier, the idle rule becomes a fabric-wide vote (tickBarrier) instead
// of stepping unilaterally (tickNoBarrier).
func (t *Thread[S, E, M]) Tick(now sim.VTimeInSec) bool {
	if !t.initDone {
		t.runInit()
		return true
	}

	if t.barrier == nil {
		return t.tickNoBarrier(now)
	}
	return t.tickBarrier(now)
}

func (t *Thread[S, E, M]) tickNoBarrier(now sim.VTimeInSec) bool {
	if t.trySend(now) {
		t.Stats.Sent++
		return true
	}

	if t.tryRecv() {
		t.Stats.Received++
		return true
	}

	if t.tryStep() {
		t.Stats.Steps++
		return true
	}

	return t.tryFinish()
}

// tickBarrier runs the same send/receive priority as tickNoBarrier, but
// routes the idle rule through t.barrier: a thread with nothing to send or
// receive votes its active state in and waits for every thread sharing the
// barrier to agree before anyone steps (idle_level 1) or terminates
// (idle_level 2), per spec §4.5.3 rule 3 and §5.
func (t *Thread[S, E, M]) tickBarrier(now sim.VTimeInSec) bool {
	if t.terminated {
		return t.tryFinish()
	}

	if t.trySend(now) {
		t.barrier.Advance(t.barrierIdx)
		t.Stats.Sent++
		return true
	}

	if t.tryRecv() {
		t.barrier.Advance(t.barrierIdx)
		t.Stats.Received++
		return true
	}

	return t.tryIdle()
}

// tryIdle casts or continues this thread's barrier vote. While a step
// round is in progress it drains one queued device per tick instead of
// re-voting (beginStep/drainStep); otherwise it votes with Arrive and, once
// every thread has voted, either starts a step round or terminates
// depending on the round's resolution. An unresolved vote returns true —
// idle_level 0, a spurious wake that simply polls again next tick.
func (t *Thread[S, E, M]) tryIdle() bool {
	if t.stepping {
		return t.drainStep()
	}

	resolved, terminate := t.barrier.Arrive(t.barrierIdx, t.hasActiveDevice())
	if !resolved {
		return true
	}

	if terminate {
		t.terminated = true
		t.barrier.Leave(t.barrierIdx)
		return true
	}

	t.beginStep()
	return t.drainStep()
}

func (t *Thread[S, E, M]) hasActiveDevice() bool {
	for _, active := range t.active {
		if active {
			return true
		}
	}
	return false
}

// beginStep snapshots every currently active local device into a queue so
// drainStep can run each of them through Step exactly once this round, no
// matter how many ticks draining the queue takes.
func (t *Thread[S, E, M]) beginStep() {
	t.stepQueue = t.stepQueue[:0]
	for local, active := range t.active {
		if active {
			t.stepQueue = append(t.stepQueue, local)
		}
	}
	t.stepping = true
}

// drainStep steps one queued device per call. Once the queue is empty it
// leaves the barrier, letting the next superstep's round begin once every
// other thread has also left.
func (t *Thread[S, E, M]) drainStep() bool {
	if len(t.stepQueue) == 0 {
		t.stepping = false
		t.barrier.Leave(t.barrierIdx)
		return true
	}

	local := t.stepQueue[0]
	t.stepQueue = t.stepQueue[1:]
	still := t.handler.Step(t.states[local])
	t.active[local] = still
	if t.states[local].AnyReady() {
		t.push(local)
	}
	t.Stats.Steps++
	return true
}

func (t *Thread[S, E, M]) runInit() {
	for i, st := range t.states {
		t.handler.Init(st)
		if st.AnyReady() {
			t.push(i)
		}
	}
	t.initDone = true
}

func (t *Thread[S, E, M]) push(local int) {
	if t.inStack[local] {
		return
	}
	t.inStack[local] = true
	t.stack = append(t.stack, local)
}

func (t *Thread[S, E, M]) pop() int {
	n := len(t.stack)
	local := t.stack[n-1]
	t.stack = t.stack[:n-1]
	t.inStack[local] = false
	return local
}

// trySend advances the top-of-stack device's current send, starting a new
// one if it has no pending fan-out in progress. It returns true iff it made
// progress this tick (spent the one message the port allows).
func (t *Thread[S, E, M]) trySend(now sim.VTimeInSec) bool {
	if len(t.stack) == 0 || !t.port.CanSend() {
		return false
	}

	local := t.stack[len(t.stack)-1]
	ps, ok := t.pending[local]
	if !ok {
		pin := t.states[local].FirstReady()
		if pin < 0 {
			t.pop()
			return false
		}
		msg := t.handler.Send(t.states[local], pin)
		dests := make([]routing.RoutingDest, len(t.outEdges[local][pin]))
		copy(dests, t.outEdges[local][pin])
		ps = &pendingSend[M]{pin: pin, msg: msg, remaining: dests}
		t.pending[local] = ps
	}

	if len(ps.remaining) == 0 {
		t.finishSend(local)
		return true
	}

	dest := ps.remaining[0]
	dst := t.remoteOf(dest.Addr.ThreadId())
	wireMsg := MsgBuilder{}.
		WithSrc(t.port).
		WithDst(dst).
		WithKey(dest.Key).
		WithPayload(ps.msg).
		WithSendTime(now).
		Build()
	// A destination on this same thread (a self-loop pin, or two devices
	// placed together) goes straight into the thread's own incoming buffer:
	// the port refuses to send a message back to its own source.
	var err *sim.SendError
	if dst == t.port.AsRemote() {
		err = t.port.Deliver(wireMsg)
	} else {
		err = t.port.Send(wireMsg)
	}
	if err != nil {
		return false
	}
	ps.remaining = ps.remaining[1:]
	if len(ps.remaining) == 0 {
		t.finishSend(local)
	}
	return true
}

func (t *Thread[S, E, M]) finishSend(local int) {
	delete(t.pending, local)
	t.pop()
	if t.states[local].AnyReady() {
		t.push(local)
	}
}

func (t *Thread[S, E, M]) tryRecv() bool {
	msg := t.port.PeekIncoming()
	if msg == nil {
		return false
	}
	t.port.RetrieveIncoming()

	m := msg.(*Msg)
	local := int(m.Key.LocalDeviceId())
	edgeIdx := int(m.Key.EdgeIndex())
	label := t.inEdges[edgeIdx]

	t.handler.Recv(t.states[local], label, m.Payload.(M))
	t.active[local] = true

	if t.states[local].AnyReady() {
		t.push(local)
	}
	return true
}

func (t *Thread[S, E, M]) tryStep() bool {
	for local, active := range t.active {
		if !active {
			continue
		}
		still := t.handler.Step(t.states[local])
		t.active[local] = still
		if t.states[local].AnyReady() {
			t.push(local)
		}
		return true
	}
	return false
}

func (t *Thread[S, E, M]) tryFinish() bool {
	for local, done := range t.doneFinish {
		if done || t.active[local] {
			continue
		}
		t.handler.Finish(t.states[local], func(key string, value uint32) {
			if t.emit != nil {
				t.emit(local, key, value)
			}
		})
		t.doneFinish[local] = true
		return true
	}
	return false
}
