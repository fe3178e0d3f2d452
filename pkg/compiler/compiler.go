// Package compiler is the host-facing compile pipeline (spec §6): the
// caller builds a graph through NewDevice/AddEdge/AddLabelledEdge, restricts
// the board rectangle with SetNumBoards, then calls Map to run the placer
// (C3), router builder (C4), and partition layout (C5's static half) in
// sequence, mirroring PGraph<DeviceType,S,E,M>::map in the original
// implementation.
package compiler

import (
	"bytes"
	"context"
	"encoding/binary"
	"strconv"
	"unsafe"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/polite/pkg/addr"
	"github.com/sarchlab/polite/pkg/graph"
	"github.com/sarchlab/polite/pkg/hostlink"
	"github.com/sarchlab/polite/pkg/layout"
	"github.com/sarchlab/polite/pkg/placer"
	"github.com/sarchlab/polite/pkg/routing"
	"github.com/sarchlab/polite/pkg/runtime"
)

// Graph is the construction-time handle the caller builds a device graph
// through. It wraps a graph.Store[E] with the machine parameters and board
// restriction Map needs, the same shape PGraph<S,E,M> exposes before map()
// is called.
type Graph[E any] struct {
	store  *graph.Store[E]
	params addr.MachineParams

	boardsX, boardsY uint32
}

// NewGraph creates an empty graph whose devices may use pins [0, pMax), to
// be mapped onto a mesh with the given machine parameters. By default every
// board the parameters allow is available; SetNumBoards restricts that.
func NewGraph[E any](pMax uint32, params addr.MachineParams) *Graph[E] {
	return &Graph[E]{
		store:   graph.NewStore[E](pMax),
		params:  params,
		boardsX: 1 << params.MeshXBits,
		boardsY: 1 << params.MeshYBits,
	}
}

// NewDevice creates a new device and returns its dense id.
func (g *Graph[E]) NewDevice() graph.DeviceId { return g.store.NewDevice() }

// AddEdge adds an unlabelled edge from (from, pin) to to.
func (g *Graph[E]) AddEdge(from graph.DeviceId, pin graph.PinId, to graph.DeviceId) error {
	return g.store.AddEdge(from, pin, to)
}

// AddLabelledEdge adds an edge carrying label from (from, pin) to to.
func (g *Graph[E]) AddLabelledEdge(label E, from graph.DeviceId, pin graph.PinId, to graph.DeviceId) error {
	return g.store.AddLabelledEdge(label, from, pin, to)
}

// SetNumBoards restricts the mapper to an x*y sub-rectangle of the board
// mesh the machine parameters otherwise allow in full.
func (g *Graph[E]) SetNumBoards(x, y uint32) {
	g.boardsX, g.boardsY = x, y
}

// FanIn returns the number of incoming edges of device d.
func (g *Graph[E]) FanIn(d graph.DeviceId) uint32 { return g.store.FanIn(d) }

// FanOut returns the total number of outgoing edges of device d.
func (g *Graph[E]) FanOut(d graph.DeviceId) uint32 { return g.store.FanOut(d) }

// NumDevices returns the number of devices created so far.
func (g *Graph[E]) NumDevices() int { return g.store.NumDevices() }

// Mapped is everything Map produces: the placement tables, routing tables,
// and per-thread memory layout — owned by the Mapped value the way the
// original's placement/routing/partition arrays are owned by the PGraph
// object itself until write() or destruction release them.
type Mapped[E any] struct {
	params addr.MachineParams

	threads []addr.ThreadId                    // populated threads, in build order
	localOf map[addr.ThreadId][]graph.DeviceId  // from_device_addr
	toAddr  []addr.DeviceAddr                   // to_device_addr, indexed by DeviceId
	boardOf map[addr.ThreadId]uint32

	tables       *routing.Tables[E]
	layouts      map[addr.ThreadId]*layout.Placement
	boardRouting map[uint32]*routing.BoardRouting
}

// ToDeviceAddr returns the address device d was placed at.
func (m *Mapped[E]) ToDeviceAddr(d graph.DeviceId) addr.DeviceAddr { return m.toAddr[d] }

// FromDeviceAddr returns the compact list of devices assigned to thread t,
// in thread-local-id order.
func (m *Mapped[E]) FromDeviceAddr(t addr.ThreadId) []graph.DeviceId { return m.localOf[t] }

// Threads returns every populated thread, in the deterministic order Map
// built them in.
func (m *Mapped[E]) Threads() []addr.ThreadId { return m.threads }

// Layout returns the computed SRAM/DRAM partition placement for thread t.
func (m *Mapped[E]) Layout(t addr.ThreadId) *layout.Placement { return m.layouts[t] }

// Tables returns the router builder's output: in-edge tables and sender
// routing destinations.
func (m *Mapped[E]) Tables() *routing.Tables[E] { return m.tables }

// BoardOf returns the board hosting thread t, for routing.CompactByBoard.
func (m *Mapped[E]) BoardOf(t addr.ThreadId) uint32 { return m.boardOf[t] }

// BoardRouting returns the programmable-router contents Map computed for
// board — the C4(c) artifact — or nil if the board hosts no destinations.
func (m *Mapped[E]) BoardRouting(board uint32) *routing.BoardRouting { return m.boardRouting[board] }

// Map runs the placer recursively (boards, then mailboxes within each
// board, then threads within each mailbox), builds the routing tables, and
// sizes every populated thread's partition against budget. effort is the
// placer's grid-refinement pass count (placer.DefaultEffort if unsure).
func Map[E any](g *Graph[E], stateBytes int, effort int, budget layout.Budget) (*Mapped[E], error) {
	p := g.params
	adj := placer.BuildAdjacency(g.store)

	boardPlacement := placer.Place(adj, g.boardsX, g.boardsY, effort)

	mailboxesX := uint32(1) << p.MailboxMeshXBits
	mailboxesY := uint32(1) << p.MailboxMeshYBits
	threadsPerMailbox := uint32(1) << p.LogThreadsPerMailbox()

	localOf := make(map[addr.ThreadId][]graph.DeviceId)
	toAddr := make([]addr.DeviceAddr, g.store.NumDevices())
	boardOf := make(map[addr.ThreadId]uint32)
	var threads []addr.ThreadId

	for boardPart, boardAdj := range boardPlacement.Parts {
		boardPos := boardPlacement.PositionOf[boardPart]
		boardID := boardPos.Y*g.boardsX + boardPos.X

		mailboxPlacement := placer.Place(boardAdj, mailboxesX, mailboxesY, effort)
		for mbPart, mbAdj := range mailboxPlacement.Parts {
			mbPos := mailboxPlacement.PositionOf[mbPart]

			threadPlacement := placer.Place(mbAdj, threadsPerMailbox, 1, effort)
			for thPart, thAdj := range threadPlacement.Parts {
				thPos := threadPlacement.PositionOf[thPart]

				tid := addr.MakeThreadId(p, addr.ThreadCoord{
					BoardX:        boardPos.X,
					BoardY:        boardPos.Y,
					MailboxX:      mbPos.X,
					MailboxY:      mbPos.Y,
					CoreAndThread: thPos.X,
				})

				if len(thAdj.Labels) == 0 {
					continue
				}
				if len(thAdj.Labels) > addr.MaxLocalDeviceId {
					return nil, &layout.PartitionOverflowError{
						Thread:   int(tid),
						Region:   "LocalId",
						Required: len(thAdj.Labels),
						Budget:   addr.MaxLocalDeviceId,
					}
				}

				devices := make([]graph.DeviceId, len(thAdj.Labels))
				for local, devID := range thAdj.Labels {
					devices[local] = devID
					toAddr[devID] = addr.MakeDeviceAddr(tid, addr.LocalDeviceId(local))
				}

				localOf[tid] = devices
				boardOf[tid] = boardID
				threads = append(threads, tid)
			}
		}
	}

	numThreadSlots := 1 << p.TotalBits()
	tables, err := routing.Build(g.store, numThreadSlots, func(d graph.DeviceId) addr.DeviceAddr {
		return toAddr[d]
	})
	if err != nil {
		return nil, err
	}

	boardOfThread := func(t addr.ThreadId) uint32 { return boardOf[t] }
	var allDests []routing.RoutingDest
	for dev := range tables.OutEdges {
		for pin := range tables.OutEdges[dev] {
			allDests = append(allDests, tables.OutEdges[dev][pin]...)
		}
	}
	boardRouting := routing.CompactByBoard(allDests, boardOfThread)
	if err := routing.CheckBoardCapacity(boardRouting); err != nil {
		return nil, err
	}

	layouts := make(map[addr.ThreadId]*layout.Placement, len(threads))
	for _, tid := range threads {
		devices := localOf[tid]
		inEdgeCount := len(tables.InEdges[tid])

		routingCount := 0
		for _, devID := range devices {
			for pin := graph.PinId(0); uint32(pin) < g.store.PMax(); pin++ {
				routingCount += len(tables.OutEdges[devID][pin])
			}
		}

		sizes := layout.ThreadSizes{
			Thread:            int(tid),
			DeviceStateBytes:  layout.CacheAlign(len(devices) * stateBytes),
			InEdgeTableBytes:  layout.WordAlign(inEdgeCount * edgeLabelSize[E]()),
			RoutingTableBytes: layout.WordAlign(routingCount * routingDestSize),
		}
		placed, err := layout.Place(sizes, budget)
		if err != nil {
			return nil, err
		}
		layouts[tid] = placed
	}

	return &Mapped[E]{
		params:       p,
		threads:      threads,
		localOf:      localOf,
		toAddr:       toAddr,
		boardOf:      boardOf,
		tables:       tables,
		layouts:      layouts,
		boardRouting: boardRouting,
	}, nil
}

// routingDestSize is sizeof(addr.DeviceAddr) + sizeof(addr.RoutingKey), the
// per-destination cost of a thread's sender routing table.
const routingDestSize = 8

// edgeLabelSize reports sizeof(E), the per-entry cost of a thread's in-edge
// table, the same sizeof(PInEdge<E>) the original's allocatePartitions uses
// to size the in-edge region.
func edgeLabelSize[E any]() int {
	var zero E
	return int(unsafe.Sizeof(zero))
}

// Build instantiates one runtime.Thread per populated thread and wires a
// shared mesh connection between them, ready for engine.Run(). handler is
// the single vertex program every device in the graph runs; pMax bounds
// State[S]'s Ready slice. initial, if non-nil, supplies a device's App
// value before Init runs on it — the Go equivalent of a caller mutating a
// device's state through PGraph's devices[id] pointer before boot; devices
// absent from the map get S's zero value. emit receives every device's
// Finish key/value pairs, tagged by the device's global address.
func Build[S, E, M any](
	m *Mapped[E],
	handler runtime.Handler[S, E, M],
	pMax uint32,
	initial map[graph.DeviceId]S,
	engine sim.Engine,
	freq sim.Freq,
	emit func(addr.DeviceAddr, string, uint32),
) ([]*runtime.Thread[S, E, M], *runtime.RemoteTable) {
	threads := make([]*runtime.Thread[S, E, M], len(m.threads))
	ports := make([]runtime.Port, len(m.threads))

	// remote is resolved lazily: NewThread needs a remoteOf callback before
	// any port exists to resolve to, but every thread's remoteOf is the
	// same lookup (by destination thread id, not by the calling thread), so
	// one shared pointer populated after every port is built works for all
	// of them.
	var remote *runtime.RemoteTable
	resolve := func(id addr.ThreadId) sim.RemotePort { return remote.Resolve(id) }

	// barrier is the fabric-wide idle handshake spec §4.5.3 rule 3 and §5
	// require: every thread built here votes into the same Barrier before
	// any of them runs Step, so a superstep only advances once the whole
	// mesh agrees it's quiescent, and the mesh only terminates once every
	// thread agrees there's nothing left to do anywhere.
	barrier := runtime.NewBarrier(len(m.threads))

	for i, tid := range m.threads {
		tid := tid
		devices := m.localOf[tid]
		outEdges := make([][][]routing.RoutingDest, len(devices))
		var seed []S
		if initial != nil {
			seed = make([]S, len(devices))
		}
		for local, devID := range devices {
			outEdges[local] = m.tables.OutEdges[devID]
			if initial != nil {
				seed[local] = initial[devID]
			}
		}

		threads[i] = runtime.NewThread[S, E, M](
			"Thread"+threadName(tid), engine, freq, handler, pMax, len(devices), seed,
			m.tables.InEdges[tid], outEdges, resolve,
			func(local int, key string, value uint32) {
				if emit != nil {
					emit(addr.MakeDeviceAddr(tid, addr.LocalDeviceId(local)), key, value)
				}
			},
			barrier, i,
		)
		ports[i] = threads[i].Port()
	}

	remote = runtime.NewRemoteTable(m.threads, ports)
	return threads, remote
}

func threadName(t addr.ThreadId) string {
	return "#" + strconv.FormatUint(uint64(t), 10)
}

// Write serializes every populated thread's in-edge table and sender
// routing table and uploads them through w, the partitions-and-router
// payload PGraph::write uploads over the physical UART via writeRAM. A
// thread's device state is not part of this payload: this is an in-process
// simulation, so the State[S] values Build hands to runtime.Thread already
// live in memory and have no separate upload step the way real fabric RAM
// does. The programmable router's per-board contents (Mapped.BoardRouting,
// C4(c)) were already validated against MaxBoardDestinationThreads by Map;
// there is no separate physical per-board router to upload them to here, so
// Write carries the same destinations straight from each sending device's
// own routing table.
func Write[E any](ctx context.Context, m *Mapped[E], w *hostlink.Writer) error {
	images := make([]hostlink.Image, 0, len(m.threads))

	for _, tid := range m.threads {
		var buf bytes.Buffer

		for _, label := range m.tables.InEdges[tid] {
			buf.Write(edgeLabelBytes(label))
		}

		for _, devID := range m.localOf[tid] {
			for pin := graph.PinId(0); uint32(pin) < uint32(len(m.tables.OutEdges[devID])); pin++ {
				for _, dest := range m.tables.OutEdges[devID][pin] {
					binary.Write(&buf, binary.LittleEndian, uint32(dest.Addr))
					binary.Write(&buf, binary.LittleEndian, uint32(dest.Key))
				}
			}
		}

		images = append(images, hostlink.Image{Thread: tid, Bytes: buf.Bytes()})
	}

	return w.Write(ctx, images)
}

// edgeLabelBytes reinterprets label's in-memory representation as bytes,
// the same sizeof-driven view edgeLabelSize uses to account for it, so an
// edge label's wire image never needs E to implement any encoding
// interface.
func edgeLabelBytes[E any](label E) []byte {
	size := int(unsafe.Sizeof(label))
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&label)), size)
}
