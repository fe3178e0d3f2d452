package runtime

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/akita/v4/sim/directconnection"

	"github.com/sarchlab/polite/pkg/addr"
)

// MeshComponent is the subset of Thread[S,E,M]'s surface BuildMesh needs —
// letting BuildMesh stay non-generic even though Thread itself is generic
// per graph's (S, E, M) instantiation.
type MeshComponent interface {
	Port() Port
}

// BuildMesh plugs every thread's mesh port into a single shared
// directconnection, generalizing the teacher's point-to-point
// connectTilePorts (config/config.go) from "one connection per adjacent
// tile pair" to "one connection shared by every thread in the mesh" —
// POLite threads address each other by routing key rather than by
// fixed N/S/E/W neighbor, so there is no fixed neighbor list to wire
// point-to-point connections from; a shared bus is the akita primitive
// that already allows any plugged-in port to address any other by name.
// This is message transport only — the threads plugged in here still need
// a shared Barrier (see barrier.go), built separately by whichever caller
// constructs them, to coordinate their Step phases.
func BuildMesh(threads []MeshComponent, engine sim.Engine, freq sim.Freq, name string) *directconnection.Comp {
	conn := directconnection.MakeBuilder().
		WithEngine(engine).
		WithFreq(freq).
		Build(name)

	for _, th := range threads {
		conn.PlugIn(th.Port())
	}
	return conn
}

// RemoteTable resolves a ThreadId to the remote port name of the thread
// hosting it, for use as every Thread's remoteOf callback.
type RemoteTable struct {
	byThread map[addr.ThreadId]sim.RemotePort
}

// NewRemoteTable builds a RemoteTable from a parallel slice of thread ids
// and the ports hosting them.
func NewRemoteTable(ids []addr.ThreadId, ports []Port) *RemoteTable {
	t := &RemoteTable{byThread: make(map[addr.ThreadId]sim.RemotePort, len(ids))}
	for i, id := range ids {
		t.byThread[id] = ports[i].AsRemote()
	}
	return t
}

// Resolve returns the remote port name hosting id.
func (t *RemoteTable) Resolve(id addr.ThreadId) sim.RemotePort {
	return t.byThread[id]
}
