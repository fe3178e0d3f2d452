package runtime

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/polite/pkg/addr"
)

// Msg is the wire message every thread port sends and receives: a routing
// key identifying the receiving device and in-edge table entry, and the
// opaque application payload the graph's message type encodes. Payload is
// `any` rather than a generic type parameter because sim.Msg (and
// sim.Port/sim.Connection built on it) must stay a single concrete type
// across every thread in a mesh, the same way a whole graph.Store[E] shares
// one edge-label type but threads carrying different vertex programs still
// have to speak the same wire format to route at all.
type Msg struct {
	sim.MsgMeta

	Key     addr.RoutingKey
	Payload any
}

// Meta returns the message's akita envelope.
func (m *Msg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// MsgBuilder builds a Msg, grounded on the teacher's MoveMsgBuilder
// (cgra/msg.go): a small value-receiver builder with one With* method per
// field and a Build that stamps a fresh message id.
type MsgBuilder struct {
	src      sim.Port
	dst      sim.RemotePort
	sendTime sim.VTimeInSec
	key      addr.RoutingKey
	payload  any
}

// WithSrc sets the sending port.
func (b MsgBuilder) WithSrc(src sim.Port) MsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination by remote port name — a thread only ever
// knows the name of the destination thread's mesh port, never a live
// reference to it, since routing resolves addresses to names (see
// mesh.go's remoteOf).
func (b MsgBuilder) WithDst(dst sim.RemotePort) MsgBuilder {
	b.dst = dst
	return b
}

// WithSendTime sets the virtual send time.
func (b MsgBuilder) WithSendTime(t sim.VTimeInSec) MsgBuilder {
	b.sendTime = t
	return b
}

// WithKey sets the routing key the receiving thread uses to find the
// matching in-edge table entry.
func (b MsgBuilder) WithKey(key addr.RoutingKey) MsgBuilder {
	b.key = key
	return b
}

// WithPayload sets the application message payload.
func (b MsgBuilder) WithPayload(payload any) MsgBuilder {
	b.payload = payload
	return b
}

// Build creates the Msg.
func (b MsgBuilder) Build() *Msg {
	return &Msg{
		MsgMeta: sim.MsgMeta{
			ID:       sim.GetIDGenerator().Generate(),
			Src:      b.src.AsRemote(),
			Dst:      b.dst,
			SendTime: b.sendTime,
		},
		Key:     b.key,
		Payload: b.payload,
	}
}
