package runtime

import (
	"fmt"
	"sync"

	"github.com/sarchlab/akita/v4/sim"
)

// HookPosPortMsgSend marks when a message is pushed onto a port's outgoing
// buffer.
var HookPosPortMsgSend = &sim.HookPos{Name: "Port Msg Send"}

// HookPosPortMsgRecvd marks when a message is delivered into a port's
// incoming buffer.
var HookPosPortMsgRecvd = &sim.HookPos{Name: "Port Msg Recv"}

// HookPosPortMsgRetrieve marks when a component pops a message off either
// buffer.
var HookPosPortMsgRetrieve = &sim.HookPos{Name: "Port Msg Retrieve"}

// Port is the mesh connection endpoint every Thread owns: one per thread,
// plugged into the shared mesh fabric (see mesh.go), buffering at most one
// in-flight send and a bounded number of arrivals.
type Port interface {
	sim.Named
	sim.Hookable

	AsRemote() sim.RemotePort

	SetConnection(conn sim.Connection)
	Component() sim.Component

	Deliver(msg sim.Msg) *sim.SendError
	NotifyAvailable()
	RetrieveOutgoing() sim.Msg
	PeekOutgoing() sim.Msg

	CanSend() bool
	Send(msg sim.Msg) *sim.SendError
	RetrieveIncoming() sim.Msg
	PeekIncoming() sim.Msg
}

// defaultPort is the sole Port implementation: a pair of bounded FIFOs
// (incoming, outgoing) guarded by one mutex, matching the teacher's
// core/port.go almost exactly — the event loop's send/receive rules
// (pkg/runtime/thread.go) depend on CanSend/PeekIncoming/RetrieveIncoming
// behaving exactly as they did there.
type defaultPort struct {
	sim.HookableBase

	lock sync.Mutex
	name string
	comp sim.Component
	conn sim.Connection

	incomingBuf sim.Buffer
	outgoingBuf sim.Buffer
}

// NewPort creates a Port with bounded incoming/outgoing buffers.
func NewPort(comp sim.Component, incomingBufCap, outgoingBufCap int, name string) Port {
	p := new(defaultPort)
	p.comp = comp
	p.incomingBuf = sim.NewBuffer(name+".IncomingBuf", incomingBufCap)
	p.outgoingBuf = sim.NewBuffer(name+".OutgoingBuf", outgoingBufCap)
	p.name = name
	return p
}

func (p *defaultPort) AsRemote() sim.RemotePort {
	return sim.RemotePort(p.name)
}

func (p *defaultPort) SetConnection(conn sim.Connection) {
	if p.conn != nil {
		panic(fmt.Sprintf("connection already set to %s, now connecting to %s", p.conn.Name(), conn.Name()))
	}
	p.conn = conn
}

func (p *defaultPort) Component() sim.Component { return p.comp }
func (p *defaultPort) Name() string             { return p.name }

func (p *defaultPort) CanSend() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.outgoingBuf.CanPush()
}

func (p *defaultPort) Send(msg sim.Msg) *sim.SendError {
	p.lock.Lock()

	p.msgMustBeValid(msg)

	if !p.outgoingBuf.CanPush() {
		p.lock.Unlock()
		return sim.NewSendError()
	}

	wasEmpty := p.outgoingBuf.Size() == 0
	p.outgoingBuf.Push(msg)
	p.InvokeHook(sim.HookCtx{Domain: p, Pos: HookPosPortMsgSend, Item: msg})
	p.lock.Unlock()

	if wasEmpty {
		p.conn.NotifySend()
	}
	return nil
}

func (p *defaultPort) Deliver(msg sim.Msg) *sim.SendError {
	p.lock.Lock()

	if !p.incomingBuf.CanPush() {
		p.lock.Unlock()
		return sim.NewSendError()
	}

	wasEmpty := p.incomingBuf.Size() == 0
	p.InvokeHook(sim.HookCtx{Domain: p, Pos: HookPosPortMsgRecvd, Item: msg})
	p.incomingBuf.Push(msg)
	p.lock.Unlock()

	if p.comp != nil && wasEmpty {
		p.comp.NotifyRecv(p)
	}
	return nil
}

func (p *defaultPort) RetrieveIncoming() sim.Msg {
	p.lock.Lock()
	defer p.lock.Unlock()

	item := p.incomingBuf.Pop()
	if item == nil {
		return nil
	}
	msg := item.(sim.Msg)
	p.InvokeHook(sim.HookCtx{Domain: p, Pos: HookPosPortMsgRetrieve, Item: msg})

	if p.incomingBuf.Size() == p.incomingBuf.Capacity()-1 {
		p.conn.NotifyAvailable(p)
	}
	return msg
}

func (p *defaultPort) RetrieveOutgoing() sim.Msg {
	p.lock.Lock()
	defer p.lock.Unlock()

	item := p.outgoingBuf.Pop()
	if item == nil {
		return nil
	}
	msg := item.(sim.Msg)
	p.InvokeHook(sim.HookCtx{Domain: p, Pos: HookPosPortMsgRetrieve, Item: msg})

	if p.outgoingBuf.Size() == p.outgoingBuf.Capacity()-1 {
		p.comp.NotifyPortFree(p)
	}
	return msg
}

func (p *defaultPort) PeekIncoming() sim.Msg {
	p.lock.Lock()
	defer p.lock.Unlock()
	item := p.incomingBuf.Peek()
	if item == nil {
		return nil
	}
	return item.(sim.Msg)
}

func (p *defaultPort) PeekOutgoing() sim.Msg {
	p.lock.Lock()
	defer p.lock.Unlock()
	item := p.outgoingBuf.Peek()
	if item == nil {
		return nil
	}
	return item.(sim.Msg)
}

func (p *defaultPort) NotifyAvailable() {
	if p.comp != nil {
		p.comp.NotifyPortFree(p)
	}
}

func (p *defaultPort) msgMustBeValid(msg sim.Msg) {
	if p.Name() != string(msg.Meta().Src) {
		panic("sending port is not msg src")
	}
	if msg.Meta().Dst == "" {
		panic("dst is not given")
	}
	if msg.Meta().Src == msg.Meta().Dst {
		panic("sending back to src")
	}
}
