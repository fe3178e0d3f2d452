package runtime

import "github.com/sarchlab/akita/v4/sim"

// fakePort is a minimal Port double used only by this package's tests: it
// skips the mutex/buffer machinery of defaultPort (and the live
// sim.Connection defaultPort.Send needs) so tests can drive Thread.Tick
// directly, tick by tick, without running a real akita engine. relay moves
// whatever a fakePort sent into the matching destination fakePort's
// incoming queue, playing the part a directconnection would at runtime.
type fakePort struct {
	sim.HookableBase

	name     string
	sendCap  int
	incoming []sim.Msg
	outgoing []sim.Msg
}

func newFakePort(name string) *fakePort {
	return &fakePort{name: name, sendCap: 1}
}

func (p *fakePort) AsRemote() sim.RemotePort    { return sim.RemotePort(p.name) }
func (p *fakePort) Name() string                { return p.name }
func (p *fakePort) Component() sim.Component    { return nil }
func (p *fakePort) SetConnection(sim.Connection) {}

func (p *fakePort) Deliver(msg sim.Msg) *sim.SendError {
	p.incoming = append(p.incoming, msg)
	return nil
}

func (p *fakePort) NotifyAvailable() {}

func (p *fakePort) RetrieveOutgoing() sim.Msg {
	if len(p.outgoing) == 0 {
		return nil
	}
	m := p.outgoing[0]
	p.outgoing = p.outgoing[1:]
	return m
}

func (p *fakePort) PeekOutgoing() sim.Msg {
	if len(p.outgoing) == 0 {
		return nil
	}
	return p.outgoing[0]
}

func (p *fakePort) CanSend() bool {
	return len(p.outgoing) < p.sendCap
}

func (p *fakePort) Send(msg sim.Msg) *sim.SendError {
	if len(p.outgoing) >= p.sendCap {
		return sim.NewSendError()
	}
	p.outgoing = append(p.outgoing, msg)
	return nil
}

func (p *fakePort) RetrieveIncoming() sim.Msg {
	if len(p.incoming) == 0 {
		return nil
	}
	m := p.incoming[0]
	p.incoming = p.incoming[1:]
	return m
}

func (p *fakePort) PeekIncoming() sim.Msg {
	if len(p.incoming) == 0 {
		return nil
	}
	return p.incoming[0]
}

// relay drains every port's outgoing queue into the destination port named
// by the message, keyed by remote port name.
func relay(ports map[sim.RemotePort]*fakePort) {
	for _, p := range ports {
		for {
			m := p.RetrieveOutgoing()
			if m == nil {
				break
			}
			dst := ports[m.Meta().Dst]
			if dst != nil {
				dst.Deliver(m)
			}
		}
	}
}
