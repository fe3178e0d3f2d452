package runtime

// State wraps a device's application-defined state S with the per-pin
// readiness flags the runtime itself owns: a device's Handler can only ask
// to send on a pin by setting Ready[pin] true, never by calling Send
// directly (the thread decides when each pin actually gets to send, per
// the event loop's priority rules).
type State[S any] struct {
	App   S
	Ready []bool // Ready[pin], length PMax
}

// NewState creates a State with pMax pins, all initially not ready to send.
func NewState[S any](pMax uint32) *State[S] {
	return &State[S]{Ready: make([]bool, pMax)}
}

// AnyReady reports whether any pin is currently flagged ready to send.
func (s *State[S]) AnyReady() bool {
	for _, r := range s.Ready {
		if r {
			return true
		}
	}
	return false
}

// FirstReady returns the lowest-numbered ready pin, or -1 if none are
// ready. Pins are always serviced lowest-numbered first — deterministic
// (law L1 extends to pin service order, not just placement); a higher pin
// waits for as long as any lower pin stays ready.
func (s *State[S]) FirstReady() int {
	for i, r := range s.Ready {
		if r {
			return i
		}
	}
	return -1
}

// Handler is the vertex program every device in a graph runs: the same
// Handler instance is shared by every device placed on a thread (and
// every thread in the mesh), with per-device behavior coming entirely from
// the State[S] passed in — mirroring the original implementation's single
// PDevice<S,E,M> template instantiated once per whole graph.
type Handler[S, E, M any] interface {
	// Init prepares a freshly created device's state, typically flagging
	// whichever pins should send first (e.g. a token-ring seed token).
	Init(s *State[S])

	// Send is called only when s.Ready[pin] is true; it produces the
	// message to fan out on that pin and normally clears s.Ready[pin]
	// itself. Any pin left or set ready (pin itself included, as the ring
	// scenario does while tokens remain queued) puts the device back on the
	// sender stack once this message's fan-out finishes.
	Send(s *State[S], pin int) M

	// Recv delivers one message that arrived on the in-edge labelled edge.
	Recv(s *State[S], edge E, msg M)

	// Step runs one superstep of local compute once neither a send nor a
	// receive is available; it reports whether it made progress (true
	// keeps the device active next superstep).
	Step(s *State[S]) (active bool)

	// Finish is called exactly once, after Step first returns false with
	// nothing left to send or receive; emit reports one key/value pair to
	// the host (see pkg/hostlink).
	Finish(s *State[S], emit func(key string, value uint32))
}
