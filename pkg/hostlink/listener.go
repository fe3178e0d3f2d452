package hostlink

import (
	"fmt"
	"io"
)

// Listener runs one Protocol per thread and routes completed events to the
// host-side sinks, the Go-native shape of protocol()'s per-thread states[]
// array and dispatch loop in hostlink/Protocol.cpp.
type Listener struct {
	protocols map[uint32]*Protocol

	stdout io.Writer
	stderr io.Writer
	csv    io.Writer
}

// NewListener creates a Listener for numThreads threads (ids 0..numThreads-1
// per board, matching TinselThreadsPerBoard). Any sink may be nil to
// discard that stream.
func NewListener(numThreads int, stdout, stderr, csv io.Writer) *Listener {
	seq := NewSequenceCounter()
	protocols := make(map[uint32]*Protocol, numThreads)
	for i := 0; i < numThreads; i++ {
		protocols[uint32(i)] = NewProtocol(uint32(i), seq)
	}
	return &Listener{protocols: protocols, stdout: stdout, stderr: stderr, csv: csv}
}

// Feed delivers one byte of thread's wire stream. A non-nil error means the
// stream for this thread is finished: see Protocol.Add's doc comment for
// what each error type means.
func (l *Listener) Feed(thread uint32, b byte) error {
	p, ok := l.protocols[thread]
	if !ok {
		return &UnknownProtocolTagError{Thread: thread, Tag: b}
	}

	ev, err := p.Add(b)
	if err != nil {
		return err
	}

	switch ev.Kind {
	case EventStdOut:
		if l.stdout != nil {
			fmt.Fprintf(l.stdout, "0x%08x : StdOut : %s", thread, ev.Text)
		}
	case EventStdErr:
		if l.stderr != nil {
			fmt.Fprintf(l.stderr, "0x%08x : StdErr : %s", thread, ev.Text)
		}
	case EventKeyValue:
		if l.csv != nil {
			io.WriteString(l.csv, FormatKeyValueRow(ev.Device, ev.Seq, ev.Key, ev.Value))
		}
	}
	return nil
}

// FeedAll feeds an entire byte slice from a single thread's stream in
// order, stopping early (returning the terminal error) if one completes.
func (l *Listener) FeedAll(thread uint32, bytes []byte) error {
	for _, b := range bytes {
		if err := l.Feed(thread, b); err != nil {
			return err
		}
	}
	return nil
}

// Protocol exposes thread's underlying Protocol state machine, mainly for
// reading its counters once a run finishes.
func (l *Listener) Protocol(thread uint32) *Protocol { return l.protocols[thread] }
