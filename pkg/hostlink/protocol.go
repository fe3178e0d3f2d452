// Package hostlink implements the HostLink wire protocol (spec §6): a
// per-thread byte stream tagged by a leading control byte, carrying stdout/
// stderr text, key/value exports, rich assertions, and orderly exit codes
// back to the host. Protocol is a direct state-machine port of
// Protocol::add in original_source/hostlink/Protocol.cpp, with the
// documented-but-broken upper_bound sequence scheme replaced by a plain
// monotonic per-device-name counter (see SequenceCounter).
package hostlink

import (
	"encoding/binary"
)

type tag byte

const (
	tagStdOut     tag = 0x01
	tagStdErr     tag = 0x02
	tagKeyVal     tag = 0x10
	tagAssertRich tag = 0xFD
	tagAssert     tag = 0xFE
	tagExit       tag = 0xFF
)

type protoState int

const (
	stateIdle protoState = iota
	stateStdOut
	stateStdErr
	stateExit
	stateKeyValDevice
	stateKeyValKey
	stateKeyValVal
	stateAssertRichFile
	stateAssertRichLine
)

// EventKind distinguishes the payload carried by an Event.
type EventKind int

const (
	// EventNone is returned by Add when a byte only advanced internal
	// state without completing a message.
	EventNone EventKind = iota
	EventStdOut
	EventStdErr
	EventKeyValue
)

// Event is one completed protocol message surfaced by Protocol.Add.
type Event struct {
	Kind EventKind

	Text string // StdOut / StdErr payload, without the terminating NUL

	Device string // KeyValue device name
	Seq    uint64 // KeyValue sequence number, monotonic per Device
	Key    uint32
	Value  uint32
}

// Protocol parses one thread's HostLink byte stream. It is not safe for
// concurrent use — one Protocol per source thread, matching the original's
// one Protocol instance per thread id.
type Protocol struct {
	thread uint32
	state  protoState

	chars  []byte
	device []byte

	word [4]byte
	todo int
	key  uint32

	seq *SequenceCounter

	totalBytes       uint64
	totalStdoutBytes uint64
	totalKeyValues   uint64
}

// NewProtocol creates a Protocol for the given thread id. seq is shared
// across every thread's Protocol in a run, since sequence numbers are
// scoped to a device name, not to the thread reporting it.
func NewProtocol(thread uint32, seq *SequenceCounter) *Protocol {
	return &Protocol{thread: thread, seq: seq}
}

// TotalBytes is the number of bytes fed to Add so far.
func (p *Protocol) TotalBytes() uint64 { return p.totalBytes }

// TotalStdoutBytes is the number of StdOut payload bytes seen so far.
func (p *Protocol) TotalStdoutBytes() uint64 { return p.totalStdoutBytes }

// TotalKeyValues is the number of completed KeyValue messages seen so far.
func (p *Protocol) TotalKeyValues() uint64 { return p.totalKeyValues }

// Add feeds one byte of the thread's wire stream into the state machine. It
// returns a completed Event when a message finishes, or a zero Event with
// EventNone while still accumulating one. A non-nil error means the stream
// is done: either *FabricExitError (orderly termination, spec's
// FabricExit(code)), *TransportAssertionError (fabric-side assertion), or
// *UnknownProtocolTagError (malformed control byte).
func (p *Protocol) Add(b byte) (Event, error) {
	p.totalBytes++

	switch p.state {
	case stateIdle:
		return p.addIdle(b)

	case stateExit:
		if p.shiftWord(b) {
			code := int(binary.LittleEndian.Uint32(p.word[:]))
			p.state = stateIdle
			return Event{}, &FabricExitError{Thread: p.thread, Code: code}
		}

	case stateAssertRichFile:
		p.chars = append(p.chars, b)
		if b == 0 {
			p.state = stateAssertRichLine
			p.todo = 4
		}

	case stateAssertRichLine:
		if p.shiftWord(b) {
			line := binary.LittleEndian.Uint32(p.word[:])
			p.state = stateIdle
			return Event{}, &TransportAssertionError{
				Thread: p.thread,
				File:   cString(p.chars),
				Line:   line,
			}
		}

	case stateStdOut:
		p.totalStdoutBytes++
		p.chars = append(p.chars, b)
		if b == 0 {
			p.state = stateIdle
			return Event{Kind: EventStdOut, Text: cString(p.chars)}, nil
		}

	case stateStdErr:
		p.chars = append(p.chars, b)
		if b == 0 {
			p.state = stateIdle
			return Event{Kind: EventStdErr, Text: cString(p.chars)}, nil
		}

	case stateKeyValDevice:
		p.device = append(p.device, b)
		if b == 0 {
			p.state = stateKeyValKey
			p.todo = 4
		}

	case stateKeyValKey:
		if p.shiftWord(b) {
			p.key = binary.LittleEndian.Uint32(p.word[:])
			p.state = stateKeyValVal
			p.todo = 4
		}

	case stateKeyValVal:
		if p.shiftWord(b) {
			value := binary.LittleEndian.Uint32(p.word[:])
			name := cString(p.device)
			p.totalKeyValues++
			p.state = stateIdle
			return Event{
				Kind:   EventKeyValue,
				Device: name,
				Seq:    p.seq.Next(name),
				Key:    p.key,
				Value:  value,
			}, nil
		}

	default:
		return Event{}, &UnknownProtocolTagError{Thread: p.thread, Tag: byte(p.state)}
	}

	return Event{}, nil
}

func (p *Protocol) addIdle(b byte) (Event, error) {
	switch tag(b) {
	case tagStdOut:
		p.chars = p.chars[:0]
		p.state = stateStdOut
	case tagStdErr:
		p.chars = p.chars[:0]
		p.state = stateStdErr
	case tagAssertRich:
		p.chars = p.chars[:0]
		p.state = stateAssertRichFile
	case tagAssert:
		return Event{}, &TransportAssertionError{Thread: p.thread}
	case tagExit:
		p.state = stateExit
		p.todo = 4
	case tagKeyVal:
		p.device = p.device[:0]
		p.state = stateKeyValDevice
	default:
		return Event{}, &UnknownProtocolTagError{Thread: p.thread, Tag: b}
	}
	return Event{}, nil
}

// shiftWord accumulates a little-endian 4-byte word into p.word, one byte
// per call in wire order, and reports whether the word just completed.
func (p *Protocol) shiftWord(b byte) bool {
	p.word[4-p.todo] = b
	p.todo--
	return p.todo == 0
}

func cString(b []byte) string {
	if len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b)
}
