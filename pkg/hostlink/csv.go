package hostlink

import (
	"fmt"
	"sync"
)

// SequenceCounter assigns a monotonic, per-device-name sequence number to
// each exported key/value. The original's Protocol tracked this with a
// sorted vector and std::upper_bound (hostlink/Protocol.cpp's incSeq),
// which the spec's design notes call out as broken: a device whose name
// sorts before another's can be assigned a later sequence than one whose
// name sorts after, regardless of arrival order. SequenceCounter instead
// hands out 0, 1, 2, ... per device name in the order Next is called.
type SequenceCounter struct {
	mu   sync.Mutex
	next map[string]uint64
}

// NewSequenceCounter creates an empty counter.
func NewSequenceCounter() *SequenceCounter {
	return &SequenceCounter{next: make(map[string]uint64)}
}

// Next returns the next sequence number for name and advances its counter.
func (c *SequenceCounter) Next(name string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.next[name]
	c.next[name] = seq + 1
	return seq
}

// FormatKeyValueRow renders one exported key/value as the CSV row the
// original writes to its keyValDst stream: "name, seq, key, value\n".
func FormatKeyValueRow(name string, seq uint64, key, value uint32) string {
	return fmt.Sprintf("%s, %d, %d, %d\n", name, seq, key, value)
}
