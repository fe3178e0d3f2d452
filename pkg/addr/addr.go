// Package addr implements the device and thread address algebra: packing
// and unpacking the hierarchical thread id, the 32-bit device address, and
// the 32-bit routing key that the per-board programmable routers write into
// every delivered message header.
package addr

import "fmt"

// DeviceId identifies a device within a graph. Dense, assigned on creation.
type DeviceId uint32

// ThreadId identifies a hardware thread within the whole mesh. It is a
// hierarchical concatenation of board and mailbox coordinates plus a
// core-and-thread index, MSB to LSB:
//
//	boardY . boardX . mailboxY . mailboxX . coreAndThread
type ThreadId uint32

// LocalDeviceId identifies a device within the thread it is mapped to.
type LocalDeviceId uint16

// DeviceAddr is the packed 32-bit address of a device: low 18 bits are the
// global thread id, bit 18 is the invalid flag, and the upper 13 bits are
// the thread-local device id.
type DeviceAddr uint32

const (
	threadIdBits    = 18
	threadIdMask    = (1 << threadIdBits) - 1
	invalidBit      = 1 << threadIdBits
	localIdShift    = threadIdBits + 1
	maxLocalDevices = 1 << 13 // 8192, per spec: local_id < 8192
)

// MaxLocalDeviceId is the exclusive upper bound on LocalDeviceId values that
// fit in a DeviceAddr.
const MaxLocalDeviceId = maxLocalDevices

// MachineParams gives the bit widths of each field of the hierarchical
// ThreadId. They are a value, not package constants, so tests and small
// scenarios can build a mesh far smaller than a production Tinsel machine
// without recompiling the package.
type MachineParams struct {
	MeshXBits          uint // board x-coordinate width
	MeshYBits          uint // board y-coordinate width
	MailboxMeshXBits   uint // mailbox x-coordinate width, within a board
	MailboxMeshYBits   uint // mailbox y-coordinate width, within a board
	LogCoresPerMailbox uint // cores per mailbox, log2
	LogThreadsPerCore  uint // hardware threads per core, log2
}

// LogThreadsPerMailbox is the number of low bits of ThreadId occupied by the
// core-and-thread index.
func (p MachineParams) LogThreadsPerMailbox() uint {
	return p.LogCoresPerMailbox + p.LogThreadsPerCore
}

// TotalBits is the number of bits needed to represent a ThreadId under p. It
// must not exceed threadIdBits (18), or the address algebra cannot encode
// every thread in the mesh.
func (p MachineParams) TotalBits() uint {
	return p.MeshYBits + p.MeshXBits + p.MailboxMeshYBits +
		p.MailboxMeshXBits + p.LogThreadsPerMailbox()
}

// DefaultParams reproduces the field widths of the original Tinsel machine:
// a 4x4 board mesh, 4x4 mailboxes per board, 8 cores per mailbox, 4 threads
// per core (13 bits total, within ThreadId's 18-bit field).
var DefaultParams = MachineParams{
	MeshXBits:          2,
	MeshYBits:          2,
	MailboxMeshXBits:   2,
	MailboxMeshYBits:   2,
	LogCoresPerMailbox: 3,
	LogThreadsPerCore:  2,
}

// ThreadCoord is the decomposed hierarchical coordinate of a ThreadId.
type ThreadCoord struct {
	BoardX, BoardY     uint32
	MailboxX, MailboxY uint32
	CoreAndThread      uint32
}

// overflow panics naming the offending field — field overflow is a
// programmer error, detected by assertion, never reported to the caller at
// run time (spec §4.1).
func overflow(field string, value uint32, bits uint) {
	if bits < 32 && value >= (uint32(1)<<bits) {
		panic(fmt.Sprintf("addr: field %s overflows %d bits: %d", field, bits, value))
	}
}

// MakeThreadId packs a hierarchical coordinate into a ThreadId under the
// given machine parameters.
func MakeThreadId(p MachineParams, c ThreadCoord) ThreadId {
	overflow("BoardY", c.BoardY, p.MeshYBits)
	overflow("BoardX", c.BoardX, p.MeshXBits)
	overflow("MailboxY", c.MailboxY, p.MailboxMeshYBits)
	overflow("MailboxX", c.MailboxX, p.MailboxMeshXBits)
	overflow("CoreAndThread", c.CoreAndThread, p.LogThreadsPerMailbox())

	id := c.BoardY
	id = (id << p.MeshXBits) | c.BoardX
	id = (id << p.MailboxMeshYBits) | c.MailboxY
	id = (id << p.MailboxMeshXBits) | c.MailboxX
	id = (id << p.LogThreadsPerMailbox()) | c.CoreAndThread

	overflow("ThreadId", id, threadIdBits)

	return ThreadId(id)
}

// DecodeThreadId is the inverse of MakeThreadId.
func DecodeThreadId(p MachineParams, t ThreadId) ThreadCoord {
	v := uint32(t)

	coreMask := uint32(1)<<p.LogThreadsPerMailbox() - 1
	coreAndThread := v & coreMask
	v >>= p.LogThreadsPerMailbox()

	mbXMask := uint32(1)<<p.MailboxMeshXBits - 1
	mbX := v & mbXMask
	v >>= p.MailboxMeshXBits

	mbYMask := uint32(1)<<p.MailboxMeshYBits - 1
	mbY := v & mbYMask
	v >>= p.MailboxMeshYBits

	boardXMask := uint32(1)<<p.MeshXBits - 1
	boardX := v & boardXMask
	v >>= p.MeshXBits

	boardY := v

	return ThreadCoord{
		BoardX: boardX, BoardY: boardY,
		MailboxX: mbX, MailboxY: mbY,
		CoreAndThread: coreAndThread,
	}
}

// BoardIdOf returns the identifier of the board that hosts t, as a row-major
// index over the configured board mesh.
func BoardIdOf(p MachineParams, boardsX uint32, t ThreadId) uint32 {
	c := DecodeThreadId(p, t)
	return c.BoardY*boardsX + c.BoardX
}

// MailboxIdOf returns the identifier of the mailbox (global, within its
// board) that hosts t.
func MailboxIdOf(p MachineParams, t ThreadId) uint32 {
	c := DecodeThreadId(p, t)
	return c.MailboxY<<p.MailboxMeshXBits | c.MailboxX
}

// MakeDeviceAddr packs a (thread, local device) pair into a DeviceAddr.
func MakeDeviceAddr(t ThreadId, d LocalDeviceId) DeviceAddr {
	overflow("ThreadId", uint32(t), threadIdBits)
	if uint32(d) >= maxLocalDevices {
		panic(fmt.Sprintf("addr: local device id %d exceeds MaxLocalDeviceId %d", d, maxLocalDevices))
	}
	return DeviceAddr(uint32(d)<<localIdShift | uint32(t))
}

// InvalidDeviceAddr returns the constant device address with the invalid
// flag (bit 18) set, and all other bits zero. It never appears in a routing
// table.
func InvalidDeviceAddr() DeviceAddr {
	return DeviceAddr(invalidBit)
}

// IsValid reports whether a is a valid (routable) device address.
func (a DeviceAddr) IsValid() bool {
	return uint32(a)&invalidBit == 0
}

// ThreadId extracts the thread id encoded in a.
func (a DeviceAddr) ThreadId() ThreadId {
	return ThreadId(uint32(a) & threadIdMask)
}

// LocalDeviceId extracts the thread-local device id encoded in a.
func (a DeviceAddr) LocalDeviceId() LocalDeviceId {
	return LocalDeviceId(uint32(a) >> localIdShift)
}

// RoutingKey is the 32-bit value a hardware router writes into the header
// of every message it delivers: the receiver's thread-local device id in
// the low 16 bits, the edge index (index into the receiver thread's
// in-edge table) in the high 16 bits.
type RoutingKey uint32

// MakeRoutingKey packs a (local device id, edge index) pair into a
// RoutingKey, as spec §3's `key = local_device_id | (edge_index << 16)`.
func MakeRoutingKey(localID LocalDeviceId, edgeIndex uint16) RoutingKey {
	return RoutingKey(uint32(localID) | uint32(edgeIndex)<<16)
}

// LocalDeviceId extracts the receiver's thread-local device id from a
// RoutingKey.
func (k RoutingKey) LocalDeviceId() LocalDeviceId {
	return LocalDeviceId(uint32(k) & 0xffff)
}

// EdgeIndex extracts the in-edge-table index from a RoutingKey.
func (k RoutingKey) EdgeIndex() uint16 {
	return uint16(uint32(k) >> 16)
}
