package addr

import "testing"

func TestThreadIdRoundTrip(t *testing.T) {
	p := DefaultParams
	coords := []ThreadCoord{
		{BoardX: 0, BoardY: 0, MailboxX: 0, MailboxY: 0, CoreAndThread: 0},
		{BoardX: 3, BoardY: 2, MailboxX: 1, MailboxY: 3, CoreAndThread: 17},
		{BoardX: 1, BoardY: 0, MailboxX: 2, MailboxY: 2, CoreAndThread: 31},
	}

	for _, c := range coords {
		id := MakeThreadId(p, c)
		got := DecodeThreadId(p, id)
		if got != c {
			t.Fatalf("round trip mismatch: in=%+v out=%+v", c, got)
		}
	}
}

func TestDeviceAddrRoundTrip(t *testing.T) {
	p := DefaultParams
	thread := MakeThreadId(p, ThreadCoord{BoardX: 1, BoardY: 1, MailboxX: 1, MailboxY: 1, CoreAndThread: 5})

	for _, local := range []LocalDeviceId{0, 1, 4095, 8191} {
		a := MakeDeviceAddr(thread, local)
		if !a.IsValid() {
			t.Fatalf("expected valid address for local id %d", local)
		}
		if a.ThreadId() != thread {
			t.Fatalf("thread id mismatch: want %d got %d", thread, a.ThreadId())
		}
		if a.LocalDeviceId() != local {
			t.Fatalf("local id mismatch: want %d got %d", local, a.LocalDeviceId())
		}
	}
}

func TestInvalidDeviceAddrNeverValid(t *testing.T) {
	if InvalidDeviceAddr().IsValid() {
		t.Fatal("invalid device address must report IsValid() == false")
	}
}

func TestMakeDeviceAddrPanicsOnOverflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for local device id >= MaxLocalDeviceId")
		}
	}()
	MakeDeviceAddr(ThreadId(0), LocalDeviceId(MaxLocalDeviceId))
}

func TestRoutingKeyRoundTrip(t *testing.T) {
	key := MakeRoutingKey(LocalDeviceId(1234), 5678)
	if key.LocalDeviceId() != 1234 {
		t.Fatalf("local device id mismatch: got %d", key.LocalDeviceId())
	}
	if key.EdgeIndex() != 5678 {
		t.Fatalf("edge index mismatch: got %d", key.EdgeIndex())
	}
}

func TestBoardAndMailboxIdOf(t *testing.T) {
	p := DefaultParams
	thread := MakeThreadId(p, ThreadCoord{BoardX: 2, BoardY: 1, MailboxX: 3, MailboxY: 0, CoreAndThread: 0})

	boardsX := uint32(1) << p.MeshXBits
	board := BoardIdOf(p, boardsX, thread)
	wantBoard := uint32(1)*boardsX + 2
	if board != wantBoard {
		t.Fatalf("board id mismatch: want %d got %d", wantBoard, board)
	}

	mbox := MailboxIdOf(p, thread)
	wantMbox := uint32(0)<<p.MailboxMeshXBits | 3
	if mbox != wantMbox {
		t.Fatalf("mailbox id mismatch: want %d got %d", wantMbox, mbox)
	}
}
