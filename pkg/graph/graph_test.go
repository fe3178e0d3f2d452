package graph

import "testing"

func TestNewDeviceIsDense(t *testing.T) {
	s := NewStore[int](4)
	for i := 0; i < 5; i++ {
		id := s.NewDevice()
		if id != DeviceId(i) {
			t.Fatalf("expected dense id %d, got %d", i, id)
		}
	}
	if s.NumDevices() != 5 {
		t.Fatalf("expected 5 devices, got %d", s.NumDevices())
	}
}

func TestAddEdgePreservesMultiplicityAndOrder(t *testing.T) {
	s := NewStore[string](2)
	a := s.NewDevice()
	b := s.NewDevice()

	if err := s.AddLabelledEdge("first", a, 0, b); err != nil {
		t.Fatal(err)
	}
	if err := s.AddLabelledEdge("second", a, 0, b); err != nil {
		t.Fatal(err)
	}

	out := s.Outgoing(a, 0)
	if len(out) != 2 {
		t.Fatalf("expected 2 edges (multigraph), got %d", len(out))
	}
	if out[0].Label != "first" || out[1].Label != "second" {
		t.Fatalf("insertion order not preserved: %+v", out)
	}
	if s.FanIn(b) != 2 {
		t.Fatalf("expected fan-in 2, got %d", s.FanIn(b))
	}
	if s.FanOut(a) != 2 {
		t.Fatalf("expected fan-out 2, got %d", s.FanOut(a))
	}
}

func TestAddEdgePinOutOfRange(t *testing.T) {
	s := NewStore[int](1)
	a := s.NewDevice()
	b := s.NewDevice()

	err := s.AddEdge(a, 1, b)
	if err == nil {
		t.Fatal("expected PinOutOfRangeError")
	}
	var pe *PinOutOfRangeError
	if !as(err, &pe) {
		t.Fatalf("expected *PinOutOfRangeError, got %T", err)
	}
	if pe.PMax != 1 || pe.Pin != 1 || pe.Device != a {
		t.Fatalf("unexpected error fields: %+v", pe)
	}
}

func TestAllEdgesInOrder(t *testing.T) {
	s := NewStore[int](2)
	a := s.NewDevice()
	b := s.NewDevice()
	c := s.NewDevice()

	_ = s.AddLabelledEdge(10, a, 0, b)
	_ = s.AddLabelledEdge(20, a, 1, c)
	_ = s.AddLabelledEdge(30, a, 0, c)

	type seen struct {
		from DeviceId
		pin  PinId
		idx  int
		lbl  int
		to   DeviceId
	}
	var got []seen
	s.AllEdgesInOrder(func(from DeviceId, pin PinId, index int, label int, to DeviceId) bool {
		got = append(got, seen{from, pin, index, label, to})
		return true
	})

	want := []seen{
		{a, 0, 0, 10, b},
		{a, 0, 1, 30, c},
		{a, 1, 0, 20, c},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d edges, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("edge %d mismatch: want %+v got %+v", i, want[i], got[i])
		}
	}
}

// as is a tiny errors.As substitute to keep this file free of an extra
// import purely for one type assertion.
func as(err error, target **PinOutOfRangeError) bool {
	pe, ok := err.(*PinOutOfRangeError)
	if ok {
		*target = pe
	}
	return ok
}
