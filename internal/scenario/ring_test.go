package scenario

import "testing"

// TestRingTokenCompletion exercises S1: a 70-device ring, device 0 sending
// 2 tokens that each loop the ring twice. The global exit message must be
// observed exactly once, and every device must have received exactly
// RingTokens*RingLoops messages, independent of tick-order timing.
func TestRingTokenCompletion(t *testing.T) {
	result, err := RunRing()
	if err != nil {
		t.Fatalf("RunRing: %v", err)
	}

	if result.ExitCount != 1 {
		t.Fatalf("ExitCount = %d, want exactly 1", result.ExitCount)
	}

	if len(result.ReceivedByDevice) != RingLength {
		t.Fatalf("got receipts from %d devices, want %d", len(result.ReceivedByDevice), RingLength)
	}

	want := RingTokens * RingLoops
	for da, got := range result.ReceivedByDevice {
		if got != want {
			t.Errorf("device %v received %d messages, want %d", da, got, want)
		}
	}
}
