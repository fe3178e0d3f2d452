package runtime

import "sync"

// Barrier is the fabric-wide idle handshake spec's event loop rule 3
// requires: every thread in a mesh votes its local active state, and once
// every thread has voted the round resolves the same way everywhere — if
// any vote was active, every thread steps its active local devices once
// (idle_level 1); if every vote was inactive, every thread terminates
// instead (idle_level 2). This is distinct from akita's own end-of-run
// quiescence detection, which only fires once, at final engine shutdown —
// Barrier recurs every superstep, gating Step phases across every Thread
// sharing it rather than just the last one.
//
// Barrier is reusable across supersteps: Leave marks a thread done acting
// on a resolved round, and the round resets for the next once every thread
// has left.
type Barrier struct {
	mu sync.Mutex
	n  int

	voted   []bool
	active  []bool
	arrived int

	resolved  bool
	terminate bool

	left     []bool
	departed int
}

// NewBarrier returns a Barrier for a mesh of n threads.
func NewBarrier(n int) *Barrier {
	return &Barrier{
		n:      n,
		voted:  make([]bool, n),
		active: make([]bool, n),
		left:   make([]bool, n),
	}
}

// Arrive casts idx's vote for the current round: active reports whether
// idx still has a local device wanting a Step. It returns resolved once
// every thread in the mesh has voted, and the round's outcome alongside
// it: terminate false means idx should run beginStep/drainStep once
// (idle_level 1); terminate true means idx should stop ticking its event
// loop and move to Finish (idle_level 2). A thread that calls Arrive again
// before the round resolves (spurious wake, idle_level 0) simply updates
// its own vote and waits.
func (b *Barrier) Arrive(idx int, active bool) (resolved, terminate bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.voted[idx] {
		b.voted[idx] = true
		b.arrived++
	}
	b.active[idx] = active

	if b.arrived < b.n {
		return false, false
	}

	if !b.resolved {
		any := false
		for _, a := range b.active {
			if a {
				any = true
				break
			}
		}
		b.terminate = !any
		b.resolved = true
	}
	return true, b.terminate
}

// Advance withdraws idx's vote: a thread that makes send or receive
// progress is no longer idle, and a stale "I'm idle" vote already cast for
// the in-flight round must not let that round resolve around it. Advance
// is a no-op once the round has already resolved — the vote was correct
// when everyone agreed on it, and the thread will vote fresh next round.
func (b *Barrier) Advance(idx int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.resolved || !b.voted[idx] {
		return
	}
	b.voted[idx] = false
	b.arrived--
}

// Leave marks idx done acting on the round that just resolved for it
// (stepped its devices, or terminated). Once every thread has left, the
// barrier clears itself for the next superstep.
func (b *Barrier) Leave(idx int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.left[idx] {
		return
	}
	b.left[idx] = true
	b.departed++
	if b.departed < b.n {
		return
	}

	for i := range b.voted {
		b.voted[i] = false
		b.active[i] = false
		b.left[i] = false
	}
	b.arrived = 0
	b.departed = 0
	b.resolved = false
	b.terminate = false
}
