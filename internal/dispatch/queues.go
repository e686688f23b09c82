// Package dispatch implements the parallel trajectory dispatcher: a seed
// queue, a history queue, a worker pool, and the single-writer loop that
// persists completed trajectories (spec.md §4.6/§5).
//
// The two queues are plain mutex-guarded containers rather than buffered
// channels: spec.md §4.6 specifies a non-blocking pop (empty ⇒ immediate
// "nothing here", not a blocking receive), which is the
// sync.Mutex-guarded-map idiom
// tobyjaguar-mini-world/internal/api/ratelimit.go uses for its rate
// limiter, not a channel idiom.
package dispatch

import (
	"sync"

	"gmcsim/internal/simulation"
)

// SeedQueue is a FIFO of trajectory seeds, initialized with the half-open
// range [baseSeed, baseSeed+n), per spec.md §4.6.
type SeedQueue struct {
	mu    sync.Mutex
	seeds []uint64
	head  int
}

// NewSeedQueue builds a queue holding baseSeed, baseSeed+1, ..., baseSeed+n-1.
func NewSeedQueue(n int, baseSeed uint64) *SeedQueue {
	seeds := make([]uint64, n)
	for i := 0; i < n; i++ {
		seeds[i] = baseSeed + uint64(i)
	}
	return &SeedQueue{seeds: seeds}
}

// Pop removes and returns the front seed, or ok=false when drained.
func (q *SeedQueue) Pop() (seed uint64, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.seeds) {
		return 0, false
	}
	seed = q.seeds[q.head]
	q.head++
	return seed, true
}

// HistoryQueue is an unbounded FIFO of completed trajectories, per
// spec.md §4.6/§3.
type HistoryQueue struct {
	mu      sync.Mutex
	packets []simulation.HistoryPacket
}

// NewHistoryQueue builds an empty, unbounded history queue.
func NewHistoryQueue() *HistoryQueue {
	return &HistoryQueue{}
}

// Push appends a completed packet. Ownership of packet transfers to the
// queue (and, after Pop, to the dispatcher) — see the ownership note on
// simulation.HistoryPacket: packet is a small value (a seed plus a slice
// header), so this "transfer" is just passing that value along, never
// copying the backing history array.
func (q *HistoryQueue) Push(packet simulation.HistoryPacket) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.packets = append(q.packets, packet)
}

// Pop removes and returns the oldest packet, or ok=false when empty.
func (q *HistoryQueue) Pop() (packet simulation.HistoryPacket, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.packets) == 0 {
		return simulation.HistoryPacket{}, false
	}
	packet = q.packets[0]
	q.packets = q.packets[1:]
	return packet, true
}

// Len reports the current number of queued packets.
func (q *HistoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.packets)
}
