package scheduler

import "sync"

// LoadTable tracks how many dispatched jobs each execution context still has
// in flight. All reads and writes go through one mutex that is held only for
// the O(n) scan in Acquire and the O(1) update in Release.
//
// Invariant: the sum of pending counts equals jobs acquired minus jobs
// released, and no count ever drops below zero.
type LoadTable struct {
	mu      sync.Mutex
	pending []int
	peak    []int
}

// NewLoadTable creates a table for n execution contexts.
func NewLoadTable(n int) *LoadTable {
	return &LoadTable{
		pending: make([]int, n),
		peak:    make([]int, n),
	}
}

// Acquire picks the least-loaded context, ties going to the lowest index,
// and charges one job to it. It returns the chosen index.
func (t *LoadTable) Acquire() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	best := 0
	for i := 1; i < len(t.pending); i++ {
		if t.pending[i] < t.pending[best] {
			best = i
		}
	}

	t.pending[best]++
	if t.pending[best] > t.peak[best] {
		t.peak[best] = t.pending[best]
	}
	return best
}

// Release returns one job's charge to context i.
func (t *LoadTable) Release(i int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i < 0 || i >= len(t.pending) || t.pending[i] == 0 {
		return
	}
	t.pending[i]--
}

// Total returns the number of jobs in flight across all contexts.
func (t *LoadTable) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, p := range t.pending {
		total += p
	}
	return total
}

// Stats returns a snapshot of every context's load.
func (t *LoadTable) Stats() []LoadStat {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := make([]LoadStat, len(t.pending))
	for i := range t.pending {
		stats[i] = LoadStat{Context: i, Pending: t.pending[i], Peak: t.peak[i]}
	}
	return stats
}
