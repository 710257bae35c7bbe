package scheduler

import (
	"runtime"
	"sync"
)

// goroutineID returns the runtime id of the calling goroutine, read from the
// "goroutine NNN [" header of its stack trace.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		c := buf[i]
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}

// Members records the goroutines currently running jobs for one owner. It
// lets the owner recognise a call made from one of its own jobs even when
// the job did not forward the context it was given.
type Members struct {
	mu  sync.Mutex
	ids map[uint64]int
}

// Enter registers the calling goroutine and returns the function that
// removes it again. Entering twice from the same goroutine nests.
func (m *Members) Enter() func() {
	id := goroutineID()

	m.mu.Lock()
	if m.ids == nil {
		m.ids = make(map[uint64]int)
	}
	m.ids[id]++
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.ids[id]--; m.ids[id] <= 0 {
			delete(m.ids, id)
		}
	}
}

// Current reports whether the calling goroutine is registered.
func (m *Members) Current() bool {
	id := goroutineID()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids[id] > 0
}
