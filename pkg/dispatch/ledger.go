package dispatch

import "sync"

const defaultLedgerCapacity = 4096

// Ledger is the dedup ledger: a bounded set of processed message ids. When
// the capacity is reached the oldest id is evicted, so a message id is
// dispatched at most once while it remains in the window.
type Ledger struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
	order    []string
	head     int
}

// NewLedger builds a ledger holding at most capacity ids. Non-positive
// capacities fall back to the default.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = defaultLedgerCapacity
	}
	return &Ledger{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

// Add records id and reports whether it was new. Ids already in the window
// return false and are not re-recorded.
func (l *Ledger) Add(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[id]; ok {
		return false
	}

	if len(l.order) < l.capacity {
		l.order = append(l.order, id)
	} else {
		oldest := l.order[l.head]
		delete(l.seen, oldest)
		l.order[l.head] = id
		l.head = (l.head + 1) % l.capacity
	}
	l.seen[id] = struct{}{}
	return true
}

// Contains reports whether id is in the window.
func (l *Ledger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[id]
	return ok
}

// Len returns the number of ids currently held.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
