package cycle

import "sync"

// leaseTable enforces at most one in-flight ExecutePhase per cycle within
// this process. Cross-process callers still need external serialization.
type leaseTable struct {
	mu   sync.Mutex
	held map[string]bool
}

func newLeaseTable() *leaseTable {
	return &leaseTable{held: make(map[string]bool)}
}

// tryAcquire takes the lease for a cycle, reporting false if already held.
func (l *leaseTable) tryAcquire(cycleID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[cycleID] {
		return false
	}
	l.held[cycleID] = true
	return true
}

// release returns the lease for a cycle.
func (l *leaseTable) release(cycleID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, cycleID)
}
