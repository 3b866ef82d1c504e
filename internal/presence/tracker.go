package presence

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleThreshold is how long a connection may go without a
// heartbeat before the user stops counting as reachable.
const DefaultIdleThreshold = 2 * time.Minute

// Tracker keeps process-wide presence state: per-user connection counts
// and heartbeats, plus per-task sets of users currently watching the
// channel. Pure in-memory bookkeeping behind one mutex; every method is
// O(1) and never blocks on I/O, so it is safe to call from the
// connection-handling path.
type Tracker struct {
	mu         sync.Mutex
	conns      map[uuid.UUID]int
	heartbeats map[uuid.UUID]time.Time
	watchers   map[uuid.UUID]map[uuid.UUID]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{
		conns:      make(map[uuid.UUID]int),
		heartbeats: make(map[uuid.UUID]time.Time),
		watchers:   make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// Connect registers one more live connection for the user and resets
// the heartbeat clock.
func (t *Tracker) Connect(userID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[userID]++
	t.heartbeats[userID] = time.Now()
}

// Disconnect drops one connection. When the count reaches zero both the
// count and heartbeat entries are removed outright; a fully disconnected
// user must not linger as "active with an idle timeout".
func (t *Tracker) Disconnect(userID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.conns[userID]
	if !ok {
		return
	}
	if n <= 1 {
		delete(t.conns, userID)
		delete(t.heartbeats, userID)
		return
	}
	t.conns[userID] = n - 1
}

// Heartbeat refreshes the liveness clock, but only for users with at
// least one open connection. A stale request must not resurrect an
// entry that Disconnect already removed.
func (t *Tracker) Heartbeat(userID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.conns[userID]; ok {
		t.heartbeats[userID] = time.Now()
	}
}

func (t *Tracker) JoinTask(taskID, userID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.watchers[taskID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		t.watchers[taskID] = set
	}
	set[userID] = struct{}{}
}

func (t *Tracker) LeaveTask(taskID, userID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.watchers[taskID]
	if !ok {
		return
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(t.watchers, taskID)
	}
}

// IsWatching reports whether the user currently has an open room
// membership for the task.
func (t *Tracker) IsWatching(taskID, userID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.watchers[taskID]
	if !ok {
		return false
	}
	_, ok = set[userID]
	return ok
}

// IsReachable reports whether the user has a live connection with a
// recent heartbeat. Connection count alone is an unreliable liveness
// signal: a socket can stay open while the client stopped heartbeating
// (suspended tab, lost radio), so both conditions must hold.
func (t *Tracker) IsReachable(userID uuid.UUID, maxIdle time.Duration, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conns[userID] == 0 {
		return false
	}
	hb, ok := t.heartbeats[userID]
	if !ok {
		return false
	}
	return now.Sub(hb) <= maxIdle
}

// Connections returns the live connection count for a user (zero when
// the user has no entry at all).
func (t *Tracker) Connections(userID uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[userID]
}
