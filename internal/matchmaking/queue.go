// Package matchmaking pairs waiting agents into battles. The queue is FIFO
// within level bands and only ever pairs agents whose bands are adjacent or
// equal, so a veteran never meets a fresh recruit.
package matchmaking

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAlreadyQueued is returned when an agent already holds a queue slot.
	ErrAlreadyQueued = errors.New("agent is already queued")

	// ErrNotQueued is returned when a ticket does not match a waiting entry,
	// either because it never existed or because pairing already consumed it.
	ErrNotQueued = errors.New("no matching queue entry")
)

// Entry is one agent waiting for an opponent.
type Entry struct {
	Token      string
	AgentUUID  string
	Level      int
	Band       int
	EnqueuedAt time.Time
}

// Pair holds the two entries removed from the queue by a successful match.
// A always enqueued no later than B.
type Pair struct {
	A Entry
	B Entry
}

// Queue is an in-memory matchmaking queue. All methods are safe for
// concurrent use.
type Queue struct {
	mu        sync.Mutex
	bandWidth int
	entries   []*Entry
	byToken   map[string]*Entry
	byAgent   map[string]*Entry
	now       func() time.Time
}

// NewQueue creates an empty queue. bandWidth is how many levels share one
// band; values below 1 collapse everyone into a single band. Entries are
// stamped with the given clock; nil falls back to time.Now.
func NewQueue(bandWidth int, clock func() time.Time) *Queue {
	if clock == nil {
		clock = time.Now
	}
	return &Queue{
		bandWidth: bandWidth,
		byToken:   make(map[string]*Entry),
		byAgent:   make(map[string]*Entry),
		now:       clock,
	}
}

// band maps a level to its matchmaking band. Levels start at 1, so band 0
// covers levels 1..bandWidth.
func (q *Queue) band(level int) int {
	if q.bandWidth < 1 {
		return 0
	}
	return (level - 1) / q.bandWidth
}

// Join adds an agent to the back of the queue and returns the entry holding
// the cancellation ticket. An agent may hold at most one slot.
func (q *Queue) Join(agentUUID string, level int) (Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.byAgent[agentUUID]; ok {
		return Entry{}, ErrAlreadyQueued
	}
	e := &Entry{
		Token:      uuid.NewString(),
		AgentUUID:  agentUUID,
		Level:      level,
		Band:       q.band(level),
		EnqueuedAt: q.now(),
	}
	q.insert(e)
	return *e, nil
}

// Restore puts previously saved entries back into the queue, keeping their
// original tickets and timestamps. Entries for agents already present are
// skipped.
func (q *Queue) Restore(entries []Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EnqueuedAt.Before(sorted[j].EnqueuedAt) })
	for i := range sorted {
		e := sorted[i]
		if _, ok := q.byAgent[e.AgentUUID]; ok {
			continue
		}
		e.Band = q.band(e.Level)
		q.insert(&e)
	}
}

// Cancel removes the entry identified by token. It fails with ErrNotQueued
// when the ticket is unknown, which includes the case where pairing got to
// the entry first.
func (q *Queue) Cancel(token string) (Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.byToken[token]
	if !ok {
		return Entry{}, ErrNotQueued
	}
	q.remove(e)
	return *e, nil
}

// TryPair removes and returns the oldest compatible pair of entries. Both
// removals happen under one lock, so no other caller can see or claim half
// a pair. It reports false when no two waiting agents are compatible.
func (q *Queue) TryPair() (Pair, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := 0; i < len(q.entries); i++ {
		for j := i + 1; j < len(q.entries); j++ {
			if !compatible(q.entries[i], q.entries[j]) {
				continue
			}
			a, b := q.entries[i], q.entries[j]
			q.remove(b)
			q.remove(a)
			return Pair{A: *a, B: *b}, true
		}
	}
	return Pair{}, false
}

// Requeue puts an entry back after a failed pairing, keeping its ticket and
// its place in line. The entry is dropped if the agent re-joined in the
// meantime.
func (q *Queue) Requeue(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.byAgent[e.AgentUUID]; ok {
		return
	}
	e.Band = q.band(e.Level)
	q.insert(&e)
}

// Len reports how many agents are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Waiting returns a copy of the current entries in queue order.
func (q *Queue) Waiting() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.entries))
	for i, e := range q.entries {
		out[i] = *e
	}
	return out
}

// insert places e so that q.entries stays ordered by enqueue time, with
// the agent id breaking ties so pairing stays deterministic even when two
// joins land on the same clock reading. Callers hold q.mu.
func (q *Queue) insert(e *Entry) {
	pos := sort.Search(len(q.entries), func(i int) bool {
		cur := q.entries[i]
		if !cur.EnqueuedAt.Equal(e.EnqueuedAt) {
			return cur.EnqueuedAt.After(e.EnqueuedAt)
		}
		return cur.AgentUUID > e.AgentUUID
	})
	q.entries = append(q.entries, nil)
	copy(q.entries[pos+1:], q.entries[pos:])
	q.entries[pos] = e
	q.byToken[e.Token] = e
	q.byAgent[e.AgentUUID] = e
}

// remove drops e from the slice and both indexes. Callers hold q.mu.
func (q *Queue) remove(e *Entry) {
	for i, cur := range q.entries {
		if cur == e {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	delete(q.byToken, e.Token)
	delete(q.byAgent, e.AgentUUID)
}

func compatible(a, b *Entry) bool {
	d := a.Band - b.Band
	if d < 0 {
		d = -d
	}
	return d <= 1
}
