package matchmaking

import (
	"errors"
	"sync"
)

// ErrAlreadyEngaged is returned when an agent who is queued or fighting tries
// to start a second engagement.
var ErrAlreadyEngaged = errors.New("agent already has a live engagement")

// EngagementKind says what an agent is currently busy with.
type EngagementKind string

const (
	EngagementQueued EngagementKind = "queued"
	EngagementBattle EngagementKind = "battle"
)

// Engagement records what an agent is doing and the object that holds them:
// the queue ticket while waiting, the battle id while fighting.
type Engagement struct {
	Kind EngagementKind
	Ref  string
}

// Ledger tracks every agent's single live engagement. It is the in-process
// guard for the rule that an agent is never queued twice, never in two
// battles, and never both at once.
type Ledger struct {
	mu      sync.Mutex
	byAgent map[string]Engagement
}

func NewLedger() *Ledger {
	return &Ledger{byAgent: make(map[string]Engagement)}
}

// Engage claims the agent's slot. It fails with ErrAlreadyEngaged when the
// agent is already queued or in a battle.
func (l *Ledger) Engage(agentUUID string, e Engagement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byAgent[agentUUID]; ok {
		return ErrAlreadyEngaged
	}
	l.byAgent[agentUUID] = e
	return nil
}

// Shift replaces the agent's engagement without releasing the slot in
// between. Pairing uses it to move an agent from queued to battling so there
// is no instant where the agent looks free.
func (l *Ledger) Shift(agentUUID string, e Engagement) {
	l.mu.Lock()
	l.byAgent[agentUUID] = e
	l.mu.Unlock()
}

// Release frees the agent's slot.
func (l *Ledger) Release(agentUUID string) {
	l.mu.Lock()
	delete(l.byAgent, agentUUID)
	l.mu.Unlock()
}

// Lookup reports the agent's current engagement, if any.
func (l *Ledger) Lookup(agentUUID string) (Engagement, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byAgent[agentUUID]
	return e, ok
}
