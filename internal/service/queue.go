package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clawcombat/arena/internal/constants"
	"github.com/clawcombat/arena/internal/engine"
	"github.com/clawcombat/arena/internal/game"
	"github.com/clawcombat/arena/internal/logging"
	"github.com/clawcombat/arena/internal/matchmaking"
)

var (
	// ErrAlreadyEngaged re-exports the matchmaking sentinel so callers
	// only switch on service errors.
	ErrAlreadyEngaged = matchmaking.ErrAlreadyEngaged
	ErrNotQueued      = matchmaking.ErrNotQueued
	// ErrAlreadyPaired rejects a cancel that lost the race against
	// pairing: the entry is gone because a battle grabbed it.
	ErrAlreadyPaired = errors.New("queue entry already paired into a battle")
)

// QueueTicket is the receipt for a queue entry. BattleID is set when the
// join itself completed a pair, so the caller can skip polling.
type QueueTicket struct {
	Token      string    `json:"token"`
	Band       int       `json:"band"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	BattleID   string    `json:"battle_id,omitempty"`
}

// JoinQueue enters an agent into matchmaking. The engagement ledger is
// claimed first, so an agent can never hold a queue spot and a battle,
// or two queue spots, at the same time.
func (a *Arena) JoinQueue(agentUUID string) (*QueueTicket, error) {
	agent, err := a.agents.GetByUUID(agentUUID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}

	if err := a.ledger.Engage(agentUUID, matchmaking.Engagement{Kind: matchmaking.EngagementQueued}); err != nil {
		return nil, err
	}
	entry, err := a.queue.Join(agentUUID, agent.Level)
	if err != nil {
		a.ledger.Release(agentUUID)
		return nil, err
	}
	a.ledger.Shift(agentUUID, matchmaking.Engagement{
		Kind: matchmaking.EngagementQueued,
		Ref:  entry.Token,
	})

	// Mirror the entry so matchmaking survives a restart. SaveQueueEntry
	// upserts on the agent, replacing crash residue from a previous run.
	if err := a.repo.SaveQueueEntry(&game.QueueEntry{
		Token:      entry.Token,
		AgentUUID:  entry.AgentUUID,
		Level:      entry.Level,
		Band:       entry.Band,
		EnqueuedAt: entry.EnqueuedAt,
	}); err != nil {
		if _, cerr := a.queue.Cancel(entry.Token); cerr == nil {
			a.ledger.Release(agentUUID)
		}
		return nil, err
	}

	a.metrics.RecordQueueJoin()
	a.metrics.SetQueueDepth(a.queue.Len())
	logging.Info("agent joined queue", logging.Fields{
		constants.LogFieldAgent: agentUUID,
		constants.LogFieldToken: entry.Token,
		constants.LogFieldBand:  entry.Band,
	})

	a.drainPairs()

	ticket := &QueueTicket{Token: entry.Token, Band: entry.Band, EnqueuedAt: entry.EnqueuedAt}
	if eng, ok := a.ledger.Lookup(agentUUID); ok && eng.Kind == matchmaking.EngagementBattle {
		ticket.BattleID = eng.Ref
	}
	return ticket, nil
}

// CancelQueue withdraws a queue entry owned by the calling agent. A
// cancel that arrives after pairing reports ErrAlreadyPaired; the battle
// is already on.
func (a *Arena) CancelQueue(agentUUID, token string) error {
	entry, err := a.queue.Cancel(token)
	if err != nil {
		if eng, ok := a.ledger.Lookup(agentUUID); ok {
			if eng.Kind == matchmaking.EngagementBattle {
				return ErrAlreadyPaired
			}
			// Queued per the ledger but gone from the queue with this
			// token: TryPair plucked the entry and the battle is being
			// set up right now.
			if eng.Kind == matchmaking.EngagementQueued && eng.Ref == token {
				return ErrAlreadyPaired
			}
		}
		return err
	}
	if entry.AgentUUID != agentUUID {
		// Someone else's token. Put the entry back untouched.
		a.queue.Requeue(entry)
		return ErrNotQueued
	}

	a.ledger.Release(agentUUID)
	if err := a.repo.DeleteQueueEntryByToken(token); err != nil {
		logging.Error("failed to delete queue row", err, logging.Fields{constants.LogFieldToken: token})
	}
	a.metrics.RecordQueueCancel()
	a.metrics.SetQueueDepth(a.queue.Len())
	logging.Info("agent left queue", logging.Fields{
		constants.LogFieldAgent: agentUUID,
		constants.LogFieldToken: token,
	})
	return nil
}

// drainPairs starts battles for as many compatible pairs as the queue
// holds. On a start failure both entries go back to their original
// places in line.
func (a *Arena) drainPairs() {
	for {
		pair, ok := a.queue.TryPair()
		if !ok {
			return
		}
		if err := a.startBattle(pair); err != nil {
			logging.Error("failed to start battle, requeueing pair", err, logging.Fields{
				constants.LogFieldAgent: pair.A.AgentUUID,
				"opponent":              pair.B.AgentUUID,
			})
			a.queue.Requeue(pair.A)
			a.queue.Requeue(pair.B)
			return
		}
	}
}

// startBattle snapshots both agents into participants, persists the
// battle, and swaps the agents' engagements from queued to battle.
func (a *Arena) startBattle(pair matchmaking.Pair) error {
	agentA, err := a.loadForBattle(pair.A)
	if err != nil {
		return err
	}
	agentB, err := a.loadForBattle(pair.B)
	if err != nil {
		return err
	}
	if agentA == nil || agentB == nil {
		// A vanished agent was dropped by loadForBattle; the healthy
		// side keeps its place in line.
		if agentA != nil {
			a.queue.Requeue(pair.A)
		}
		if agentB != nil {
			a.queue.Requeue(pair.B)
		}
		return nil
	}

	pA, err := a.buildParticipant(0, agentA)
	if err != nil {
		return err
	}
	pB, err := a.buildParticipant(1, agentB)
	if err != nil {
		return err
	}

	b := &game.Battle{
		BattleUUID:   uuid.NewString(),
		Status:       game.BattleQueued,
		Participants: []game.Participant{pA, pB},
		MaxTurns:     a.battle.MaxTurns,
		Seed:         a.seedFn(),
	}
	b.Activate(a.now().Add(a.battle.TurnTimeout))
	if err := a.repo.CreateBattle(b); err != nil {
		return err
	}

	for _, token := range []string{pair.A.Token, pair.B.Token} {
		if err := a.repo.DeleteQueueEntryByToken(token); err != nil {
			logging.Error("failed to delete paired queue row", err, logging.Fields{constants.LogFieldToken: token})
		}
	}
	engagement := matchmaking.Engagement{Kind: matchmaking.EngagementBattle, Ref: b.BattleUUID}
	a.ledger.Shift(agentA.AgentUUID, engagement)
	a.ledger.Shift(agentB.AgentUUID, engagement)

	a.mu.Lock()
	a.live[b.BattleUUID] = &battleState{b: b}
	liveCount := len(a.live)
	a.mu.Unlock()

	a.metrics.RecordPairing()
	a.metrics.SetLiveBattles(liveCount)
	a.metrics.SetQueueDepth(a.queue.Len())
	logging.Info("battle started", logging.Fields{
		constants.LogFieldBattle: b.BattleUUID,
		constants.LogFieldAgent:  agentA.AgentUUID,
		"opponent":               agentB.AgentUUID,
		constants.LogFieldBand:   pair.A.Band,
	})
	return nil
}

// loadForBattle fetches a paired agent fresh from storage. A deleted
// agent is cleaned out of the queue and reported as nil with no error.
func (a *Arena) loadForBattle(e matchmaking.Entry) (*game.Agent, error) {
	agent, err := a.repo.GetAgentByUUID(e.AgentUUID)
	if err == nil {
		return agent, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	a.ledger.Release(e.AgentUUID)
	if derr := a.repo.DeleteQueueEntryByAgent(e.AgentUUID); derr != nil {
		logging.Error("failed to delete queue row for missing agent", derr, logging.Fields{constants.LogFieldAgent: e.AgentUUID})
	}
	logging.Info("dropped queue entry for missing agent", logging.Fields{constants.LogFieldAgent: e.AgentUUID})
	return nil, nil
}

// buildParticipant freezes an agent's battle-relevant attributes. Later
// level-ups never touch a running battle.
func (a *Arena) buildParticipant(idx int, agent *game.Agent) (game.Participant, error) {
	maxHP, err := engine.EffectiveHP(agent.BaseStats.HitPoints, agent.Level)
	if err != nil {
		return game.Participant{}, err
	}
	keys := agent.MoveKeys()
	if len(keys) > a.prog.MoveSlots {
		keys = keys[:a.prog.MoveSlots]
	}
	p := game.Participant{
		Idx:           idx,
		AgentUUID:     agent.AgentUUID,
		AgentName:     agent.Name,
		PrimaryType:   agent.PrimaryType,
		SecondaryType: agent.SecondaryType,
		Level:         agent.Level,
		BaseStats:     agent.BaseStats,
		CurrentHP:     maxHP,
		MaxHP:         maxHP,
	}
	p.SetMoveSet(keys)
	p.Moves = p.MoveSet()
	return p, nil
}
