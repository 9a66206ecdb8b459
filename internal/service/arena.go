package service

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clawcombat/arena/internal/cache"
	"github.com/clawcombat/arena/internal/config"
	"github.com/clawcombat/arena/internal/constants"
	"github.com/clawcombat/arena/internal/engine"
	"github.com/clawcombat/arena/internal/game"
	"github.com/clawcombat/arena/internal/logging"
	"github.com/clawcombat/arena/internal/matchmaking"
	"github.com/clawcombat/arena/internal/metrics"
	"github.com/clawcombat/arena/internal/storage"
)

const (
	// leaderboardTTL bounds how stale a cached leaderboard page may get;
	// finishing a battle purges the cache anyway.
	leaderboardTTL = 30 * time.Second
	// claimBatchSize caps how many overdue battles one sweep picks up.
	claimBatchSize = 20
	// claimDuration is how long a claim shields a battle from other
	// workers before it is considered abandoned.
	claimDuration = 2 * time.Minute
)

// Arena owns all gameplay state transitions: registration, queueing,
// pairing, move submission and timeout handling. Every battle that is
// accepting moves has a battleState here; the database row is a mirror
// updated under the same per-battle lock.
type Arena struct {
	repo    storage.Repository
	agents  *storage.CachedAgentStore
	catalog *game.MoveCatalog
	chart   *engine.TypeChart
	battle  config.BattleSettings
	prog    config.ProgressionSettings
	presets map[game.ElementType]game.BaseStats

	queue  *matchmaking.Queue
	ledger *matchmaking.Ledger

	mu   sync.Mutex
	live map[string]*battleState

	leaderboard *cache.Cache[int, []game.Agent]
	metrics     *metrics.Collector

	now      func() time.Time
	seedFn   func() int64
	workerID string
}

// battleState serializes all mutations of one battle. The gameplay lock
// covers only the in-memory transition; database writes happen outside
// it on sequence-stamped snapshots, so a stalled write can neither block
// gameplay nor overwrite a newer turn.
type battleState struct {
	mu sync.Mutex
	b  *game.Battle

	// persistMu serializes store writes for this battle. seq orders the
	// snapshots; a write whose snapshot is older than one already in the
	// store is dropped.
	persistMu    sync.Mutex
	seq          uint64
	persistedSeq uint64
}

// nextSeq stamps the current in-memory state. Callers hold st.mu.
func (st *battleState) nextSeq() uint64 {
	st.seq++
	return st.seq
}

// NewArena wires the gameplay core. The collector must not be nil;
// pass one registered against a throwaway registry in tests.
func NewArena(repo storage.Repository, agents *storage.CachedAgentStore, cfg *config.LoadedConfig, collector *metrics.Collector) *Arena {
	a := &Arena{
		repo:        repo,
		agents:      agents,
		catalog:     game.NewMoveCatalog(cfg.Moves),
		chart:       engine.NewTypeChart(cfg.TypeChart),
		battle:      cfg.Battle,
		prog:        cfg.Progression,
		presets:     cfg.StatPresets,
		ledger:      matchmaking.NewLedger(),
		live:        make(map[string]*battleState),
		leaderboard: cache.New[int, []game.Agent](leaderboardTTL),
		metrics:     collector,
		now:         time.Now,
		seedFn:      rand.Int63,
		workerID:    uuid.NewString(),
	}
	// The queue reads the clock through the arena so queue timestamps and
	// staleness checks always agree.
	a.queue = matchmaking.NewQueue(cfg.Battle.QueueBandWidth, func() time.Time { return a.now() })
	return a
}

// Catalog exposes the loaded move catalog for read-only use by the API.
func (a *Arena) Catalog() *game.MoveCatalog { return a.catalog }

// liveState returns the in-memory state for a battle, or nil when the
// battle is not tracked by this process.
func (a *Arena) liveState(battleUUID string) *battleState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live[battleUUID]
}

// adopt registers a battle loaded from the database as live, restoring
// the participants' engagements. Used after a restart gap, when a row
// is active on disk but unknown to the process.
func (a *Arena) adopt(b *game.Battle) *battleState {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.live[b.BattleUUID]; ok {
		return st
	}
	st := &battleState{b: b}
	a.live[b.BattleUUID] = st
	for i := range b.Participants {
		a.ledger.Shift(b.Participants[i].AgentUUID, matchmaking.Engagement{
			Kind: matchmaking.EngagementBattle,
			Ref:  b.BattleUUID,
		})
	}
	a.metrics.SetLiveBattles(len(a.live))
	return st
}

// Rehydrate reloads active battles and queue entries after a restart.
// Call it once, before the server starts accepting requests.
func (a *Arena) Rehydrate() error {
	battles, err := a.repo.ListActiveBattles()
	if err != nil {
		return err
	}
	for i := range battles {
		b := &battles[i]
		a.live[b.BattleUUID] = &battleState{b: b}
		for j := range b.Participants {
			a.ledger.Shift(b.Participants[j].AgentUUID, matchmaking.Engagement{
				Kind: matchmaking.EngagementBattle,
				Ref:  b.BattleUUID,
			})
		}
	}

	rows, err := a.repo.ListQueueEntries()
	if err != nil {
		return err
	}
	restored := make([]matchmaking.Entry, 0, len(rows))
	for _, row := range rows {
		// A queue row for an agent already in a battle is a leftover
		// from a crash between pairing and cleanup.
		if _, busy := a.ledger.Lookup(row.AgentUUID); busy {
			if err := a.repo.DeleteQueueEntryByAgent(row.AgentUUID); err != nil {
				logging.Error("failed to drop stale queue entry", err, logging.Fields{constants.LogFieldAgent: row.AgentUUID})
			}
			continue
		}
		if err := a.ledger.Engage(row.AgentUUID, matchmaking.Engagement{
			Kind: matchmaking.EngagementQueued,
			Ref:  row.Token,
		}); err != nil {
			continue
		}
		restored = append(restored, matchmaking.Entry{
			Token:      row.Token,
			AgentUUID:  row.AgentUUID,
			Level:      row.Level,
			EnqueuedAt: row.EnqueuedAt,
		})
	}
	a.queue.Restore(restored)

	logging.Info("arena state rehydrated", logging.Fields{
		"battles": len(battles),
		"queued":  a.queue.Len(),
	})
	a.metrics.SetLiveBattles(len(battles))
	a.metrics.SetQueueDepth(a.queue.Len())
	a.drainPairs()
	return nil
}

// persistSnapshot writes a snapshot taken under the state lock. Writes
// are serialized per battle, and a snapshot that lost the race against a
// newer one is skipped rather than written backwards.
func (a *Arena) persistSnapshot(st *battleState, snap *game.Battle, seq uint64) error {
	st.persistMu.Lock()
	defer st.persistMu.Unlock()
	if seq <= st.persistedSeq {
		return nil
	}
	if err := a.repo.UpdateBattle(snap); err != nil {
		return err
	}
	st.persistedSeq = seq
	return nil
}

// condemn force-aborts a battle whose turn can no longer be resolved,
// keeping the fault contained to this one battle. Callers hold st.mu.
func (a *Arena) condemn(b *game.Battle, cause error) {
	logging.Error("aborting unresolvable battle", cause, logging.Fields{
		constants.LogFieldBattle: b.BattleUUID,
		constants.LogFieldTurn:   b.Turn,
	})
	b.Status = game.BattleAborted
	b.Message = "Battle aborted: the turn could not be resolved."
	b.TurnDeadline = time.Time{}
	t := a.now()
	b.CompletedAt = &t
}

// afterResolve stamps the post-turn bookkeeping that does not belong to
// the resolver: the next deadline while the battle runs, the completion
// time once it ends.
func (a *Arena) afterResolve(b *game.Battle) {
	a.metrics.RecordTurn()
	if b.Status == game.BattleActive {
		b.TurnDeadline = a.now().Add(a.battle.TurnTimeout)
		return
	}
	b.TurnDeadline = time.Time{}
	t := a.now()
	b.CompletedAt = &t
}

// finishBattle runs the terminal housekeeping for a battle whose state
// lock is held: stats, caches, engagements, metrics. The database row
// must already carry the terminal status.
func (a *Arena) finishBattle(b *game.Battle) {
	if err := a.repo.ApplyBattleResult(b.BattleUUID); err != nil {
		logging.Error("failed to apply battle result", err, logging.Fields{constants.LogFieldBattle: b.BattleUUID})
	}
	for i := range b.Participants {
		agentUUID := b.Participants[i].AgentUUID
		a.agents.Invalidate(agentUUID)
		a.ledger.Release(agentUUID)
	}

	a.mu.Lock()
	delete(a.live, b.BattleUUID)
	remaining := len(a.live)
	a.mu.Unlock()
	a.metrics.SetLiveBattles(remaining)

	switch {
	case b.Status == game.BattleAborted:
		a.metrics.RecordBattleFinished(metrics.OutcomeAborted)
	case b.Draw:
		a.metrics.RecordBattleFinished(metrics.OutcomeDraw)
	default:
		a.metrics.RecordBattleFinished(metrics.OutcomeWin)
	}
	a.leaderboard.Purge()

	logging.Info("battle finished", logging.Fields{
		constants.LogFieldBattle: b.BattleUUID,
		constants.LogFieldTurn:   b.Turn,
		constants.LogFieldWinner: b.WinnerUUID,
		"draw":                   b.Draw,
		constants.JSONKeyStatus:  string(b.Status),
	})
}
