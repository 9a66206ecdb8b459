package service

import (
	"github.com/clawcombat/arena/internal/constants"
	"github.com/clawcombat/arena/internal/engine"
	"github.com/clawcombat/arena/internal/game"
	"github.com/clawcombat/arena/internal/logging"
)

// SweepTimedOut claims overdue battles and force-resolves their turns.
// Claiming goes through the database so several workers can run the
// sweep without double-resolving a turn.
func (a *Arena) SweepTimedOut() {
	claimed, err := a.repo.ClaimTimedOutBattles(a.now(), claimBatchSize, claimDuration, a.workerID)
	if err != nil {
		logging.Error("failed to claim timed-out battles", err, logging.Fields{constants.LogFieldWorker: a.workerID})
		return
	}
	for i := range claimed {
		a.HandleTimedOutBattle(&claimed[i])
	}
}

// HandleTimedOutBattle resolves a turn whose deadline passed, playing
// the fallback move for every agent that stayed silent. Two silent
// agents burn the turn on mutual fallback moves; the battle keeps
// running until knockout or the turn cap.
func (a *Arena) HandleTimedOutBattle(claimed *game.Battle) {
	st := a.liveState(claimed.BattleUUID)
	if st == nil {
		st = a.adopt(claimed)
	}

	snap, seq, substituted := a.forceTurn(st)
	if snap == nil {
		return
	}

	if err := a.persistSnapshot(st, snap, seq); err != nil {
		logging.Error("failed to persist timed-out battle", err, logging.Fields{constants.LogFieldBattle: snap.BattleUUID})
		return
	}
	if snap.Status.Terminal() {
		a.finishBattle(snap)
	}

	logging.Info("turn forced after deadline", logging.Fields{
		constants.LogFieldBattle: snap.BattleUUID,
		constants.LogFieldTurn:   snap.Turn,
		"substituted":            substituted,
		constants.LogFieldWorker: a.workerID,
	})
}

// forceTurn substitutes the fallback move for every missing slot and
// resolves, all under the state lock. It returns nil when the claim went
// stale before the lock was taken.
func (a *Arena) forceTurn(st *battleState) (*game.Battle, uint64, int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	b := st.b
	if b.Status != game.BattleActive {
		return nil, 0, 0
	}
	// A move that landed between the claim and this lock pushed the
	// deadline forward; the claim is stale then.
	if b.TurnDeadline.IsZero() || a.now().Before(b.TurnDeadline) {
		return nil, 0, 0
	}

	substituted := 0
	for i := range b.Participants {
		p := &b.Participants[i]
		if p.HasSubmitted {
			continue
		}
		p.PendingMoveKey = game.DefaultMoveKey
		p.HasSubmitted = true
		substituted++
		a.metrics.RecordMove(true)
	}

	if err := engine.ResolveTurn(b, a.catalog, a.chart); err != nil {
		a.condemn(b, err)
	} else {
		a.afterResolve(b)
	}
	return b.Clone(), st.nextSeq(), substituted
}

// RunMaintenance prunes finished battles past retention and expires
// queue entries nobody paired with. Meant for a scheduler tick.
func (a *Arena) RunMaintenance() {
	now := a.now()

	if n, err := a.repo.PruneTerminalBattles(now.Add(-a.battle.CompletedRetention)); err != nil {
		logging.Error("failed to prune finished battles", err, nil)
	} else if n > 0 {
		logging.Info("pruned finished battles", logging.Fields{constants.LogFieldCount: n})
	}

	cutoff := now.Add(-a.battle.QueueStaleAfter)
	expired := 0
	for _, e := range a.queue.Waiting() {
		if e.EnqueuedAt.After(cutoff) {
			continue
		}
		if _, err := a.queue.Cancel(e.Token); err != nil {
			continue
		}
		a.ledger.Release(e.AgentUUID)
		if err := a.repo.DeleteQueueEntryByToken(e.Token); err != nil {
			logging.Error("failed to delete expired queue row", err, logging.Fields{constants.LogFieldToken: e.Token})
		}
		a.metrics.RecordQueueCancel()
		expired++
	}
	if expired > 0 {
		logging.Info("expired stale queue entries", logging.Fields{constants.LogFieldCount: expired})
	}
	// Rows with no in-memory twin (crash residue) age out the same way.
	if _, err := a.repo.DeleteQueueEntriesBefore(cutoff); err != nil {
		logging.Error("failed to prune stale queue rows", err, nil)
	}
	a.metrics.SetQueueDepth(a.queue.Len())
}
