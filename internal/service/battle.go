package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/clawcombat/arena/internal/constants"
	"github.com/clawcombat/arena/internal/engine"
	"github.com/clawcombat/arena/internal/game"
	"github.com/clawcombat/arena/internal/logging"
)

var (
	ErrBattleNotFound       = errors.New("battle not found")
	ErrBattleNotActive      = errors.New("battle is not accepting moves")
	ErrNotParticipant       = errors.New("agent is not part of this battle")
	ErrMoveAlreadySubmitted = errors.New("move already submitted for this turn")
	ErrUnknownMove          = errors.New("move is not in the agent's move set")
)

// SubmitMove buffers one agent's choice for the current turn. When the
// second choice lands the turn resolves immediately; the returned battle
// reflects the post-resolution state and resolved reports whether this
// call triggered it.
func (a *Arena) SubmitMove(agentUUID, battleUUID, moveKey string) (*game.Battle, bool, error) {
	st, err := a.activeState(battleUUID)
	if err != nil {
		return nil, false, err
	}

	snap, seq, resolved, err := a.bufferMove(st, agentUUID, moveKey)
	if err != nil {
		return nil, false, err
	}

	if err := a.persistSnapshot(st, snap, seq); err != nil {
		logging.Error("failed to persist battle", err, logging.Fields{constants.LogFieldBattle: snap.BattleUUID})
		return nil, resolved, err
	}
	if snap.Status.Terminal() {
		a.finishBattle(snap)
	}
	return snap, resolved, nil
}

// bufferMove validates and stores one choice under the state lock,
// resolving the turn when it is the second one. It returns a detached
// snapshot with its persist sequence; the store write happens on the
// caller's side, off the lock.
func (a *Arena) bufferMove(st *battleState, agentUUID, moveKey string) (*game.Battle, uint64, bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	b := st.b
	if b.Status != game.BattleActive {
		return nil, 0, false, ErrBattleNotActive
	}
	p := b.ParticipantByAgent(agentUUID)
	if p == nil {
		return nil, 0, false, ErrNotParticipant
	}
	if p.HasSubmitted {
		return nil, 0, false, ErrMoveAlreadySubmitted
	}
	if !p.Knows(moveKey) {
		return nil, 0, false, ErrUnknownMove
	}
	p.PendingMoveKey = moveKey
	p.HasSubmitted = true
	a.metrics.RecordMove(false)

	resolved := false
	if b.BothSubmitted() {
		if err := engine.ResolveTurn(b, a.catalog, a.chart); err != nil {
			a.condemn(b, err)
		} else {
			a.afterResolve(b)
		}
		resolved = true
	}
	return b.Clone(), st.nextSeq(), resolved, nil
}

// GetBattle returns a detached snapshot of a battle, live or archived.
func (a *Arena) GetBattle(battleUUID string) (*game.Battle, error) {
	if st := a.liveState(battleUUID); st != nil {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.b.Clone(), nil
	}
	b, err := a.repo.GetBattleByUUID(battleUUID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrBattleNotFound
		}
		return nil, err
	}
	return b, nil
}

// AbortBattle lets a participant forfeit. The battle ends immediately
// with no winner and no record changes for either side.
func (a *Arena) AbortBattle(agentUUID, battleUUID string) (*game.Battle, error) {
	st, err := a.activeState(battleUUID)
	if err != nil {
		return nil, err
	}

	snap, seq, err := a.markAborted(st, agentUUID)
	if err != nil {
		return nil, err
	}

	if err := a.persistSnapshot(st, snap, seq); err != nil {
		logging.Error("failed to persist aborted battle", err, logging.Fields{constants.LogFieldBattle: snap.BattleUUID})
		return nil, err
	}
	a.finishBattle(snap)

	logging.Info("battle aborted", logging.Fields{
		constants.LogFieldBattle: snap.BattleUUID,
		constants.LogFieldAgent:  agentUUID,
	})
	return snap, nil
}

// markAborted flips an active battle to aborted under the state lock and
// returns the snapshot to persist.
func (a *Arena) markAborted(st *battleState, agentUUID string) (*game.Battle, uint64, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	b := st.b
	if b.Status != game.BattleActive {
		return nil, 0, ErrBattleNotActive
	}
	p := b.ParticipantByAgent(agentUUID)
	if p == nil {
		return nil, 0, ErrNotParticipant
	}

	b.Status = game.BattleAborted
	b.Message = p.AgentName + " abandoned the battle."
	b.TurnDeadline = time.Time{}
	t := a.now()
	b.CompletedAt = &t
	return b.Clone(), st.nextSeq(), nil
}

// activeState locates the live state for a battle, adopting an active
// database row that this process does not track yet. Terminal battles
// report ErrBattleNotActive, unknown ones ErrBattleNotFound.
func (a *Arena) activeState(battleUUID string) (*battleState, error) {
	if st := a.liveState(battleUUID); st != nil {
		return st, nil
	}
	b, err := a.repo.GetBattleByUUID(battleUUID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrBattleNotFound
		}
		return nil, err
	}
	if b.Status.Terminal() {
		return nil, ErrBattleNotActive
	}
	return a.adopt(b), nil
}
