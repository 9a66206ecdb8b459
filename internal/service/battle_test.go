package service

import (
	"testing"

	"github.com/clawcombat/arena/internal/game"
)

func TestSubmitMove_BuffersUntilBothChose(t *testing.T) {
	a, repo, _ := newTestArena(t)
	fire, water := registerPair(t, a)
	battleID := pairUp(t, a, fire, water)

	b, resolved, err := a.SubmitMove(fire.AgentUUID, battleID, "ember")
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if resolved {
		t.Fatal("one submission must not resolve the turn")
	}
	if b.Turn != 0 {
		t.Fatalf("expected turn 0 before resolution, got %d", b.Turn)
	}

	b, resolved, err = a.SubmitMove(water.AgentUUID, battleID, "bubble")
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !resolved {
		t.Fatal("second submission must resolve the turn")
	}
	if b.Turn != 1 {
		t.Fatalf("expected turn 1, got %d", b.Turn)
	}
	if len(b.MoveLog) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(b.MoveLog))
	}
	for i := range b.Participants {
		if b.Participants[i].HasSubmitted {
			t.Fatal("buffers must clear after resolution")
		}
		if b.Participants[i].CurrentHP >= b.Participants[i].MaxHP {
			t.Fatalf("participant %d took no damage", i)
		}
	}

	stored := repo.storedBattle(t, battleID)
	if stored.Turn != 1 {
		t.Fatalf("resolution not persisted: stored turn %d", stored.Turn)
	}
}

func TestSubmitMove_Guards(t *testing.T) {
	a, _, _ := newTestArena(t)
	fire, water := registerPair(t, a)
	battleID := pairUp(t, a, fire, water)

	if _, _, err := a.SubmitMove(fire.AgentUUID, "missing", "ember"); err != ErrBattleNotFound {
		t.Fatalf("expected ErrBattleNotFound, got %v", err)
	}
	if _, _, err := a.SubmitMove("stranger", battleID, "ember"); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, _, err := a.SubmitMove(fire.AgentUUID, battleID, "bubble"); err != ErrUnknownMove {
		t.Fatalf("expected ErrUnknownMove for a move outside the set, got %v", err)
	}
	if _, _, err := a.SubmitMove(fire.AgentUUID, battleID, game.DefaultMoveKey); err != ErrUnknownMove {
		t.Fatalf("the fallback move must not be submittable, got %v", err)
	}

	if _, _, err := a.SubmitMove(fire.AgentUUID, battleID, "ember"); err != nil {
		t.Fatalf("valid submit: %v", err)
	}
	if _, _, err := a.SubmitMove(fire.AgentUUID, battleID, "flame_burst"); err != ErrMoveAlreadySubmitted {
		t.Fatalf("expected ErrMoveAlreadySubmitted, got %v", err)
	}
}

// playTurn submits for both sides and returns the post-resolution state.
func playTurn(t *testing.T, a *Arena, battleID string, fire, water *game.Agent, fireMove, waterMove string) *game.Battle {
	t.Helper()
	if _, _, err := a.SubmitMove(fire.AgentUUID, battleID, fireMove); err != nil {
		t.Fatalf("fire submit: %v", err)
	}
	b, resolved, err := a.SubmitMove(water.AgentUUID, battleID, waterMove)
	if err != nil {
		t.Fatalf("water submit: %v", err)
	}
	if !resolved {
		t.Fatal("expected resolution")
	}
	return b
}

func TestBattle_TurnCapAppliesResultAndFreesAgents(t *testing.T) {
	a, repo, _ := newTestArena(t)
	a.battle.MaxTurns = 1
	fire, water := registerPair(t, a)
	battleID := pairUp(t, a, fire, water)

	// Water's hits are super effective into fire, so the single allowed
	// turn decides the cap comparison in water's favor.
	b := playTurn(t, a, battleID, fire, water, "ember", "bubble")
	if b.Status != game.BattleCompleted {
		t.Fatalf("expected completed at the cap, got %s", b.Status)
	}
	if b.WinnerUUID != water.AgentUUID {
		t.Fatalf("expected water to win on remaining hp, got %q", b.WinnerUUID)
	}
	if b.CompletedAt == nil {
		t.Fatal("expected a completion timestamp")
	}
	if !b.TurnDeadline.IsZero() {
		t.Fatal("terminal battles must not carry a deadline")
	}

	winner, err := repo.GetAgentByUUID(water.AgentUUID)
	if err != nil {
		t.Fatalf("load winner: %v", err)
	}
	loser, err := repo.GetAgentByUUID(fire.AgentUUID)
	if err != nil {
		t.Fatalf("load loser: %v", err)
	}
	if winner.Wins != 1 || winner.Experience != 60 {
		t.Fatalf("winner record not applied: %d wins, %d xp", winner.Wins, winner.Experience)
	}
	if loser.Losses != 1 || loser.Experience != 15 {
		t.Fatalf("loser record not applied: %d losses, %d xp", loser.Losses, loser.Experience)
	}

	// Both freed: a new queue entry must be accepted.
	if _, err := a.JoinQueue(fire.AgentUUID); err != nil {
		t.Fatalf("rejoin after battle: %v", err)
	}

	if _, _, err := a.SubmitMove(fire.AgentUUID, battleID, "ember"); err != ErrBattleNotActive {
		t.Fatalf("expected ErrBattleNotActive after completion, got %v", err)
	}
}

func TestGetBattle_ServesLiveAndArchived(t *testing.T) {
	a, _, _ := newTestArena(t)
	fire, water := registerPair(t, a)
	battleID := pairUp(t, a, fire, water)

	b, err := a.GetBattle(battleID)
	if err != nil {
		t.Fatalf("get live: %v", err)
	}
	if b.Status != game.BattleActive {
		t.Fatalf("expected active, got %s", b.Status)
	}
	// The snapshot is detached: mutating it must not leak into the arena.
	b.Participants[0].CurrentHP = 1
	again, err := a.GetBattle(battleID)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.Participants[0].CurrentHP == 1 {
		t.Fatal("snapshot mutation leaked into live state")
	}

	if _, err := a.GetBattle("missing"); err != ErrBattleNotFound {
		t.Fatalf("expected ErrBattleNotFound, got %v", err)
	}

	if _, err := a.AbortBattle(fire.AgentUUID, battleID); err != nil {
		t.Fatalf("abort: %v", err)
	}
	archived, err := a.GetBattle(battleID)
	if err != nil {
		t.Fatalf("get archived: %v", err)
	}
	if archived.Status != game.BattleAborted {
		t.Fatalf("expected aborted, got %s", archived.Status)
	}
}

func TestAbortBattle_EndsWithoutRecordChanges(t *testing.T) {
	a, repo, _ := newTestArena(t)
	fire, water := registerPair(t, a)
	battleID := pairUp(t, a, fire, water)

	if _, err := a.AbortBattle("stranger", battleID); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}

	b, err := a.AbortBattle(fire.AgentUUID, battleID)
	if err != nil {
		t.Fatalf("abort: %v", err)
	}
	if b.Status != game.BattleAborted {
		t.Fatalf("expected aborted, got %s", b.Status)
	}
	if b.WinnerUUID != "" || b.Draw {
		t.Fatal("aborts must not produce a result")
	}
	if b.CompletedAt == nil {
		t.Fatal("expected a completion timestamp")
	}

	for _, uuid := range []string{fire.AgentUUID, water.AgentUUID} {
		ag, err := repo.GetAgentByUUID(uuid)
		if err != nil {
			t.Fatalf("load agent: %v", err)
		}
		if ag.Wins+ag.Losses+ag.Draws != 0 || ag.Experience != 0 {
			t.Fatalf("abort changed agent %s record", uuid)
		}
	}

	if _, err := a.AbortBattle(water.AgentUUID, battleID); err != ErrBattleNotActive {
		t.Fatalf("expected ErrBattleNotActive on second abort, got %v", err)
	}
	if _, err := a.JoinQueue(water.AgentUUID); err != nil {
		t.Fatalf("rejoin after abort: %v", err)
	}
}

func TestSubmitMove_UnresolvableTurnAbortsBattle(t *testing.T) {
	a, repo, _ := newTestArena(t)
	fire, water := registerPair(t, a)
	battleID := pairUp(t, a, fire, water)

	// A restart brings up a config without fire moves. The participants'
	// snapshots still carry them, so the next resolution cannot look the
	// buffered move up.
	cfg := testLoadedConfig()
	kept := make([]game.Move, 0, len(cfg.Moves))
	for _, m := range cfg.Moves {
		if m.Type != game.Fire {
			kept = append(kept, m)
		}
	}
	cfg.Moves = kept
	fresh := newArenaOver(t, repo, cfg)
	fresh.now = a.now
	if err := fresh.Rehydrate(); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}

	if _, _, err := fresh.SubmitMove(fire.AgentUUID, battleID, "ember"); err != nil {
		t.Fatalf("buffer submit: %v", err)
	}
	b, resolved, err := fresh.SubmitMove(water.AgentUUID, battleID, "bubble")
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !resolved {
		t.Fatal("expected the failed resolution to conclude the battle")
	}
	if b.Status != game.BattleAborted {
		t.Fatalf("expected the stuck battle aborted, got %s", b.Status)
	}
	if stored := repo.storedBattle(t, battleID); stored.Status != game.BattleAborted {
		t.Fatalf("abort not persisted: stored status %s", stored.Status)
	}

	// The fault stays contained: records untouched, both agents free again.
	for _, uuid := range []string{fire.AgentUUID, water.AgentUUID} {
		ag, err := repo.GetAgentByUUID(uuid)
		if err != nil {
			t.Fatalf("load agent: %v", err)
		}
		if ag.Wins+ag.Losses+ag.Draws != 0 {
			t.Fatalf("aborting changed agent %s record", uuid)
		}
	}
	if _, err := fresh.JoinQueue(fire.AgentUUID); err != nil {
		t.Fatalf("rejoin after abort: %v", err)
	}
}
