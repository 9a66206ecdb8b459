package engine

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/clawcombat/arena/internal/game"
)

const (
	// End-of-turn ailment chip is 1/8 of max HP, minimum one point.
	chipDivisor = 8
	// Chance a paralyzed participant loses its action entirely.
	fullParalysisChance = 25
)

// turnContext accumulates the human-readable summary while one turn
// resolves.
type turnContext struct {
	b        *game.Battle
	resolver *Resolver
	turnNo   int
	summary  []string
}

func newTurnContext(b *game.Battle, resolver *Resolver) *turnContext {
	return &turnContext{b: b, resolver: resolver, turnNo: b.Turn + 1, summary: make([]string, 0, 8)}
}

func (tc *turnContext) add(msg string) { tc.summary = append(tc.summary, msg) }

func (tc *turnContext) joinSummary() string { return strings.Join(tc.summary, "\n") }

// ResolveTurn resolves one full turn: both buffered moves in acting
// order, end-of-turn ailment damage, then termination checks. The caller
// guarantees both slots are filled; the function is a no-op otherwise.
// All randomness derives from the battle seed and the turn counter.
func ResolveTurn(b *game.Battle, catalog *game.MoveCatalog, chart *TypeChart) error {
	if b.Status != game.BattleActive || len(b.Participants) != 2 {
		return nil
	}
	if !b.BothSubmitted() {
		return nil
	}

	rng := rand.New(rand.NewSource(b.Seed + int64(b.Turn)))
	tc := newTurnContext(b, NewResolver(chart))

	p0 := &b.Participants[0]
	p1 := &b.Participants[1]
	plans := make([]*turnPlan, 0, 2)
	for _, pair := range [][2]*game.Participant{{p0, p1}, {p1, p0}} {
		actor, target := pair[0], pair[1]
		mv, ok := catalog.Get(actor.PendingMoveKey)
		if !ok {
			return fmt.Errorf("pending move %q for agent %s is not in the catalog", actor.PendingMoveKey, actor.AgentUUID)
		}
		spd, err := effectiveSpeed(actor)
		if err != nil {
			return err
		}
		plans = append(plans, &turnPlan{
			actor:       actor,
			target:      target,
			move:        mv,
			speed:       spd,
			substituted: actor.PendingMoveKey == game.DefaultMoveKey,
		})
	}
	sortPlans(plans)

	for _, plan := range plans {
		if err := tc.executePlan(plan, rng); err != nil {
			return err
		}
	}
	tc.applyEndOfTurn()

	p0.PendingMoveKey, p0.HasSubmitted = "", false
	p1.PendingMoveKey, p1.HasSubmitted = "", false
	b.Turn++

	tc.finalizeTurn()
	b.Message = tc.joinSummary()
	return nil
}

// executePlan applies one buffered move. A participant knocked out
// earlier in the turn neither acts nor is acted upon.
func (tc *turnContext) executePlan(plan *turnPlan, rng *rand.Rand) error {
	if plan.actor.Defeated() || plan.target.Defeated() {
		return nil
	}
	if plan.actor.Condition == game.ConditionParalysis && rng.Intn(100) < fullParalysisChance {
		tc.b.MoveLog = append(tc.b.MoveLog, game.MoveLogEntry{
			Turn:        tc.turnNo,
			AgentUUID:   plan.actor.AgentUUID,
			MoveKey:     plan.move.Key,
			Hit:         false,
			Substituted: plan.substituted,
			Note:        "fully paralyzed",
		})
		tc.add(plan.actor.AgentName + " is fully paralyzed and cannot move")
		return nil
	}

	out, err := tc.resolver.Apply(plan.move, plan.actor, plan.target, rng)
	if err != nil {
		return err
	}

	entry := game.MoveLogEntry{
		Turn:          tc.turnNo,
		AgentUUID:     plan.actor.AgentUUID,
		MoveKey:       plan.move.Key,
		Hit:           out.Hit,
		Damage:        out.Damage,
		Effectiveness: out.Effectiveness,
		Inflicted:     out.Inflicted,
		Substituted:   plan.substituted,
	}

	switch {
	case !out.Hit:
		tc.add(plan.actor.AgentName + "'s " + plan.move.Name + " missed")
	case out.Effectiveness == 0:
		tc.add(plan.actor.AgentName + "'s " + plan.move.Name + " has no effect on " + plan.target.AgentName)
	case out.Damage > 0:
		line := plan.actor.AgentName + " uses " + plan.move.Name + "; " + plan.target.AgentName + " takes " + strconv.Itoa(out.Damage) + " damage"
		if out.Effectiveness > 1 {
			line += " (super effective)"
		} else if out.Effectiveness < 1 {
			line += " (not very effective)"
		}
		tc.add(line)
	default:
		tc.add(plan.actor.AgentName + " uses " + plan.move.Name)
	}
	if out.Inflicted != game.ConditionNone {
		tc.add(plan.target.AgentName + " is afflicted by " + string(out.Inflicted))
	}
	for _, n := range out.StageNotes {
		tc.add(n)
	}
	if plan.target.Defeated() {
		entry.Note = plan.target.AgentName + " is knocked out"
		tc.add(plan.target.AgentName + " is knocked out!")
	}

	tc.b.MoveLog = append(tc.b.MoveLog, entry)
	return nil
}

// applyEndOfTurn deals ailment chip damage in participant-index order.
func (tc *turnContext) applyEndOfTurn() {
	for i := range tc.b.Participants {
		p := &tc.b.Participants[i]
		if p.Defeated() {
			continue
		}
		switch p.Condition {
		case game.ConditionBurn, game.ConditionPoison:
			chip := p.MaxHP / chipDivisor
			if chip < 1 {
				chip = 1
			}
			p.CurrentHP -= chip
			tc.add(p.AgentName + " takes " + strconv.Itoa(chip) + " " + string(p.Condition) + " damage")
			if p.Defeated() {
				tc.add(p.AgentName + " is knocked out!")
			}
		}
	}
}

// finalizeTurn evaluates termination: KO, double KO, or the turn cap
// with its hit-point-fraction tie-break.
func (tc *turnContext) finalizeTurn() {
	b := tc.b
	p0 := &b.Participants[0]
	p1 := &b.Participants[1]

	switch {
	case p0.Defeated() && p1.Defeated():
		tc.declareDraw("both agents are knocked out")
	case p0.Defeated():
		tc.declareWinner(p1, "")
	case p1.Defeated():
		tc.declareWinner(p0, "")
	case b.MaxTurns > 0 && b.Turn >= b.MaxTurns:
		f0, f1 := p0.HPFraction(), p1.HPFraction()
		switch {
		case f0 > f1:
			tc.declareWinner(p0, " on remaining hit points")
		case f1 > f0:
			tc.declareWinner(p1, " on remaining hit points")
		default:
			tc.declareDraw("turn limit reached with equal hit points")
		}
	}
}

func (tc *turnContext) declareWinner(w *game.Participant, how string) {
	tc.b.Status = game.BattleCompleted
	tc.b.WinnerUUID = w.AgentUUID
	tc.add(w.AgentName + " wins the battle" + how)
}

func (tc *turnContext) declareDraw(reason string) {
	tc.b.Status = game.BattleCompleted
	tc.b.Draw = true
	tc.add("The battle ends in a draw: " + reason)
}
