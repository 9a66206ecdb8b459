package engine

import (
	"sort"

	"github.com/clawcombat/arena/internal/game"
)

// turnPlan is one participant's buffered move prepared for execution.
type turnPlan struct {
	actor       *game.Participant
	target      *game.Participant
	move        game.Move
	speed       int
	substituted bool
}

// sortPlans orders plans by priority tier desc, effective speed desc,
// participant index asc. Ordering is fully deterministic so a battle can
// be replayed from its seed.
func sortPlans(plans []*turnPlan) {
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].move.Priority != plans[j].move.Priority {
			return plans[i].move.Priority > plans[j].move.Priority
		}
		if plans[i].speed != plans[j].speed {
			return plans[i].speed > plans[j].speed
		}
		return plans[i].actor.Idx < plans[j].actor.Idx
	})
}

// effectiveSpeed resolves the staged speed stat; paralysis halves it.
func effectiveSpeed(p *game.Participant) (int, error) {
	spd, err := EffectiveStat(p.BaseStats.Speed, p.Level, p.Stages.Get(game.StatSpeed))
	if err != nil {
		return 0, err
	}
	if p.Condition == game.ConditionParalysis {
		spd /= 2
	}
	return spd, nil
}
