package engine

import (
	"math"
	"math/rand"
	"strconv"

	"github.com/clawcombat/arena/internal/game"
)

// Outcome records everything a single move application produced.
type Outcome struct {
	Hit           bool
	Damage        int
	Effectiveness float64
	Inflicted     game.StatusCondition
	StageNotes    []string
}

// Resolver applies single moves. All randomness comes from the rng the
// caller passes in, so identical seeds replay identical outcomes.
type Resolver struct {
	chart *TypeChart
}

func NewResolver(chart *TypeChart) *Resolver {
	return &Resolver{chart: chart}
}

// Apply executes one move from attacker against defender, mutating both
// participants. The accuracy draw always happens first and the ailment
// draw second, keeping rng consumption stable across replays.
func (r *Resolver) Apply(m game.Move, attacker, defender *game.Participant, rng *rand.Rand) (Outcome, error) {
	if rng.Intn(100) >= m.Accuracy {
		return Outcome{Hit: false}, nil
	}

	if m.Category == game.CategoryStatus {
		out := Outcome{Hit: true, Effectiveness: 1}
		r.applyEffect(m, attacker, defender, rng, &out)
		return out, nil
	}

	eff := r.chart.EffectivenessAgainst(m.Type, defender.PrimaryType, defender.SecondaryType)
	if eff == 0 {
		// Immune: no damage and no secondary effect either.
		return Outcome{Hit: true, Effectiveness: 0}, nil
	}

	dmg, err := r.damage(m, attacker, defender, eff)
	if err != nil {
		return Outcome{}, err
	}
	defender.CurrentHP -= dmg

	out := Outcome{Hit: true, Damage: dmg, Effectiveness: eff}
	if !defender.Defeated() {
		r.applyEffect(m, attacker, defender, rng, &out)
	}
	return out, nil
}

// damage computes the level-scaled damage with the staged attack and
// defense stats of the chosen category. A connecting damaging move
// always deals at least one point.
func (r *Resolver) damage(m game.Move, attacker, defender *game.Participant, eff float64) (int, error) {
	atkStat, defStat := game.StatAttack, game.StatDefense
	atkBase, defBase := attacker.BaseStats.Attack, defender.BaseStats.Defense
	if m.Category == game.CategorySpecial {
		atkStat, defStat = game.StatSpecialAttack, game.StatSpecialDefense
		atkBase, defBase = attacker.BaseStats.SpecialAttack, defender.BaseStats.SpecialDefense
	}
	atk, err := EffectiveStat(atkBase, attacker.Level, attacker.Stages.Get(atkStat))
	if err != nil {
		return 0, err
	}
	def, err := EffectiveStat(defBase, defender.Level, defender.Stages.Get(defStat))
	if err != nil {
		return 0, err
	}
	// Burn halves physical output.
	if attacker.Condition == game.ConditionBurn && m.Category == game.CategoryPhysical {
		atk /= 2
	}
	if atk < 1 {
		atk = 1
	}
	if def < 1 {
		def = 1
	}
	base := (2*attacker.Level)/5 + 2
	dmg := (base*m.Power*atk/def)/50 + 2
	dmg = int(math.Floor(float64(dmg) * eff))
	if dmg < 1 {
		dmg = 1
	}
	return dmg, nil
}

// applyEffect resolves stage changes and ailment infliction after a
// connecting move.
func (r *Resolver) applyEffect(m game.Move, attacker, defender *game.Participant, rng *rand.Rand, out *Outcome) {
	for _, sc := range m.Effect.StageChanges {
		target := defender
		owner := defender.AgentName
		if sc.OnSelf {
			target = attacker
			owner = attacker.AgentName
		}
		applied := target.Stages.Shift(sc.Stat, sc.Delta)
		if applied != 0 {
			out.StageNotes = append(out.StageNotes, owner+" "+string(sc.Stat)+" stage "+signed(applied))
		}
	}

	if m.Effect.Ailment == game.ConditionNone {
		return
	}
	if defender.Condition != game.ConditionNone {
		return
	}
	if immuneToCondition(defender, m.Effect.Ailment) {
		return
	}
	if rng.Intn(100) < m.Effect.AilmentChance {
		defender.Condition = m.Effect.Ailment
		out.Inflicted = m.Effect.Ailment
	}
}

// immuneToCondition encodes the type-based ailment immunities.
func immuneToCondition(p *game.Participant, c game.StatusCondition) bool {
	switch c {
	case game.ConditionBurn:
		return hasType(p, game.Fire)
	case game.ConditionParalysis:
		return hasType(p, game.Electric)
	case game.ConditionPoison:
		return hasType(p, game.Poison) || hasType(p, game.Steel)
	}
	return false
}

func hasType(p *game.Participant, t game.ElementType) bool {
	return p.PrimaryType == t || p.SecondaryType == t
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
