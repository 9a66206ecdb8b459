package engine

import "github.com/clawcombat/arena/internal/game"

// TypeChart answers effectiveness lookups for every attacking/defending
// element pair. The matrix is built once from config and never mutated,
// so lookups need no locking.
type TypeChart struct {
	multipliers map[game.ElementType]map[game.ElementType]float64
}

// NewTypeChart precomputes the matrix from the configured matchups.
func NewTypeChart(entries []game.TypeMatchup) *TypeChart {
	tc := &TypeChart{multipliers: make(map[game.ElementType]map[game.ElementType]float64, len(game.AllElementTypes))}
	for _, e := range entries {
		row := tc.multipliers[e.Attacking]
		if row == nil {
			row = make(map[game.ElementType]float64, len(game.AllElementTypes))
			tc.multipliers[e.Attacking] = row
		}
		row[e.Defending] = e.Multiplier
	}
	return tc
}

// Effectiveness returns the single-type multiplier. Unconfigured pairs
// and typeless attacks are neutral.
func (tc *TypeChart) Effectiveness(attacking, defending game.ElementType) float64 {
	if attacking == game.TypeNone || defending == game.TypeNone {
		return 1
	}
	if row, ok := tc.multipliers[attacking]; ok {
		if m, ok := row[defending]; ok {
			return m
		}
	}
	return 1
}

// EffectivenessAgainst composes the multiplier against a dual-typed
// defender by multiplying the per-type values. A missing secondary type
// contributes nothing.
func (tc *TypeChart) EffectivenessAgainst(attacking, primary, secondary game.ElementType) float64 {
	m := tc.Effectiveness(attacking, primary)
	if secondary != game.TypeNone {
		m *= tc.Effectiveness(attacking, secondary)
	}
	return m
}
