package engine

import (
	"errors"
	"fmt"

	"github.com/clawcombat/arena/internal/game"
)

// ErrInvalidStatRange is returned when a level or stage argument falls
// outside the playable range.
var ErrInvalidStatRange = errors.New("stat argument out of range")

// EffectiveHP scales a base hit-point value to the given level. Hit
// points ignore stage modifiers.
func EffectiveHP(base, level int) (int, error) {
	if err := checkLevel(level); err != nil {
		return 0, err
	}
	return (2*base*level)/100 + level + 10, nil
}

// EffectiveStat scales a non-HP base stat to the given level and applies
// the stage multiplier. Integer division keeps results deterministic.
func EffectiveStat(base, level, stage int) (int, error) {
	if err := checkLevel(level); err != nil {
		return 0, err
	}
	if stage < game.MinStage || stage > game.MaxStage {
		return 0, fmt.Errorf("%w: stage %d", ErrInvalidStatRange, stage)
	}
	v := (2*base*level)/100 + 5
	num, den := stageRatio(stage)
	return v * num / den, nil
}

func checkLevel(level int) error {
	if level < game.MinLevel || level > game.MaxLevel {
		return fmt.Errorf("%w: level %d", ErrInvalidStatRange, level)
	}
	return nil
}

// stageRatio maps a stage in [-6, +6] onto the (2+s)/2 or 2/(2-s)
// multiplier, expressed as an integer ratio.
func stageRatio(stage int) (num, den int) {
	if stage >= 0 {
		return 2 + stage, 2
	}
	return 2, 2 - stage
}
