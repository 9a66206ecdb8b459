package game

import (
	"fmt"
	"strings"
)

// ElementType is a string alias for an agent's or move's element.
// Using a dedicated type instead of plain string makes code safer and self-documenting.
type ElementType string

const (
	Normal   ElementType = "normal"
	Fire     ElementType = "fire"
	Water    ElementType = "water"
	Grass    ElementType = "grass"
	Electric ElementType = "electric"
	Ice      ElementType = "ice"
	Fighting ElementType = "fighting"
	Poison   ElementType = "poison"
	Ground   ElementType = "ground"
	Flying   ElementType = "flying"
	Psychic  ElementType = "psychic"
	Bug      ElementType = "bug"
	Rock     ElementType = "rock"
	Ghost    ElementType = "ghost"
	Dragon   ElementType = "dragon"
	Dark     ElementType = "dark"
	Steel    ElementType = "steel"
	Fairy    ElementType = "fairy"

	// TypeNone marks an absent secondary type or a typeless move.
	TypeNone ElementType = ""
)

// AllElementTypes lists every playable element in a stable order.
var AllElementTypes = []ElementType{
	Normal, Fire, Water, Grass, Electric, Ice, Fighting, Poison, Ground,
	Flying, Psychic, Bug, Rock, Ghost, Dragon, Dark, Steel, Fairy,
}

// ParseElementType normalizes and validates a user-provided element name.
func ParseElementType(s string) (ElementType, error) {
	t := ElementType(strings.ToLower(strings.TrimSpace(s)))
	for _, e := range AllElementTypes {
		if t == e {
			return e, nil
		}
	}
	return TypeNone, fmt.Errorf("unknown element type %q", s)
}

// BattleStatus tracks the battle lifecycle. Transitions are forward-only:
// queued -> active -> completed|aborted.
type BattleStatus string

const (
	BattleQueued    BattleStatus = "queued"
	BattleActive    BattleStatus = "active"
	BattleCompleted BattleStatus = "completed"
	BattleAborted   BattleStatus = "aborted"
)

// Terminal reports whether the status admits no further transitions.
func (s BattleStatus) Terminal() bool {
	return s == BattleCompleted || s == BattleAborted
}

// MoveCategory selects which stat pair a move's damage formula uses.
type MoveCategory string

const (
	CategoryPhysical MoveCategory = "physical"
	CategorySpecial  MoveCategory = "special"
	CategoryStatus   MoveCategory = "status"
)

// StatusCondition is a persistent ailment carried by a battle participant.
type StatusCondition string

const (
	ConditionNone      StatusCondition = ""
	ConditionBurn      StatusCondition = "burn"
	ConditionParalysis StatusCondition = "paralysis"
	ConditionPoison    StatusCondition = "poison"
)

// Stat names the five stage-modifiable stats plus hit points.
type Stat string

const (
	StatHP             Stat = "hp"
	StatAttack         Stat = "attack"
	StatDefense        Stat = "defense"
	StatSpecialAttack  Stat = "special_attack"
	StatSpecialDefense Stat = "special_defense"
	StatSpeed          Stat = "speed"
)
