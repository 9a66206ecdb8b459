package game

// Move describes one technique from the move catalog. Moves are reference
// data configured via the server config (clawcombat_config.json) and are
// never persisted in the database; battles store move keys only.
type Move struct {
	Key      string       `json:"key"`
	Name     string       `json:"name"`
	Type     ElementType  `json:"type"`
	Category MoveCategory `json:"category"`
	Power    int          `json:"power"`
	Accuracy int          `json:"accuracy"`
	Priority int          `json:"priority"`
	Effect   MoveEffect   `json:"effect"`
}

// MoveEffect is a flexible description of what a move does beyond damage.
// All fields are optional and are applied when present.
type MoveEffect struct {
	// Ailment inflicted on the defender with the given percent chance.
	Ailment       StatusCondition `json:"ailment,omitempty"`
	AilmentChance int             `json:"ailment_chance,omitempty"`

	// Stage deltas applied when the move connects.
	StageChanges []StageChange `json:"stage_changes,omitempty"`
}

// StageChange shifts one stat's stage on the actor or the defender.
type StageChange struct {
	Stat   Stat `json:"stat"`
	Delta  int  `json:"delta"`
	OnSelf bool `json:"on_self,omitempty"`
}

// DefaultMoveKey is substituted when a participant misses the turn
// deadline. The move is always legal and belongs to no move set.
const DefaultMoveKey = "struggle"

// DefaultMove never misses and carries no secondary effect, so a timed-out
// turn always resolves.
var DefaultMove = Move{
	Key:      DefaultMoveKey,
	Name:     "Struggle",
	Type:     TypeNone,
	Category: CategoryPhysical,
	Power:    40,
	Accuracy: 100,
	Priority: 0,
}

// TypeMatchup is one configured effectiveness entry. Pairs absent from
// the config resolve to a neutral 1x.
type TypeMatchup struct {
	Attacking  ElementType `json:"attacking"`
	Defending  ElementType `json:"defending"`
	Multiplier float64     `json:"multiplier"`
}

// MoveCatalog is the immutable set of configured moves, loaded once at
// process start.
type MoveCatalog struct {
	byKey map[string]Move
	order []string
}

// NewMoveCatalog builds a catalog preserving the configured move order.
func NewMoveCatalog(moves []Move) *MoveCatalog {
	c := &MoveCatalog{byKey: make(map[string]Move, len(moves)), order: make([]string, 0, len(moves))}
	for _, m := range moves {
		if _, dup := c.byKey[m.Key]; dup {
			continue
		}
		c.byKey[m.Key] = m
		c.order = append(c.order, m.Key)
	}
	return c
}

// Get returns the move for key. The default move resolves without being
// part of the configured list.
func (c *MoveCatalog) Get(key string) (Move, bool) {
	if key == DefaultMoveKey {
		return DefaultMove, true
	}
	m, ok := c.byKey[key]
	return m, ok
}

// Len returns the number of configured moves.
func (c *MoveCatalog) Len() int { return len(c.order) }

// KeysForType returns catalog keys usable by an agent of the given
// element types, in configured order: same-type moves first, then
// typeless/normal coverage. Used for automatic move assignment at
// registration.
func (c *MoveCatalog) KeysForType(primary, secondary ElementType) []string {
	matched := make([]string, 0, 8)
	coverage := make([]string, 0, 8)
	for _, k := range c.order {
		m := c.byKey[k]
		switch {
		case m.Type == primary || (secondary != TypeNone && m.Type == secondary):
			matched = append(matched, k)
		case m.Type == Normal || m.Type == TypeNone:
			coverage = append(coverage, k)
		}
	}
	return append(matched, coverage...)
}
