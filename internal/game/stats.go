package game

// BaseStats holds the six species-level stat values before any level
// scaling or in-battle stage modifiers.
type BaseStats struct {
	HitPoints      int `json:"hp"`
	Attack         int `json:"attack"`
	Defense        int `json:"defense"`
	SpecialAttack  int `json:"special_attack"`
	SpecialDefense int `json:"special_defense"`
	Speed          int `json:"speed"`
}

// StageSet tracks the in-battle stage modifiers (-6..+6) for the five
// non-HP stats. Hit points have no stages.
type StageSet struct {
	Attack         int `json:"attack"`
	Defense        int `json:"defense"`
	SpecialAttack  int `json:"special_attack"`
	SpecialDefense int `json:"special_defense"`
	Speed          int `json:"speed"`
}

const (
	MinStage = -6
	MaxStage = 6
)

// Get returns the stage for stat. Unknown or HP stats report stage 0.
func (s *StageSet) Get(stat Stat) int {
	switch stat {
	case StatAttack:
		return s.Attack
	case StatDefense:
		return s.Defense
	case StatSpecialAttack:
		return s.SpecialAttack
	case StatSpecialDefense:
		return s.SpecialDefense
	case StatSpeed:
		return s.Speed
	}
	return 0
}

// Shift moves the stage for stat by delta, clamped to [-6, +6], and
// returns the applied (possibly truncated) delta.
func (s *StageSet) Shift(stat Stat, delta int) int {
	cur := s.Get(stat)
	next := cur + delta
	if next > MaxStage {
		next = MaxStage
	}
	if next < MinStage {
		next = MinStage
	}
	switch stat {
	case StatAttack:
		s.Attack = next
	case StatDefense:
		s.Defense = next
	case StatSpecialAttack:
		s.SpecialAttack = next
	case StatSpecialDefense:
		s.SpecialDefense = next
	case StatSpeed:
		s.Speed = next
	default:
		return 0
	}
	return next - cur
}
