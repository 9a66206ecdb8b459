package game

import (
	"time"

	"gorm.io/gorm"
)

// Level bounds accepted everywhere an agent level appears.
const (
	MinLevel = 1
	MaxLevel = 100
)

// MaxMoveSlots caps an agent's move set; the participant snapshot carries
// one column per slot.
const MaxMoveSlots = 4

// Agent is a registered autonomous combatant. Battle-relevant stats are
// snapshotted into battle_participants at pair time, so finished battles
// stay immutable even when the agent later levels up.
type Agent struct {
	gorm.Model
	AgentUUID   string      `json:"agent_id" gorm:"uniqueIndex"`
	Name        string      `json:"name" gorm:"size:32;uniqueIndex"`
	PrimaryType ElementType `json:"primary_type"`
	// SecondaryType is empty for mono-typed agents.
	SecondaryType ElementType `json:"secondary_type,omitempty"`
	Level         int         `json:"level"`
	Experience    int         `json:"experience"`
	BaseStats     BaseStats   `json:"base_stats" gorm:"embedded;embeddedPrefix:base_"`
	MoveSlots     []MoveSlot  `json:"-"`
	// Moves mirrors MoveSlots as a plain ordered list for API responses.
	Moves []string `json:"moves" gorm:"-"`
	// APIKeyDigest stores the SHA-256 of the issued key. The plaintext key
	// is returned exactly once, at registration.
	APIKeyDigest string `json:"-" gorm:"column:api_key_digest;index"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Draws        int    `json:"draws"`
}

func (Agent) TableName() string { return "agents" }

// MoveKeys returns the agent's move set in slot order.
func (a *Agent) MoveKeys() []string {
	keys := make([]string, 0, len(a.MoveSlots))
	for i := range a.MoveSlots {
		keys = append(keys, a.MoveSlots[i].MoveKey)
	}
	return keys
}

// MoveSlot pins one catalog move into an agent's ordered move set.
type MoveSlot struct {
	gorm.Model
	AgentID uint   `json:"-" gorm:"index"`
	Slot    int    `json:"slot"`
	MoveKey string `json:"move"`
}

func (MoveSlot) TableName() string { return "agent_move_slots" }

// LevelForExperience converts accumulated experience into a level,
// clamped to the playable range.
func LevelForExperience(startLevel, experience, perLevel int) int {
	if perLevel <= 0 {
		return startLevel
	}
	lvl := startLevel + experience/perLevel
	if lvl > MaxLevel {
		return MaxLevel
	}
	if lvl < MinLevel {
		return MinLevel
	}
	return lvl
}

// Battle is one two-agent match. Rows are immutable once Status is
// terminal; ResultApplied guards profile updates so applying a result
// twice is harmless.
type Battle struct {
	gorm.Model
	BattleUUID   string        `json:"battle_id" gorm:"uniqueIndex"`
	Status       BattleStatus  `json:"status"`
	Participants []Participant `json:"participants"`
	// Turn counts fully resolved turns, starting at zero.
	Turn     int `json:"turn"`
	MaxTurns int `json:"max_turns"`
	// Seed drives every random draw in this battle. Combined with the
	// turn counter it makes each turn's resolution replayable.
	Seed          int64          `json:"-"`
	TurnDeadline  time.Time      `json:"turn_deadline"`
	WinnerUUID    string         `json:"winner_agent_id,omitempty"`
	Draw          bool           `json:"draw,omitempty"`
	Message       string         `json:"message"`
	MoveLog       []MoveLogEntry `json:"move_log"`
	ResultApplied bool           `json:"-"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	// Claim columns let exactly one sweeper worker own a timed-out battle.
	ClaimedBy string     `json:"-"`
	ClaimedAt *time.Time `json:"-"`
}

func (Battle) TableName() string { return "battles" }

// ParticipantByAgent returns the participant entry for the given agent.
func (b *Battle) ParticipantByAgent(agentUUID string) *Participant {
	for i := range b.Participants {
		if b.Participants[i].AgentUUID == agentUUID {
			return &b.Participants[i]
		}
	}
	return nil
}

// OpponentOf returns the other participant.
func (b *Battle) OpponentOf(p *Participant) *Participant {
	for i := range b.Participants {
		if b.Participants[i].Idx != p.Idx {
			return &b.Participants[i]
		}
	}
	return nil
}

// BothSubmitted reports whether every participant has a buffered move.
func (b *Battle) BothSubmitted() bool {
	if len(b.Participants) != 2 {
		return false
	}
	return b.Participants[0].HasSubmitted && b.Participants[1].HasSubmitted
}

// Activate moves a freshly paired battle into play. The queued status is
// never persisted: pairing activates the battle in the same step.
func (b *Battle) Activate(deadline time.Time) {
	b.Status = BattleActive
	b.TurnDeadline = deadline
	b.Message = "Battle started. Submit a move before the deadline."
}

// Clone deep-copies the battle so a snapshot can be persisted outside the
// battle lock while submissions keep mutating the live object.
func (b *Battle) Clone() *Battle {
	cp := *b
	cp.Participants = make([]Participant, len(b.Participants))
	copy(cp.Participants, b.Participants)
	cp.MoveLog = make([]MoveLogEntry, len(b.MoveLog))
	copy(cp.MoveLog, b.MoveLog)
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		cp.CompletedAt = &t
	}
	if b.ClaimedAt != nil {
		t := *b.ClaimedAt
		cp.ClaimedAt = &t
	}
	return &cp
}

// Participant is one side of a battle: a snapshot of the agent at pair
// time plus all mutable in-battle state.
type Participant struct {
	gorm.Model
	BattleID uint `json:"-" gorm:"index"`
	// Idx is the participant index (0 or 1); it breaks final ordering ties.
	Idx           int         `json:"index"`
	AgentUUID     string      `json:"agent_id" gorm:"index"`
	AgentName     string      `json:"agent_name"`
	PrimaryType   ElementType `json:"primary_type"`
	SecondaryType ElementType `json:"secondary_type,omitempty"`
	Level         int         `json:"level"`
	BaseStats     BaseStats   `json:"base_stats" gorm:"embedded;embeddedPrefix:base_"`

	// Move set snapshot. Four fixed columns keep lookups free of an extra
	// join; empty slots are allowed for catalogs with fewer moves.
	Move1Key string `json:"-"`
	Move2Key string `json:"-"`
	Move3Key string `json:"-"`
	Move4Key string `json:"-"`
	// Moves mirrors the snapshot columns for API responses.
	Moves []string `json:"moves" gorm:"-"`

	CurrentHP int             `json:"current_hp"`
	MaxHP     int             `json:"max_hp"`
	Stages    StageSet        `json:"stages" gorm:"embedded;embeddedPrefix:stage_"`
	Condition StatusCondition `json:"condition,omitempty"`

	// Buffered move slot for the turn in flight.
	PendingMoveKey string `json:"-"`
	HasSubmitted   bool   `json:"has_submitted"`
}

func (Participant) TableName() string { return "battle_participants" }

// MoveSet returns the snapshotted move keys in slot order.
func (p *Participant) MoveSet() []string {
	keys := make([]string, 0, 4)
	for _, k := range []string{p.Move1Key, p.Move2Key, p.Move3Key, p.Move4Key} {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// SetMoveSet fills the snapshot columns from an ordered key list.
func (p *Participant) SetMoveSet(keys []string) {
	cols := []*string{&p.Move1Key, &p.Move2Key, &p.Move3Key, &p.Move4Key}
	for i := range cols {
		if i < len(keys) {
			*cols[i] = keys[i]
		} else {
			*cols[i] = ""
		}
	}
}

// Knows reports whether key is part of the snapshotted move set.
func (p *Participant) Knows(key string) bool {
	for _, k := range p.MoveSet() {
		if k == key {
			return true
		}
	}
	return false
}

// Defeated reports whether the participant is out of hit points.
func (p *Participant) Defeated() bool { return p.CurrentHP <= 0 }

// HPFraction is the remaining hit-point share, used for the turn-cap
// tie-break.
func (p *Participant) HPFraction() float64 {
	if p.MaxHP <= 0 {
		return 0
	}
	if p.CurrentHP <= 0 {
		return 0
	}
	return float64(p.CurrentHP) / float64(p.MaxHP)
}

// MoveLogEntry is one append-only record of a move application.
type MoveLogEntry struct {
	gorm.Model
	BattleID      uint            `json:"-" gorm:"index"`
	Turn          int             `json:"turn"`
	AgentUUID     string          `json:"agent_id"`
	MoveKey       string          `json:"move"`
	Hit           bool            `json:"hit"`
	Damage        int             `json:"damage"`
	Effectiveness float64         `json:"effectiveness"`
	Inflicted     StatusCondition `json:"inflicted,omitempty"`
	Substituted   bool            `json:"substituted,omitempty"`
	Note          string          `json:"note,omitempty"`
}

func (MoveLogEntry) TableName() string { return "battle_move_log" }

// QueueEntry is one agent waiting for an opponent. The table uses hard
// deletes (no gorm soft-delete column) so the unique agent index keeps
// enforcing at most one live entry per agent.
type QueueEntry struct {
	ID         uint      `json:"-" gorm:"primarykey"`
	CreatedAt  time.Time `json:"-"`
	Token      string    `json:"token" gorm:"uniqueIndex"`
	AgentUUID  string    `json:"agent_id" gorm:"uniqueIndex"`
	Level      int       `json:"level"`
	Band       int       `json:"band"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func (QueueEntry) TableName() string { return "queue_entries" }
