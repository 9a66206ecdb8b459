package service

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clawcombat/arena/internal/apikey"
	"github.com/clawcombat/arena/internal/constants"
	"github.com/clawcombat/arena/internal/game"
	"github.com/clawcombat/arena/internal/logging"
	"github.com/clawcombat/arena/internal/matchmaking"
)

var (
	ErrInvalidAgentName     = errors.New("agent name must be 3-32 characters: letters, digits, spaces, '_' or '-'")
	ErrInvalidElementType   = errors.New("unknown element type")
	ErrDuplicateElementType = errors.New("secondary type must differ from primary type")
	ErrAgentNameTaken       = errors.New("agent name already taken")
	ErrAgentNotFound        = errors.New("agent not found")
	ErrInvalidAPIKey        = errors.New("invalid API key")
	ErrNoMovesForType       = errors.New("no moves available for the requested typing")
)

var agentNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _-]{2,31}$`)

// RegisterAgent creates a combatant with preset stats and a starter move
// set derived from its typing, and issues its API key. The plaintext key
// is returned exactly once; only its digest is stored.
func (a *Arena) RegisterAgent(name, primaryType, secondaryType string) (*game.Agent, string, error) {
	name = strings.TrimSpace(name)
	if !agentNameRegex.MatchString(name) {
		return nil, "", ErrInvalidAgentName
	}

	primary, err := game.ParseElementType(primaryType)
	if err != nil || primary == game.TypeNone {
		return nil, "", ErrInvalidElementType
	}
	secondary := game.TypeNone
	if strings.TrimSpace(secondaryType) != "" {
		secondary, err = game.ParseElementType(secondaryType)
		if err != nil {
			return nil, "", ErrInvalidElementType
		}
		if secondary == primary {
			return nil, "", ErrDuplicateElementType
		}
	}

	if _, err := a.repo.GetAgentByName(name); err == nil {
		return nil, "", ErrAgentNameTaken
	} else if err != gorm.ErrRecordNotFound {
		return nil, "", err
	}

	keys := a.catalog.KeysForType(primary, secondary)
	if len(keys) == 0 {
		return nil, "", ErrNoMovesForType
	}
	if len(keys) > a.prog.MoveSlots {
		keys = keys[:a.prog.MoveSlots]
	}
	slots := make([]game.MoveSlot, len(keys))
	for i, k := range keys {
		slots[i] = game.MoveSlot{Slot: i + 1, MoveKey: k}
	}

	key, digest, err := apikey.New()
	if err != nil {
		return nil, "", err
	}

	agent := &game.Agent{
		AgentUUID:     uuid.NewString(),
		Name:          name,
		PrimaryType:   primary,
		SecondaryType: secondary,
		Level:         a.prog.StartingLevel,
		BaseStats:     a.presetFor(primary, secondary),
		MoveSlots:     slots,
		APIKeyDigest:  digest,
	}
	if err := a.repo.CreateAgent(agent); err != nil {
		return nil, "", err
	}
	agent.Moves = agent.MoveKeys()

	a.metrics.RecordRegistration()
	logging.Info("agent registered", logging.Fields{
		constants.LogFieldAgent:     agent.AgentUUID,
		constants.LogFieldAgentName: agent.Name,
		"primary_type":              string(primary),
		"secondary_type":            string(secondary),
		"level":                     agent.Level,
	})
	return agent, key, nil
}

// presetFor returns the configured base stats for a typing. Dual-typed
// agents blend the two presets stat by stat, rounding down.
func (a *Arena) presetFor(primary, secondary game.ElementType) game.BaseStats {
	ps := a.presets[primary]
	if secondary == game.TypeNone {
		return ps
	}
	ss := a.presets[secondary]
	return game.BaseStats{
		HitPoints:      (ps.HitPoints + ss.HitPoints) / 2,
		Attack:         (ps.Attack + ss.Attack) / 2,
		Defense:        (ps.Defense + ss.Defense) / 2,
		SpecialAttack:  (ps.SpecialAttack + ss.SpecialAttack) / 2,
		SpecialDefense: (ps.SpecialDefense + ss.SpecialDefense) / 2,
		Speed:          (ps.Speed + ss.Speed) / 2,
	}
}

// AuthenticateKey resolves an API key to its agent. Malformed keys are
// rejected before the digest lookup so they never touch storage.
func (a *Arena) AuthenticateKey(key string) (*game.Agent, error) {
	if !apikey.ValidFormat(key) {
		return nil, ErrInvalidAPIKey
	}
	agent, err := a.agents.GetByKeyDigest(apikey.Digest(key))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvalidAPIKey
		}
		return nil, err
	}
	return agent, nil
}

// AgentStatusView is what an agent learns about itself: its record plus
// whatever it is currently committed to.
type AgentStatusView struct {
	Agent      *game.Agent `json:"agent"`
	Engagement string      `json:"engagement"`
	QueueToken string      `json:"queue_token,omitempty"`
	BattleID   string      `json:"battle_id,omitempty"`
}

// EngagementIdle reports an agent with no live queue entry or battle.
const EngagementIdle = "idle"

// AgentStatus reports an agent's record and current engagement.
func (a *Arena) AgentStatus(agentUUID string) (*AgentStatusView, error) {
	agent, err := a.agents.GetByUUID(agentUUID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	view := &AgentStatusView{Agent: agent, Engagement: EngagementIdle}
	if eng, ok := a.ledger.Lookup(agentUUID); ok {
		view.Engagement = string(eng.Kind)
		switch eng.Kind {
		case matchmaking.EngagementQueued:
			view.QueueToken = eng.Ref
		case matchmaking.EngagementBattle:
			view.BattleID = eng.Ref
		}
	}
	return view, nil
}

// Leaderboard returns the top agents by record, served from a short
// cache so ranking pages cannot hammer the database.
func (a *Arena) Leaderboard(limit int) ([]game.Agent, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if top, ok := a.leaderboard.Get(limit); ok {
		return top, nil
	}
	top, err := a.repo.GetTopAgents(limit)
	if err != nil {
		return nil, err
	}
	a.leaderboard.Set(limit, top)
	return top, nil
}
