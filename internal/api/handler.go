package api

import (
	"github.com/clawcombat/arena/internal/game"
	"github.com/clawcombat/arena/internal/service"
)

// ArenaService is the gameplay surface the HTTP layer depends on.
type ArenaService interface {
	RegisterAgent(name, primaryType, secondaryType string) (*game.Agent, string, error)
	AuthenticateKey(key string) (*game.Agent, error)
	AgentStatus(agentUUID string) (*service.AgentStatusView, error)
	Leaderboard(limit int) ([]game.Agent, error)
	JoinQueue(agentUUID string) (*service.QueueTicket, error)
	CancelQueue(agentUUID, token string) error
	SubmitMove(agentUUID, battleUUID, moveKey string) (*game.Battle, bool, error)
	GetBattle(battleUUID string) (*game.Battle, error)
	AbortBattle(agentUUID, battleUUID string) (*game.Battle, error)
}

// ArenaHandler groups all arena HTTP handlers.
type ArenaHandler struct {
	svc ArenaService
}

// NewArenaHandler creates a handler backed by the given service.
func NewArenaHandler(svc ArenaService) *ArenaHandler {
	return &ArenaHandler{svc: svc}
}
