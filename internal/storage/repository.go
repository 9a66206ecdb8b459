package storage

import (
	"time"

	"github.com/clawcombat/arena/internal/game"
)

type Repository interface {
	// Agents
	CreateAgent(a *game.Agent) error
	GetAgentByUUID(agentUUID string) (*game.Agent, error)
	// GetAgentByName returns an agent by its name (case-insensitive).
	GetAgentByName(name string) (*game.Agent, error)
	GetAgentByKeyDigest(digest string) (*game.Agent, error)
	SaveAgent(a *game.Agent) error
	// Leaderboard
	GetTopAgents(limit int) ([]game.Agent, error)

	// Battles
	CreateBattle(b *game.Battle) error
	GetBattleByUUID(battleUUID string) (*game.Battle, error)
	UpdateBattle(b *game.Battle) error
	ListActiveBattles() ([]game.Battle, error)
	// ClaimTimedOutBattles stamps up to limit active battles whose turn
	// deadline is at or before now with workerID and returns them. Battles
	// claimed by another worker less than claimFor ago are skipped, so two
	// sweepers never resolve the same turn.
	ClaimTimedOutBattles(now time.Time, limit int, claimFor time.Duration, workerID string) ([]game.Battle, error)
	// ApplyBattleResult folds a terminal battle's outcome into both agents'
	// profiles. Applying the same battle twice is a no-op.
	ApplyBattleResult(battleUUID string) error
	PruneTerminalBattles(olderThan time.Time) (int64, error)

	// Matchmaking queue
	SaveQueueEntry(e *game.QueueEntry) error
	DeleteQueueEntryByToken(token string) error
	DeleteQueueEntryByAgent(agentUUID string) error
	ListQueueEntries() ([]game.QueueEntry, error)
	DeleteQueueEntriesBefore(cutoff time.Time) (int64, error)
}
