package storage

import (
	"strings"
	"time"

	"github.com/clawcombat/arena/internal/config"
	"github.com/clawcombat/arena/internal/game"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sqliteRepository struct {
	db   *gorm.DB
	prog config.ProgressionSettings
}

func NewSQLiteRepository(db *gorm.DB, prog config.ProgressionSettings) Repository {
	return &sqliteRepository{db: db, prog: prog}
}

func slotOrder(db *gorm.DB) *gorm.DB { return db.Order("slot ASC") }

func idxOrder(db *gorm.DB) *gorm.DB { return db.Order("idx ASC") }

func logOrder(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }

func (r *sqliteRepository) CreateAgent(a *game.Agent) error {
	return r.db.Create(a).Error
}

func (r *sqliteRepository) GetAgentByUUID(agentUUID string) (*game.Agent, error) {
	var a game.Agent
	if err := r.db.Preload("MoveSlots", slotOrder).Where("agent_uuid = ?", agentUUID).First(&a).Error; err != nil {
		return nil, err
	}
	a.Moves = a.MoveKeys()
	return &a, nil
}

func (r *sqliteRepository) GetAgentByName(name string) (*game.Agent, error) {
	var a game.Agent
	if err := r.db.Preload("MoveSlots", slotOrder).Where("lower(name) = ?", strings.ToLower(name)).First(&a).Error; err != nil {
		return nil, err
	}
	a.Moves = a.MoveKeys()
	return &a, nil
}

func (r *sqliteRepository) GetAgentByKeyDigest(digest string) (*game.Agent, error) {
	var a game.Agent
	if err := r.db.Preload("MoveSlots", slotOrder).Where("api_key_digest = ?", digest).First(&a).Error; err != nil {
		return nil, err
	}
	a.Moves = a.MoveKeys()
	return &a, nil
}

func (r *sqliteRepository) SaveAgent(a *game.Agent) error {
	return r.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(a).Error
}

// GetTopAgents returns the top N agents ordered by Wins desc, then Draws
// desc, then Losses asc.
func (r *sqliteRepository) GetTopAgents(limit int) ([]game.Agent, error) {
	if limit <= 0 {
		limit = 10
	}
	var agents []game.Agent
	if err := r.db.Model(&game.Agent{}).
		Order("wins DESC").
		Order("draws DESC").
		Order("losses ASC").
		Limit(limit).
		Find(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *sqliteRepository) CreateBattle(b *game.Battle) error {
	return r.db.Create(b).Error
}

func (r *sqliteRepository) GetBattleByUUID(battleUUID string) (*game.Battle, error) {
	var b game.Battle
	err := r.db.Preload("Participants", idxOrder).Preload("MoveLog", logOrder).
		Where("battle_uuid = ?", battleUUID).First(&b).Error
	if err != nil {
		return nil, err
	}
	fillParticipantMoves(&b)
	return &b, nil
}

func (r *sqliteRepository) UpdateBattle(b *game.Battle) error {
	return r.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(b).Error
}

func (r *sqliteRepository) ListActiveBattles() ([]game.Battle, error) {
	var battles []game.Battle
	err := r.db.Preload("Participants", idxOrder).Preload("MoveLog", logOrder).
		Where("status = ?", string(game.BattleActive)).Find(&battles).Error
	if err != nil {
		return nil, err
	}
	for i := range battles {
		fillParticipantMoves(&battles[i])
	}
	return battles, nil
}

func (r *sqliteRepository) ClaimTimedOutBattles(now time.Time, limit int, claimFor time.Duration, workerID string) ([]game.Battle, error) {
	if limit <= 0 {
		limit = 20
	}
	staleClaim := now.Add(-claimFor)
	res := r.db.Exec(`UPDATE battles SET claimed_by = ?, claimed_at = ?
		WHERE id IN (
			SELECT id FROM battles
			WHERE deleted_at IS NULL AND status = ? AND turn_deadline <= ?
			  AND (claimed_by = '' OR claimed_by IS NULL OR claimed_at <= ?)
			LIMIT ?)`,
		workerID, now, string(game.BattleActive), now, staleClaim, limit)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	var battles []game.Battle
	err := r.db.Preload("Participants", idxOrder).Preload("MoveLog", logOrder).
		Where("status = ? AND claimed_by = ? AND claimed_at = ?", string(game.BattleActive), workerID, now).
		Find(&battles).Error
	if err != nil {
		return nil, err
	}
	for i := range battles {
		fillParticipantMoves(&battles[i])
	}
	return battles, nil
}

func (r *sqliteRepository) ApplyBattleResult(battleUUID string) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var b game.Battle
	if err := tx.Preload("Participants", idxOrder).Where("battle_uuid = ?", battleUUID).First(&b).Error; err != nil {
		tx.Rollback()
		return err
	}
	if !b.Status.Terminal() || b.ResultApplied {
		tx.Rollback()
		return nil
	}

	// Aborted battles mark the guard but award nothing.
	if b.Status == game.BattleCompleted {
		for i := range b.Participants {
			p := &b.Participants[i]
			var a game.Agent
			if err := tx.Where("agent_uuid = ?", p.AgentUUID).First(&a).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					continue
				}
				tx.Rollback()
				return err
			}
			switch {
			case b.Draw:
				a.Draws++
				a.Experience += r.prog.DrawExperience
			case b.WinnerUUID == a.AgentUUID:
				a.Wins++
				a.Experience += r.prog.WinExperience
			default:
				a.Losses++
				a.Experience += r.prog.LossExperience
			}
			a.Level = game.LevelForExperience(r.prog.StartingLevel, a.Experience, r.prog.ExperiencePerLevel)
			if err := tx.Save(&a).Error; err != nil {
				tx.Rollback()
				return err
			}
		}
	}

	if err := tx.Model(&game.Battle{}).Where("id = ?", b.ID).Update("result_applied", true).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func (r *sqliteRepository) PruneTerminalBattles(olderThan time.Time) (int64, error) {
	var ids []uint
	err := r.db.Model(&game.Battle{}).
		Where("status IN ? AND completed_at IS NOT NULL AND completed_at <= ?",
			[]string{string(game.BattleCompleted), string(game.BattleAborted)}, olderThan).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx := r.db.Begin()
	if tx.Error != nil {
		return 0, tx.Error
	}
	if err := tx.Unscoped().Where("battle_id IN ?", ids).Delete(&game.MoveLogEntry{}).Error; err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Unscoped().Where("battle_id IN ?", ids).Delete(&game.Participant{}).Error; err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Unscoped().Where("id IN ?", ids).Delete(&game.Battle{}).Error; err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// SaveQueueEntry upserts on the unique agent index, so a crash-leftover
// row from a previous entry is replaced instead of blocking the join.
func (r *sqliteRepository) SaveQueueEntry(e *game.QueueEntry) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "level", "band", "enqueued_at"}),
	}).Create(e).Error
}

func (r *sqliteRepository) DeleteQueueEntryByToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&game.QueueEntry{}).Error
}

func (r *sqliteRepository) DeleteQueueEntryByAgent(agentUUID string) error {
	return r.db.Where("agent_uuid = ?", agentUUID).Delete(&game.QueueEntry{}).Error
}

func (r *sqliteRepository) ListQueueEntries() ([]game.QueueEntry, error) {
	var entries []game.QueueEntry
	if err := r.db.Order("enqueued_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *sqliteRepository) DeleteQueueEntriesBefore(cutoff time.Time) (int64, error) {
	res := r.db.Where("enqueued_at <= ?", cutoff).Delete(&game.QueueEntry{})
	return res.RowsAffected, res.Error
}

// fillParticipantMoves mirrors the snapshot columns into the API-facing
// move list.
func fillParticipantMoves(b *game.Battle) {
	for i := range b.Participants {
		b.Participants[i].Moves = b.Participants[i].MoveSet()
	}
}
