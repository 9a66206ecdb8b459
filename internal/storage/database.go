package storage

import (
	"github.com/clawcombat/arena/internal/game"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func OpenAndMigrate(dataSourceName string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&game.Agent{},
		&game.MoveSlot{},
		&game.Battle{},
		&game.Participant{},
		&game.MoveLogEntry{},
		&game.QueueEntry{},
	)
	if err != nil {
		return nil, err
	}

	// The timeout sweeper scans active battles by deadline; an explicit
	// composite index keeps that scan cheap as terminal battles accumulate.
	if execErr := db.Exec("CREATE INDEX IF NOT EXISTS idx_battles_status_deadline ON battles(status, turn_deadline);").Error; execErr != nil {
		return nil, execErr
	}
	return db, nil
}
