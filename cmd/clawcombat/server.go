package main

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/clawcombat/arena/internal/logging"
	"github.com/clawcombat/arena/internal/service"
)

// startTimeoutScanner force-resolves turns whose deadline passed. The
// arena claims battles through the database, so running several server
// instances is safe.
func startTimeoutScanner(arena *service.Arena) {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			arena.SweepTimedOut()
		}
	}()
}

// startMaintenanceScheduler runs the slow housekeeping: stale queue
// entries and aged finished battles.
func startMaintenanceScheduler(arena *service.Arena) gocron.Scheduler {
	sched, err := gocron.NewScheduler()
	if err != nil {
		logging.Error("failed to create maintenance scheduler", err, nil)
		return nil
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(arena.RunMaintenance),
	); err != nil {
		logging.Error("failed to schedule maintenance job", err, nil)
		return nil
	}
	sched.Start()
	return sched
}
