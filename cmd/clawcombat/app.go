package main

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clawcombat/arena/internal/api"
	"github.com/clawcombat/arena/internal/config"
	"github.com/clawcombat/arena/internal/constants"
	"github.com/clawcombat/arena/internal/logging"
	"github.com/clawcombat/arena/internal/metrics"
	"github.com/clawcombat/arena/internal/service"
	"github.com/clawcombat/arena/internal/storage"
)

// agentCacheTTL bounds how long authentication and status reads may lag
// behind a profile update; battle results invalidate explicitly.
const agentCacheTTL = 1 * time.Minute

func loadConfigOrExit(path string) *config.LoadedConfig {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logging.Fatal("Missing or invalid arena configuration", err, logging.Fields{
			constants.LogFieldConfig: path,
			"hint":                   "create a clawcombat_config.json with 'type_chart', 'move_list' and 'stat_presets' sections; see the bundled file for the expected shape",
		})
	}
	return cfg
}

func createRepositoryOrExit(dbPath string, prog config.ProgressionSettings) storage.Repository {
	db, err := storage.OpenAndMigrate(dbPath)
	if err != nil {
		logging.Fatal("Failed to initialize database", err, logging.Fields{constants.LogFieldDB: dbPath})
	}
	return storage.NewSQLiteRepository(db, prog)
}

func buildRouter(arena *service.Arena) *gin.Engine {
	handler := api.NewArenaHandler(arena)

	router := gin.Default()
	router.GET(constants.RouteHealth, api.Health)
	router.GET(constants.RouteMetrics, gin.WrapH(metrics.Handler()))

	apiRoutes := router.Group(constants.RouteAPIPrefix)
	{
		// Public endpoints
		apiRoutes.POST(constants.RouteAgentsRegister, handler.RegisterAgent)
		apiRoutes.GET(constants.RouteLeaderboard, handler.Leaderboard)
		apiRoutes.GET(constants.RouteVersion, api.Version)

		// Authenticated endpoints
		protected := apiRoutes.Group("")
		protected.Use(api.AuthRequired(arena))

		protected.GET(constants.RouteAgentStatus, handler.AgentStatus)
		protected.POST(constants.RouteQueueJoin, handler.JoinQueue)
		protected.POST(constants.RouteQueueCancel, handler.CancelQueue)
		protected.GET(constants.RouteBattleByID, handler.GetBattle)
		protected.POST(constants.RouteBattleMoves, handler.SubmitMove)
		protected.POST(constants.RouteBattleAbort, handler.AbortBattle)
	}
	return router
}
