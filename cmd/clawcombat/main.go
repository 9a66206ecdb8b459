package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/clawcombat/arena/internal/config"
	"github.com/clawcombat/arena/internal/constants"
	"github.com/clawcombat/arena/internal/logging"
	"github.com/clawcombat/arena/internal/metrics"
	"github.com/clawcombat/arena/internal/service"
	"github.com/clawcombat/arena/internal/storage"
	"github.com/clawcombat/arena/internal/version"
)

func main() {
	// A .env file is a local convenience; absence is normal in production.
	_ = godotenv.Load()

	var env config.Env
	if err := config.ParseEnv(&env); err != nil {
		logging.Fatal("Invalid environment configuration", err, nil)
	}
	if !env.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := loadConfigOrExit(env.ConfigPath)
	addr := cfg.ServerAddress
	if env.Address != "" {
		addr = env.Address
	}

	repo := createRepositoryOrExit(env.DBPath, cfg.Progression)
	agents := storage.NewCachedAgentStore(repo, agentCacheTTL)

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	collector.RegisterCacheStats("agents", agents.Stats)

	arena := service.NewArena(repo, agents, cfg, collector)
	if err := arena.Rehydrate(); err != nil {
		logging.Fatal("Failed to rehydrate arena state", err, nil)
	}

	startTimeoutScanner(arena)
	scheduler := startMaintenanceScheduler(arena)

	router := buildRouter(arena)

	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		logging.Info("Server started", logging.Fields{
			constants.LogFieldAddr:   addr,
			constants.LogFieldConfig: env.ConfigPath,
			constants.LogFieldDB:     env.DBPath,
			"version":                version.Version,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal("Failed to start server", err, logging.Fields{constants.LogFieldAddr: addr})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logging.Info("Shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), env.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Forced shutdown", err, nil)
	}
	if scheduler != nil {
		_ = scheduler.Shutdown()
	}
	logging.Info("Server stopped", nil)
}
