// Package main provides the adventure server binary: websocket game
// endpoint, credential endpoints, and the world simulation loop.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/nymirith/adventure/internal/auth"
	"github.com/nymirith/adventure/internal/config"
	"github.com/nymirith/adventure/internal/content"
	"github.com/nymirith/adventure/internal/gameserver"
	"github.com/nymirith/adventure/internal/observability"
	"github.com/nymirith/adventure/internal/scripting"
	"github.com/nymirith/adventure/internal/server"
	"github.com/nymirith/adventure/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting adventure server",
		zap.String("addr", cfg.Server.Addr()),
		zap.Int64("world_seed", cfg.World.Seed),
	)

	// Load content definitions
	contentStart := time.Now()
	registry, err := content.LoadRegistry(cfg.World.ContentDir)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.String("dir", cfg.World.ContentDir),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	// Initialise script hooks
	var hooks *scripting.Hooks
	if cfg.World.ScriptDir != "" {
		hooks = scripting.NewHooks(logger)
		if err := hooks.Load(cfg.World.ScriptDir, scripting.DefaultInstructionLimit); err != nil {
			logger.Fatal("loading scripts", zap.String("dir", cfg.World.ScriptDir), zap.Error(err))
		}
		defer hooks.Close()
		logger.Info("script hooks loaded", zap.String("dir", cfg.World.ScriptDir))
	}

	// Connect to PostgreSQL for account and snapshot persistence
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	accounts := postgres.NewAccountRepository(pool.DB(), cfg.Auth.BcryptCost)
	snapshots := postgres.NewSnapshotRepository(pool.DB())

	tokens := auth.NewTokens(cfg.Auth)

	rng := rand.New(rand.NewSource(cfg.World.Seed))
	engine, err := gameserver.NewEngine(cfg.World, registry, snapshots, hooks, rng, logger)
	if err != nil {
		logger.Fatal("building engine", zap.Error(err))
	}

	svc := gameserver.NewService(cfg.Server, engine, tokens, accounts, logger)
	ticker := gameserver.NewTicker(cfg.World.TickInterval, engine.Tick, logger)

	// Wire lifecycle. Services stop in reverse registration order: the
	// listener closes first, then the simulation drains and persists every
	// remaining character, and only then does the pool close.
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			for {
				time.Sleep(30 * time.Second)
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
				}
			}
		},
		StopFn: func() {
			pool.Close()
		},
	})

	tickCtx, cancelTicks := context.WithCancel(ctx)
	lifecycle.Add("simulation", &server.FuncService{
		StartFn: func() error {
			if err := ticker.Run(tickCtx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
		StopFn: func() {
			cancelTicks()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			engine.Shutdown(shutdownCtx)
		},
	})

	lifecycle.Add("http", svc)

	logger.Info("adventure server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("addr", cfg.Server.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
