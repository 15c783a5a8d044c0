// Package main provides the game server binary: it loads YAML content,
// connects to PostgreSQL, and serves the Telnet front door.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mverrilli/deckbound/internal/config"
	"github.com/mverrilli/deckbound/internal/frontend/handlers"
	"github.com/mverrilli/deckbound/internal/frontend/telnet"
	"github.com/mverrilli/deckbound/internal/game/ability"
	"github.com/mverrilli/deckbound/internal/game/card"
	"github.com/mverrilli/deckbound/internal/game/dice"
	"github.com/mverrilli/deckbound/internal/game/encounter"
	"github.com/mverrilli/deckbound/internal/game/item"
	"github.com/mverrilli/deckbound/internal/game/ruleset"
	"github.com/mverrilli/deckbound/internal/game/session"
	"github.com/mverrilli/deckbound/internal/gameserver"
	"github.com/mverrilli/deckbound/internal/observability"
	"github.com/mverrilli/deckbound/internal/scripting"
	"github.com/mverrilli/deckbound/internal/server"
	"github.com/mverrilli/deckbound/internal/storage/postgres"
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

	roller := dice.NewRoller(dice.NewCryptoSource(), logger)

	logger.Info("starting game server",
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("content_dir", cfg.Game.ContentDir),
	)

	// Load content
	contentStart := time.Now()
	templates, err := card.LoadTemplates(filepath.Join(cfg.Game.ContentDir, "cards"))
	if err != nil {
		logger.Fatal("loading card templates", zap.Error(err))
	}
	zones, err := card.LoadZones(filepath.Join(cfg.Game.ContentDir, "zones"), templates)
	if err != nil {
		logger.Fatal("loading zones", zap.Error(err))
	}
	items, err := item.LoadDirectory(filepath.Join(cfg.Game.ContentDir, "items"))
	if err != nil {
		logger.Fatal("loading item definitions", zap.Error(err))
	}
	abilities, err := ability.LoadDirectory(filepath.Join(cfg.Game.ContentDir, "abilities"))
	if err != nil {
		logger.Fatal("loading ability definitions", zap.Error(err))
	}
	callings, err := ruleset.LoadCallings(filepath.Join(cfg.Game.ContentDir, "callings"))
	if err != nil {
		logger.Fatal("loading callings", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("cards", len(templates)),
		zap.Int("zones", len(zones)),
		zap.Int("items", items.Len()),
		zap.Int("abilities", abilities.Len()),
		zap.Int("callings", callings.Len()),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	// Connect to PostgreSQL for account and character persistence
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	accountRepo := postgres.NewAccountRepository(pool.DB())
	charRepo := postgres.NewCharacterRepository(pool.DB())

	// Initialise scripting engine and load card special scripts.
	scriptStart := time.Now()
	scriptMgr := scripting.NewManager(roller, logger)
	defer scriptMgr.Close()

	specialsDir := filepath.Join(cfg.Game.ContentDir, "scripts", "specials")
	if info, statErr := os.Stat(specialsDir); statErr == nil && info.IsDir() {
		if err := scriptMgr.LoadGlobal(specialsDir, cfg.Game.ScriptInstructionLimit); err != nil {
			logger.Fatal("loading special scripts",
				zap.String("dir", specialsDir), zap.Error(err))
		}
		logger.Info("special scripts loaded", zap.String("dir", specialsDir))
	}
	for zoneID := range zones {
		zoneScriptDir := filepath.Join(cfg.Game.ContentDir, "scripts", "zones", zoneID)
		info, statErr := os.Stat(zoneScriptDir)
		if statErr != nil || !info.IsDir() {
			continue
		}
		if err := scriptMgr.LoadZone(zoneID, zoneScriptDir, cfg.Game.ScriptInstructionLimit); err != nil {
			logger.Fatal("loading zone scripts",
				zap.String("zone", zoneID), zap.Error(err))
		}
		logger.Info("zone scripts loaded",
			zap.String("zone", zoneID), zap.String("dir", zoneScriptDir))
	}
	logger.Info("scripting engine initialized",
		zap.Duration("elapsed", time.Since(scriptStart)))

	specials := gameserver.NewScriptSpecials(scriptMgr, templates)

	// Create managers and handlers
	sessions := session.NewManager()
	registry := encounter.NewRegistry()

	encounterHandler := gameserver.NewEncounterHandler(
		sessions, registry, roller, items, abilities, templates, zones,
		specials, charRepo, logger,
		gameserver.Config{
			PhaseDuration:  cfg.Game.PhaseDuration,
			ReactionWindow: cfg.Game.ReactionWindow,
			LootRollWindow: cfg.Game.LootRollWindow,
			EnemyPace:      cfg.Game.EnemyPace,
			ActionPoints:   cfg.Game.ActionPoints,
			InventorySlots: cfg.Game.InventorySlots,
		},
		cfg.Game.QueueWait,
	)
	chatHandler := gameserver.NewChatHandler(sessions, logger)

	zoneInfos := make([]handlers.ZoneInfo, 0, len(zones))
	for _, z := range zones {
		zoneInfos = append(zoneInfos, handlers.ZoneInfo{
			ID:          z.ID,
			Name:        z.Name,
			Description: z.Description,
		})
	}
	sort.Slice(zoneInfos, func(i, j int) bool { return zoneInfos[i].ID < zoneInfos[j].ID })

	gameHandler := handlers.NewGameHandler(sessions, encounterHandler, chatHandler, zoneInfos, logger)
	authHandler := handlers.NewAuthHandler(accountRepo, charRepo, callings, gameHandler, logger)
	acceptor := telnet.NewAcceptor(cfg.Telnet, authHandler, logger)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("telnet", &server.FuncService{
		StartFn: func() error {
			return acceptor.ListenAndServe()
		},
		StopFn: func() {
			acceptor.Stop()
		},
	})

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

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("telnet_addr", cfg.Telnet.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
