package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ludarr/ludarr/internal/agent"
	"github.com/ludarr/ludarr/internal/agent/mock"
	"github.com/ludarr/ludarr/internal/agent/torznab"
	"github.com/ludarr/ludarr/internal/api"
	"github.com/ludarr/ludarr/internal/catalog"
	"github.com/ludarr/ludarr/internal/catalog/igdb"
	"github.com/ludarr/ludarr/internal/config"
	"github.com/ludarr/ludarr/internal/database"
	"github.com/ludarr/ludarr/internal/downloader"
	"github.com/ludarr/ludarr/internal/feedwatch"
	"github.com/ludarr/ludarr/internal/heuristics"
	"github.com/ludarr/ludarr/internal/kvcache"
	"github.com/ludarr/ludarr/internal/logger"
	"github.com/ludarr/ludarr/internal/mlmodel"
	"github.com/ludarr/ludarr/internal/monitor"
	"github.com/ludarr/ludarr/internal/review"
	"github.com/ludarr/ludarr/internal/scheduler"
	"github.com/ludarr/ludarr/internal/scheduler/tasks"
	"github.com/ludarr/ludarr/internal/search"
	"github.com/ludarr/ludarr/internal/sequel"
	"github.com/ludarr/ludarr/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Ludarr server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   cfg.Logging.Path,
	})
	defer log.Close()

	log.Info().Str("address", cfg.Server.Address()).Msg("Starting Ludarr")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	cache := kvcache.NewStore(db.Conn(), log.Logger)

	heur, err := heuristics.Load(cfg.Sequel.HeuristicsPath)
	if err != nil {
		return fmt.Errorf("failed to load heuristics: %w", err)
	}

	provider := igdb.NewClient(cfg.Catalog, log.Logger)
	if !provider.IsConfigured() {
		log.Warn().Msg("Catalog provider is missing credentials; catalog lookups will fail")
	}
	catalogSvc := catalog.NewService(provider, cache,
		time.Duration(cfg.Catalog.CacheTTLMin)*time.Minute, log.Logger)

	registry := agent.NewRegistry(log.Logger)
	for _, ac := range cfg.Agents {
		switch ac.Type {
		case "torznab":
			if ac.Name == "" || ac.URL == "" {
				log.Error().Str("name", ac.Name).Msg("Torznab agent missing name or url, skipping")
				continue
			}
			registry.Register(torznab.New(torznab.Config{
				Name:     ac.Name,
				BaseURL:  ac.URL,
				APIKey:   ac.APIKey,
				Priority: ac.Priority,
				Category: ac.Category,
			}, log.Logger))
		case "mock":
			registry.Register(mock.New(ac.Name, ac.Priority))
		default:
			log.Error().Str("name", ac.Name).Str("type", ac.Type).Msg("Unknown agent type, skipping")
		}
	}

	seqFilter := sequel.NewFilter(catalogSvc, cache, heur,
		time.Duration(cfg.Sequel.CacheTTLHrs)*time.Hour, log.Logger)

	searchSvc := search.NewService(registry, seqFilter, cache,
		cfg.Search.AgentTimeout(),
		time.Duration(cfg.Search.CacheTTLMin)*time.Minute, log.Logger)

	reviewQueue, err := review.NewQueue(cfg.Review.DataDir,
		time.Duration(cfg.Review.RetentionDays)*24*time.Hour, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to open review queue: %w", err)
	}

	client, err := downloader.New(cfg.Downloader, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to build download client: %w", err)
	}
	if client == nil {
		log.Warn().Msg("No download client configured; accepted releases will queue for review only")
	}

	model := mlmodel.NewHolder(cfg.Model.Path, log.Logger)
	if err := model.Reload(); err != nil {
		log.Warn().Err(err).Str("path", cfg.Model.Path).
			Msg("No match model loaded; auto-grab gating falls back to heuristics")
	}

	orch, err := monitor.New(monitor.NewStore(db.Conn()), catalogSvc, searchSvc,
		reviewQueue, client, model, monitor.Options{
			RecheckInterval:   cfg.Monitor.RecheckInterval(),
			MinSearchInterval: cfg.Monitor.MinSearchInterval(),
			AutoGrab:          cfg.Monitor.AutoGrab,
			InitialSearch:     true,
		}, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()
	orch.SetBroadcaster(hub)

	watchers := feedwatch.New(cfg.Feeds, heur, orch, catalogSvc, seqFilter, log.Logger)

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := tasks.RegisterRecheckTask(sched, orch, cfg.Monitor.RecheckInterval()); err != nil {
		return fmt.Errorf("failed to register recheck task: %w", err)
	}
	if err := tasks.RegisterFeedTasks(sched, watchers, 30*time.Minute); err != nil {
		return fmt.Errorf("failed to register feed tasks: %w", err)
	}
	if err := tasks.RegisterCachePruneTask(sched, cache); err != nil {
		return fmt.Errorf("failed to register cache prune task: %w", err)
	}
	if err := tasks.RegisterReviewPruneTask(sched, reviewQueue); err != nil {
		return fmt.Errorf("failed to register review prune task: %w", err)
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	server := api.NewServer(api.Deps{
		Orchestrator: orch,
		Search:       searchSvc,
		Catalog:      catalogSvc,
		Review:       reviewQueue,
		Model:        model,
		Scheduler:    sched,
		Client:       client,
	}, hub, cfg, log.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Address())
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Server stopped unexpectedly")
		}
	}

	if err := sched.Stop(); err != nil {
		log.Warn().Err(err).Msg("Scheduler shutdown failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Server shutdown failed")
	}

	orch.Wait()

	log.Info().Msg("Ludarr stopped")
	return nil
}
