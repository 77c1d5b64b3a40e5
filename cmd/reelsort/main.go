package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/reelsort/reelsort/internal/api"
	"github.com/reelsort/reelsort/internal/config"
	"github.com/reelsort/reelsort/internal/database"
	"github.com/reelsort/reelsort/internal/logger"
	"github.com/reelsort/reelsort/internal/metadata"
	"github.com/reelsort/reelsort/internal/organizer"
	"github.com/reelsort/reelsort/internal/scan"
	"github.com/reelsort/reelsort/internal/scheduler"
	"github.com/reelsort/reelsort/internal/websocket"
)

func main() {
	// .env is optional; real config comes from file + env.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config file")
	scanRoot := flag.String("scan", "", "one-shot: scan this directory, print the report and exit")
	seriesID := flag.Int64("series", 0, "series id for one-shot scans")
	asYAML := flag.Bool("yaml", false, "print one-shot reports as YAML instead of JSON")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	log.Info().Str("version", config.Version).Msg("starting reelsort")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	store := metadata.NewStore(db.Conn(), log.Logger)
	if err := store.LoadAll(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to load metadata snapshots")
	}

	if *scanRoot != "" {
		if err := runOneShotScan(cfg, store, log, *scanRoot, *seriesID, *asYAML); err != nil {
			log.Fatal().Err(err).Msg("scan failed")
		}
		return
	}

	serve(cfg, store, log)
}

// runOneShotScan classifies everything under root against the configured
// rules and prints the report to stdout.
func runOneShotScan(cfg *config.Config, store *metadata.Store, log *logger.Logger, root string, seriesID int64, asYAML bool) error {
	snap, ok := store.Snapshot(seriesID)
	if !ok {
		return fmt.Errorf("no metadata snapshot for series %d", seriesID)
	}

	scans := scan.NewService(log.Logger, nil, cfg.Library.Workers)
	report, err := scans.Scan(context.Background(), root, seriesID, cfg.Rules, snap)
	if err != nil {
		return err
	}

	if asYAML {
		return report.WriteYAML(os.Stdout)
	}
	return report.WriteJSON(os.Stdout)
}

func serve(cfg *config.Config, store *metadata.Store, log *logger.Logger) {
	hub := websocket.NewHub()
	go hub.Run()
	if stream := log.Stream(); stream != nil {
		stream.SetHub(hub)
	}

	scans := scan.NewService(log.Logger, hub, cfg.Library.Workers)
	org := organizer.NewService(log.Logger, false)

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if cfg.Library.RescanCron != "" && len(cfg.Library.Folders) > 0 {
		err := sched.RegisterTask(scheduler.TaskConfig{
			ID:   "library-rescan",
			Name: "Library rescan",
			Cron: cfg.Library.RescanCron,
			Func: func(ctx context.Context) error {
				return rescanLibrary(ctx, cfg, store, scans)
			},
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to register rescan task")
		}
	}
	sched.Start()
	defer sched.Stop()

	server := api.NewServer(cfg, store, scans, org, sched, hub, log.Stream(), log.Logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		if err := server.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}
}

// rescanLibrary scans every configured library folder with its bound
// series snapshot.
func rescanLibrary(ctx context.Context, cfg *config.Config, store *metadata.Store, scans *scan.Service) error {
	var firstErr error
	for _, folder := range cfg.Library.Folders {
		snap, ok := store.Snapshot(folder.SeriesID)
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("no metadata snapshot for series %d", folder.SeriesID)
			}
			continue
		}
		if _, err := scans.Scan(ctx, folder.Path, folder.SeriesID, cfg.Rules, snap); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
