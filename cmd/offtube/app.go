package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/offtube/offtube/internal/catalog"
	"github.com/offtube/offtube/internal/config"
	"github.com/offtube/offtube/internal/download"
	"github.com/offtube/offtube/internal/events"
	"github.com/offtube/offtube/internal/fetch"
	"github.com/offtube/offtube/internal/migrations"
	syncer "github.com/offtube/offtube/internal/sync"
)

// app bundles the wired components every subcommand needs.
type app struct {
	cfg    *config.Config
	db     *sql.DB
	store  *catalog.Store
	bus    *events.Bus
	client *fetch.Client
	orch   *download.Orchestrator
	log    *slog.Logger
}

func openApp() (*app, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.Discover()
		if err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if msgs := cfg.Validate(); len(msgs) > 0 {
		var fatal []string
		for _, m := range msgs {
			if strings.Contains(m, "warning:") {
				fmt.Fprintf(os.Stderr, "config: %s\n", m)
				continue
			}
			fatal = append(fatal, m)
		}
		if len(fatal) > 0 {
			return nil, &config.ConfigError{Path: path, Errors: fatal}
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Database), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", cfg.Storage.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	quality, err := fetch.ParseQuality(cfg.Server.Quality)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("config: %w", err)
	}

	store := catalog.NewStore(db)
	bus := events.NewBus(events.NewEventLog(db), logger.With("component", "bus"))
	client := fetch.NewClient(cfg.Server.URL, cfg.Server.APIKey, quality, logger)
	orch := download.NewOrchestrator(client, store, nil, bus, download.Config{
		DownloadDir:    cfg.Storage.DownloadDir,
		Quality:        quality,
		WifiOnly:       cfg.Sync.WifiOnly,
		MaxRetries:     cfg.Download.MaxRetries,
		InitialBackoff: time.Duration(cfg.Download.InitialBackoff),
		MaxBackoff:     time.Duration(cfg.Download.MaxBackoff),
		QueueWaitCap:   time.Duration(cfg.Download.QueueWaitCap),
	}, logger)

	return &app{
		cfg:    cfg,
		db:     db,
		store:  store,
		bus:    bus,
		client: client,
		orch:   orch,
		log:    logger,
	}, nil
}

func (a *app) Close() {
	_ = a.bus.Close()
	_ = a.db.Close()
}

func (a *app) engine() *syncer.Engine {
	return syncer.NewEngine(a.store, a.orch, a.bus, a.cfg.Sync.PlaylistID, a.log)
}

func (a *app) source() (syncer.Source, error) {
	if a.cfg.Storage.PlaylistSnapshot == "" {
		return nil, fmt.Errorf("storage.playlist_snapshot not configured")
	}
	return &syncer.FileSource{Path: a.cfg.Storage.PlaylistSnapshot}, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "json encode failed: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
