// Package server runs the periodic sync/download loop.
package server

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/offtube/offtube/internal/download"
	"github.com/offtube/offtube/internal/events"
	syncer "github.com/offtube/offtube/internal/sync"
)

// Config for the periodic runner.
type Config struct {
	SyncInterval time.Duration
	AutoDownload bool
}

// Runner drives reconciliation on a timer: fetch the playlist snapshot,
// reconcile, and (optionally) download the pending set before the next
// tick. Passes never overlap, so a reconcile cannot mistake an active
// download for a stuck one.
type Runner struct {
	engine *syncer.Engine
	source syncer.Source
	orch   *download.Orchestrator
	bus    *events.Bus
	cfg    Config
	log    *slog.Logger
}

// NewRunner creates a new runner.
func NewRunner(engine *syncer.Engine, source syncer.Source, orch *download.Orchestrator,
	bus *events.Bus, cfg Config, logger *slog.Logger) *Runner {

	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 30 * time.Minute
	}
	return &Runner{
		engine: engine,
		source: source,
		orch:   orch,
		bus:    bus,
		cfg:    cfg,
		log:    logger.With("component", "server"),
	}
}

// Run blocks until the context is canceled. The first pass runs
// immediately; later passes follow the configured interval.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.loop(ctx)
	})
	g.Go(func() error {
		r.logEvents(ctx)
		return nil
	})

	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

func (r *Runner) loop(ctx context.Context) error {
	r.runOnce(ctx)

	ticker := time.NewTicker(r.cfg.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.orch.CancelAll()
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	remote, err := r.source.Fetch(ctx)
	if err != nil {
		r.log.Warn("playlist fetch failed, skipping pass", "error", err)
		return
	}

	res := r.engine.Reconcile(ctx, remote, r.cfg.AutoDownload)
	if res.Err != nil {
		return
	}

	// Block on the batch so the next tick cannot reset videos that are
	// still actively downloading.
	if res.Downloads != nil {
		if _, err := res.Downloads.Wait(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("batch wait failed", "error", err)
		}
	}
}

// logEvents mirrors bus traffic into the structured log until shutdown.
func (r *Runner) logEvents(ctx context.Context) {
	if r.bus == nil {
		return
	}
	ch := r.bus.SubscribeAll(64)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if e.Message() != "" {
				r.log.Info(e.Message(), "event", e.EventType(), "video_id", e.VideoID())
			}
		}
	}
}
