package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gamehive/gamehive/internal/config"
	"github.com/gamehive/gamehive/internal/redis"
	"github.com/gamehive/gamehive/internal/store"
)

// SyncWorker periodically rebuilds each game's Redis leaderboard set
// from the store. The cache is write-through on score creation; this is
// the repair path for anything missed while Redis was unreachable, and
// the warm path after a restart.
type SyncWorker struct {
	store   store.Store
	cache   *redis.Cache
	config  *config.SyncConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(st store.Store, cache *redis.Cache, cfg *config.SyncConfig, logger *slog.Logger) *SyncWorker {
	return &SyncWorker{
		store:  st,
		cache:  cache,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background sync process
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("leaderboard sync worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background sync process
func (w *SyncWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("leaderboard sync worker stopped")
	return nil
}

// run is the main worker loop
func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.syncAll(ctx)
		}
	}
}

// syncAll rebuilds the leaderboard set for every game
func (w *SyncWorker) syncAll(ctx context.Context) {
	startTime := time.Now()

	games, err := w.store.ListGames(ctx)
	if err != nil {
		w.logger.Error("failed to list games for sync", "error", err)
		return
	}

	syncedCount := 0
	errorCount := 0

	for _, game := range games {
		if err := w.SyncGame(ctx, game.ID); err != nil {
			w.logger.Error("failed to sync game leaderboard",
				"game_id", game.ID,
				"error", err,
			)
			errorCount++
		} else {
			syncedCount++
		}
	}

	w.logger.Info("leaderboard sync cycle completed",
		"duration", time.Since(startTime),
		"synced", syncedCount,
		"errors", errorCount,
	)
}

// SyncGame rebuilds one game's leaderboard set from the store
func (w *SyncWorker) SyncGame(ctx context.Context, gameID int) error {
	scores, err := w.store.GetScores(ctx, gameID, 0)
	if err != nil {
		return err
	}

	if len(scores) == 0 {
		w.logger.Debug("no scores to sync", "game_id", gameID)
		return nil
	}

	if err := w.cache.ReplaceScores(ctx, gameID, scores); err != nil {
		return err
	}

	w.logger.Debug("synced game leaderboard",
		"game_id", gameID,
		"score_count", len(scores),
	)
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single sync cycle (startup warm-up and manual triggers)
func (w *SyncWorker) RunOnce(ctx context.Context) {
	w.syncAll(ctx)
}
