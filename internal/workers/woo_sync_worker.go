// Package workers provides background job processors for the storybook service.
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"storybook-service/internal/services"
)

const (
	// DefaultSyncInterval is used when a zero interval is given to NewWooSyncWorker.
	DefaultSyncInterval = 15 * time.Minute

	syncLockKey = "storybook:woo-sync:lock"
)

// OrderSyncer imports storefront orders.
type OrderSyncer interface {
	Sync(ctx context.Context, status string) (*services.SyncResult, error)
}

// WooSyncWorker periodically imports new WooCommerce orders.
type WooSyncWorker struct {
	syncer   OrderSyncer
	redis    *redis.Client
	status   string
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.Mutex
	running  bool
	stats    SyncStats
	logger   *logrus.Entry
}

// SyncStats tracks import statistics.
type SyncStats struct {
	Runs            int64     `json:"runs"`
	SkippedRuns     int64     `json:"skippedRuns"`
	TotalImported   int64     `json:"totalImported"`
	TotalFailed     int64     `json:"totalFailed"`
	LastRunAt       time.Time `json:"lastRunAt,omitempty"`
	LastRunDuration string    `json:"lastRunDuration,omitempty"`
	LastError       string    `json:"lastError,omitempty"`
}

// NewWooSyncWorker creates a new sync worker. redisClient may be nil; when
// set, a lock keeps replicas from syncing at the same time.
func NewWooSyncWorker(syncer OrderSyncer, redisClient *redis.Client, status string, interval time.Duration, logger *logrus.Logger) *WooSyncWorker {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	if status == "" {
		status = services.DefaultSyncStatus
	}

	return &WooSyncWorker{
		syncer:   syncer,
		redis:    redisClient,
		status:   status,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		logger:   logger.WithField("component", "woo_sync_worker"),
	}
}

// Start begins the sync loop.
func (w *WooSyncWorker) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.run()
	w.logger.WithField("interval", w.interval.String()).Info("WooCommerce sync worker started")
}

// Stop stops the sync loop and waits for an in-flight run.
func (w *WooSyncWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	<-w.doneChan
	w.logger.Info("WooCommerce sync worker stopped")
}

// ForceRun triggers an immediate sync.
func (w *WooSyncWorker) ForceRun(ctx context.Context) (*services.SyncResult, error) {
	return w.runOnce(ctx)
}

// IsRunning returns whether the worker is running.
func (w *WooSyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Stats returns the current sync statistics.
func (w *WooSyncWorker) Stats() SyncStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *WooSyncWorker) run() {
	defer close(w.doneChan)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), w.interval)
			if _, err := w.runOnce(ctx); err != nil {
				w.logger.WithError(err).Error("Scheduled WooCommerce sync failed")
			}
			cancel()
		}
	}
}

func (w *WooSyncWorker) runOnce(ctx context.Context) (*services.SyncResult, error) {
	release, ok := w.acquireLock(ctx)
	if !ok {
		w.mu.Lock()
		w.stats.SkippedRuns++
		w.mu.Unlock()
		w.logger.Debug("Another replica holds the sync lock, skipping")
		return &services.SyncResult{}, nil
	}
	defer release()

	start := time.Now()
	result, err := w.syncer.Sync(ctx, w.status)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Runs++
	w.stats.LastRunAt = start
	w.stats.LastRunDuration = time.Since(start).String()
	if err != nil {
		w.stats.LastError = err.Error()
		return nil, err
	}
	w.stats.LastError = ""
	w.stats.TotalImported += int64(result.Imported)
	w.stats.TotalFailed += int64(result.Failed)
	return result, nil
}

// acquireLock takes the cross-replica lock. Without Redis, or when Redis is
// unreachable, the run proceeds unlocked.
func (w *WooSyncWorker) acquireLock(ctx context.Context) (func(), bool) {
	noop := func() {}
	if w.redis == nil {
		return noop, true
	}
	ok, err := w.redis.SetNX(ctx, syncLockKey, "1", w.interval).Result()
	if err != nil {
		w.logger.WithError(err).Warn("Failed to take sync lock, running unlocked")
		return noop, true
	}
	if !ok {
		return noop, false
	}
	return func() {
		if err := w.redis.Del(context.Background(), syncLockKey).Err(); err != nil {
			w.logger.WithError(err).Warn("Failed to release sync lock")
		}
	}, true
}
