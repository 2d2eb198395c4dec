package workers

import (
	"context"
	"log"
	"time"

	"claimtrace/internal/services"
)

// BackfillRefreshWorker handles periodic backfill of tracked accounts that
// the stream has gone quiet on
type BackfillRefreshWorker struct {
	backfillService *services.BackfillService
	config          services.RefreshConfig
	ticker          *time.Ticker
	stopChan        chan bool
}

// NewBackfillRefreshWorker creates a new backfill refresh worker
func NewBackfillRefreshWorker(backfillService *services.BackfillService, refreshInterval time.Duration) *BackfillRefreshWorker {
	return &BackfillRefreshWorker{
		backfillService: backfillService,
		config: services.RefreshConfig{
			RefreshInterval: refreshInterval,
			BatchSize:       10,
			RateLimit:       time.Second,
		},
		stopChan: make(chan bool),
	}
}

// NewBackfillRefreshWorkerWithConfig creates a worker with custom config
func NewBackfillRefreshWorkerWithConfig(backfillService *services.BackfillService, config services.RefreshConfig) *BackfillRefreshWorker {
	return &BackfillRefreshWorker{
		backfillService: backfillService,
		config:          config,
		stopChan:        make(chan bool),
	}
}

// Start begins the periodic backfill process
func (w *BackfillRefreshWorker) Start(ctx context.Context) {
	// Run every 15 minutes to check for accounts that need backfill
	w.ticker = time.NewTicker(15 * time.Minute)

	log.Printf("🔄 Starting backfill refresh worker (checking every 15 minutes)")
	log.Printf("   📅 Refresh interval: %v", w.config.RefreshInterval)
	log.Printf("   📦 Batch size: %d accounts", w.config.BatchSize)
	log.Printf("   ⏱️  Rate limit: %v between API calls", w.config.RateLimit)

	// Run an initial check immediately
	go func() {
		if err := w.backfillService.RefreshBatch(ctx, w.config); err != nil {
			log.Printf("❌ Error in initial backfill: %v", err)
		}
	}()

	// Start the periodic ticker
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Printf("🛑 Backfill refresh worker stopping due to context cancellation")
				return
			case <-w.stopChan:
				log.Printf("🛑 Backfill refresh worker stopping")
				return
			case <-w.ticker.C:
				if err := w.backfillService.RefreshBatch(ctx, w.config); err != nil {
					log.Printf("❌ Error in periodic backfill: %v", err)
				}
			}
		}
	}()
}

// Stop stops the worker
func (w *BackfillRefreshWorker) Stop() {
	if w.ticker != nil {
		w.ticker.Stop()
	}
	close(w.stopChan)
	log.Printf("✅ Backfill refresh worker stopped")
}

// GetStats returns statistics about backfill status
func (w *BackfillRefreshWorker) GetStats() (*BackfillStats, error) {
	accounts, err := w.backfillService.GetAccountsNeedingBackfill(w.config, 1000) // Check up to 1000 accounts
	if err != nil {
		return nil, err
	}

	stats := &BackfillStats{
		AccountsNeedingBackfill: len(accounts),
		RefreshInterval:         w.config.RefreshInterval,
		LastCheck:               time.Now(),
	}

	return stats, nil
}

// BackfillStats holds statistics about backfill status
type BackfillStats struct {
	AccountsNeedingBackfill int           `json:"accounts_needing_backfill"`
	RefreshInterval         time.Duration `json:"refresh_interval"`
	LastCheck               time.Time     `json:"last_check"`
}
