package worker

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"claimtrace/internal/config"
	"claimtrace/internal/database"
	"claimtrace/internal/engine"
	"claimtrace/internal/ingest"
	"claimtrace/internal/models"
	"claimtrace/internal/services"
	"claimtrace/internal/workers"
)

// WorkerService manages background workers for the application
type WorkerService struct {
	pipeline        *engine.Pipeline
	streamConsumer  *ingest.StreamConsumer
	backfillWorker  *workers.BackfillRefreshWorker
	backfillService *services.BackfillService
	engineConfig    *config.EngineConfig
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	running         bool
	startedAt       time.Time
	mu              sync.RWMutex
}

// NewWorkerService creates a new worker service
func NewWorkerService(engineConfig *config.EngineConfig) *WorkerService {
	ctx, cancel := context.WithCancel(context.Background())

	pipeline := engine.NewPipeline(database.DB, engineConfig)

	// Initialize provider API client
	client := ingest.NewClient(os.Getenv("PROVIDER_API_URL"), os.Getenv("PROVIDER_API_TOKEN"))

	streamURL := os.Getenv("STREAM_URL")
	if streamURL == "" {
		streamURL = "wss://stream.example.com/subscribe?kinds=post"
	}
	streamConsumer := ingest.NewStreamConsumer(database.DB, pipeline, client, streamURL)

	backfillService := services.NewBackfillService(database.DB, client, pipeline)

	// Backfill accounts that have been quiet for over an hour
	backfillWorker := workers.NewBackfillRefreshWorker(backfillService, time.Hour)

	return &WorkerService{
		pipeline:        pipeline,
		streamConsumer:  streamConsumer,
		backfillWorker:  backfillWorker,
		backfillService: backfillService,
		engineConfig:    engineConfig,
		ctx:             ctx,
		cancel:          cancel,
		running:         false,
	}
}

// Pipeline returns the shared processing pipeline for HTTP handlers
func (ws *WorkerService) Pipeline() *engine.Pipeline {
	return ws.pipeline
}

// Start starts all background workers
func (ws *WorkerService) Start() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.running {
		return nil // Already running
	}

	log.Println("Starting background workers...")

	// Start stream consumer
	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		ws.runStreamConsumer()
	}()

	// Start backfill refresh worker
	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		ws.runBackfillWorker()
	}()

	// Start periodic maintenance tasks
	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		ws.runPeriodicTasks()
	}()

	ws.running = true
	ws.startedAt = time.Now()
	log.Println("Background workers started successfully")

	return nil
}

// Stop stops all background workers
func (ws *WorkerService) Stop() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.running {
		return // Not running
	}

	log.Println("Stopping background workers...")

	// Cancel context to signal all workers to stop
	ws.cancel()

	// Wait for all workers to finish
	ws.wg.Wait()

	ws.running = false
	log.Println("Background workers stopped")
}

// IsRunning returns whether the worker service is currently running
func (ws *WorkerService) IsRunning() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.running
}

// runStreamConsumer runs the post stream consumer
func (ws *WorkerService) runStreamConsumer() {
	log.Println("Starting post stream consumer...")

	// Run with retry logic
	for {
		select {
		case <-ws.ctx.Done():
			log.Println("Stream consumer stopped")
			return
		default:
			if err := ws.streamConsumer.StartConsuming(ws.ctx); err != nil {
				if ws.ctx.Err() != nil {
					// Context was cancelled, this is expected
					return
				}

				log.Printf("Stream consumer error: %v. Restarting in 30 seconds...", err)

				// Wait before restarting
				select {
				case <-time.After(30 * time.Second):
					continue
				case <-ws.ctx.Done():
					return
				}
			}
		}
	}
}

// runBackfillWorker runs the backfill refresh worker
func (ws *WorkerService) runBackfillWorker() {
	log.Println("Starting backfill refresh worker...")

	ws.backfillWorker.Start(ws.ctx)

	// Wait for context cancellation
	<-ws.ctx.Done()

	log.Println("Stopping backfill refresh worker...")
	ws.backfillWorker.Stop()
	log.Println("Backfill refresh worker stopped")
}

// runPeriodicTasks runs periodic maintenance tasks
func (ws *WorkerService) runPeriodicTasks() {
	log.Println("Starting periodic tasks worker...")

	tierSyncTicker := time.NewTicker(15 * time.Minute) // Sync tier changes every 15 minutes
	cleanupTicker := time.NewTicker(1 * time.Hour)     // Cleanup tasks every hour

	defer tierSyncTicker.Stop()
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ws.ctx.Done():
			log.Println("Periodic tasks worker stopped")
			return

		case <-tierSyncTicker.C:
			ws.syncAccountTiers()

		case <-cleanupTicker.C:
			ws.runCleanupTasks()
		}
	}
}

// syncAccountTiers propagates operator tier changes in tracked_accounts onto
// existing metrics rows. New posts snapshot the updated tier automatically;
// this fixes up the standing rows.
func (ws *WorkerService) syncAccountTiers() {
	log.Println("Running tier sync task...")

	var tracked []models.TrackedAccount
	if err := database.DB.Where("is_active = ?", true).Find(&tracked).Error; err != nil {
		log.Printf("Tier sync query failed: %v", err)
		return
	}

	updated := 0
	for _, account := range tracked {
		result := database.DB.Model(&models.AccountMetrics{}).
			Where("account = ? AND tier <> ?", account.Account, account.Tier).
			Update("tier", account.Tier)
		if result.Error != nil {
			log.Printf("Tier sync failed for @%s: %v", account.Account, result.Error)
			continue
		}
		updated += int(result.RowsAffected)
	}

	if updated > 0 {
		log.Printf("Tier sync updated %d accounts", updated)
	}
}

// runCleanupTasks prunes unresolved posts past the retention window. Posts
// that never matched an event (no fingerprint) and flagged posts nobody
// reviewed stop being useful once they fall out of the matching lookback.
func (ws *WorkerService) runCleanupTasks() {
	log.Println("Running cleanup tasks...")

	retention := 4 * ws.engineConfig.LookbackDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retention)

	result := database.DB.
		Where("event_hash = ? AND timestamp_utc < ?", "", cutoff).
		Delete(&models.Post{})
	if result.Error != nil {
		log.Printf("Cleanup failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("Cleanup removed %d unresolved posts older than %d days", result.RowsAffected, retention)
	}
}

// Graceful shutdown helpers
func (ws *WorkerService) Shutdown() {
	ws.Stop()
}

// GetStatus returns the current status of the worker service
func (ws *WorkerService) GetStatus() map[string]interface{} {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	status := map[string]interface{}{
		"running":        ws.running,
		"stream_enabled": true,
		"periodic_tasks": true,
	}
	if ws.running {
		status["uptime"] = time.Since(ws.startedAt).String()
	}

	// Add backfill worker statistics if available
	if ws.backfillWorker != nil {
		backfillStats, err := ws.backfillWorker.GetStats()
		if err != nil {
			log.Printf("Failed to get backfill worker stats: %v", err)
		} else {
			status["backfill_worker"] = backfillStats
		}
	}

	return status
}
