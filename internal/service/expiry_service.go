package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/lock"
	"github.com/prn-tf/squidcoin/internal/metrics"
	"github.com/prn-tf/squidcoin/internal/repository"
)

// ExpiryService fails transactions that stayed pending for too long.
type ExpiryService struct {
	txRepo  repository.TransactionRepository
	locker  lock.Locker
	metrics *metrics.Metrics
	logger  zerolog.Logger
	config  ExpiryConfig
	now     func() time.Time

	// Control
	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// ExpiryConfig contains expiry worker configuration.
type ExpiryConfig struct {
	// Enabled determines if the worker runs automatically.
	Enabled bool

	// Interval is how often to look for stale transactions.
	Interval time.Duration

	// PendingTTL is how long a transaction may stay pending.
	PendingTTL time.Duration

	// BatchSize is the maximum number of transactions fetched per query.
	BatchSize int
}

// DefaultExpiryConfig returns sensible defaults.
func DefaultExpiryConfig() ExpiryConfig {
	return ExpiryConfig{
		Enabled:    true,
		Interval:   5 * time.Minute,
		PendingTTL: 24 * time.Hour,
		BatchSize:  500,
	}
}

// NewExpiryService creates a new expiry worker.
func NewExpiryService(
	txRepo repository.TransactionRepository,
	locker lock.Locker,
	m *metrics.Metrics,
	logger zerolog.Logger,
	config ExpiryConfig,
) *ExpiryService {
	defaults := DefaultExpiryConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.PendingTTL <= 0 {
		config.PendingTTL = defaults.PendingTTL
	}
	return &ExpiryService{
		txRepo:   txRepo,
		locker:   locker,
		metrics:  m,
		logger:   logger.With().Str("service", "expiry").Logger(),
		config:   config,
		now:      time.Now,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the expiry scheduler.
func (e *ExpiryService) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.logger.Info().
		Dur("interval", e.config.Interval).
		Dur("pending_ttl", e.config.PendingTTL).
		Int("batch_size", e.config.BatchSize).
		Msg("Starting pending transaction expiry")

	go e.runLoop()
}

// Stop stops the scheduler and waits for an in-flight run.
func (e *ExpiryService) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	close(e.stopChan)
	<-e.doneChan

	e.logger.Info().Msg("Pending transaction expiry stopped")
}

func (e *ExpiryService) runLoop() {
	defer close(e.doneChan)

	// Run immediately on start
	e.RunOnce(context.Background())

	ticker := time.NewTicker(e.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.RunOnce(context.Background())
		case <-e.stopChan:
			return
		}
	}
}

// ExpiryResult contains the result of an expiry run.
type ExpiryResult struct {
	// Expired is the number of transactions moved to failed.
	Expired int

	// Errors is the number of errors encountered.
	Errors int

	// Skipped is true when another instance held the expiry lock.
	Skipped bool

	// Duration is how long the run took.
	Duration time.Duration
}

// RunOnce executes a single expiry run.
// This can be called manually or by the scheduler.
func (e *ExpiryService) RunOnce(ctx context.Context) ExpiryResult {
	start := time.Now()
	result := ExpiryResult{}

	lockKey := lock.Keys.PendingExpiry()
	lockTTL := e.config.Interval / 2 // Lock expires before next scheduled run
	if lockTTL < time.Minute {
		lockTTL = time.Minute
	}

	acquired, err := e.locker.Acquire(ctx, lockKey, lockTTL)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to acquire expiry lock")
		result.Errors++
		result.Duration = time.Since(start)
		return result
	}
	if !acquired {
		e.logger.Debug().Msg("Expiry lock held by another process, skipping run")
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}
	defer func() {
		if _, err := e.locker.Release(context.WithoutCancel(ctx), lockKey); err != nil {
			e.logger.Error().Err(err).Msg("Failed to release expiry lock")
		}
	}()

	cutoff := e.now().UTC().Add(-e.config.PendingTTL)

	for {
		stale, err := e.txRepo.ListStalePending(ctx, cutoff, e.config.BatchSize)
		if err != nil {
			e.logger.Error().Err(err).Msg("Failed to list stale transactions")
			result.Errors++
			break
		}

		batchErrors := 0
		for _, tx := range stale {
			if _, err := e.txRepo.MarkFailed(ctx, tx.TransactionID); err != nil {
				// Already settled or failed by a participant since the query
				if errors.Is(err, domain.ErrInvalidStatusTransition) || errors.Is(err, domain.ErrTransactionNotFound) {
					continue
				}
				e.logger.Error().
					Err(err).
					Str("transaction_id", tx.TransactionID).
					Msg("Failed to expire transaction")
				batchErrors++
				continue
			}
			e.logger.Debug().
				Str("transaction_id", tx.TransactionID).
				Time("timestamp", tx.Timestamp).
				Msg("Expired pending transaction")
			result.Expired++
		}
		result.Errors += batchErrors

		// A failing row would be returned again, so stop instead of spinning
		if len(stale) < e.config.BatchSize || batchErrors > 0 || ctx.Err() != nil {
			break
		}
	}

	result.Duration = time.Since(start)
	e.metrics.ExpiryRun(result.Expired, e.now())

	e.logger.Info().
		Int("expired", result.Expired).
		Int("errors", result.Errors).
		Dur("duration", result.Duration).
		Msg("Expiry run completed")

	return result
}
