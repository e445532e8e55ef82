// Package usecase implements the outbox processor that moves committed events
// from the outbox table to the event bus.
package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "github.com/allisson/catalog/internal/errors"
	"github.com/allisson/catalog/internal/metrics"
	"github.com/allisson/catalog/internal/outbox/domain"
)

// Config holds outbox processor configuration.
type Config struct {
	// PollInterval is the time between poll cycles.
	PollInterval time.Duration
	// BatchSize is the maximum number of pending entries fetched per cycle.
	BatchSize int
	// MaxRetries is the retry budget before an entry becomes terminally failed.
	MaxRetries int
	// CleanupInterval is the time between retention cleanup cycles.
	CleanupInterval time.Duration
	// RetentionPeriod is how long processed entries are kept.
	RetentionPeriod time.Duration
	// PublishRatePerSec throttles event bus publishes. Zero disables throttling.
	PublishRatePerSec float64
}

// OutboxEventRepository defines the outbox store operations the processor needs.
type OutboxEventRepository interface {
	GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	TryClaim(ctx context.Context, id uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	MarkFailedPermanently(ctx context.Context, id uuid.UUID, errMsg string, maxRetries int) error
	ResetForRetry(ctx context.Context, maxRetries int) (int64, error)
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	GetStats(ctx context.Context) (*domain.Stats, error)
}

// EventBus publishes outbox entries to downstream consumers.
type EventBus interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// eventEnvelope mirrors the wire shape written by the aggregate repositories.
// The processor decodes it to validate the payload before publishing.
type eventEnvelope struct {
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Processor polls the outbox table, claims pending entries and publishes them
// to the event bus. Delivery is at-least-once: a crash between publish and
// MarkProcessed causes a redelivery, which consumers deduplicate by event ID.
type Processor struct {
	config     Config
	outboxRepo OutboxEventRepository
	eventBus   EventBus
	metrics    metrics.OutboxMetrics
	logger     *slog.Logger
	limiter    *rate.Limiter

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// polling guards against overlapping poll cycles in-process.
	polling atomic.Bool
}

// NewProcessor creates a new Processor.
func NewProcessor(
	config Config,
	outboxRepo OutboxEventRepository,
	eventBus EventBus,
	outboxMetrics metrics.OutboxMetrics,
	logger *slog.Logger,
) *Processor {
	var limiter *rate.Limiter
	if config.PublishRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.PublishRatePerSec), 1)
	}

	return &Processor{
		config:     config,
		outboxRepo: outboxRepo,
		eventBus:   eventBus,
		metrics:    outboxMetrics,
		logger:     logger,
		limiter:    limiter,
	}
}

// Start launches the poll and cleanup loops. Calling Start while the processor
// is already running is a no-op.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	p.logger.Info("starting outbox processor",
		slog.Duration("poll_interval", p.config.PollInterval),
		slog.Int("batch_size", p.config.BatchSize),
		slog.Int("max_retries", p.config.MaxRetries),
		slog.Duration("cleanup_interval", p.config.CleanupInterval),
	)

	go p.run(runCtx)

	return nil
}

// Stop cancels future cycles and waits for the current one to finish. An
// in-flight publish is not interrupted. Calling Stop on a stopped processor is
// a no-op.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	cancel()
	<-done

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.logger.Info("outbox processor stopped")
}

// run drives the poll and cleanup tickers until the context is done.
func (p *Processor) run(ctx context.Context) {
	defer close(p.done)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			if err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error("poll cycle failed", slog.String("error", err.Error()))
			}
		case <-cleanupTicker.C:
			if err := p.Cleanup(ctx); err != nil {
				p.logger.Error("cleanup cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ProcessBatch runs one poll cycle: fetch pending entries, claim and publish
// each one sequentially, then requeue failed entries that still have retry
// budget. A single entry's failure never aborts the batch. When a cycle is
// already in flight the call returns immediately.
func (p *Processor) ProcessBatch(ctx context.Context) error {
	if !p.polling.CompareAndSwap(false, true) {
		return nil
	}
	defer p.polling.Store(false)

	start := time.Now()

	events, err := p.outboxRepo.GetPendingEvents(ctx, p.config.BatchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		// Shutdown stops between entries, never mid-publish.
		if ctx.Err() != nil {
			break
		}
		p.processEvent(ctx, event)
	}

	moved, err := p.outboxRepo.ResetForRetry(ctx, p.config.MaxRetries)
	if err != nil {
		return err
	}
	if moved > 0 {
		p.metrics.RecordRequeued(ctx, moved)
		p.logger.Info("requeued failed entries", slog.Int64("count", moved))
	}

	p.metrics.RecordBatchDuration(ctx, time.Since(start))

	return nil
}

// processEvent claims one entry and publishes it. Claim losses are silent: the
// winning worker delivers the entry.
func (p *Processor) processEvent(ctx context.Context, event *domain.OutboxEvent) {
	claimed, err := p.outboxRepo.TryClaim(ctx, event.ID)
	if err != nil {
		p.logger.Error("claim failed",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if !claimed {
		return
	}

	// The publish and its status write run to completion even when the
	// processor is shutting down.
	pubCtx := context.WithoutCancel(ctx)

	if err := p.publish(pubCtx, event); err != nil {
		p.metrics.RecordFailed(pubCtx, event.EventType)
		p.logger.Error("publish failed",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", event.EventType),
			slog.Int("retries", event.Retries),
			slog.String("error", err.Error()),
		)

		if apperrors.Is(err, apperrors.ErrSerialization) {
			// Undecodable payloads never publish, so they go straight to
			// terminal failed instead of burning requeue cycles.
			if err := p.outboxRepo.MarkFailedPermanently(
				pubCtx, event.ID, err.Error(), p.config.MaxRetries,
			); err != nil {
				p.logger.Error("mark failed permanently failed",
					slog.String("event_id", event.ID.String()),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		if err := p.outboxRepo.MarkFailed(pubCtx, event.ID, err.Error()); err != nil {
			p.logger.Error("mark failed failed",
				slog.String("event_id", event.ID.String()),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	if err := p.outboxRepo.MarkProcessed(pubCtx, event.ID); err != nil {
		// The publish succeeded; the entry will be redelivered and consumers
		// deduplicate by event ID.
		p.logger.Error("mark processed failed",
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	p.metrics.RecordProcessed(pubCtx, event.EventType)
}

// publish validates the stored envelope and hands the entry to the event bus.
func (p *Processor) publish(ctx context.Context, event *domain.OutboxEvent) error {
	var envelope eventEnvelope
	if err := json.Unmarshal([]byte(event.Payload), &envelope); err != nil {
		return apperrors.Wrap(apperrors.ErrSerialization, err.Error())
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	return p.eventBus.Publish(ctx, event)
}

// Cleanup deletes processed entries older than the retention period.
func (p *Processor) Cleanup(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-p.config.RetentionPeriod)

	deleted, err := p.outboxRepo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		p.metrics.RecordCleanedUp(ctx, deleted)
		p.logger.Info("cleaned up processed entries",
			slog.Int64("count", deleted),
			slog.Time("cutoff", cutoff),
		)
	}

	return nil
}

// Stats returns the current per-status entry counts.
func (p *Processor) Stats(ctx context.Context) (*domain.Stats, error) {
	return p.outboxRepo.GetStats(ctx)
}
