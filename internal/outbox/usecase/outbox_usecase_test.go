package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/allisson/catalog/internal/metrics"
	"github.com/allisson/catalog/internal/outbox/domain"
)

// MockOutboxEventRepository is a mock implementation of OutboxEventRepository
type MockOutboxEventRepository struct {
	mock.Mock
}

func (m *MockOutboxEventRepository) GetPendingEvents(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OutboxEvent), args.Error(1)
}

func (m *MockOutboxEventRepository) TryClaim(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockOutboxEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}

func (m *MockOutboxEventRepository) MarkFailedPermanently(
	ctx context.Context,
	id uuid.UUID,
	errMsg string,
	maxRetries int,
) error {
	args := m.Called(ctx, id, errMsg, maxRetries)
	return args.Error(0)
}

func (m *MockOutboxEventRepository) ResetForRetry(ctx context.Context, maxRetries int) (int64, error) {
	args := m.Called(ctx, maxRetries)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxEventRepository) DeleteProcessedBefore(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxEventRepository) GetStats(ctx context.Context) (*domain.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stats), args.Error(1)
}

// MockEventBus is a mock implementation of EventBus
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func testConfig() Config {
	return Config{
		PollInterval:    10 * time.Millisecond,
		BatchSize:       100,
		MaxRetries:      3,
		CleanupInterval: time.Hour,
		RetentionPeriod: 168 * time.Hour,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProcessor(repo *MockOutboxEventRepository, bus *MockEventBus) *Processor {
	return NewProcessor(testConfig(), repo, bus, metrics.NewNoOpOutboxMetrics(), testLogger())
}

func pendingEvent(t *testing.T) *domain.OutboxEvent {
	t.Helper()

	id, err := uuid.NewV7()
	require.NoError(t, err)
	aggregateID, err := uuid.NewV7()
	require.NoError(t, err)

	return domain.NewOutboxEvent(
		id,
		aggregateID,
		"product",
		"product.created",
		`{"occurred_at":"2026-01-01T00:00:00Z","payload":{"sku":"TSHIRT-RED-M"},"metadata":{}}`,
	)
}

func TestProcessor_ProcessBatch_PublishesClaimedEvents(t *testing.T) {
	repo := &MockOutboxEventRepository{}
	bus := &MockEventBus{}
	processor := newTestProcessor(repo, bus)
	ctx := context.Background()

	first := pendingEvent(t)
	second := pendingEvent(t)

	repo.On("GetPendingEvents", mock.Anything, 100).
		Return([]*domain.OutboxEvent{first, second}, nil)
	repo.On("TryClaim", mock.Anything, first.ID).Return(true, nil)
	repo.On("TryClaim", mock.Anything, second.ID).Return(true, nil)
	bus.On("Publish", mock.Anything, first).Return(nil)
	bus.On("Publish", mock.Anything, second).Return(nil)
	repo.On("MarkProcessed", mock.Anything, first.ID).Return(nil)
	repo.On("MarkProcessed", mock.Anything, second.ID).Return(nil)
	repo.On("ResetForRetry", mock.Anything, 3).Return(int64(0), nil)

	err := processor.ProcessBatch(ctx)
	require.NoError(t, err)

	repo.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestProcessor_ProcessBatch_SkipsLostClaims(t *testing.T) {
	repo := &MockOutboxEventRepository{}
	bus := &MockEventBus{}
	processor := newTestProcessor(repo, bus)
	ctx := context.Background()

	event := pendingEvent(t)

	repo.On("GetPendingEvents", mock.Anything, 100).
		Return([]*domain.OutboxEvent{event}, nil)
	repo.On("TryClaim", mock.Anything, event.ID).Return(false, nil)
	repo.On("ResetForRetry", mock.Anything, 3).Return(int64(0), nil)

	err := processor.ProcessBatch(ctx)
	require.NoError(t, err)

	repo.AssertExpectations(t)
	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestProcessor_ProcessBatch_FailureDoesNotAbortBatch(t *testing.T) {
	repo := &MockOutboxEventRepository{}
	bus := &MockEventBus{}
	processor := newTestProcessor(repo, bus)
	ctx := context.Background()

	failing := pendingEvent(t)
	healthy := pendingEvent(t)

	repo.On("GetPendingEvents", mock.Anything, 100).
		Return([]*domain.OutboxEvent{failing, healthy}, nil)
	repo.On("TryClaim", mock.Anything, failing.ID).Return(true, nil)
	repo.On("TryClaim", mock.Anything, healthy.ID).Return(true, nil)
	bus.On("Publish", mock.Anything, failing).Return(assert.AnError)
	bus.On("Publish", mock.Anything, healthy).Return(nil)
	repo.On("MarkFailed", mock.Anything, failing.ID, assert.AnError.Error()).Return(nil)
	repo.On("MarkProcessed", mock.Anything, healthy.ID).Return(nil)
	repo.On("ResetForRetry", mock.Anything, 3).Return(int64(1), nil)

	err := processor.ProcessBatch(ctx)
	require.NoError(t, err)

	repo.AssertExpectations(t)
	bus.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkProcessed", mock.Anything, failing.ID)
}

func TestProcessor_ProcessBatch_UndecodablePayloadIsTerminal(t *testing.T) {
	repo := &MockOutboxEventRepository{}
	bus := &MockEventBus{}
	processor := newTestProcessor(repo, bus)
	ctx := context.Background()

	event := pendingEvent(t)
	event.Payload = "not-json"

	repo.On("GetPendingEvents", mock.Anything, 100).
		Return([]*domain.OutboxEvent{event}, nil)
	repo.On("TryClaim", mock.Anything, event.ID).Return(true, nil)
	repo.On("MarkFailedPermanently", mock.Anything, event.ID, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	}), 3).Return(nil)
	repo.On("ResetForRetry", mock.Anything, 3).Return(int64(0), nil)

	err := processor.ProcessBatch(ctx)
	require.NoError(t, err)

	repo.AssertExpectations(t)
	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessor_ProcessBatch_SkipsWhenCycleInFlight(t *testing.T) {
	repo := &MockOutboxEventRepository{}
	bus := &MockEventBus{}
	processor := newTestProcessor(repo, bus)

	processor.polling.Store(true)
	defer processor.polling.Store(false)

	err := processor.ProcessBatch(context.Background())
	require.NoError(t, err)

	repo.AssertNotCalled(t, "GetPendingEvents", mock.Anything, mock.Anything)
}

func TestProcessor_ProcessBatch_GetPendingError(t *testing.T) {
	repo := &MockOutboxEventRepository{}
	bus := &MockEventBus{}
	processor := newTestProcessor(repo, bus)

	repo.On("GetPendingEvents", mock.Anything, 100).Return(nil, assert.AnError)

	err := processor.ProcessBatch(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestProcessor_Cleanup(t *testing.T) {
	repo := &MockOutboxEventRepository{}
	bus := &MockEventBus{}
	processor := newTestProcessor(repo, bus)
	ctx := context.Background()

	repo.On("DeleteProcessedBefore", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		expected := time.Now().UTC().Add(-168 * time.Hour)
		return cutoff.After(expected.Add(-time.Minute)) && cutoff.Before(expected.Add(time.Minute))
	})).Return(int64(5), nil)

	err := processor.Cleanup(ctx)
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestProcessor_Stats(t *testing.T) {
	repo := &MockOutboxEventRepository{}
	bus := &MockEventBus{}
	processor := newTestProcessor(repo, bus)

	expected := &domain.Stats{Pending: 2, Processing: 1, Processed: 10, Failed: 3}
	repo.On("GetStats", mock.Anything).Return(expected, nil)

	stats, err := processor.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, expected, stats)
	assert.Equal(t, int64(16), stats.Total())
}

func TestProcessor_StartStop_Idempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &MockOutboxEventRepository{}
	bus := &MockEventBus{}
	processor := newTestProcessor(repo, bus)
	ctx := context.Background()

	repo.On("GetPendingEvents", mock.Anything, 100).
		Return([]*domain.OutboxEvent{}, nil).Maybe()
	repo.On("ResetForRetry", mock.Anything, 3).Return(int64(0), nil).Maybe()

	require.NoError(t, processor.Start(ctx))
	// Second Start is a no-op while running.
	require.NoError(t, processor.Start(ctx))

	// Let a few poll cycles run.
	time.Sleep(50 * time.Millisecond)

	processor.Stop()
	// Second Stop is a no-op.
	processor.Stop()
}

func TestProcessor_StopViaContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &MockOutboxEventRepository{}
	bus := &MockEventBus{}
	processor := newTestProcessor(repo, bus)

	repo.On("GetPendingEvents", mock.Anything, 100).
		Return([]*domain.OutboxEvent{}, nil).Maybe()
	repo.On("ResetForRetry", mock.Anything, 3).Return(int64(0), nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, processor.Start(ctx))

	time.Sleep(30 * time.Millisecond)
	cancel()

	// The loop exits on context cancellation; Stop still returns cleanly.
	processor.Stop()
}
