package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/crav-platform/credit-ledger/internal/domain/billing"
)

// WorkerPoolReconcileService runs event reconciliation on a bounded worker
// pool. Callers still block for their own event's outcome, so Kafka offsets
// commit only after the event reached a terminal state.
type WorkerPoolReconcileService struct {
	baseService ReconcileService
	pool        *ants.Pool
	logger      *slog.Logger
	// Use a mutex to protect access to the results map
	mu      sync.Mutex
	results map[string]chan reconcileOutcome
}

type reconcileOutcome struct {
	result *billing.ReconcileResult
	err    error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolReconcileService(
	baseService ReconcileService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolReconcileService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolReconcileService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan reconcileOutcome),
	}, nil
}

// HandleEvent submits the event to the worker pool and waits for its outcome
func (s *WorkerPoolReconcileService) HandleEvent(ctx context.Context, env *billing.EventEnvelope) (*billing.ReconcileResult, error) {
	s.logger.Info("Submitting billing event to worker pool",
		"event_id", env.ID,
		"event_type", env.Type,
	)

	resultChan := make(chan reconcileOutcome, 1)

	s.mu.Lock()
	s.results[env.ID] = resultChan
	s.mu.Unlock()

	// Copy the envelope to avoid data races with the submitting goroutine
	envCopy := *env

	err := s.pool.Submit(func() {
		result, err := s.baseService.HandleEvent(ctx, &envCopy)
		resultChan <- reconcileOutcome{result: result, err: err}

		s.mu.Lock()
		delete(s.results, envCopy.ID)
		close(resultChan)
		s.mu.Unlock()
	})
	if err != nil {
		s.mu.Lock()
		delete(s.results, env.ID)
		close(resultChan)
		s.mu.Unlock()

		s.logger.Error("Failed to submit billing event to worker pool",
			"event_id", env.ID,
			"error", err,
		)
		return nil, err
	}

	outcome := <-resultChan
	return outcome.result, outcome.err
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolReconcileService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolReconcileService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolReconcileService) Capacity() int {
	return s.pool.Cap()
}
