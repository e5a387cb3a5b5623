package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"ideagauge/internal/discussion"
	"ideagauge/internal/research"
	"ideagauge/internal/store"
	"ideagauge/internal/types"
)

// Trigger is the input that starts a run.
type Trigger struct {
	ID              string
	IdeaDescription string
	RefinedIdea     *types.RefinedIdea
}

// Manager starts validation runs as detached background tasks. The record
// store is the only rendezvous between a caller and a running pipeline:
// Start returns the run id immediately, never a handle to the task.
type Manager struct {
	store      *store.Store
	researcher *research.Researcher
	source     discussion.Source
	logger     *zap.Logger

	// sem bounds how many runs execute concurrently; excess runs wait in
	// their own goroutine while their record stays PENDING.
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewManager creates a run manager. maxConcurrent <= 0 means a default of 4.
func NewManager(st *store.Store, r *research.Researcher, src discussion.Source, maxConcurrent int, logger *zap.Logger) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:      st,
		researcher: r,
		source:     src,
		logger:     logger,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Start validates the trigger, persists the initial PENDING record, spawns
// the run in the background, and returns its id without waiting.
//
// A missing refined idea fails here, before any record is written.
func (m *Manager) Start(trigger Trigger) (string, error) {
	if !trigger.RefinedIdea.Complete() {
		return "", &PreconditionError{Missing: "refined idea (oneLiner, targetAudience, problem)"}
	}

	id := trigger.ID
	if id == "" {
		id = uuid.NewString()
	}

	rec := &types.ValidationRecord{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Idea: types.Idea{
			Description: trigger.IdeaDescription,
			Refined:     trigger.RefinedIdea,
		},
		Status:          types.StatusPending,
		ProcessingSteps: StepTemplate(),
	}
	if err := m.store.SaveValidation(rec); err != nil {
		return "", err
	}

	m.wg.Add(1)
	go m.run(id, rec.Idea)
	m.logger.Info("Run started", zap.String("run", id))
	return id, nil
}

// run executes one validation in the background. The context is detached
// from the triggering call: once started, a run cannot be cancelled, only
// superseded by a new id.
func (m *Manager) run(id string, idea types.Idea) {
	defer m.wg.Done()

	ctx := context.Background()
	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.logger.Error("Failed to acquire run slot", zap.String("run", id), zap.Error(err))
		return
	}
	defer m.sem.Release(1)

	orch := NewOrchestrator(id, idea, m.store, m.researcher, m.source, m.logger)
	result := orch.Execute(ctx)
	if !result.Success {
		m.logger.Warn("Run finished with failure",
			zap.String("run", id),
			zap.Error(result.Err))
	}
}

// Wait blocks until every started run has finished. It exists for orderly
// shutdown and tests; normal callers poll the store instead.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Progress reads the current polling surface for a run.
func (m *Manager) Progress(id string) (types.Progress, error) {
	rec, err := m.store.LoadValidation(id)
	if err != nil {
		return types.Progress{}, err
	}
	return types.ProgressOf(rec, time.Now().UTC()), nil
}
