package experiment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/boristopalov/irrigation/pkg/core"
)

var (
	_ core.Experiment = (*TrainingExperiment)(nil)
	_ core.Experiment = (*SimulationExperiment)(nil)
)

// baseExperiment holds the status bookkeeping shared by every experiment
type baseExperiment struct {
	name     string
	logger   *slog.Logger
	mu       sync.RWMutex
	status   core.ExperimentStatus
	stop     chan struct{}
	stopOnce sync.Once
}

func (e *baseExperiment) init(name string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.name = name
	e.logger = logger.With("experiment", name)
	e.stop = make(chan struct{})
}

func (e *baseExperiment) begin() {
	e.mu.Lock()
	e.status.Running = true
	e.status.StartTime = time.Now()
	e.mu.Unlock()
}

func (e *baseExperiment) finish() {
	e.mu.Lock()
	e.status.Running = false
	e.status.EndTime = time.Now()
	e.mu.Unlock()
}

func (e *baseExperiment) recordStep() {
	e.mu.Lock()
	e.status.Steps++
	e.mu.Unlock()
}

func (e *baseExperiment) recordEpisode() {
	e.mu.Lock()
	e.status.Episodes++
	e.mu.Unlock()
}

func (e *baseExperiment) recordError(err error) {
	e.mu.Lock()
	e.status.Errors = append(e.status.Errors, err)
	e.mu.Unlock()
}

// halted reports whether the run should end, returning ctx's error on cancellation
// and nil after Stop.
func (e *baseExperiment) halted(ctx context.Context) (bool, error) {
	select {
	case <-ctx.Done():
		return true, ctx.Err()
	case <-e.stop:
		return true, nil
	default:
		return false, nil
	}
}

// Stop asks a running experiment to finish after its current step
func (e *baseExperiment) Stop() error {
	e.stopOnce.Do(func() { close(e.stop) })
	return nil
}

func (e *baseExperiment) GetStatus() core.ExperimentStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	status := e.status
	status.Errors = append([]error(nil), e.status.Errors...)
	return status
}
