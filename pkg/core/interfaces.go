package core

import (
	"context"
)

// Experiment coordinates a run of an agent against an environment
type Experiment interface {
	// Run executes the experiment according to configuration
	Run(ctx context.Context) error
	// Stop gracefully stops the experiment
	Stop() error
	// GetStatus returns current experiment status
	GetStatus() ExperimentStatus
}
