package core

import (
	"time"

	"github.com/boristopalov/irrigation/pkg/environment"
)

// StepRecord is one transition as seen by renderers and recorders
type StepRecord struct {
	RunID       string
	Episode     int
	Step        int
	Observation environment.Observation
	Action      int
	Reward      float64
	Done        bool
	Timestamp   time.Time
}

// EpisodeSummary aggregates a finished (or truncated) episode
type EpisodeSummary struct {
	Episode      int
	TotalReward  float64
	Steps        int
	MeanMoisture float64
	Irrigations  int // steps with a non-zero action
	Epsilon      float64
	Truncated    bool // hit the step cap before the environment reported done
}

// Add folds a record into the running summary
func (s *EpisodeSummary) Add(r StepRecord) {
	s.MeanMoisture = (s.MeanMoisture*float64(s.Steps) + r.Observation.SoilMoisture()) / float64(s.Steps+1)
	s.Steps++
	s.TotalReward += r.Reward
	if r.Action != environment.IrrigateNone {
		s.Irrigations++
	}
}

type ExperimentStatus struct {
	Running   bool
	StartTime time.Time
	EndTime   time.Time
	Episodes  int
	Steps     int
	Errors    []error
}
