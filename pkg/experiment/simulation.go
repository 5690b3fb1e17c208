package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/boristopalov/irrigation/pkg/agent"
	"github.com/boristopalov/irrigation/pkg/core"
	"github.com/boristopalov/irrigation/pkg/environment"
	"github.com/boristopalov/irrigation/pkg/messaging"
	"github.com/boristopalov/irrigation/pkg/metrics"
)

type SimulationParams struct {
	Name      string
	RunID     string // also the publisher ID on the broker
	Env       environment.Environment
	Agent     agent.Agent
	Broker    messaging.Broker
	Episode   int
	Steps     int
	StepDelay time.Duration
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}

// SimulationExperiment plays a single episode and publishes every step to the broker.
// It stops at the first done step; starting another episode is up to the caller.
type SimulationExperiment struct {
	baseExperiment
	params SimulationParams
	total  float64
}

func NewSimulationExperiment(params SimulationParams) (*SimulationExperiment, error) {
	if params.Env == nil {
		return nil, errors.New("simulation requires an environment")
	}
	if params.Agent == nil {
		return nil, errors.New("simulation requires an agent")
	}
	if params.Broker == nil {
		return nil, errors.New("simulation requires a message broker")
	}
	if params.Steps < 1 {
		return nil, fmt.Errorf("steps must be positive, got %d", params.Steps)
	}
	if params.Name == "" {
		params.Name = "simulation"
	}

	e := &SimulationExperiment{params: params}
	e.init(params.Name, params.Logger)
	return e, nil
}

func (e *SimulationExperiment) Run(ctx context.Context) error {
	e.begin()
	defer e.finish()

	p := e.params
	obs := p.Env.Reset()
	e.logger.Info("simulation started", "run_id", p.RunID, "agent", p.Agent.GetID(), "state", p.Env.Render())

	for step := 0; step < p.Steps; step++ {
		if stop, err := e.halted(ctx); stop {
			return err
		}

		action, err := p.Agent.Act(ctx, obs)
		if err != nil {
			e.recordError(err)
			p.Metrics.ObserveError()
			return fmt.Errorf("step %d: failed to choose action: %w", step, err)
		}

		next, reward, done, _, err := p.Env.Step(action)
		if err != nil {
			e.recordError(err)
			p.Metrics.ObserveError()
			return fmt.Errorf("step %d: %w", step, err)
		}

		rec := core.StepRecord{
			RunID:       p.RunID,
			Episode:     p.Episode,
			Step:        step,
			Observation: next,
			Action:      action,
			Reward:      reward,
			Done:        done,
			Timestamp:   time.Now(),
		}
		if err := p.Broker.Publish(ctx, messaging.Message{
			From:      p.RunID,
			Record:    rec,
			Timestamp: rec.Timestamp,
		}); err != nil {
			return err
		}
		e.recordStep()
		p.Metrics.ObserveStep(rec)
		e.total += reward
		obs = next

		if done {
			e.logger.Info("episode finished", "steps", step+1, "total_reward", e.total)
			e.recordEpisode()
			return nil
		}

		if p.StepDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-e.stop:
				return nil
			case <-time.After(p.StepDelay):
			}
		}
	}

	e.logger.Info("simulation finished", "steps", p.Steps, "total_reward", e.total)
	return nil
}

// TotalReward is the reward accumulated by the last run
func (e *SimulationExperiment) TotalReward() float64 {
	return e.total
}
