package experiment

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/boristopalov/irrigation/pkg/agent"
	"github.com/boristopalov/irrigation/pkg/core"
	"github.com/boristopalov/irrigation/pkg/environment"
	"github.com/boristopalov/irrigation/pkg/metrics"
)

var statsHeader = []string{
	"Episode", "TotalReward", "Steps", "MeanMoisture", "Irrigations", "Epsilon", "Truncated",
}

type TrainingParams struct {
	Name     string
	RunID    string
	Env      environment.Environment
	Agent    agent.Learner
	Episodes int
	MaxSteps int // per episode; 0 runs every episode to completion
	LogEvery int
	Stats    io.Writer // optional CSV sink, one row per episode
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// TrainingExperiment trains a learner over many episodes of one environment
type TrainingExperiment struct {
	baseExperiment
	params    TrainingParams
	stats     *csv.Writer
	summaries []core.EpisodeSummary
}

func NewTrainingExperiment(params TrainingParams) (*TrainingExperiment, error) {
	if params.Env == nil {
		return nil, errors.New("training requires an environment")
	}
	if params.Agent == nil {
		return nil, errors.New("training requires a learning agent")
	}
	if params.Episodes < 1 {
		return nil, fmt.Errorf("episodes must be positive, got %d", params.Episodes)
	}
	if params.LogEvery < 1 {
		params.LogEvery = 100
	}
	if params.Name == "" {
		params.Name = "training"
	}

	e := &TrainingExperiment{params: params}
	e.init(params.Name, params.Logger)
	if params.Stats != nil {
		e.stats = csv.NewWriter(params.Stats)
	}
	return e, nil
}

func (e *TrainingExperiment) Run(ctx context.Context) error {
	e.begin()
	defer e.finish()

	if err := e.writeRow(statsHeader); err != nil {
		return err
	}

	e.logger.Info("training started",
		"agent", e.params.Agent.GetID(),
		"episodes", e.params.Episodes,
		"max_steps", e.params.MaxSteps)

	for ep := 1; ep <= e.params.Episodes; ep++ {
		if stop, err := e.halted(ctx); stop {
			e.logger.Info("training halted", "episode", ep, "error", err)
			return err
		}

		summary, err := e.runEpisode(ctx, ep)
		if err != nil {
			e.recordError(err)
			return fmt.Errorf("episode %d: %w", ep, err)
		}

		e.summaries = append(e.summaries, summary)
		e.recordEpisode()
		e.params.Metrics.ObserveEpisode(summary)
		if err := e.writeRow(summaryRow(summary)); err != nil {
			return err
		}

		if ep%e.params.LogEvery == 0 || ep == e.params.Episodes {
			e.logger.Info("training progress",
				"episode", ep,
				"mean_reward", MeanReward(e.lastSummaries(e.params.LogEvery)),
				"epsilon", summary.Epsilon)
		}
	}

	e.logger.Info("training finished", "mean_reward", MeanReward(e.summaries))
	return nil
}

// runEpisode plays one episode until the environment reports done or the step cap
func (e *TrainingExperiment) runEpisode(ctx context.Context, episode int) (core.EpisodeSummary, error) {
	env, learner := e.params.Env, e.params.Agent
	summary := core.EpisodeSummary{Episode: episode}

	obs := env.Reset()
	done := false
	for step := 0; !done && (e.params.MaxSteps == 0 || step < e.params.MaxSteps); step++ {
		action, err := learner.Act(ctx, obs)
		if err != nil {
			e.params.Metrics.ObserveError()
			return summary, fmt.Errorf("failed to choose action: %w", err)
		}

		next, reward, isDone, _, err := env.Step(action)
		if err != nil {
			e.params.Metrics.ObserveError()
			return summary, fmt.Errorf("failed to step environment: %w", err)
		}
		learner.Learn(obs, action, reward, next, isDone)

		rec := core.StepRecord{
			RunID:       e.params.RunID,
			Episode:     episode,
			Step:        step,
			Observation: next,
			Action:      action,
			Reward:      reward,
			Done:        isDone,
			Timestamp:   time.Now(),
		}
		summary.Add(rec)
		e.recordStep()
		e.params.Metrics.ObserveStep(rec)

		obs, done = next, isDone
	}

	summary.Truncated = !done
	learner.EndEpisode()
	if ex, ok := learner.(interface{ Epsilon() float64 }); ok {
		summary.Epsilon = ex.Epsilon()
	}
	return summary, nil
}

// Summaries returns the finished episodes so far
func (e *TrainingExperiment) Summaries() []core.EpisodeSummary {
	return append([]core.EpisodeSummary(nil), e.summaries...)
}

func (e *TrainingExperiment) lastSummaries(n int) []core.EpisodeSummary {
	if n >= len(e.summaries) {
		return e.summaries
	}
	return e.summaries[len(e.summaries)-n:]
}

func (e *TrainingExperiment) writeRow(row []string) error {
	if e.stats == nil {
		return nil
	}
	if err := e.stats.Write(row); err != nil {
		return fmt.Errorf("failed to write stats: %w", err)
	}
	e.stats.Flush()
	return e.stats.Error()
}

func summaryRow(s core.EpisodeSummary) []string {
	return []string{
		strconv.Itoa(s.Episode),
		strconv.FormatFloat(s.TotalReward, 'f', 4, 64),
		strconv.Itoa(s.Steps),
		strconv.FormatFloat(s.MeanMoisture, 'f', 2, 64),
		strconv.Itoa(s.Irrigations),
		strconv.FormatFloat(s.Epsilon, 'f', 4, 64),
		strconv.FormatBool(s.Truncated),
	}
}

// MeanReward averages total reward over the given episodes
func MeanReward(summaries []core.EpisodeSummary) float64 {
	if len(summaries) == 0 {
		return 0
	}
	rewards := make([]float64, len(summaries))
	for i, s := range summaries {
		rewards[i] = s.TotalReward
	}
	return stat.Mean(rewards, nil)
}
