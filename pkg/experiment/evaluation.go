package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/boristopalov/irrigation/pkg/agent"
	"github.com/boristopalov/irrigation/pkg/core"
	"github.com/boristopalov/irrigation/pkg/environment"
)

type EvalParams struct {
	Seeds       []uint64
	Concurrency int
	MaxSteps    int // 0 plays each episode to completion
	Tables      environment.Tables
	// NewAgent builds a fresh agent per seed so runs never share state
	NewAgent func(seed uint64) (agent.Agent, error)
	Logger   *slog.Logger
}

// EvalResult summarises one episode per seed
type EvalResult struct {
	Episodes   []core.EpisodeSummary // in seed order
	MeanReward float64
	StdReward  float64
	MinReward  float64
	MaxReward  float64
}

// Evaluate plays one episode per seed, running up to Concurrency episodes at once
func Evaluate(ctx context.Context, params EvalParams) (EvalResult, error) {
	if len(params.Seeds) == 0 {
		return EvalResult{}, errors.New("evaluation requires at least one seed")
	}
	if params.NewAgent == nil {
		return EvalResult{}, errors.New("evaluation requires an agent factory")
	}
	if params.Concurrency < 1 {
		params.Concurrency = 1
	}
	if params.Tables == (environment.Tables{}) {
		params.Tables = environment.DefaultTables()
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	episodes := make([]core.EpisodeSummary, len(params.Seeds))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(params.Concurrency)

	for i, seed := range params.Seeds {
		g.Go(func() error {
			a, err := params.NewAgent(seed)
			if err != nil {
				return fmt.Errorf("seed %d: failed to create agent: %w", seed, err)
			}
			env := environment.NewIrrigationEnvironment(
				environment.WithSeed(seed),
				environment.WithTables(params.Tables),
			)
			summary, err := playEpisode(gCtx, env, a, params.MaxSteps)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			summary.Episode = i + 1
			episodes[i] = summary
			logger.Debug("evaluation episode finished", "seed", seed, "total_reward", summary.TotalReward)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return EvalResult{}, err
	}

	rewards := make([]float64, len(episodes))
	for i, s := range episodes {
		rewards[i] = s.TotalReward
	}
	mean, std := stat.MeanStdDev(rewards, nil)
	if len(rewards) == 1 {
		std = 0
	}

	return EvalResult{
		Episodes:   episodes,
		MeanReward: mean,
		StdReward:  std,
		MinReward:  floats.Min(rewards),
		MaxReward:  floats.Max(rewards),
	}, nil
}

// playEpisode runs a without learning until done or the step cap
func playEpisode(ctx context.Context, env environment.Environment, a agent.Agent, maxSteps int) (core.EpisodeSummary, error) {
	var summary core.EpisodeSummary

	obs := env.Reset()
	done := false
	for step := 0; !done && (maxSteps == 0 || step < maxSteps); step++ {
		action, err := a.Act(ctx, obs)
		if err != nil {
			return summary, fmt.Errorf("failed to choose action: %w", err)
		}
		next, reward, isDone, _, err := env.Step(action)
		if err != nil {
			return summary, err
		}
		summary.Add(core.StepRecord{Step: step, Observation: next, Action: action, Reward: reward, Done: isDone})
		obs, done = next, isDone
	}
	summary.Truncated = !done
	return summary, nil
}

// SeedRange returns n consecutive seeds starting at first
func SeedRange(first uint64, n int) []uint64 {
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = first + uint64(i)
	}
	return seeds
}
