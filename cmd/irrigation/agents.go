package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/boristopalov/irrigation/pkg/agent"
	"github.com/boristopalov/irrigation/pkg/config"
	"github.com/boristopalov/irrigation/pkg/providers"
	"github.com/boristopalov/irrigation/pkg/store"
)

// agentFactory builds one agent per seed for the configured agent kind.
// A q-learning factory replays the latest stored policy greedily.
func agentFactory(ctx context.Context, cfg *config.ExperimentConfig, log *slog.Logger) (func(seed uint64) (agent.Agent, error), error) {
	tables := cfg.Environment.Tables

	switch cfg.Agent.Kind {
	case "qlearning":
		q, err := loadPolicy(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return func(seed uint64) (agent.Agent, error) {
			a := agent.NewQLearningAgent(
				agent.WithAgentID(fmt.Sprintf("%s-%d", cfg.Agent.Policy, seed)),
				agent.WithSeed(seed),
				agent.WithMoistureBucket(cfg.Agent.MoistureBucket),
				agent.WithTables(tables),
			)
			a.LoadQTable(q)
			a.Greedy()
			return a, nil
		}, nil

	case "random":
		return func(seed uint64) (agent.Agent, error) {
			return agent.NewRandomAgent(agent.WithAgentID(fmt.Sprintf("random-%d", seed)), agent.WithSeed(seed)), nil
		}, nil

	case "threshold":
		return func(seed uint64) (agent.Agent, error) {
			return agent.NewThresholdAgent(agent.WithAgentID("threshold"), agent.WithTables(tables)), nil
		}, nil

	case "llm":
		client, err := providers.New(ctx, cfg.Agent.Provider)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", cfg.Agent.Provider, err)
		}
		return func(seed uint64) (agent.Agent, error) {
			return agent.NewLLMAgent(
				agent.WithClient(client),
				agent.WithModel(agent.ModelInfo{Id: cfg.Agent.Model, Config: map[string]any{}}),
				agent.WithTables(tables),
			)
		}, nil

	default:
		return nil, fmt.Errorf("unknown agent kind %q", cfg.Agent.Kind)
	}
}

func loadPolicy(ctx context.Context, cfg *config.ExperimentConfig, log *slog.Logger) (agent.QTable, error) {
	policies, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	defer policies.Close()

	q, rec, err := policies.LoadPolicy(ctx, cfg.Agent.Policy)
	if errors.Is(err, store.ErrPolicyNotFound) {
		return nil, fmt.Errorf("no trained policy %q in %s, run `irrigation train` first: %w", cfg.Agent.Policy, cfg.Store.Path, err)
	}
	if err != nil {
		return nil, err
	}
	log.Info("loaded policy",
		"name", rec.Name,
		"version", rec.VersionID,
		"states", rec.States,
		"episodes", rec.Episodes,
		"mean_reward", rec.MeanReward)
	return q, nil
}
