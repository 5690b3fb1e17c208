package agent

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/boristopalov/irrigation/pkg/environment"
)

// RandomAgent irrigates uniformly at random
type RandomAgent struct {
	id  string
	rng *rand.Rand
}

func NewRandomAgent(opts ...AgentOption) *RandomAgent {
	params := buildParams(opts)
	return &RandomAgent{id: params.AgentID, rng: params.rng()}
}

func (a *RandomAgent) GetID() string { return a.id }

func (a *RandomAgent) Act(ctx context.Context, _ environment.Observation) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return a.rng.IntN(environment.NumActions), nil
}

// ThresholdAgent maximizes the immediate reward: it predicts next-hour moisture
// for every action from the effect tables and picks the best scoring one.
type ThresholdAgent struct {
	id     string
	tables environment.Tables
}

func NewThresholdAgent(opts ...AgentOption) *ThresholdAgent {
	params := buildParams(opts)
	return &ThresholdAgent{id: params.AgentID, tables: params.Tables}
}

func (a *ThresholdAgent) GetID() string { return a.id }

func (a *ThresholdAgent) Act(ctx context.Context, obs environment.Observation) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	evap := a.tables.Evaporation(obs.Weather(), obs.PlantType())

	best, bestReward := 0, math.Inf(-1)
	for action := 0; action < environment.NumActions; action++ {
		m := obs.SoilMoisture() + a.tables.IrrigationDelta[action] - evap
		m = math.Max(0, math.Min(100, m))
		if r := a.tables.Reward(m, obs.PlantType(), action); r > bestReward {
			best, bestReward = action, r
		}
	}
	return best, nil
}
