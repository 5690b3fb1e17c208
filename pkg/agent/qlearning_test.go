package agent

import (
	"context"
	"testing"

	"github.com/boristopalov/irrigation/pkg/environment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runEpisode(t *testing.T, env *environment.IrrigationEnvironment, a Agent, learn bool) float64 {
	t.Helper()
	ctx := context.Background()
	obs := env.Reset()
	total := 0.0
	for {
		action, err := a.Act(ctx, obs)
		require.NoError(t, err)
		next, reward, done, _, err := env.Step(action)
		require.NoError(t, err)
		if l, ok := a.(Learner); ok && learn {
			l.Learn(obs, action, reward, next, done)
		}
		total += reward
		obs = next
		if done {
			break
		}
	}
	if l, ok := a.(Learner); ok && learn {
		l.EndEpisode()
	}
	return total
}

func TestQValues(t *testing.T) {
	q := QValues{0.1, 0.5, 0.5, -1}
	assert.Equal(t, 1, q.Argmax())
	assert.Equal(t, 0.5, q.Max())
	assert.Equal(t, 0, QValues{}.Argmax())
}

func TestQLearningKey(t *testing.T) {
	a := NewQLearningAgent(WithSeed(1))

	key := a.Key(environment.Observation{67.3, 2, 13, 1})
	assert.Equal(t, StateKey{Moisture: 13, Weather: 2, Phase: 1, Plant: 1}, key)
	assert.Equal(t, 20, a.Key(environment.Observation{100, 0, 0, 0}).Moisture)
}

func TestQLearningUpdate(t *testing.T) {
	a := NewQLearningAgent(WithSeed(1), WithLearningRate(0.5), WithDiscount(0.9))
	obs := environment.Observation{60, 0, 7, 0}
	next := environment.Observation{67, 0, 8, 0}

	a.Learn(obs, 2, -0.16, next, false)
	assert.InDelta(t, -0.08, a.QTable()[a.Key(obs)][2], 1e-12)

	a.LoadQTable(QTable{a.Key(next): {1, 0, 0, 0}})
	a.Learn(obs, 1, -0.2, next, false)
	// -0.2 + 0.9*1 = 0.7, half way from 0
	assert.InDelta(t, 0.35, a.QTable()[a.Key(obs)][1], 1e-12)

	a.Learn(obs, 3, -0.5, next, true)
	assert.InDelta(t, -0.25, a.QTable()[a.Key(obs)][3], 1e-12)
}

func TestQLearningEpsilonSchedule(t *testing.T) {
	a := NewQLearningAgent(WithSeed(1), WithEpsilon(1.0, 0.2, 0.5))
	a.EndEpisode()
	assert.InDelta(t, 0.5, a.Epsilon(), 1e-12)
	a.EndEpisode()
	a.EndEpisode()
	assert.InDelta(t, 0.2, a.Epsilon(), 1e-12)

	a.Greedy()
	assert.Zero(t, a.Epsilon())
	a.EndEpisode()
	assert.Zero(t, a.Epsilon())
}

func TestQLearningGreedyFollowsTable(t *testing.T) {
	a := NewQLearningAgent(WithSeed(1))
	a.Greedy()
	obs := environment.Observation{30, 0, 9, 2}
	a.LoadQTable(QTable{a.Key(obs): {-1, -0.5, 0.2, 0.1}})

	action, err := a.Act(context.Background(), obs)
	require.NoError(t, err)
	assert.Equal(t, 2, action)
}

func TestQLearningTableIsCopied(t *testing.T) {
	a := NewQLearningAgent(WithSeed(1))
	src := QTable{{Moisture: 1}: {1, 2, 3, 4}}
	a.LoadQTable(src)
	src[StateKey{Moisture: 1}] = QValues{}

	got := a.QTable()
	assert.Equal(t, QValues{1, 2, 3, 4}, got[StateKey{Moisture: 1}])
}

func TestQLearningBeatsRandom(t *testing.T) {
	if testing.Short() {
		t.Skip("training run")
	}

	learner := NewQLearningAgent(WithSeed(3), WithEpsilon(1.0, 0.05, 0.99))
	trainEnv := environment.NewIrrigationEnvironment(environment.WithSeed(3))
	for ep := 0; ep < 300; ep++ {
		runEpisode(t, trainEnv, learner, true)
	}
	learner.Greedy()

	random := NewRandomAgent(WithSeed(4))
	var learned, baseline float64
	for seed := uint64(100); seed < 110; seed++ {
		learned += runEpisode(t, environment.NewIrrigationEnvironment(environment.WithSeed(seed)), learner, false)
		baseline += runEpisode(t, environment.NewIrrigationEnvironment(environment.WithSeed(seed)), random, false)
	}
	assert.Greater(t, learned, baseline)
}

func TestActRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, a := range []Agent{
		NewQLearningAgent(WithSeed(1)),
		NewRandomAgent(WithSeed(1)),
		NewThresholdAgent(),
	} {
		_, err := a.Act(ctx, environment.Observation{50, 0, 6, 0})
		assert.ErrorIs(t, err, context.Canceled)
	}
}
