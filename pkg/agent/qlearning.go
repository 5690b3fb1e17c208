package agent

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/boristopalov/irrigation/pkg/environment"
)

// StateKey is a discretized observation used to index the Q-table.
// Phase is the hour's position within the weather/plant rotation.
type StateKey struct {
	Moisture int
	Weather  int
	Phase    int
	Plant    int
}

type QValues [environment.NumActions]float64

// Argmax returns the best action, preferring the lighter irrigation on ties
func (q QValues) Argmax() int {
	best := 0
	for a := 1; a < len(q); a++ {
		if q[a] > q[best] {
			best = a
		}
	}
	return best
}

func (q QValues) Max() float64 {
	return q[q.Argmax()]
}

type QTable map[StateKey]QValues

// QLearningAgent is a tabular, epsilon-greedy Q-learning agent.
// It is not safe for concurrent use.
type QLearningAgent struct {
	id           string
	q            QTable
	alpha        float64
	gamma        float64
	epsilon      float64
	epsilonMin   float64
	epsilonDecay float64
	bucket       float64
	period       int
	rng          *rand.Rand
}

var _ Learner = (*QLearningAgent)(nil)

// NewQLearningAgent creates an agent with an empty Q-table
func NewQLearningAgent(opts ...AgentOption) *QLearningAgent {
	params := buildParams(opts)

	period := params.Tables.WeatherPeriod
	if period < 1 {
		period = environment.DefaultTables().WeatherPeriod
	}
	bucket := params.MoistureBucket
	if bucket <= 0 {
		bucket = 5
	}

	return &QLearningAgent{
		id:           params.AgentID,
		q:            make(QTable),
		alpha:        params.LearningRate,
		gamma:        params.Discount,
		epsilon:      params.Epsilon,
		epsilonMin:   params.EpsilonMin,
		epsilonDecay: params.EpsilonDecay,
		bucket:       bucket,
		period:       period,
		rng:          params.rng(),
	}
}

func (a *QLearningAgent) GetID() string {
	return a.id
}

// Key discretizes an observation
func (a *QLearningAgent) Key(obs environment.Observation) StateKey {
	return StateKey{
		Moisture: int(math.Floor(obs.SoilMoisture() / a.bucket)),
		Weather:  int(obs.Weather()),
		Phase:    obs.TimeOfDay() % a.period,
		Plant:    int(obs.PlantType()),
	}
}

// Act picks a random action with probability epsilon, otherwise the greedy one
func (a *QLearningAgent) Act(ctx context.Context, obs environment.Observation) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if a.epsilon > 0 && a.rng.Float64() < a.epsilon {
		return a.rng.IntN(environment.NumActions), nil
	}
	return a.q[a.Key(obs)].Argmax(), nil
}

func (a *QLearningAgent) Learn(obs environment.Observation, action int, reward float64, next environment.Observation, done bool) {
	key := a.Key(obs)
	q := a.q[key]

	target := reward
	if !done {
		target += a.gamma * a.q[a.Key(next)].Max()
	}
	q[action] += a.alpha * (target - q[action])
	a.q[key] = q
}

func (a *QLearningAgent) EndEpisode() {
	a.epsilon = math.Max(a.epsilonMin, a.epsilon*a.epsilonDecay)
}

// Greedy turns exploration off, for evaluation and replay
func (a *QLearningAgent) Greedy() {
	a.epsilon = 0
	a.epsilonMin = 0
}

func (a *QLearningAgent) Epsilon() float64 {
	return a.epsilon
}

// QTable returns a copy of the learned values
func (a *QLearningAgent) QTable() QTable {
	out := make(QTable, len(a.q))
	for k, v := range a.q {
		out[k] = v
	}
	return out
}

// LoadQTable replaces the learned values with a copy of q
func (a *QLearningAgent) LoadQTable(q QTable) {
	a.q = make(QTable, len(q))
	for k, v := range q {
		a.q[k] = v
	}
}
