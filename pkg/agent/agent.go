package agent

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/boristopalov/irrigation/pkg/environment"
	"github.com/google/uuid"
)

// Agent chooses an irrigation action for an observation
type Agent interface {
	GetID() string
	Act(ctx context.Context, obs environment.Observation) (int, error)
}

// Learner is an Agent that improves from observed transitions
type Learner interface {
	Agent
	Learn(obs environment.Observation, action int, reward float64, next environment.Observation, done bool)
	// EndEpisode is called once per finished episode, e.g. to decay exploration
	EndEpisode()
}

type ModelInfo struct {
	Id     string         // e.g. "gpt-4o-mini"
	Config map[string]any // model-specific configuration
}

type AgentParams struct {
	AgentID        string
	Seed           uint64
	seeded         bool
	LearningRate   float64
	Discount       float64
	Epsilon        float64
	EpsilonMin     float64
	EpsilonDecay   float64
	MoistureBucket float64
	Tables         environment.Tables
	Client         Client
	Model          ModelInfo
	MemorySize     int
}

type AgentOption func(*AgentParams)

func WithAgentID(id string) AgentOption {
	return func(p *AgentParams) {
		p.AgentID = id
	}
}

// WithSeed makes exploration reproducible
func WithSeed(seed uint64) AgentOption {
	return func(p *AgentParams) {
		p.Seed = seed
		p.seeded = true
	}
}

func WithLearningRate(alpha float64) AgentOption {
	return func(p *AgentParams) {
		p.LearningRate = alpha
	}
}

func WithDiscount(gamma float64) AgentOption {
	return func(p *AgentParams) {
		p.Discount = gamma
	}
}

// WithEpsilon sets the exploration schedule: start, floor and per-episode decay
func WithEpsilon(start, min, decay float64) AgentOption {
	return func(p *AgentParams) {
		p.Epsilon = start
		p.EpsilonMin = min
		p.EpsilonDecay = decay
	}
}

// WithMoistureBucket sets the width of the moisture bins used to index the Q-table
func WithMoistureBucket(width float64) AgentOption {
	return func(p *AgentParams) {
		p.MoistureBucket = width
	}
}

func WithTables(t environment.Tables) AgentOption {
	return func(p *AgentParams) {
		p.Tables = t
	}
}

func WithClient(c Client) AgentOption {
	return func(p *AgentParams) {
		p.Client = c
	}
}

func WithModel(model ModelInfo) AgentOption {
	return func(p *AgentParams) {
		p.Model = model
	}
}

func WithMemorySize(n int) AgentOption {
	return func(p *AgentParams) {
		p.MemorySize = n
	}
}

func defaultAgentParams() *AgentParams {
	return &AgentParams{
		AgentID:        "agent-" + uuid.New().String(),
		LearningRate:   0.1,
		Discount:       0.9,
		Epsilon:        1.0,
		EpsilonMin:     0.05,
		EpsilonDecay:   0.99,
		MoistureBucket: 5,
		Tables:         environment.DefaultTables(),
		Model: ModelInfo{
			Id:     "gpt-4o-mini",
			Config: make(map[string]any),
		},
		MemorySize: 12,
	}
}

func buildParams(opts []AgentOption) *AgentParams {
	params := defaultAgentParams()
	for _, opt := range opts {
		opt(params)
	}
	return params
}

func (p *AgentParams) rng() *rand.Rand {
	seed := p.Seed
	if !p.seeded {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb))
}
