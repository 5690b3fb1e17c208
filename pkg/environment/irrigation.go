package environment

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// IrrigationEnvironment simulates one irrigated field hour by hour.
// An instance is not safe for concurrent use; run one instance per goroutine.
type IrrigationEnvironment struct {
	state  State
	tables Tables
	rng    *rand.Rand
}

var _ Environment = (*IrrigationEnvironment)(nil)

type envParams struct {
	tables Tables
	rng    *rand.Rand
}

// Option configures an IrrigationEnvironment
type Option func(*envParams)

// WithSeed makes weather, plant and initial-state draws reproducible
func WithSeed(seed uint64) Option {
	return func(p *envParams) {
		p.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithRand supplies the random source directly
func WithRand(r *rand.Rand) Option {
	return func(p *envParams) {
		p.rng = r
	}
}

// WithTables overrides the irrigation, evaporation and reward tables
func WithTables(t Tables) Option {
	return func(p *envParams) {
		p.tables = t
	}
}

// NewIrrigationEnvironment creates an environment and resets it to a fresh episode.
// Tables that fail Validate are replaced by DefaultTables.
func NewIrrigationEnvironment(opts ...Option) *IrrigationEnvironment {
	params := &envParams{tables: DefaultTables()}
	for _, opt := range opts {
		opt(params)
	}
	if err := params.tables.Validate(); err != nil {
		slog.Warn("invalid environment tables, using defaults", "error", err)
		params.tables = DefaultTables()
	}
	if params.rng == nil {
		seed := uint64(time.Now().UnixNano())
		params.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}

	env := &IrrigationEnvironment{
		tables: params.tables,
		rng:    params.rng,
	}
	env.Reset()
	return env
}

// Reset replaces the state with a new random one and returns its observation
func (e *IrrigationEnvironment) Reset() Observation {
	e.state = State{
		SoilMoisture: 40 + e.rng.Float64()*30,
		Weather:      Weather(e.rng.IntN(int(NumWeather))),
		TimeOfDay:    6 + e.rng.IntN(12),
		PlantType:    PlantType(e.rng.IntN(NumPlantTypes)),
		DayCounter:   0,
		Done:         false,
	}
	return e.state.Observation()
}

// Step irrigates, evaporates, scores the result and advances the clock by one hour
func (e *IrrigationEnvironment) Step(action int) (Observation, float64, bool, Info, error) {
	if !e.ActionSpace().Contains(action) {
		return e.state.Observation(), 0, e.state.Done, Info{}, &InvalidActionError{Action: action}
	}

	s := &e.state
	s.SoilMoisture += e.tables.IrrigationDelta[action]
	s.SoilMoisture -= e.tables.Evaporation(s.Weather, s.PlantType)
	s.SoilMoisture = math.Max(0, math.Min(100, s.SoilMoisture))

	reward := e.tables.Reward(s.SoilMoisture, s.PlantType, action)

	s.TimeOfDay = (s.TimeOfDay + 1) % 24
	if s.TimeOfDay == 0 {
		s.DayCounter++
	}

	// weather and plant rotate on the same trigger hour
	if s.TimeOfDay%e.tables.WeatherPeriod == 0 {
		s.Weather = Weather(e.rng.IntN(int(NumWeather)))
		s.PlantType = (s.PlantType + 1) % NumPlantTypes
	}

	s.Done = s.DayCounter >= e.tables.EpisodeDays
	return s.Observation(), reward, s.Done, Info{}, nil
}

// State returns a copy of the current simulation state
func (e *IrrigationEnvironment) State() State {
	return e.state
}

// Tables returns the effect tables in use
func (e *IrrigationEnvironment) Tables() Tables {
	return e.tables
}

func (e *IrrigationEnvironment) ObservationSpace() Box {
	return Box{
		Low:  []float64{0, 0, 0, 0},
		High: []float64{100, float64(NumWeather - 1), 23, NumPlantTypes - 1},
	}
}

func (e *IrrigationEnvironment) ActionSpace() Discrete {
	return Discrete{N: NumActions}
}

func (e *IrrigationEnvironment) Render() string {
	return fmt.Sprintf("Time: %d, Moisture: %.2f, Weather: %d, Plant: %d",
		e.state.TimeOfDay, e.state.SoilMoisture, e.state.Weather, e.state.PlantType)
}
