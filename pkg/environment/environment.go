package environment

import "fmt"

// Environment defines the interface a learning agent or renderer drives
type Environment interface {
	// Reset starts a new episode and returns the first observation
	Reset() Observation
	// Step applies one action and advances the simulation by one hour
	Step(action int) (Observation, float64, bool, Info, error)
	// ObservationSpace describes the bounds of every observation
	ObservationSpace() Box
	// ActionSpace describes the valid actions
	ActionSpace() Discrete
	// Render returns a human readable summary of the current state
	Render() string
}

// Observation layout indices
const (
	ObsSoilMoisture = iota
	ObsWeather
	ObsTimeOfDay
	ObsPlantType
	ObservationSize
)

// Observation is the state visible to an agent: moisture, weather, hour and plant type.
type Observation [ObservationSize]float64

func (o Observation) SoilMoisture() float64 { return o[ObsSoilMoisture] }
func (o Observation) Weather() Weather      { return Weather(o[ObsWeather]) }
func (o Observation) TimeOfDay() int        { return int(o[ObsTimeOfDay]) }
func (o Observation) PlantType() PlantType  { return PlantType(o[ObsPlantType]) }

// Slice returns a copy of the observation as a slice
func (o Observation) Slice() []float64 {
	out := make([]float64, ObservationSize)
	copy(out, o[:])
	return out
}

// Info is returned by Step alongside the transition. It carries no fields yet.
type Info struct{}

// Box is a continuous space bounded per dimension
type Box struct {
	Low  []float64
	High []float64
}

// Contains reports whether every component of v lies within the bounds
func (b Box) Contains(v []float64) bool {
	if len(v) != len(b.Low) || len(v) != len(b.High) {
		return false
	}
	for i, x := range v {
		if x < b.Low[i] || x > b.High[i] {
			return false
		}
	}
	return true
}

// Discrete is the space of integers in [0, N)
type Discrete struct {
	N int
}

func (d Discrete) Contains(a int) bool {
	return a >= 0 && a < d.N
}

func (d Discrete) String() string {
	return fmt.Sprintf("Discrete(%d)", d.N)
}
