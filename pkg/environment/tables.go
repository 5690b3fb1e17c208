package environment

import (
	"errors"
	"fmt"
	"math"
)

// MoistureBand is the optimal soil moisture range for a plant type
type MoistureBand struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Target is the midpoint of the band
func (b MoistureBand) Target() float64 {
	return (b.Low + b.High) / 2
}

// Tables holds every numeric effect used by the transition and reward model
type Tables struct {
	IrrigationDelta   [NumActions]float64         `yaml:"irrigation_delta"`
	EvaporationFactor [NumWeather]float64         `yaml:"evaporation_factor"`
	PlantDemandStep   float64                     `yaml:"plant_demand_step"`
	MoistureBands     [NumPlantTypes]MoistureBand `yaml:"moisture_bands"`
	ActionCost        float64                     `yaml:"action_cost"`
	DeviationScale    float64                     `yaml:"deviation_scale"`
	EpisodeDays       int                         `yaml:"episode_days"`
	WeatherPeriod     int                         `yaml:"weather_period"`
}

// DefaultTables returns the stock irrigation model
func DefaultTables() Tables {
	return Tables{
		IrrigationDelta:   [NumActions]float64{0, 5, 10, 20},
		EvaporationFactor: [NumWeather]float64{3.0, 1.5, 0.2},
		PlantDemandStep:   0.5,
		MoistureBands: [NumPlantTypes]MoistureBand{
			{Low: 50, High: 70},
			{Low: 60, High: 80},
			{Low: 70, High: 90},
		},
		ActionCost:     0.01,
		DeviationScale: 50,
		EpisodeDays:    7,
		WeatherPeriod:  6,
	}
}

// Evaporation is the moisture lost in one hour for the given weather and plant
func (t Tables) Evaporation(w Weather, p PlantType) float64 {
	return t.EvaporationFactor[w] * (1 + float64(p)*t.PlantDemandStep)
}

// Reward scores a moisture level reached after taking action for plant p
func (t Tables) Reward(moisture float64, p PlantType, action int) float64 {
	target := t.MoistureBands[p].Target()
	return -math.Abs(moisture-target)/t.DeviationScale - t.ActionCost*float64(action)
}

// Validate rejects tables the transition model cannot run with
func (t Tables) Validate() error {
	var errs []error
	for i, d := range t.IrrigationDelta {
		if !finite(d) {
			errs = append(errs, fmt.Errorf("irrigation_delta[%d] is not finite", i))
		}
	}
	for i, f := range t.EvaporationFactor {
		if !finite(f) || f < 0 {
			errs = append(errs, fmt.Errorf("evaporation_factor[%d] must be a non-negative number", i))
		}
	}
	for i, b := range t.MoistureBands {
		if !finite(b.Low) || !finite(b.High) || b.Low > b.High {
			errs = append(errs, fmt.Errorf("moisture_bands[%d] is invalid: [%v, %v]", i, b.Low, b.High))
		}
	}
	if !finite(t.PlantDemandStep) || t.PlantDemandStep < 0 {
		errs = append(errs, errors.New("plant_demand_step must be a non-negative number"))
	}
	if !finite(t.ActionCost) || t.ActionCost < 0 {
		errs = append(errs, errors.New("action_cost must be a non-negative number"))
	}
	if !finite(t.DeviationScale) || t.DeviationScale <= 0 {
		errs = append(errs, errors.New("deviation_scale must be positive"))
	}
	if t.EpisodeDays < 1 {
		errs = append(errs, errors.New("episode_days must be at least 1"))
	}
	if t.WeatherPeriod < 1 {
		errs = append(errs, errors.New("weather_period must be at least 1"))
	}
	return errors.Join(errs...)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
