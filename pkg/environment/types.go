package environment

// Weather conditions. Each one drives a different evaporation rate.
type Weather int

const (
	Sunny Weather = iota
	Cloudy
	Rainy
	NumWeather
)

func (w Weather) String() string {
	switch w {
	case Sunny:
		return "sunny"
	case Cloudy:
		return "cloudy"
	case Rainy:
		return "rainy"
	default:
		return "unknown"
	}
}

// PlantType selects the optimal moisture band and scales evaporative demand
type PlantType int

const NumPlantTypes = 3

// Irrigation intensities accepted by Step
const (
	IrrigateNone = iota
	IrrigateLow
	IrrigateMedium
	IrrigateHigh
	NumActions
)

var actionNames = [NumActions]string{"None", "Low", "Medium", "High"}

// ActionName returns the display name of an irrigation action
func ActionName(action int) string {
	if action < 0 || action >= NumActions {
		return "Invalid"
	}
	return actionNames[action]
}

// State is the full simulation state. Only the environment mutates it;
// callers receive copies.
type State struct {
	SoilMoisture float64
	Weather      Weather
	TimeOfDay    int
	PlantType    PlantType
	DayCounter   int
	Done         bool
}

// Observation projects the state onto the agent-visible vector.
// DayCounter and Done are not observable.
func (s State) Observation() Observation {
	return Observation{
		s.SoilMoisture,
		float64(s.Weather),
		float64(s.TimeOfDay),
		float64(s.PlantType),
	}
}
