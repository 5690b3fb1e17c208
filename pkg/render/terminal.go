package render

import (
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"

	"github.com/boristopalov/irrigation/pkg/core"
	"github.com/boristopalov/irrigation/pkg/environment"
)

// Moisture thresholds for the field colour
const (
	DryBelow = 30.0
	WetFrom  = 70.0
)

var weatherIcons = [environment.NumWeather]string{"☀", "☁", "☂"}

// TerminalRenderer writes one scene line per simulation step
type TerminalRenderer struct {
	out io.Writer
	au  aurora.Aurora
}

func NewTerminalRenderer(out io.Writer, color bool) *TerminalRenderer {
	return &TerminalRenderer{
		out: out,
		au:  aurora.NewAurora(color),
	}
}

// IsNight reports whether the hour is drawn as night
func IsNight(hour int) bool {
	return hour < 6 || hour > 18
}

// Observe writes the scene for rec
func (r *TerminalRenderer) Observe(rec core.StepRecord) error {
	_, err := fmt.Fprintln(r.out, r.Scene(rec))
	return err
}

// Scene formats a record as a single line
func (r *TerminalRenderer) Scene(rec core.StepRecord) string {
	obs := rec.Observation
	hour := obs.TimeOfDay()

	clock := r.au.Bold(fmt.Sprintf("%02d:00", hour))
	period := r.au.Yellow("day")
	if IsNight(hour) {
		period = r.au.Blue("night")
	}

	return fmt.Sprintf("[%3d] %s %-5s | %s %-6s | soil %s | plant %d | action %-6s | reward %s",
		rec.Step,
		clock,
		period,
		weatherIcon(obs.Weather()),
		obs.Weather(),
		r.moisture(obs.SoilMoisture()),
		obs.PlantType(),
		environment.ActionName(rec.Action),
		r.reward(rec.Reward),
	)
}

func (r *TerminalRenderer) moisture(m float64) aurora.Value {
	s := fmt.Sprintf("%5.1f%%", m)
	switch {
	case m < DryBelow:
		return r.au.Yellow(s)
	case m < WetFrom:
		return r.au.Green(s)
	default:
		return r.au.Cyan(s)
	}
}

func (r *TerminalRenderer) reward(v float64) aurora.Value {
	s := fmt.Sprintf("%.2f", v)
	if v < -0.5 {
		return r.au.Red(s)
	}
	return r.au.White(s)
}

func weatherIcon(w environment.Weather) string {
	if w < 0 || w >= environment.NumWeather {
		return "?"
	}
	return weatherIcons[w]
}
