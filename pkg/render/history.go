package render

import (
	"context"
	"fmt"

	"github.com/boristopalov/irrigation/pkg/core"
	"github.com/boristopalov/irrigation/pkg/messaging"
)

// Observer handles step records delivered from a simulation run
type Observer interface {
	Observe(rec core.StepRecord) error
}

// History accumulates the per-step series plotted after a simulation.
// It is not safe for concurrent use.
type History struct {
	Moisture []float64
	Actions  []int
	Rewards  []float64
	Plants   []int
	Hours    []int
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Observe(rec core.StepRecord) error {
	obs := rec.Observation
	h.Moisture = append(h.Moisture, obs.SoilMoisture())
	h.Actions = append(h.Actions, rec.Action)
	h.Rewards = append(h.Rewards, rec.Reward)
	h.Plants = append(h.Plants, int(obs.PlantType()))
	h.Hours = append(h.Hours, obs.TimeOfDay())
	return nil
}

func (h *History) Len() int {
	return len(h.Moisture)
}

// TotalReward sums the recorded rewards
func (h *History) TotalReward() float64 {
	total := 0.0
	for _, r := range h.Rewards {
		total += r
	}
	return total
}

// Consume feeds every message on ch to the observers in order until ch is
// closed or ctx is done.
func Consume(ctx context.Context, ch <-chan messaging.Message, observers ...Observer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			for _, o := range observers {
				if err := o.Observe(msg.Record); err != nil {
					return fmt.Errorf("observe step %d: %w", msg.Record.Step, err)
				}
			}
		}
	}
}
