package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/boristopalov/irrigation/pkg/environment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAgentID(t *testing.T) {
	a := NewRandomAgent()
	assert.True(t, strings.HasPrefix(a.GetID(), "agent-"))
	assert.Equal(t, "field-1", NewRandomAgent(WithAgentID("field-1")).GetID())
}

func TestRandomAgentStaysInActionSpace(t *testing.T) {
	a := NewRandomAgent(WithSeed(9))
	seen := map[int]bool{}
	for i := 0; i < 400; i++ {
		action, err := a.Act(context.Background(), environment.Observation{})
		require.NoError(t, err)
		require.True(t, action >= 0 && action < environment.NumActions)
		seen[action] = true
	}
	assert.Len(t, seen, environment.NumActions)
}

func TestThresholdAgent(t *testing.T) {
	a := NewThresholdAgent()
	ctx := context.Background()

	tests := []struct {
		name string
		obs  environment.Observation
		want int
	}{
		// target 60: 60+10-3 = 67 scores worse than 60+5-3 = 62
		{"slightly dry sunny field", environment.Observation{60, 0, 7, 0}, environment.IrrigateLow},
		{"saturated field", environment.Observation{95, 2, 7, 0}, environment.IrrigateNone},
		{"parched field", environment.Observation{10, 0, 7, 2}, environment.IrrigateHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Act(ctx, tt.obs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
