package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/boristopalov/irrigation/pkg/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *PolicyStore {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "policies.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadPolicy(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	q := agent.QTable{
		{Moisture: 12, Weather: 0, Phase: 1, Plant: 0}: {-0.5, -0.1, 0.2, -0.9},
		{Moisture: 20, Weather: 2, Phase: 5, Plant: 2}: {0.3, 0, 0, -1},
	}
	meta := PolicyMeta{Episodes: 500, MeanReward: -12.5, Params: map[string]float64{"alpha": 0.1}}

	id, err := s.SavePolicy(ctx, "irrigation_dqn", q, meta)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	loaded, rec, err := s.LoadPolicy(ctx, "irrigation_dqn")
	require.NoError(t, err)
	assert.Equal(t, q, loaded)
	assert.Equal(t, id, rec.VersionID)
	assert.Equal(t, "irrigation_dqn", rec.Name)
	assert.Equal(t, 500, rec.Episodes)
	assert.Equal(t, -12.5, rec.MeanReward)
	assert.Equal(t, 0.1, rec.Params["alpha"])
	assert.Equal(t, 2, rec.States)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestLoadPolicyReturnsLatestVersion(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	key := agent.StateKey{Moisture: 10}

	_, err := s.SavePolicy(ctx, "p", agent.QTable{key: {1, 0, 0, 0}}, PolicyMeta{Episodes: 1})
	require.NoError(t, err)
	v2, err := s.SavePolicy(ctx, "p", agent.QTable{key: {0, 0, 2, 0}}, PolicyMeta{Episodes: 2})
	require.NoError(t, err)
	_, err = s.SavePolicy(ctx, "other", agent.QTable{}, PolicyMeta{})
	require.NoError(t, err)

	q, rec, err := s.LoadPolicy(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, v2, rec.VersionID)
	assert.Equal(t, 2, q[key].Argmax())

	list, err := s.ListPolicies(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "other", list[0].Name)
	assert.Equal(t, "p", list[1].Name)
	assert.Equal(t, v2, list[1].VersionID)
	assert.Equal(t, 1, list[1].States)
}

func TestLoadPolicyNotFound(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	_, _, err := s.LoadPolicy(ctx, "missing")
	assert.ErrorIs(t, err, ErrPolicyNotFound)

	_, _, err = s.LoadVersion(ctx, "nope")
	assert.ErrorIs(t, err, ErrPolicyNotFound)
}

func TestCorruptCreatedAtIsReported(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	id, err := s.SavePolicy(ctx, "p", agent.QTable{}, PolicyMeta{})
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `UPDATE policies SET created_at = 'yesterday' WHERE version_id = ?`, id)
	require.NoError(t, err)

	_, _, err = s.LoadPolicy(ctx, "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "created_at")
	assert.NotErrorIs(t, err, ErrPolicyNotFound)

	_, err = s.ListPolicies(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), id)
}

func TestSavePolicyRequiresName(t *testing.T) {
	s := tempStore(t)
	_, err := s.SavePolicy(context.Background(), "", agent.QTable{}, PolicyMeta{})
	assert.Error(t, err)
}

func TestTrainedAgentRoundTrip(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	a := agent.NewQLearningAgent(agent.WithSeed(1))
	a.LoadQTable(agent.QTable{{Moisture: 9, Weather: 1, Phase: 3, Plant: 1}: {0, 0, 0, 0.5}})

	_, err := s.SavePolicy(ctx, "trained", a.QTable(), PolicyMeta{Episodes: 10})
	require.NoError(t, err)

	q, _, err := s.LoadPolicy(ctx, "trained")
	require.NoError(t, err)

	b := agent.NewQLearningAgent(agent.WithSeed(2))
	b.LoadQTable(q)
	assert.Equal(t, a.QTable(), b.QTable())
}
