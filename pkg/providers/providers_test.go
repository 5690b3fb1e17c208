package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("openai", func(t *testing.T) {
		c, err := New(ctx, "OpenAI", WithAPIKey("test-key"), WithBaseURL("http://localhost:1/v1/"))
		require.NoError(t, err)
		assert.IsType(t, &OpenAIClient{}, c)
	})

	t.Run("gemini without key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		_, err := New(ctx, ProviderGemini)
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := New(ctx, "markov")
		assert.ErrorContains(t, err, "unknown provider")
	})
}
