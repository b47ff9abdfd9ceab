package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/pkg/errors"
)

func TestNewProvider(t *testing.T) {
	t.Run("openai provider with defaults", func(t *testing.T) {
		provider, err := NewProvider(Config{Provider: ProviderOpenAI, APIKey: "sk-test"})
		require.NoError(t, err)

		assert.Equal(t, "text-embedding-3-small", provider.Name())
		assert.Equal(t, 1536, provider.Dimensions())
	})

	t.Run("large model dimensions", func(t *testing.T) {
		provider, err := NewProvider(Config{
			Provider: ProviderOpenAI,
			APIKey:   "sk-test",
			Model:    "text-embedding-3-large",
		})
		require.NoError(t, err)
		assert.Equal(t, 3072, provider.Dimensions())
	})

	t.Run("missing API key", func(t *testing.T) {
		_, err := NewProvider(Config{Provider: ProviderOpenAI})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		_, err := NewProvider(Config{Provider: "cohere"})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}
