package embeddings

import "context"

// Provider defines the interface for embedding generation services.
// The produced dimension must stay stable across calls for the lifetime of
// one vector index; callers never substitute a zero vector on failure.
type Provider interface {
	// GenerateEmbedding creates a vector embedding for a single text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the dimensionality of embeddings produced by this provider
	Dimensions() int

	// Name returns the model name, recorded so stored embeddings can be
	// traced back to the model that produced them
	Name() string
}
