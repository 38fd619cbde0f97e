// Package embeddings is the boundary to the external embedding collaborator.
// Implementations must be deterministic for identical input: the knowledge
// base caches corpus embeddings at load time and never recomputes them, so a
// drifting embedder would silently invalidate every cached vector.
package embeddings

import (
	"context"
	"math"

	chromem "github.com/philippgille/chromem-go"
)

// Embedder generates text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the identifier of the embedding model.
	Name() string
}

// ToChromemFunc converts an Embedder into a chromem.EmbeddingFunc.
// chromem-go expects a function that embeds a single text at a time.
func ToChromemFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		results, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, nil
		}
		return Normalize(results[0]), nil
	}
}

// Normalize scales v to unit length so cosine similarity reduces to a dot
// product. Returns v unchanged if it is the zero vector.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
