// Package embed provides the embedding provider clients. Providers are
// consumed through small interfaces so indexers and the search service can
// run against fakes in tests.
package embed

import "context"

// TextEmbedder turns text into a fixed-length vector.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ImageEmbedder turns raw image bytes into a fixed-length vector. Its vector
// space is independent of the text provider's.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
}
