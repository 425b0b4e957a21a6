// Package search orchestrates nearest-neighbor queries: it picks the
// embedding provider for the query's modality, computes one query vector, and
// runs a top-k similarity search against the matching collection. It is
// strictly read-only.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/CarSeekAI/carseek-mvp/engine/domain"
	"github.com/CarSeekAI/carseek-mvp/engine/semantic"
	"github.com/CarSeekAI/carseek-mvp/pkg/embed"
	"github.com/CarSeekAI/carseek-mvp/pkg/resilience"
)

// Searcher abstracts the read side of one vector store collection.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]semantic.SearchResult, error)
}

// Options configures the search service.
type Options struct {
	// DefaultK is used when the caller passes k <= 0.
	DefaultK int
	// Timeout bounds one query end to end (embed + store search).
	Timeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		DefaultK: 6,
		Timeout:  15 * time.Second,
	}
}

// Service answers text and image similarity queries.
type Service struct {
	text    embed.TextEmbedder
	image   embed.ImageEmbedder
	texts   Searcher
	images  Searcher
	breaker *resilience.Breaker
	opts    Options
	logger  *slog.Logger
}

// New creates a search service. The breaker guards both embedding providers;
// pass nil to run without one.
func New(text embed.TextEmbedder, image embed.ImageEmbedder, texts, images Searcher, breaker *resilience.Breaker, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultK <= 0 {
		opts.DefaultK = DefaultOptions().DefaultK
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	return &Service{
		text:    text,
		image:   image,
		texts:   texts,
		images:  images,
		breaker: breaker,
		opts:    opts,
		logger:  logger,
	}
}

// SearchByText returns the top-k cars nearest to the query text. An empty or
// whitespace-only query is rejected before any embedding work.
func (s *Service) SearchByText(ctx context.Context, query string, k int) ([]domain.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	k = s.clampK(k)

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	var vector []float32
	err := s.guard(ctx, func(ctx context.Context) error {
		var err error
		vector, err = s.text.EmbedText(ctx, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	results, err := s.texts.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search: text collection: %w", err)
	}
	s.logger.Info("text search done", "query_len", len(query), "k", k, "results", len(results))
	return toHits(results), nil
}

// SearchByImage returns the top-k cars nearest to the uploaded image.
func (s *Service) SearchByImage(ctx context.Context, image []byte, k int) ([]domain.SearchHit, error) {
	if len(image) == 0 {
		return nil, domain.ErrEmptyImage
	}
	k = s.clampK(k)

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	var vector []float32
	err := s.guard(ctx, func(ctx context.Context) error {
		var err error
		vector, err = s.image.EmbedImage(ctx, image)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search: embed image: %w", err)
	}

	results, err := s.images.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search: image collection: %w", err)
	}
	s.logger.Info("image search done", "image_bytes", len(image), "k", k, "results", len(results))
	return toHits(results), nil
}

func (s *Service) clampK(k int) int {
	if k <= 0 {
		return s.opts.DefaultK
	}
	return k
}

func (s *Service) guard(ctx context.Context, f func(context.Context) error) error {
	if s.breaker == nil {
		return f(ctx)
	}
	return s.breaker.Call(ctx, f)
}

// toHits maps store results to domain hits, assigning 1-based ranks in the
// store's descending-score order.
func toHits(results []semantic.SearchResult) []domain.SearchHit {
	hits := make([]domain.SearchHit, len(results))
	for i, r := range results {
		hits[i] = domain.SearchHit{
			Label:     r.Str("label"),
			CarType:   r.Str("car_type"),
			FuelType:  r.Str("fuel_type"),
			Info:      r.Str("car_info"),
			ImageURLs: r.Strs("image_urls"),
			Score:     r.Score,
			Rank:      i + 1,
		}
	}
	return hits
}
