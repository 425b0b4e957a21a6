package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CarSeekAI/carseek-mvp/engine/domain"
	"github.com/CarSeekAI/carseek-mvp/engine/semantic"
	"github.com/CarSeekAI/carseek-mvp/pkg/embed"
	"github.com/CarSeekAI/carseek-mvp/pkg/fn"
)

// ImageIndexer resolves each record's image locators to bytes, embeds them,
// and writes them into the image collection. One source row may yield several
// points (one per locator); the row counts as indexed if at least one of its
// images made it in.
type ImageIndexer struct {
	embedder embed.ImageEmbedder
	fetcher  *Fetcher
	store    Store
	opts     Options
	log      *slog.Logger
}

// NewImageIndexer creates an image indexer.
func NewImageIndexer(embedder embed.ImageEmbedder, fetcher *Fetcher, store Store, opts Options, log *slog.Logger) *ImageIndexer {
	if log == nil {
		log = slog.Default()
	}
	if fetcher == nil {
		fetcher = NewFetcher(0, 0, 0)
	}
	opts.normalize()
	return &ImageIndexer{embedder: embedder, fetcher: fetcher, store: store, opts: opts, log: log}
}

// Run indexes all records. An image that cannot be fetched, decoded, or
// embedded is skipped with a warning; the run only fails outright on vector
// store write errors or when nothing at all was indexed.
func (ix *ImageIndexer) Run(ctx context.Context, records []domain.CarRecord) (Stats, error) {
	stats := Stats{Total: len(records)}
	prep := &collectionPrep{store: ix.store, mode: ix.opts.Mode}

	// fetch then embed, with retry around the provider call only.
	fetchStage := fn.TracedStage("index.fetch", func(ctx context.Context, locator string) fn.Result[[]byte] {
		return fn.FromPair(ix.fetcher.Fetch(ctx, locator))
	})
	embedStage := fn.TracedStage("index.embed", fn.RetryStage(ix.opts.Retry,
		func(ctx context.Context, data []byte) fn.Result[[]float32] {
			return fn.FromPair(ix.embedder.EmbedImage(ctx, data))
		}))
	pipeline := fn.Then(fetchStage, embedStage)

	var points []semantic.VectorRecord
	flush := func() error {
		if len(points) == 0 {
			return nil
		}
		if err := ix.store.Upsert(ctx, points); err != nil {
			return fmt.Errorf("index: image upsert: %w", err)
		}
		points = points[:0]
		return nil
	}

	for done, r := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		stored := 0
		if err := domain.ValidateImageRecord(r); err != nil {
			ix.log.Warn("skipping row", "row", r.Row, "error", err)
		} else {
			for _, locator := range r.ImageURLs {
				vector, err := pipeline(ctx, locator).Unwrap()
				if err != nil {
					ix.log.Warn("skipping image", "row", r.Row, "locator", locator, "error", err)
					continue
				}
				if err := prep.ensure(ctx, len(vector)); err != nil {
					return stats, err
				}
				points = append(points, semantic.VectorRecord{
					ID:     pointID(r.Label, locator, r.Row),
					Vector: vector,
					Payload: map[string]any{
						"label":      r.Label,
						"car_info":   r.Info,
						"image_url":  locator,
						"image_urls": r.ImageURLs,
						"row":        r.Row,
					},
				})
				stored++
			}
		}

		if stored > 0 {
			stats.Indexed++
		} else {
			stats.Skipped++
		}
		if len(points) >= ix.opts.BatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
		if ix.opts.OnRow != nil {
			ix.opts.OnRow(done+1, stats.Total)
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}

	if stats.Indexed == 0 {
		return stats, fmt.Errorf("index: image run over %d rows: %w", stats.Total, domain.ErrNothingIndexed)
	}
	ix.log.Info("image indexing done", "total", stats.Total, "indexed", stats.Indexed, "skipped", stats.Skipped)
	return stats, nil
}
