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

// TextIndexer embeds car descriptions and writes them into the text
// collection.
type TextIndexer struct {
	embedder embed.TextEmbedder
	store    Store
	opts     Options
	log      *slog.Logger
}

// NewTextIndexer creates a text indexer.
func NewTextIndexer(embedder embed.TextEmbedder, store Store, opts Options, log *slog.Logger) *TextIndexer {
	if log == nil {
		log = slog.Default()
	}
	opts.normalize()
	return &TextIndexer{embedder: embedder, store: store, opts: opts, log: log}
}

// Run indexes all records. Rows that fail validation or embedding are
// skipped with a warning; vector store write failures abort the run. A run
// with zero indexed rows returns ErrNothingIndexed.
func (ix *TextIndexer) Run(ctx context.Context, records []domain.CarRecord) (Stats, error) {
	stats := Stats{Total: len(records)}
	prep := &collectionPrep{store: ix.store, mode: ix.opts.Mode}
	done := 0

	progress := func(n int) {
		done += n
		if ix.opts.OnRow != nil {
			ix.opts.OnRow(done, stats.Total)
		}
	}

	for start := 0; start < len(records); start += ix.opts.BatchSize {
		end := start + ix.opts.BatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		batch := records[start:end]

		// Validate up front so blank rows never reach the provider.
		valid := batch[:0:0]
		for _, r := range batch {
			if err := domain.ValidateTextRecord(r); err != nil {
				ix.log.Warn("skipping row", "row", r.Row, "error", err)
				stats.Skipped++
				progress(1)
				continue
			}
			valid = append(valid, r)
		}
		if len(valid) == 0 {
			continue
		}

		vectors, perRow := ix.embedBatch(ctx, valid)

		points := make([]semantic.VectorRecord, 0, len(valid))
		for i, r := range valid {
			if perRow[i] != nil {
				ix.log.Warn("skipping row", "row", r.Row, "error", perRow[i])
				stats.Skipped++
				progress(1)
				continue
			}
			if err := prep.ensure(ctx, len(vectors[i])); err != nil {
				return stats, err
			}
			points = append(points, semantic.VectorRecord{
				ID:     pointID(r.Label, "text", r.Row),
				Vector: vectors[i],
				Payload: map[string]any{
					"label":      r.Label,
					"car_type":   r.CarType,
					"fuel_type":  r.FuelType,
					"car_info":   r.Info,
					"image_urls": r.ImageURLs,
					"row":        r.Row,
				},
			})
		}

		if len(points) > 0 {
			if err := ix.store.Upsert(ctx, points); err != nil {
				return stats, fmt.Errorf("index: text upsert: %w", err)
			}
			stats.Indexed += len(points)
			progress(len(points))
		}
	}

	if stats.Indexed == 0 {
		return stats, fmt.Errorf("index: text run over %d rows: %w", stats.Total, domain.ErrNothingIndexed)
	}
	ix.log.Info("text indexing done", "total", stats.Total, "indexed", stats.Indexed, "skipped", stats.Skipped)
	return stats, nil
}

// embedBatch embeds one validated batch. The batch call is retried as a
// whole; if it still fails, rows are embedded one by one so a single bad row
// cannot sink its batch. perRow holds the per-row failure, if any.
func (ix *TextIndexer) embedBatch(ctx context.Context, batch []domain.CarRecord) ([][]float32, []error) {
	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = domain.EmbeddingText(r)
	}

	result := fn.Retry(ctx, ix.opts.Retry, func(ctx context.Context) fn.Result[[][]float32] {
		return fn.FromPair(ix.embedder.EmbedTextBatch(ctx, texts))
	})
	perRow := make([]error, len(batch))
	if vectors, err := result.Unwrap(); err == nil {
		return vectors, perRow
	}

	vectors := make([][]float32, len(batch))
	for i, text := range texts {
		r := fn.Retry(ctx, ix.opts.Retry, func(ctx context.Context) fn.Result[[]float32] {
			return fn.FromPair(ix.embedder.EmbedText(ctx, text))
		})
		vectors[i], perRow[i] = r.Unwrap()
	}
	return vectors, perRow
}
