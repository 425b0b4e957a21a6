// Package index implements the two offline indexers: one pass over a car
// catalog per modality, computing embeddings and appending rows into the
// matching vector store collection. A row that cannot be embedded is skipped
// and counted, never fatal; a run indexing zero rows is a failure.
package index

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/CarSeekAI/carseek-mvp/engine/domain"
	"github.com/CarSeekAI/carseek-mvp/engine/semantic"
	"github.com/CarSeekAI/carseek-mvp/pkg/fn"
)

// Mode controls what happens to an existing collection on re-indexing.
type Mode string

const (
	// ModeAppend keeps the collection and upserts into it. Point IDs are
	// deterministic, so re-running the same CSV overwrites in place.
	ModeAppend Mode = "append"
	// ModeReplace drops and recreates the collection before indexing.
	ModeReplace Mode = "replace"
)

// ParseMode validates a mode flag value.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAppend, ModeReplace:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("index: mode %q: %w", s, domain.ErrUnsupportedMode)
	}
}

// Stats reports the outcome of one indexing run.
// Invariant: Indexed + Skipped == Total.
type Stats struct {
	Total   int
	Indexed int
	Skipped int
}

// Store is the slice of the vector store the indexers need.
type Store interface {
	EnsureCollection(ctx context.Context, dims int) error
	Recreate(ctx context.Context, dims int) error
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Options configures an indexing run.
type Options struct {
	BatchSize int
	Mode      Mode
	Retry     fn.RetryOpts
	// OnRow, if set, is called after each source row is resolved (for
	// progress reporting).
	OnRow func(done, total int)
}

// DefaultOptions returns the defaults used by the CLIs.
func DefaultOptions() Options {
	return Options{
		BatchSize: 32,
		Mode:      ModeAppend,
		Retry:     fn.DefaultRetry,
	}
}

func (o *Options) normalize() {
	if o.BatchSize <= 0 {
		o.BatchSize = 32
	}
	if o.Mode == "" {
		o.Mode = ModeAppend
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = fn.DefaultRetry
	}
}

// pointID derives a deterministic UUID for one indexed vector, so append-mode
// re-runs upsert instead of duplicating.
func pointID(label, locator string, row int) string {
	key := fmt.Sprintf("%s|%s|%d", label, locator, row)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// collectionPrep ensures (or recreates) the collection exactly once per run,
// lazily, with the dimensionality of the first computed vector.
type collectionPrep struct {
	store Store
	mode  Mode
	done  bool
}

func (p *collectionPrep) ensure(ctx context.Context, dims int) error {
	if p.done {
		return nil
	}
	var err error
	if p.mode == ModeReplace {
		err = p.store.Recreate(ctx, dims)
	} else {
		err = p.store.EnsureCollection(ctx, dims)
	}
	if err != nil {
		return err
	}
	p.done = true
	return nil
}
