package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/CarSeekAI/carseek-mvp/engine/domain"
	"github.com/CarSeekAI/carseek-mvp/engine/semantic"
	"github.com/CarSeekAI/carseek-mvp/pkg/resilience"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Fakes ---

type fakeTextEmbedder struct {
	calls int
	err   error
}

func (f *fakeTextEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeTextEmbedder) EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.EmbedText(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type fakeImageEmbedder struct {
	calls int
	err   error
}

func (f *fakeImageEmbedder) EmbedImage(_ context.Context, data []byte) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(data))}, nil
}

// fakeSearcher returns min(k, len(rows)) of its canned rows, in order.
type fakeSearcher struct {
	rows []semantic.SearchResult
	gotK int
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, k int) ([]semantic.SearchResult, error) {
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	if k > len(f.rows) {
		k = len(f.rows)
	}
	return f.rows[:k], nil
}

func innovaRow() semantic.SearchResult {
	return semantic.SearchResult{
		ID:    "id-1",
		Score: 0.97,
		Payload: map[string]any{
			"label":      "Toyota Innova",
			"car_type":   "SUV",
			"fuel_type":  "Diesel",
			"car_info":   "A 7-seater SUV with diesel engine",
			"image_urls": []string{"https://example.com/innova.jpg"},
		},
	}
}

func newService(texts, images Searcher, te *fakeTextEmbedder, ie *fakeImageEmbedder, b *resilience.Breaker) *Service {
	if te == nil {
		te = &fakeTextEmbedder{}
	}
	if ie == nil {
		ie = &fakeImageEmbedder{}
	}
	return New(te, ie, texts, images, b, Options{DefaultK: 5, Timeout: time.Second}, testLogger())
}

// --- Tests ---

func TestSearchByText_TopResult(t *testing.T) {
	texts := &fakeSearcher{rows: []semantic.SearchResult{innovaRow()}}
	svc := newService(texts, &fakeSearcher{}, nil, nil, nil)

	hits, err := svc.SearchByText(context.Background(), "7 seater diesel SUV", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	h := hits[0]
	if h.Label != "Toyota Innova" || h.Info != "A 7-seater SUV with diesel engine" {
		t.Fatalf("bad hit: %+v", h)
	}
	if h.Rank != 1 || h.Score != 0.97 {
		t.Fatalf("bad rank/score: %+v", h)
	}
	if texts.gotK != 1 {
		t.Fatalf("expected k=1 passed to store, got %d", texts.gotK)
	}
}

func TestSearchByText_RejectsBlankBeforeEmbedding(t *testing.T) {
	te := &fakeTextEmbedder{}
	svc := newService(&fakeSearcher{}, &fakeSearcher{}, te, nil, nil)

	for _, q := range []string{"", "   ", "\t\n"} {
		if _, err := svc.SearchByText(context.Background(), q, 3); !errors.Is(err, domain.ErrEmptyQuery) {
			t.Fatalf("query %q: expected ErrEmptyQuery, got %v", q, err)
		}
	}
	if te.calls != 0 {
		t.Fatalf("embedder must not be called for blank queries, got %d calls", te.calls)
	}
}

func TestSearchByText_DefaultK(t *testing.T) {
	texts := &fakeSearcher{}
	svc := newService(texts, &fakeSearcher{}, nil, nil, nil)

	if _, err := svc.SearchByText(context.Background(), "suv", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if texts.gotK != 5 {
		t.Fatalf("expected default k=5, got %d", texts.gotK)
	}
}

func TestSearchByText_EmptyCollection(t *testing.T) {
	svc := newService(&fakeSearcher{}, &fakeSearcher{}, nil, nil, nil)
	hits, err := svc.SearchByText(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("empty collection should not error: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}

func TestSearchByText_AtMostK(t *testing.T) {
	rows := []semantic.SearchResult{innovaRow(), innovaRow(), innovaRow()}
	texts := &fakeSearcher{rows: rows}
	svc := newService(texts, &fakeSearcher{}, nil, nil, nil)

	hits, err := svc.SearchByText(context.Background(), "suv", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) > 2 {
		t.Fatalf("expected at most 2 hits, got %d", len(hits))
	}
	for i, h := range hits {
		if h.Rank != i+1 {
			t.Fatalf("ranks must be 1-based and ordered: %+v", hits)
		}
	}
}

func TestSearchByText_ProviderError(t *testing.T) {
	te := &fakeTextEmbedder{err: domain.ErrProvider}
	svc := newService(&fakeSearcher{}, &fakeSearcher{}, te, nil, nil)

	_, err := svc.SearchByText(context.Background(), "suv", 3)
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestSearchByText_BreakerOpens(t *testing.T) {
	te := &fakeTextEmbedder{err: domain.ErrProvider}
	breaker := resilience.NewBreaker(resilience.BreakerOpts{FailThreshold: 2, Timeout: time.Minute, HalfOpenMax: 1})
	svc := newService(&fakeSearcher{}, &fakeSearcher{}, te, nil, breaker)

	ctx := context.Background()
	svc.SearchByText(ctx, "a", 1)
	svc.SearchByText(ctx, "b", 1)

	_, err := svc.SearchByText(ctx, "c", 1)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if te.calls != 2 {
		t.Fatalf("open breaker must stop provider calls, got %d", te.calls)
	}
}

func TestSearchByImage(t *testing.T) {
	images := &fakeSearcher{rows: []semantic.SearchResult{innovaRow()}}
	svc := newService(&fakeSearcher{}, images, nil, nil, nil)

	hits, err := svc.SearchByImage(context.Background(), []byte{1, 2, 3}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].Label != "Toyota Innova" {
		t.Fatalf("bad hits: %+v", hits)
	}
}

func TestSearchByImage_RejectsEmpty(t *testing.T) {
	ie := &fakeImageEmbedder{}
	svc := newService(&fakeSearcher{}, &fakeSearcher{}, nil, ie, nil)

	if _, err := svc.SearchByImage(context.Background(), nil, 3); !errors.Is(err, domain.ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
	if ie.calls != 0 {
		t.Fatal("embedder must not be called for empty payload")
	}
}

func TestSearchByImage_StoreError(t *testing.T) {
	images := &fakeSearcher{err: errors.New("unavailable")}
	svc := newService(&fakeSearcher{}, images, nil, nil, nil)

	if _, err := svc.SearchByImage(context.Background(), []byte{1}, 3); err == nil {
		t.Fatal("expected error")
	}
}
