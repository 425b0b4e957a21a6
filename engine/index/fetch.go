package index

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/time/rate"

	"github.com/CarSeekAI/carseek-mvp/engine/domain"
)

// DefaultMaxImageBytes caps a single fetched image at 20 MiB.
const DefaultMaxImageBytes = 20 << 20

// Fetcher resolves an image locator (http(s) URL or local path) to verified
// image bytes. Remote fetches go through a token-bucket rate limiter so a
// large CSV does not hammer the hosting servers.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	maxBytes int64
}

// NewFetcher creates a Fetcher allowing rps remote requests per second.
func NewFetcher(rps float64, burst int, maxBytes int64) *Fetcher {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 1
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		maxBytes: maxBytes,
	}
}

// Fetch returns the image bytes for locator, verifying they decode as an
// image before handing them to the embedding provider.
func (f *Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		data, err = f.fetchRemote(ctx, locator)
	} else {
		data, err = f.readLocal(locator)
	}
	if err != nil {
		return nil, err
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("index: decode image %s: %w", locator, err)
	}
	return data, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("index: build request %s: %w", url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("index: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index: fetch %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("index: read %s: %w", url, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("index: %s: %w", url, domain.ErrImageTooLarge)
	}
	return data, nil
}

func (f *Fetcher) readLocal(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("index: stat %s: %w", path, err)
	}
	if info.Size() > f.maxBytes {
		return nil, fmt.Errorf("index: %s: %w", path, domain.ErrImageTooLarge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("index: read %s: %w", path, err)
	}
	return data, nil
}
