package embed

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/CarSeekAI/carseek-mvp/engine/domain"
)

// CLIPClient implements ImageEmbedder against a CLIP embedding HTTP service.
// The service accepts base64-encoded image bytes and returns one vector.
type CLIPClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewCLIPClient creates a CLIP image embedding client.
func NewCLIPClient(baseURL, model string) *CLIPClient {
	return &CLIPClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type clipEmbedReq struct {
	Model string `json:"model,omitempty"`
	Image string `json:"image"` // base64-encoded bytes
}

type clipEmbedResp struct {
	Embedding []float64 `json:"embedding"`
}

// EmbedImage computes one image embedding.
func (c *CLIPClient) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	if len(image) == 0 {
		return nil, domain.ErrEmptyImage
	}

	body, _ := json.Marshal(clipEmbedReq{
		Model: c.model,
		Image: base64.StdEncoding.EncodeToString(image),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed/image", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: clip: %v: %w", err, domain.ErrProvider)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: clip status %d: %w", resp.StatusCode, domain.ErrProvider)
	}

	var result clipEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embed: clip decode: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("embed: clip returned empty embedding: %w", domain.ErrProvider)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}
