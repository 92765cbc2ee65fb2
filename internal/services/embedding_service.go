// internal/services/embedding_service.go
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"time"

	"gonum.org/v1/gonum/floats"
)

// EmbeddingExtractor produces a normalized feature vector for an image.
// The dedup funnel compares vectors by cosine similarity.
type EmbeddingExtractor interface {
	Extract(ctx context.Context, imageData []byte) ([]float64, error)
}

// CosineSimilarity between two vectors; zero when either has no norm or
// the dimensions disagree.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}

	return floats.Dot(a, b) / (na * nb)
}

func normalizeVector(v []float64) []float64 {
	norm := floats.Norm(v, 2)
	if norm > 0 {
		floats.Scale(1/norm, v)
	}
	return v
}

// HTTPExtractor calls an external inference endpoint that returns CLIP
// style embeddings.
type HTTPExtractor struct {
	url    string
	client *http.Client
}

func NewHTTPExtractor(url string) *HTTPExtractor {
	return &HTTPExtractor{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *HTTPExtractor) Extract(ctx context.Context, imageData []byte) ([]float64, error) {
	body, err := json.Marshal(map[string]string{
		"image": base64.StdEncoding.EncodeToString(imageData),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned %d", resp.StatusCode)
	}

	var out struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned empty vector")
	}

	return normalizeVector(out.Embedding), nil
}

// HistogramExtractor is the local fallback used in demo mode and tests:
// a 64-bin luminance histogram, deterministic for identical pixels.
type HistogramExtractor struct{}

func NewHistogramExtractor() *HistogramExtractor {
	return &HistogramExtractor{}
}

func (e *HistogramExtractor) Extract(_ context.Context, imageData []byte) ([]float64, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	const bins = 64
	hist := make([]float64, bins)

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// Rec. 601 luma, 16-bit channels scaled down to bin index.
			luma := (299*r + 587*g + 114*b) / 1000
			idx := int(luma * bins / 65536)
			if idx >= bins {
				idx = bins - 1
			}
			hist[idx]++
		}
	}

	return normalizeVector(hist), nil
}

// NewEmbeddingExtractor picks the HTTP extractor when an endpoint is
// configured, the local histogram otherwise.
func NewEmbeddingExtractor(url string) EmbeddingExtractor {
	if url != "" {
		return NewHTTPExtractor(url)
	}
	return NewHistogramExtractor()
}
