package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/codeready-toolchain/thoughtflow/pkg/config"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

// HTTPBackend calls an OpenAI-compatible embeddings endpoint. As with
// pkg/llmadapter's openai-like/gemini-like backends, no example repo
// declares an embedding SDK dependency, so this speaks the wire format
// directly [see DESIGN.md].
type HTTPBackend struct {
	httpClient *http.Client
	cfg        *config.EmbeddingConfig
	apiKey     string
	baseURL    string
}

// NewHTTPBackend builds an embedding adapter reading its key from
// cfg.APIKeyEnv. baseURL is the embeddings endpoint root, e.g.
// "https://example.test/v1".
func NewHTTPBackend(cfg *config.EmbeddingConfig, baseURL string) *HTTPBackend {
	return &HTTPBackend{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cfg:        cfg,
		apiKey:     os.Getenv(cfg.APIKeyEnv),
		baseURL:    baseURL,
	}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (h *HTTPBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embeddingRequest{Model: h.cfg.Model, Input: text})
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.KindCacheUnavailable, "marshal embedding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.KindCacheUnavailable, "build embedding request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.KindCacheUnavailable, "embedding request failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, taxonomy.New(taxonomy.KindCacheUnavailable, fmt.Sprintf("embedding provider returned %d: %s", resp.StatusCode, string(body)))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, taxonomy.Wrap(taxonomy.KindCacheUnavailable, "decode embedding response", err)
	}
	if len(parsed.Data) == 0 {
		return nil, taxonomy.New(taxonomy.KindCacheUnavailable, "embedding provider returned no vectors")
	}

	vec := parsed.Data[0].Embedding
	if len(vec) != h.cfg.Dimension {
		return nil, taxonomy.New(taxonomy.KindCacheUnavailable, fmt.Sprintf("embedding dimension mismatch: got %d, want %d", len(vec), h.cfg.Dimension))
	}
	return vec, nil
}

func (h *HTTPBackend) Dimension() int { return h.cfg.Dimension }

func (h *HTTPBackend) Close() error {
	h.httpClient.CloseIdleConnections()
	return nil
}
