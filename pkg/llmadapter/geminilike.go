package llmadapter

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
)

// GeminiLike calls a Gemini-compatible generateContent HTTP endpoint, the
// same justification as OpenAILike applies: no provider SDK exists
// anywhere in the retrieval pack [see DESIGN.md].
type GeminiLike struct {
	httpClient *http.Client
	cfg        *config.LLMProviderConfig
	apiKey     string
}

// NewGeminiLike builds an adapter reading its API key from cfg.APIKeyEnv.
func NewGeminiLike(cfg *config.LLMProviderConfig) (*GeminiLike, error) {
	return &GeminiLike{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		cfg:        cfg,
		apiKey:     os.Getenv(cfg.APIKeyEnv),
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerateRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		MaxOutputTokens int `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// geminiRole maps this package's role vocabulary to Gemini's, which only
// recognizes "user" and "model".
func geminiRole(role string) string {
	if role == "assistant" {
		return "model"
	}
	return "user"
}

func (g *GeminiLike) Generate(ctx context.Context, in GenerateInput) (GenerateOutput, error) {
	reqBody := geminiGenerateRequest{}
	reqBody.GenerationConfig.MaxOutputTokens = effectiveMaxTokens(in.MaxTokens, g.cfg.MaxOutputTokens)
	if in.System != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: in.System}}}
	}
	for _, m := range in.Messages {
		reqBody.Contents = append(reqBody.Contents, geminiContent{
			Role:  geminiRole(m.Role),
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return GenerateOutput{}, classifyHTTPErr(0, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.cfg.BaseURL, g.cfg.Model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return GenerateOutput{}, classifyHTTPErr(0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return GenerateOutput{}, classifyHTTPErr(0, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return GenerateOutput{}, classifyHTTPErr(resp.StatusCode, fmt.Errorf("gemini-like provider returned %d: %s", resp.StatusCode, string(body)))
	}

	var parsed geminiGenerateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return GenerateOutput{}, classifyHTTPErr(0, err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return GenerateOutput{}, classifyHTTPErr(0, fmt.Errorf("gemini-like provider returned no candidates"))
	}

	return GenerateOutput{
		Content: parsed.Candidates[0].Content.Parts[0].Text,
		Usage: Usage{
			InputTokens:  parsed.UsageMetadata.PromptTokenCount,
			OutputTokens: parsed.UsageMetadata.CandidatesTokenCount,
		},
	}, nil
}

func (g *GeminiLike) Capabilities() Capabilities {
	return Capabilities{SupportsPromptCache: g.cfg.SupportsPromptCache, MaxContextTokens: g.cfg.MaxContextTokens}
}

func (g *GeminiLike) Close() error {
	g.httpClient.CloseIdleConnections()
	return nil
}
