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

// OpenAILike calls an OpenAI-compatible chat-completions HTTP endpoint.
// No example repo in the retrieval pack declares a provider SDK dependency
// for any LLM backend, so this talks to the wire format directly over
// net/http rather than wrapping a third-party client library [see DESIGN.md].
type OpenAILike struct {
	httpClient *http.Client
	cfg        *config.LLMProviderConfig
	apiKey     string
}

// NewOpenAILike builds an adapter reading its API key from cfg.APIKeyEnv.
func NewOpenAILike(cfg *config.LLMProviderConfig) (*OpenAILike, error) {
	return &OpenAILike{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		cfg:        cfg,
		apiKey:     os.Getenv(cfg.APIKeyEnv),
	}, nil
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model     string              `json:"model"`
	Messages  []openAIChatMessage `json:"messages"`
	MaxTokens int                 `json:"max_tokens"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAILike) Generate(ctx context.Context, in GenerateInput) (GenerateOutput, error) {
	reqBody := openAIChatRequest{
		Model:     o.cfg.Model,
		MaxTokens: effectiveMaxTokens(in.MaxTokens, o.cfg.MaxOutputTokens),
	}
	if in.System != "" {
		reqBody.Messages = append(reqBody.Messages, openAIChatMessage{Role: "system", Content: in.System})
	}
	for _, m := range in.Messages {
		reqBody.Messages = append(reqBody.Messages, openAIChatMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return GenerateOutput{}, classifyHTTPErr(0, err)
	}

	url := o.cfg.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return GenerateOutput{}, classifyHTTPErr(0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return GenerateOutput{}, classifyHTTPErr(0, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		var errBody openAIErrorBody
		_ = json.Unmarshal(body, &errBody)
		msg := errBody.Error.Message
		if msg == "" {
			msg = string(body)
		}
		return GenerateOutput{}, classifyHTTPErr(resp.StatusCode, fmt.Errorf("openai-like provider returned %d: %s", resp.StatusCode, msg))
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return GenerateOutput{}, classifyHTTPErr(0, err)
	}
	if len(parsed.Choices) == 0 {
		return GenerateOutput{}, classifyHTTPErr(0, fmt.Errorf("openai-like provider returned no choices"))
	}

	return GenerateOutput{
		Content: parsed.Choices[0].Message.Content,
		Usage:   Usage{InputTokens: parsed.Usage.PromptTokens, OutputTokens: parsed.Usage.CompletionTokens},
	}, nil
}

func (o *OpenAILike) Capabilities() Capabilities {
	return Capabilities{SupportsPromptCache: o.cfg.SupportsPromptCache, MaxContextTokens: o.cfg.MaxContextTokens}
}

func (o *OpenAILike) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}
