package llmadapter

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/codeready-toolchain/thoughtflow/pkg/config"
	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
	llmv1 "github.com/codeready-toolchain/thoughtflow/proto/llmv1"
)

// AnthropicLike calls the anthropic-like provider over gRPC. Uses insecure
// (plaintext) transport — the provider is expected to run as a sidecar or
// on localhost; a network-boundary deployment must upgrade to TLS.
type AnthropicLike struct {
	conn   *grpc.ClientConn
	client llmv1.LLMServiceClient
	cfg    *config.LLMProviderConfig
}

// NewAnthropicLike dials the provider's gRPC target.
func NewAnthropicLike(cfg *config.LLMProviderConfig) (*AnthropicLike, error) {
	conn, err := grpc.NewClient(cfg.GRPCTarget, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial anthropic-like provider %s: %w", cfg.GRPCTarget, err)
	}
	return &AnthropicLike{conn: conn, client: llmv1.NewLLMServiceClient(conn), cfg: cfg}, nil
}

func (a *AnthropicLike) Generate(ctx context.Context, in GenerateInput) (GenerateOutput, error) {
	req := &llmv1.GenerateRequest{
		System:    in.System,
		CacheHint: in.CacheHint && a.cfg.SupportsPromptCache,
		MaxTokens: int32(effectiveMaxTokens(in.MaxTokens, a.cfg.MaxOutputTokens)),
	}
	for _, m := range in.Messages {
		req.Messages = append(req.Messages, &llmv1.ConversationMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := a.client.Generate(ctx, req)
	if err != nil {
		return GenerateOutput{}, classifyGRPCErr(err)
	}

	return GenerateOutput{
		Content: resp.Content,
		Usage:   Usage{InputTokens: int(resp.InputTokens), OutputTokens: int(resp.OutputTokens)},
	}, nil
}

func (a *AnthropicLike) Capabilities() Capabilities {
	return Capabilities{SupportsPromptCache: a.cfg.SupportsPromptCache, MaxContextTokens: a.cfg.MaxContextTokens}
}

func (a *AnthropicLike) Close() error {
	return a.conn.Close()
}

func effectiveMaxTokens(requested, configured int) int {
	if requested > 0 && requested < configured {
		return requested
	}
	return configured
}
