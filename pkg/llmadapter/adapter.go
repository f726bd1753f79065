// Package llmadapter provides a uniform generation interface over multiple
// LLM provider families. Each variant (anthropic-like, openai-like,
// gemini-like) implements Adapter identically; callers never branch on
// provider type.
package llmadapter

import "context"

// Message is a single turn in the conversation sent to the provider.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// GenerateInput is a single generation request.
type GenerateInput struct {
	Messages  []Message
	System    string
	CacheHint bool // marks System as cacheable; ignored by adapters that don't support it
	MaxTokens int  // 0 means use the provider's configured default
}

// Usage reports token accounting for a single generation call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// GenerateOutput is the result of a single generation call.
type GenerateOutput struct {
	Content string
	Usage   Usage
}

// Capabilities describes what an Adapter supports, independent of any
// single call. Callers MUST NOT exceed MaxContextTokens; they truncate the
// oldest prior context first when they would.
type Capabilities struct {
	SupportsPromptCache bool
	MaxContextTokens    int
}

// Adapter generates text from a provider. Errors are always a
// *taxonomy.Error classified per the stage failure taxonomy [orig §4.5].
type Adapter interface {
	Generate(ctx context.Context, in GenerateInput) (GenerateOutput, error)
	Capabilities() Capabilities
	Close() error
}
