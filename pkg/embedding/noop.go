package embedding

import "context"

// Noop is used when EmbeddingConfig.Backend is "none" or unrecognized. It
// always errors so the caller (pkg/semanticcache) downgrades to a miss,
// matching the "tolerates backend absence" contract.
type Noop struct{}

func (Noop) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errEmbeddingDisabled
}

func (Noop) Dimension() int { return 0 }

func (Noop) Close() error { return nil }
