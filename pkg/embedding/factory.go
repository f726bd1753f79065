package embedding

import "github.com/codeready-toolchain/thoughtflow/pkg/config"

// New builds the Adapter matching cfg.Backend. An unrecognized or "none"
// backend yields Noop, disabling the semantic cache rather than failing.
func New(cfg *config.EmbeddingConfig) Adapter {
	switch cfg.Backend {
	case "http":
		return NewHTTPBackend(cfg, cfg.BaseURL)
	default:
		return Noop{}
	}
}
