package llmadapter

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

// classifyGRPCErr maps a gRPC status code to the stage failure taxonomy
// [orig §4.5]. Anything not explicitly transient is permanent/invariant —
// an unexpected provider failure should surface, not silently retry forever.
func classifyGRPCErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return taxonomy.Wrap(taxonomy.KindTimeout, "LLM call deadline exceeded", err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return taxonomy.Wrap(taxonomy.KindNetwork, "LLM call transport error", err)
	}

	switch st.Code() {
	case codes.DeadlineExceeded:
		return taxonomy.Wrap(taxonomy.KindTimeout, "LLM call deadline exceeded", err)
	case codes.Unavailable, codes.Aborted:
		return taxonomy.Wrap(taxonomy.KindNetwork, "LLM provider unavailable", err)
	case codes.ResourceExhausted:
		return taxonomy.Wrap(taxonomy.KindRateLimited, "LLM provider rate limited", err)
	default:
		return taxonomy.Wrap(taxonomy.KindInvariant, "LLM call failed", err)
	}
}

// classifyHTTPErr maps an HTTP-transport LLM call failure to the stage
// failure taxonomy for the openai-like and gemini-like adapters.
func classifyHTTPErr(statusCode int, err error) error {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return taxonomy.Wrap(taxonomy.KindTimeout, "LLM HTTP call deadline exceeded", err)
		}
		return taxonomy.Wrap(taxonomy.KindNetwork, "LLM HTTP call transport error", err)
	}
	switch {
	case statusCode == 429:
		return taxonomy.New(taxonomy.KindRateLimited, "LLM provider rate limited")
	case statusCode >= 500:
		return taxonomy.New(taxonomy.KindNetwork, "LLM provider server error")
	default:
		return taxonomy.New(taxonomy.KindInvariant, "LLM provider rejected request")
	}
}
