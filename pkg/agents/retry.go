package agents

import (
	"context"
	"time"

	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

// withRetry runs attempt up to maxRetries+1 times on transient or
// validation-retry failures, with exponential backoff (base 500ms, factor
// 2) [orig §4.4, §4.5]. A permanent failure bubbles up immediately. A
// validation failure that is still unresolved after the retry budget
// becomes permanent(invariant); any other transient failure that is still
// unresolved bubbles up unchanged as transient.
func withRetry(ctx context.Context, maxRetries int, attempt func(ctx context.Context) (map[string]any, error)) (map[string]any, error) {
	backoff := 500 * time.Millisecond
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		out, err := attempt(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		kind, ok := taxonomy.KindOf(err)
		if !ok || kind.IsPermanent() {
			return nil, err
		}

		if i == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	kind, _ := taxonomy.KindOf(lastErr)
	if kind == taxonomy.KindValidationRetry {
		return nil, taxonomy.Wrap(taxonomy.KindInvariant, "stage output failed validation after internal retries", lastErr)
	}
	return nil, lastErr
}
