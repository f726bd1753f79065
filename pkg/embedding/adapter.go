// Package embedding provides a pluggable text-embedding adapter. A nil or
// "none"-backed Adapter disables the semantic cache entirely rather than
// failing the pipeline [orig §2, §4.8].
package embedding

import "context"

// Adapter embeds a single piece of text into a fixed-dimension vector.
type Adapter interface {
	// Embed returns a vector of length Dimension(). Errors are always a
	// *taxonomy.Error; callers in pkg/semanticcache swallow them to a miss.
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Close() error
}
