package embedding

import "github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"

var errEmbeddingDisabled = taxonomy.New(taxonomy.KindCacheUnavailable, "embedding backend disabled")
