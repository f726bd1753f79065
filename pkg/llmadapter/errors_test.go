package llmadapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
)

func TestClassifyGRPCErrMapsResourceExhaustedToRateLimited(t *testing.T) {
	err := classifyGRPCErr(status.Error(codes.ResourceExhausted, "slow down"))
	kind, ok := taxonomy.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, taxonomy.KindRateLimited, kind)
}

func TestClassifyGRPCErrMapsUnavailableToNetwork(t *testing.T) {
	err := classifyGRPCErr(status.Error(codes.Unavailable, "down"))
	kind, ok := taxonomy.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, taxonomy.KindNetwork, kind)
}

func TestClassifyGRPCErrMapsContextDeadlineToTimeout(t *testing.T) {
	err := classifyGRPCErr(context.DeadlineExceeded)
	kind, ok := taxonomy.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, taxonomy.KindTimeout, kind)
}

func TestClassifyGRPCErrMapsUnexpectedCodeToInvariant(t *testing.T) {
	err := classifyGRPCErr(status.Error(codes.InvalidArgument, "bad request"))
	kind, ok := taxonomy.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, taxonomy.KindInvariant, kind)
}

func TestClassifyHTTPErrMapsStatusCodes(t *testing.T) {
	kind, ok := taxonomy.KindOf(classifyHTTPErr(429, errors.New("rate limited")))
	assert.True(t, ok)
	assert.Equal(t, taxonomy.KindRateLimited, kind)

	kind, ok = taxonomy.KindOf(classifyHTTPErr(503, errors.New("server error")))
	assert.True(t, ok)
	assert.Equal(t, taxonomy.KindNetwork, kind)

	kind, ok = taxonomy.KindOf(classifyHTTPErr(400, errors.New("bad request")))
	assert.True(t, ok)
	assert.Equal(t, taxonomy.KindInvariant, kind)
}

func TestClassifyHTTPErrTransportErrorIsNetwork(t *testing.T) {
	kind, ok := taxonomy.KindOf(classifyHTTPErr(0, errors.New("connection refused")))
	assert.True(t, ok)
	assert.Equal(t, taxonomy.KindNetwork, kind)
}
