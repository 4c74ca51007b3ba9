package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationIDs(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	ctx = WithRunID(ctx, "run-9")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "run-9", RunIDFromContext(ctx))
	assert.Empty(t, RunIDFromContext(context.Background()))
	assert.Empty(t, RequestIDFromContext(nil))
}
