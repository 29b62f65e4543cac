package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestAndActorRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, " req-1 ")
	ctx = WithActor(ctx, "sales_rep", "42")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	role, id := ActorFromContext(ctx)
	assert.Equal(t, "sales_rep", role)
	assert.Equal(t, "42", id)
}
