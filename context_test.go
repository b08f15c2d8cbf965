package sessionx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindState(t *testing.T) {
	_, ok := StateFromContext(context.Background())
	assert.False(t, ok)
	_, ok = IdentityFromContext(context.Background())
	assert.False(t, ok)

	id := &Identity{Nickname: "bob"}
	ctx := BindState(context.Background(), State{IsAuthenticated: true, Identity: id})
	id.Nickname = "changed"

	state, ok := StateFromContext(ctx)
	require.True(t, ok)
	assert.True(t, state.IsAuthenticated)

	got, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "bob", got.Nickname)

	anon := BindState(context.Background(), State{})
	_, ok = IdentityFromContext(anon)
	assert.False(t, ok)
}
