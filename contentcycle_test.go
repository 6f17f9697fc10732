package contentcycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/contentcycle/service"
	"github.com/BaSui01/contentcycle/types"
)

func TestNewDefaultsToMockMode(t *testing.T) {
	svc, err := New()
	require.NoError(t, err)

	ctx := context.Background()

	personas, err := svc.ListPersonas(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, personas, "builtin personas should be seeded")

	state, err := svc.CreateContent(ctx, service.CreateContentRequest{
		OriginalInput: "hello world",
		TargetRating:  8,
		MaxCycles:     3,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusDraft, state.Cycle.Status)

	state, err = svc.RunFocusGroup(ctx, state.Content.ID, service.RunFocusGroupOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.StatusFocusGroupComplete, state.Cycle.Status)
	assert.Equal(t, types.AIModeMock, state.Cycle.AIMode)
}
