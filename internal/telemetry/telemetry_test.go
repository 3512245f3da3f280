package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/qdrantd/internal/telemetry"
)

func TestSetupDisabled(t *testing.T) {
	ctx := context.Background()

	p, err := telemetry.Setup(ctx, telemetry.Config{Enabled: false}, nil)
	require.NoError(t, err)
	require.NotNil(t, p)

	// Shutdown on a disabled provider is a no-op.
	assert.NoError(t, p.Shutdown(ctx))
}

func TestSetupRequiresEndpoint(t *testing.T) {
	_, err := telemetry.Setup(context.Background(), telemetry.Config{Enabled: true}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint required")
}
