package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(false)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_Enabled(t *testing.T) {
	shutdown, err := InitTracing(true)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
