package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_Stdout(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Environment: "test"}, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampleRatio(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 1},
		{-2, 1},
		{0.25, 0.25},
		{3, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sampleRatio(tt.in))
	}
}
