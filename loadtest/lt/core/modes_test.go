package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for i, want := range Modes {
		m, err := ParseMode(i + 1)
		require.NoError(t, err)
		assert.Equal(t, want, m)
	}

	for _, bad := range []int{0, 6, -1} {
		_, err := ParseMode(bad)
		var inv *InvalidValueError
		require.True(t, errors.As(err, &inv), "value %d", bad)
		assert.Equal(t, "benchmark mode", inv.Kind)
	}
}

func TestParseModeName(t *testing.T) {
	tests := []struct {
		in   string
		want BenchmarkMode
	}{
		{"cpu", ModeCPUTransform},
		{"GPU", ModeGPUTransform},
		{" compute ", ModeComputeOnly},
		{"render", ModeRenderingOnly},
		{"combined", ModeCombinedStress},
		{"4", ModeRenderingOnly},
	}
	for _, tt := range tests {
		got, err := ParseModeName(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.want, mustParse(t, got.Key()))
	}

	_, err := ParseModeName("turbo")
	assert.Error(t, err)
	_, err = ParseModeName("9")
	assert.Error(t, err)
}

func mustParse(t *testing.T, key string) BenchmarkMode {
	t.Helper()
	m, err := ParseModeName(key)
	require.NoError(t, err)
	return m
}

func TestModeNames(t *testing.T) {
	assert.Equal(t, "CPU Transform Mode", ModeCPUTransform.String())
	assert.Equal(t, "Combined Stress Mode", ModeCombinedStress.String())
	assert.Equal(t, "Unknown Mode", BenchmarkMode(0).String())
	assert.False(t, ModeComputeOnly.Renders())
	assert.True(t, ModeRenderingOnly.Renders())
	assert.False(t, BenchmarkMode(42).Renders())
}

func TestParseStyle(t *testing.T) {
	s, err := ParseStyle(2)
	require.NoError(t, err)
	assert.Equal(t, StyleTextured, s)
	assert.Equal(t, "Textured", s.String())

	s, err = ParseStyleName("LIT")
	require.NoError(t, err)
	assert.Equal(t, StyleLit, s)

	s, err = ParseStyleName("1")
	require.NoError(t, err)
	assert.Equal(t, StyleColored, s)

	_, err = ParseStyle(4)
	assert.EqualError(t, err, "invalid render style: 4")
	_, err = ParseStyleName("wireframe")
	assert.Error(t, err)
}

func TestGPUError(t *testing.T) {
	cause := fmt.Errorf("device lost")
	err := fmt.Errorf("frame 12: %w", SubmissionError("queue submit", cause))

	assert.ErrorIs(t, err, ErrSubmission)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrResourceCreation)

	var gerr *GPUError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, "queue submit", gerr.Op)
	assert.Equal(t, "queue submit: gpu submission failed: device lost", gerr.Error())

	bare := ResourceError("create buffer", nil)
	assert.ErrorIs(t, bare, ErrResourceCreation)
	assert.Equal(t, "create buffer: gpu resource creation failed", bare.Error())
	assert.ErrorIs(t, PlatformError("request adapter", cause), ErrUnsupportedPlatform)
}
