package haltest

import (
	"errors"
	"testing"

	"github.com/gekko3d/gpubench/loadtest/lt/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevice_RecordsFrame(t *testing.T) {
	d := NewDevice()
	s := NewSurface(64, 32)

	vb, err := d.CreateBuffer(&hal.BufferDescriptor{Label: "vb", Size: 16, Usage: hal.BufferUsageVertex})
	require.NoError(t, err)
	require.NoError(t, d.Queue().WriteBuffer(vb, 4, []byte{1, 2, 3, 4}))
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 4, 0, 0, 0, 0, 0, 0, 0, 0}, vb.(*Buffer).Data)

	enc, err := d.CreateCommandEncoder("frame")
	require.NoError(t, err)
	view, err := s.AcquireView()
	require.NoError(t, err)

	pass := enc.BeginRenderPass(&hal.RenderPassDescriptor{Label: "main", Color: view})
	pipe, err := d.CreateRenderPipeline(&hal.RenderPipelineDescriptor{Label: "p"})
	require.NoError(t, err)
	pass.SetPipeline(pipe)
	pass.SetVertexBuffer(0, vb)
	pass.DrawIndexed(36, 5)
	require.NoError(t, pass.End())
	assert.Error(t, pass.End())

	cmd, err := enc.Finish()
	require.NoError(t, err)
	require.NoError(t, d.Queue().Submit(cmd))
	s.Present()

	assert.Equal(t, 1, d.RenderPasses)
	assert.Equal(t, 1, d.RenderPipelineBinds)
	require.Len(t, d.Draws, 1)
	assert.Equal(t, uint32(5), d.Draws[0].InstanceCount)
	assert.Same(t, vb.(*Buffer), d.Draws[0].VertexBuffer)
	assert.Equal(t, 1, d.Submits)
	assert.True(t, cmd.(*CommandBuffer).Submitted)
	assert.Equal(t, 1, s.Presents)
	assert.Contains(t, d.Log, "draw_indexed 36x5")
}

func TestDevice_FailureInjection(t *testing.T) {
	d := NewDevice()
	boom := errors.New("boom")

	d.Fail(OpCreateBuffer, boom)
	_, err := d.CreateBuffer(&hal.BufferDescriptor{Label: "x", Size: 4})
	assert.ErrorIs(t, err, boom)

	d.Fail(OpCreateBuffer, nil)
	buf, err := d.CreateBuffer(&hal.BufferDescriptor{Label: "x", Size: 4})
	require.NoError(t, err)

	assert.Error(t, d.Queue().WriteBuffer(buf, 0, make([]byte, 8)), "overflow must fail")

	d.Fail(OpSubmit, boom)
	assert.ErrorIs(t, d.Queue().Submit(), boom)
}

func TestSurface_PresentWithoutAcquire(t *testing.T) {
	s := NewSurface(10, 10)
	s.Present()
	assert.Zero(t, s.Presents)

	v1, _ := s.AcquireView()
	v2, _ := s.AcquireView()
	assert.Same(t, v1, v2)
	assert.Equal(t, 1, s.Acquires)

	require.NoError(t, s.Resize(0, 5))
	w, h := s.Size()
	assert.Equal(t, 10, w)
	assert.Equal(t, 10, h)
}

func TestDevice_Lose(t *testing.T) {
	d := NewDevice()
	buf, err := d.CreateBuffer(&hal.BufferDescriptor{Label: "u", Size: 4})
	require.NoError(t, err)

	d.Lose("unknown", "driver reset")
	assert.ErrorIs(t, d.Queue().Submit(), hal.ErrDeviceLost)
	assert.ErrorIs(t, d.Queue().WriteBuffer(buf, 0, []byte{1, 2, 3, 4}), hal.ErrDeviceLost)
	_, err = d.CreateCommandEncoder("frame")
	assert.ErrorIs(t, err, hal.ErrDeviceLost)
	assert.Zero(t, d.Submits)
}
