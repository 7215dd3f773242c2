package app

import (
	"github.com/gekko3d/gpubench/loadtest/lt/core"

	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	speedUpFactor   = 1.2
	slowDownFactor  = 0.8
	defaultDragRate = 0.01
)

// InputState is the orbit camera and mode selection fed by window callbacks.
// It is only touched from the frame-loop thread.
type InputState struct {
	AngleX float32
	AngleY float32

	// Auto-rotation speed in radians per second.
	AutoX float32
	AutoY float32
	// Radians per pixel of drag.
	Sensitivity float32

	Mode  core.BenchmarkMode
	Style core.RenderStyle

	dragging     bool
	lastX, lastY float64
}

func NewInputState(mode core.BenchmarkMode, style core.RenderStyle, autoX, autoY, sensitivity float32) *InputState {
	if sensitivity == 0 {
		sensitivity = defaultDragRate
	}
	return &InputState{
		AutoX:       autoX,
		AutoY:       autoY,
		Sensitivity: sensitivity,
		Mode:        mode,
		Style:       style,
	}
}

func (s *InputState) Dragging() bool { return s.dragging }

// BeginDrag starts a drag from the last known cursor position.
func (s *InputState) BeginDrag() { s.dragging = true }

func (s *InputState) EndDrag() { s.dragging = false }

// MoveCursor records the cursor position and, while dragging, turns the
// pixel delta into rotation: horizontal motion spins around Y, vertical
// motion around X.
func (s *InputState) MoveCursor(x, y float64) {
	if s.dragging {
		s.AngleY += float32(x-s.lastX) * s.Sensitivity
		s.AngleX += float32(y-s.lastY) * s.Sensitivity
	}
	s.lastX, s.lastY = x, y
}

// Advance applies auto-rotation for dt seconds. Dragging suspends it.
func (s *InputState) Advance(dt float64) {
	if s.dragging {
		return
	}
	s.AngleX += s.AutoX * float32(dt)
	s.AngleY += s.AutoY * float32(dt)
}

// HandleKey applies a key press and reports whether the key is bound.
func (s *InputState) HandleKey(key glfw.Key) bool {
	switch {
	case key == glfw.KeyEqual || key == glfw.KeyKPAdd:
		s.AutoX *= speedUpFactor
		s.AutoY *= speedUpFactor
	case key == glfw.KeyMinus || key == glfw.KeyKPSubtract:
		s.AutoX *= slowDownFactor
		s.AutoY *= slowDownFactor
	case key == glfw.Key0 || key == glfw.KeyKP0:
		s.AutoX, s.AutoY = 0, 0
	case key >= glfw.Key1 && key <= glfw.Key5:
		s.Mode = core.BenchmarkMode(key-glfw.Key1) + core.ModeCPUTransform
	case key >= glfw.KeyF1 && key <= glfw.KeyF3:
		s.Style = core.RenderStyle(key-glfw.KeyF1) + core.StyleColored
	default:
		return false
	}
	return true
}

// Snapshot is the controller input for the current frame.
func (s *InputState) Snapshot() core.FrameInput {
	return core.FrameInput{
		AngleX: s.AngleX,
		AngleY: s.AngleY,
		Mode:   s.Mode,
		Style:  s.Style,
	}
}
