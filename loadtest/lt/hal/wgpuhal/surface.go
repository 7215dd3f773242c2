package wgpuhal

import (
	"github.com/gekko3d/gpubench/loadtest/lt/hal"

	"github.com/cogentcore/webgpu/wgpu"
)

type Surface struct {
	surface *wgpu.Surface
	adapter *wgpu.Adapter
	device  *wgpu.Device
	config  *wgpu.SurfaceConfiguration
	loss    *hal.DeviceLoss

	// Held between AcquireView and Present.
	frameTex  *wgpu.Texture
	frameView *frameView
}

// frameView is released by Present, not by the caller.
type frameView struct {
	TextureView
}

func (v *frameView) Release() {}

func (s *Surface) Size() (int, int) {
	return int(s.config.Width), int(s.config.Height)
}

func (s *Surface) Format() wgpu.TextureFormat { return s.config.Format }

// AcquireView returns the swapchain view for this frame. Calling it twice
// before Present returns the same view.
func (s *Surface) AcquireView() (hal.TextureView, error) {
	if err := s.loss.Err("acquire surface texture"); err != nil {
		return nil, err
	}
	if s.frameView != nil {
		return s.frameView, nil
	}
	tex, err := s.surface.GetCurrentTexture()
	if err != nil {
		if lost := s.loss.Err("acquire surface texture"); lost != nil {
			return nil, lost
		}
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	s.frameTex = tex
	s.frameView = &frameView{TextureView{view: view}}
	return s.frameView, nil
}

func (s *Surface) Present() {
	if s.frameView == nil {
		return
	}
	s.surface.Present()
	s.frameView.view.Release()
	s.frameTex.Release()
	s.frameView = nil
	s.frameTex = nil
}

// Resize reconfigures the swapchain. Zero sizes (minimized window) are ignored.
func (s *Surface) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	s.config.Width = uint32(width)
	s.config.Height = uint32(height)
	s.surface.Configure(s.adapter, s.device, s.config)
	return nil
}

func (s *Surface) release() {
	if s.frameView != nil {
		s.frameView.view.Release()
		s.frameTex.Release()
		s.frameView = nil
		s.frameTex = nil
	}
	s.surface.Release()
}
