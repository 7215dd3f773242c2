package core

import (
	"strings"
)

// BenchmarkMode selects the data path that feeds the instance matrices.
type BenchmarkMode int

const (
	ModeCPUTransform BenchmarkMode = iota + 1
	ModeGPUTransform
	ModeComputeOnly
	ModeRenderingOnly
	ModeCombinedStress
)

// Modes lists every mode in key order (1-5).
var Modes = []BenchmarkMode{
	ModeCPUTransform,
	ModeGPUTransform,
	ModeComputeOnly,
	ModeRenderingOnly,
	ModeCombinedStress,
}

var modeNames = map[BenchmarkMode]string{
	ModeCPUTransform:   "CPU Transform Mode",
	ModeGPUTransform:   "GPU Transform Mode",
	ModeComputeOnly:    "Compute-Only Mode",
	ModeRenderingOnly:  "Rendering-Only Mode",
	ModeCombinedStress: "Combined Stress Mode",
}

var modeKeys = map[string]BenchmarkMode{
	"cpu":      ModeCPUTransform,
	"gpu":      ModeGPUTransform,
	"compute":  ModeComputeOnly,
	"render":   ModeRenderingOnly,
	"combined": ModeCombinedStress,
}

func (m BenchmarkMode) Valid() bool {
	return m >= ModeCPUTransform && m <= ModeCombinedStress
}

func (m BenchmarkMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "Unknown Mode"
}

// Key is the short name accepted by ParseModeName.
func (m BenchmarkMode) Key() string {
	for k, v := range modeKeys {
		if v == m {
			return k
		}
	}
	return ""
}

// Renders reports whether the mode issues a render pass.
func (m BenchmarkMode) Renders() bool {
	return m.Valid() && m != ModeComputeOnly
}

// ParseMode validates a raw numeric mode (1-5).
func ParseMode(v int) (BenchmarkMode, error) {
	m := BenchmarkMode(v)
	if !m.Valid() {
		return 0, &InvalidValueError{Kind: "benchmark mode", Value: v}
	}
	return m, nil
}

// ParseModeName accepts a short key ("cpu", "gpu", "compute", "render",
// "combined") or a number.
func ParseModeName(s string) (BenchmarkMode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if m, ok := modeKeys[key]; ok {
		return m, nil
	}
	if n, ok := parseSmallInt(key); ok {
		return ParseMode(n)
	}
	return 0, &InvalidValueError{Kind: "benchmark mode", Value: s}
}

// RenderStyle selects one of the three graphics pipelines.
type RenderStyle int

const (
	StyleColored RenderStyle = iota + 1
	StyleTextured
	StyleLit
)

var Styles = []RenderStyle{StyleColored, StyleTextured, StyleLit}

var styleNames = map[RenderStyle]string{
	StyleColored:  "Colored",
	StyleTextured: "Textured",
	StyleLit:      "Lit",
}

func (s RenderStyle) Valid() bool {
	return s >= StyleColored && s <= StyleLit
}

func (s RenderStyle) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return "Unknown"
}

func ParseStyle(v int) (RenderStyle, error) {
	s := RenderStyle(v)
	if !s.Valid() {
		return 0, &InvalidValueError{Kind: "render style", Value: v}
	}
	return s, nil
}

// ParseStyleName accepts "colored", "textured", "lit" or a number.
func ParseStyleName(name string) (RenderStyle, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for s, n := range styleNames {
		if strings.ToLower(n) == key {
			return s, nil
		}
	}
	if n, ok := parseSmallInt(key); ok {
		return ParseStyle(n)
	}
	return 0, &InvalidValueError{Kind: "render style", Value: name}
}

func parseSmallInt(s string) (int, bool) {
	if s == "" || len(s) > 3 {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// FrameInput is everything the controller needs to run one frame.
type FrameInput struct {
	AngleX float32
	AngleY float32
	Mode   BenchmarkMode
	Style  RenderStyle
}

// FrameTiming is one HUD sample. GPUMs is always 0: there is no
// timestamp-query instrumentation, so GPU cost is not measured.
type FrameTiming struct {
	FPS   float64
	CPUMs float64
	GPUMs float64
}
