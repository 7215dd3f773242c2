package shaders

import (
	_ "embed"
	"fmt"

	"github.com/gekko3d/gpubench/loadtest/lt/core"
)

// Entry points every program must export.
const (
	VertexEntry       = "vs_main"
	FragmentEntry     = "fs_main"
	GenerateEntry     = "generate_transforms"
	ComputeHeavyEntry = "compute_heavy"
)

//go:embed common.wgsl
var CommonWGSL string

//go:embed cube_colored.wgsl
var ColoredWGSL string

//go:embed cube_textured.wgsl
var TexturedWGSL string

//go:embed cube_lit.wgsl
var LitWGSL string

//go:embed compute_transforms.wgsl
var ComputeWGSL string

// Sources is the program text handed to the renderer and compute engine.
// Render programs are the common vertex stage followed by one fragment stage.
type Sources struct {
	Common   string
	Colored  string
	Textured string
	Lit      string
	Compute  string
}

func Default() Sources {
	return Sources{
		Common:   CommonWGSL,
		Colored:  ColoredWGSL,
		Textured: TexturedWGSL,
		Lit:      LitWGSL,
		Compute:  ComputeWGSL,
	}
}

// RenderProgram returns the full program for style.
func (s Sources) RenderProgram(style core.RenderStyle) (string, error) {
	var frag string
	switch style {
	case core.StyleColored:
		frag = s.Colored
	case core.StyleTextured:
		frag = s.Textured
	case core.StyleLit:
		frag = s.Lit
	default:
		return "", &core.InvalidValueError{Kind: "render style", Value: int(style)}
	}
	return s.Common + "\n" + frag, nil
}

// RenderPrograms returns one program per style.
func (s Sources) RenderPrograms() (map[core.RenderStyle]string, error) {
	out := make(map[core.RenderStyle]string, len(core.Styles))
	for _, st := range core.Styles {
		src, err := s.RenderProgram(st)
		if err != nil {
			return nil, err
		}
		if src == "\n" {
			return nil, fmt.Errorf("%s program is empty", st)
		}
		out[st] = src
	}
	return out, nil
}
