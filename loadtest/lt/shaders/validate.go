package shaders

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
)

// Problem is one program that failed offline compilation.
type Problem struct {
	Program string
	Err     error
	// Unsupported is set when the failure is a known gap in the offline
	// compiler rather than a fault in the program.
	Unsupported bool
}

func (p Problem) String() string {
	if p.Unsupported {
		return fmt.Sprintf("%s: skipped: %v", p.Program, p.Err)
	}
	return fmt.Sprintf("%s: %v", p.Program, p.Err)
}

var unsupportedMarkers = []string{
	"not yet implemented",
	"not supported",
	"runtime-sized arrays",
	"lowering error",
	"atomic",
}

func isUnsupported(err error) bool {
	msg := err.Error()
	for _, m := range unsupportedMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Validate compiles every program to SPIR-V with naga. It returns the
// per-program problems and an error joining the real failures.
func (s Sources) Validate() ([]Problem, error) {
	programs := map[string]string{"compute": s.Compute}
	render, err := s.RenderPrograms()
	if err != nil {
		return nil, err
	}
	for style, src := range render {
		programs[strings.ToLower(style.String())] = src
	}

	var problems []Problem
	var errs []error
	for _, name := range []string{"colored", "textured", "lit", "compute"} {
		if _, err := naga.Compile(programs[name]); err != nil {
			p := Problem{Program: name, Err: err, Unsupported: isUnsupported(err)}
			problems = append(problems, p)
			if !p.Unsupported {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
	}
	return problems, errors.Join(errs...)
}
