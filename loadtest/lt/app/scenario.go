package app

import (
	"fmt"

	gpubench "github.com/gekko3d/gpubench"
	"github.com/gekko3d/gpubench/loadtest/lt/core"

	lua "github.com/yuin/gopher-lua"
)

const scenarioEntry = "frame"

// ScenarioStep is what a script asks for on one frame. Zero Mode or Style
// keeps the current selection.
type ScenarioStep struct {
	Mode  core.BenchmarkMode
	Style core.RenderStyle
	Stop  bool
}

// Scenario drives mode and style from a Lua script. The script defines
//
//	function frame(n, t) return mode, style, stop end
//
// where mode is a key ("cpu", "gpu", "compute", "render", "combined") or
// 1-5, style is "colored", "textured", "lit" or 1-3, and any value may be
// nil. The globals `instances` and `log(msg)` are available.
type Scenario struct {
	name string
	L    *lua.LState
	fn   lua.LValue
}

func LoadScenario(path string, instances int, logger gpubench.Logger) (*Scenario, error) {
	return newScenario(path, instances, logger, func(L *lua.LState) error { return L.DoFile(path) })
}

// NewScenario runs source as a chunk named name.
func NewScenario(name, source string, instances int, logger gpubench.Logger) (*Scenario, error) {
	return newScenario(name, instances, logger, func(L *lua.LState) error { return L.DoString(source) })
}

func newScenario(name string, instances int, logger gpubench.Logger, load func(*lua.LState) error) (*Scenario, error) {
	logger = gpubench.OrNop(logger)
	L := lua.NewState()
	L.SetGlobal("instances", lua.LNumber(instances))
	L.SetGlobal("log", L.NewFunction(func(L *lua.LState) int {
		logger.Infof("scenario: %s", L.CheckString(1))
		return 0
	}))

	if err := load(L); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to load scenario %s: %w", name, err)
	}
	fn := L.GetGlobal(scenarioEntry)
	if fn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("scenario %s does not define %s(n, t)", name, scenarioEntry)
	}
	return &Scenario{name: name, L: L, fn: fn}, nil
}

// Step calls frame(n, t) with the frame number and elapsed seconds.
func (s *Scenario) Step(frame uint64, elapsed float64) (ScenarioStep, error) {
	err := s.L.CallByParam(lua.P{Fn: s.fn, NRet: 3, Protect: true}, lua.LNumber(frame), lua.LNumber(elapsed))
	if err != nil {
		return ScenarioStep{}, fmt.Errorf("scenario %s: frame %d: %w", s.name, frame, err)
	}
	mode, style, stop := s.L.Get(-3), s.L.Get(-2), s.L.Get(-1)
	s.L.Pop(3)

	var step ScenarioStep
	switch v := mode.(type) {
	case lua.LNumber:
		step.Mode, err = core.ParseMode(int(v))
	case lua.LString:
		step.Mode, err = core.ParseModeName(string(v))
	default:
		if mode.Type() != lua.LTNil {
			err = &core.InvalidValueError{Kind: "benchmark mode", Value: mode.String()}
		}
	}
	if err != nil {
		return ScenarioStep{}, fmt.Errorf("scenario %s: frame %d: %w", s.name, frame, err)
	}

	switch v := style.(type) {
	case lua.LNumber:
		step.Style, err = core.ParseStyle(int(v))
	case lua.LString:
		step.Style, err = core.ParseStyleName(string(v))
	default:
		if style.Type() != lua.LTNil {
			err = &core.InvalidValueError{Kind: "render style", Value: style.String()}
		}
	}
	if err != nil {
		return ScenarioStep{}, fmt.Errorf("scenario %s: frame %d: %w", s.name, frame, err)
	}

	step.Stop = lua.LVAsBool(stop)
	return step, nil
}

func (s *Scenario) Close() {
	if s.L != nil {
		s.L.Close()
		s.L = nil
	}
}
