package app

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gekko3d/gpubench/loadtest/lt/core"
)

// Profiler keeps named CPU scopes for the current frame plus running
// statistics per benchmark mode.
type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string

	modes   map[core.BenchmarkMode]*ModeStats
	started time.Time
	frames  uint64
	now     func() time.Time
}

// ModeStats accumulates the frames run in one mode.
type ModeStats struct {
	Frames   int
	TotalCPU float64
	MinCPU   float64
	MaxCPU   float64
	Elapsed  time.Duration
	Styles   map[core.RenderStyle]int
}

func (m *ModeStats) MeanCPUMs() float64 {
	if m.Frames == 0 {
		return 0
	}
	return m.TotalCPU / float64(m.Frames)
}

// MeanFPS is frames over wall time spent in the mode.
func (m *ModeStats) MeanFPS() float64 {
	if m.Elapsed <= 0 {
		return 0
	}
	return float64(m.Frames) / m.Elapsed.Seconds()
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		Order:      make([]string, 0),
		modes:      make(map[core.BenchmarkMode]*ModeStats),
		started:    time.Now(),
		now:        time.Now,
	}
}

func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = p.now()
	found := false
	for _, n := range p.Order {
		if n == name {
			found = true
			break
		}
	}
	if !found {
		p.Order = append(p.Order, name)
	}
}

// EndScope closes name and returns its duration.
func (p *Profiler) EndScope(name string) time.Duration {
	start, ok := p.StartTimes[name]
	if !ok {
		return 0
	}
	d := p.now().Sub(start)
	p.Scopes[name] = d
	return d
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

func (p *Profiler) Reset() {
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
}

// Record adds one finished frame to the statistics of in.Mode.
func (p *Profiler) Record(in core.FrameInput, dt time.Duration, cpuMs float64) {
	p.frames++
	st, ok := p.modes[in.Mode]
	if !ok {
		st = &ModeStats{MinCPU: math.Inf(1), Styles: make(map[core.RenderStyle]int)}
		p.modes[in.Mode] = st
	}
	st.Frames++
	st.TotalCPU += cpuMs
	st.MinCPU = math.Min(st.MinCPU, cpuMs)
	st.MaxCPU = math.Max(st.MaxCPU, cpuMs)
	st.Elapsed += dt
	if in.Mode.Renders() {
		st.Styles[in.Style]++
	}
}

// Stats returns the statistics for mode, or nil if it never ran.
func (p *Profiler) Stats(mode core.BenchmarkMode) *ModeStats {
	return p.modes[mode]
}

func (p *Profiler) Frames() uint64 { return p.frames }

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf("  %-15s: %.2f ms\n", name, ms))
	}

	if len(p.Counts) > 0 {
		sb.WriteString("\nStats:\n")
		keys := make([]string, 0, len(p.Counts))
		for k := range p.Counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %-15s: %d\n", k, p.Counts[k]))
		}
	}

	if len(p.modes) > 0 {
		sb.WriteString("\nModes:\n")
		for _, m := range core.Modes {
			st := p.modes[m]
			if st == nil {
				continue
			}
			sb.WriteString(fmt.Sprintf("  %-22s: %6d frames, cpu %.2f ms (min %.2f, max %.2f), %.1f fps\n",
				m, st.Frames, st.MeanCPUMs(), st.MinCPU, st.MaxCPU, st.MeanFPS()))
		}
	}
	return sb.String()
}

// Report is the JSON summary written at the end of a run.
type Report struct {
	RunID     string       `json:"run_id"`
	Started   time.Time    `json:"started"`
	Seconds   float64      `json:"seconds"`
	Instances int          `json:"instances"`
	Frames    uint64       `json:"frames"`
	GPUTiming string       `json:"gpu_timing"`
	Host      HostInfo     `json:"host"`
	Modes     []ModeReport `json:"modes"`
}

type HostInfo struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	NumCPU    int    `json:"num_cpu"`
	GoVersion string `json:"go_version"`
}

type ModeReport struct {
	Mode      string         `json:"mode"`
	Key       string         `json:"key"`
	Frames    int            `json:"frames"`
	MeanCPUMs float64        `json:"mean_cpu_ms"`
	MinCPUMs  float64        `json:"min_cpu_ms"`
	MaxCPUMs  float64        `json:"max_cpu_ms"`
	MeanFPS   float64        `json:"mean_fps"`
	Styles    map[string]int `json:"styles,omitempty"`
}

// Report snapshots the statistics. Modes that never ran are left out.
func (p *Profiler) Report(runID string, instances int) Report {
	r := Report{
		RunID:     runID,
		Started:   p.started,
		Seconds:   p.now().Sub(p.started).Seconds(),
		Instances: instances,
		Frames:    p.frames,
		GPUTiming: "approx",
		Host: HostInfo{
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			NumCPU:    runtime.NumCPU(),
			GoVersion: runtime.Version(),
		},
		Modes: make([]ModeReport, 0, len(p.modes)),
	}
	for _, m := range core.Modes {
		st := p.modes[m]
		if st == nil {
			continue
		}
		mr := ModeReport{
			Mode:      m.String(),
			Key:       m.Key(),
			Frames:    st.Frames,
			MeanCPUMs: st.MeanCPUMs(),
			MinCPUMs:  st.MinCPU,
			MaxCPUMs:  st.MaxCPU,
			MeanFPS:   st.MeanFPS(),
		}
		if len(st.Styles) > 0 {
			mr.Styles = make(map[string]int, len(st.Styles))
			for s, n := range st.Styles {
				mr.Styles[s.String()] = n
			}
		}
		r.Modes = append(r.Modes, mr)
	}
	return r
}

func WriteReport(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
