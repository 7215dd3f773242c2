package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gekko3d/gpubench/loadtest/lt/core"

	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const fallbackTermWidth = 80

// HUD publishes the frame statistics to the window title and, when stdout
// is a terminal, to a single status line rewritten in place.
type HUD struct {
	Title    string
	Interval time.Duration

	out      io.Writer
	tty      bool
	width    int
	setTitle func(string)
	printer  *message.Printer
	last     time.Time
	text     string
	updates  int
	finished bool
}

type HUDOptions struct {
	Title    string
	Interval time.Duration
	// Out receives the status line. Nil disables console output.
	Out io.Writer
	// SetTitle updates the window title. Nil disables it.
	SetTitle func(string)
}

func NewHUD(opts HUDOptions) *HUD {
	h := &HUD{
		Title:    opts.Title,
		Interval: opts.Interval,
		out:      opts.Out,
		setTitle: opts.SetTitle,
		printer:  message.NewPrinter(language.English),
		width:    fallbackTermWidth,
	}
	if f, ok := opts.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		h.tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			h.width = w
		}
	}
	return h
}

// FormatHUD renders the overlay text, one field per line.
func (h *HUD) FormatHUD(t core.FrameTiming, in core.FrameInput, instances int) string {
	return fmt.Sprintf("FPS: %.1f\nCPU: %.2f ms\nGPU: %.2f ms (approx)\nMode: %s\nRender: %s\nInstances: %s",
		t.FPS, t.CPUMs, t.GPUMs, in.Mode, in.Style, h.printer.Sprintf("%d", instances))
}

// Text is the last published HUD text.
func (h *HUD) Text() string { return h.text }

// Updates counts publishes since creation.
func (h *HUD) Updates() int { return h.updates }

// Update publishes at most once per Interval. It reports whether it did.
func (h *HUD) Update(now time.Time, t core.FrameTiming, in core.FrameInput, instances int) bool {
	if !h.last.IsZero() && now.Sub(h.last) < h.Interval {
		return false
	}
	h.last = now
	h.text = h.FormatHUD(t, in, instances)
	h.updates++

	status := strings.ReplaceAll(h.text, "\n", " | ")
	if h.setTitle != nil {
		h.setTitle(fmt.Sprintf("%s | %s", h.Title, status))
	}
	if h.tty && h.out != nil {
		if len(status) > h.width-1 {
			status = status[:h.width-1]
		}
		fmt.Fprintf(h.out, "\r%s\x1b[K", status)
	}
	return true
}

// Finish ends the status line so later output starts on a fresh line.
func (h *HUD) Finish() {
	if h.tty && h.out != nil && h.updates > 0 && !h.finished {
		fmt.Fprintln(h.out)
	}
	h.finished = true
}
