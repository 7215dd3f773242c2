package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	gpubench "github.com/gekko3d/gpubench"
	"github.com/gekko3d/gpubench/loadtest/lt/app"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg := gpubench.DefaultConfig()
	fs := flag.NewFlagSet("loadtest", flag.ExitOnError)
	cfg.RegisterFlags(fs)
	fs.Parse(os.Args[1:])

	logger := gpubench.NewDefaultLogger("loadtest", cfg.Debug)
	if err := cfg.Validate(); err != nil {
		logger.Errorf("%v", err)
		return 2
	}

	if err := glfw.Init(); err != nil {
		logger.Errorf("glfw init: %v", err)
		return 1
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.WindowWidth, cfg.WindowHeight, cfg.WindowTitle, nil, nil)
	if err != nil {
		logger.Errorf("create window: %v", err)
		return 1
	}
	defer window.Destroy()

	application := app.NewApp(window, cfg, logger)
	logger.SetPrefix(fmt.Sprintf("loadtest %.8s", application.RunID))
	if err := application.Init(); err != nil {
		logger.Errorf("init: %v", err)
		return 1
	}
	defer application.Close()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		application.HandleCursor(xpos, ypos)
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		application.HandleMouseButton(button, action)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
			return
		}
		application.HandleKey(key, action)
	})

	runErr := application.Run(window.ShouldClose, glfw.PollEvents)

	if cfg.ReportPath != "" {
		if err := app.WriteReport(cfg.ReportPath, application.Report()); err != nil {
			logger.Errorf("%v", err)
		} else {
			logger.Infof("report written to %s", cfg.ReportPath)
		}
	}
	if logger.DebugEnabled() {
		logger.Debugf("\n%s", application.Profiler.GetStatsString())
	}
	if runErr != nil {
		return 1
	}
	return 0
}
