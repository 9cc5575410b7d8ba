package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gekko3d/blockcraft"
	"github.com/gekko3d/blockcraft/blockrt/rt/app"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "blockrt: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings reads the YAML config and applies the flags given on the
// command line over it.
func loadSettings(args []string) (*blockcraft.Config, error) {
	fs := flag.NewFlagSet("blockrt", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file (defaults to $BLOCKCRAFT_CONFIG)")
	debug := fs.Bool("debug", false, "Enable debug logging and frame statistics")
	gpuCull := fs.Bool("gpu-cull", true, "Cull chunks in a compute pass instead of on the CPU")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := blockcraft.LoadConfig(*configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			cfg.Debug = *debug
		case "gpu-cull":
			cfg.Render.GPUCull = *gpuCull
		}
	})
	return cfg, nil
}

// run owns every deferred cleanup so a failed start still releases the
// window and glfw.
func run(args []string) error {
	cfg, err := loadSettings(args)
	if err != nil {
		return err
	}
	log := blockcraft.NewDefaultLogger("blockrt", false)
	log.SetDebug(cfg.Debug)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, reg, log)
	}

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()

	application := app.NewApp(window, cfg, log.WithPrefix("app"), reg)
	defer application.Close()
	if err := application.Init(); err != nil {
		return fmt.Errorf("renderer init: %w", err)
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})

	var lastX, lastY float64
	var haveCursor bool
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if application.MouseCaptured && haveCursor {
			application.Camera.Rotate(float32(xpos-lastX), float32(ypos-lastY))
		}
		lastX, lastY, haveCursor = xpos, ypos, true
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyTab:
			application.MouseCaptured = !application.MouseCaptured
			if application.MouseCaptured {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
			haveCursor = false
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyC:
			application.GPUCull = !application.GPUCull
			log.Infof("gpu cull: %v", application.GPUCull)
		case glfw.KeyF3:
			application.DebugMode = !application.DebugMode
			log.SetDebug(application.DebugMode)
			application.Log.SetDebug(application.DebugMode)
		}
	})

	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		switch {
		case yoff > 0:
			application.CycleSelected(1)
		case yoff < 0:
			application.CycleSelected(-1)
		}
	})

	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		application.HandleClick(button, action)
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		application.Update()
		application.Render()
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log blockcraft.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Infof("metrics on http://%s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("metrics server: %v", err)
	}
}
