package main

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/Carmen-Shannon/oxy-flowers/common"
	"github.com/Carmen-Shannon/oxy-flowers/engine"
	"github.com/Carmen-Shannon/oxy-flowers/engine/config"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer"
	"github.com/Carmen-Shannon/oxy-flowers/engine/window"
	"github.com/Carmen-Shannon/oxy-flowers/engine/window/desktop"
	"github.com/spf13/cobra"
)

var (
	configFile string
	outFile    string
	frames     int
	frameDT    float64
	width      int
	height     int
	stamps     []string
)

// main registers the run and render commands and executes the root command.
// It exits the process with status 1 if command execution returns an error.
func main() {
	rootCmd := &cobra.Command{
		Use:          "flowers",
		Short:        "feedback-shader flower stamps",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "open a window and stamp flowers on click",
		Args:  cobra.NoArgs,
		RunE:  runWindow,
	}

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "render frames offscreen and write the last one as png",
		Args:  cobra.NoArgs,
		RunE:  renderImage,
	}
	renderCmd.Flags().StringVar(&outFile, "out", "flowers.png", "output png path")
	renderCmd.Flags().IntVar(&frames, "frames", 120, "number of frames")
	renderCmd.Flags().Float64Var(&frameDT, "dt", 1.0/60, "frame delta in seconds")
	renderCmd.Flags().IntVar(&width, "width", 0, "surface width (0 = config)")
	renderCmd.Flags().IntVar(&height, "height", 0, "surface height (0 = config)")
	renderCmd.Flags().StringArrayVar(&stamps, "stamp", nil, "stamp at normalized x,y (repeatable)")

	rootCmd.AddCommand(runCmd, renderCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}

func runWindow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	win, err := desktop.NewWindow(
		window.WithTitle(cfg.Title),
		window.WithWidth(cfg.Width),
		window.WithHeight(cfg.Height),
	)
	if err != nil {
		return err
	}
	defer win.Close()

	r, err := renderer.NewRenderer(backendType(cfg), win,
		renderer.WithPresentMode(presentMode(cfg)),
		renderer.WithPixelRatio(cfg.PixelRatio),
	)
	if err != nil {
		return err
	}

	opts := append(engineOptions(cfg),
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithDemoStamps(demoStamps(cfg)...),
	)
	e := engine.NewEngine(opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return e.Run(ctx)
}

func renderImage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	points, err := parseStamps(stamps)
	if err != nil {
		return err
	}
	if frames < 1 {
		return fmt.Errorf("--frames must be at least 1, got %d", frames)
	}

	w, h := common.Coalesce(width, cfg.Width), common.Coalesce(height, cfg.Height)
	win := window.NewHeadlessWindow(window.WithTitle(cfg.Title), window.WithWidth(w), window.WithHeight(h))
	defer win.Close()

	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, win, renderer.WithPixelRatio(cfg.PixelRatio))
	if err != nil {
		return err
	}
	e := engine.NewEngine(append(engineOptions(cfg), engine.WithWindow(win), engine.WithRenderer(r))...)
	defer e.Dispose()
	if err := e.Init(); err != nil {
		return err
	}

	schedule := stampSchedule(len(points), frames)
	for i := 0; i < frames; i++ {
		for _, k := range schedule[i] {
			e.Interact(float64(points[k].X())*float64(w), float64(points[k].Y())*float64(h), w, h)
		}
		e.Frame(float32(frameDT))
	}
	if e.State() == engine.StateFailed {
		return e.Err()
	}

	img, err := e.Snapshot()
	if err != nil {
		return err
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	common.Logger().Info("wrote image", "path", outFile, "frames", frames, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return f.Close()
}

// engineOptions maps the configuration onto engine options shared by both commands.
func engineOptions(cfg *config.Config) []engine.EngineBuilderOption {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	opts := []engine.EngineBuilderOption{
		engine.WithRefreshRate(cfg.RefreshRate),
		engine.WithPauseFreezesClock(cfg.PauseFreezesClock),
		engine.WithBackgroundColor(cfg.Background()),
		engine.WithTimeOffset(float32(cfg.TimeOffset)),
		engine.WithRandomSource(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))),
		engine.WithProfiling(cfg.Profiling),
	}
	if cfg.OpeningStamp.Enabled {
		opts = append(opts, engine.WithOpeningStamp(float32(cfg.OpeningStamp.X), float32(cfg.OpeningStamp.Y)))
	}
	return opts
}

func demoStamps(cfg *config.Config) []engine.TimedStamp {
	out := make([]engine.TimedStamp, 0, len(cfg.DemoStamps))
	for _, s := range cfg.DemoStamps {
		out = append(out, engine.TimedStamp{
			After: time.Duration(s.AfterMS) * time.Millisecond,
			X:     float32(s.X),
			Y:     float32(s.Y),
		})
	}
	return out
}

func backendType(cfg *config.Config) renderer.RendererBackendType {
	if cfg.Backend == "software" {
		return renderer.BackendTypeSoftware
	}
	return renderer.BackendTypeWGPU
}

func presentMode(cfg *config.Config) renderer.PresentMode {
	if cfg.PresentMode == "uncapped" {
		return renderer.PresentModeUncapped
	}
	return renderer.PresentModeVSync
}
