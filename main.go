package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"termviz/cmd"
	"termviz/internal/analysis"
	"termviz/internal/audio"
	"termviz/internal/config"
	"termviz/internal/log"
	"termviz/internal/plugin"
	"termviz/internal/scheduler"
	"termviz/internal/surface"
	"termviz/internal/tui"
	"termviz/internal/visualizers"
	"termviz/pkg/build"
)

// statsInterval is how often capture health is written to the log.
const statsInterval = 5 * time.Second

// main is the entry point for the terminal visualizer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load the configuration
//   - Execute one-off commands if requested
//   - Open the audio source, analyzer, plugins and terminal, in that order
//
// 2. Concurrent Phase (Hot Path):
//   - Frame loop on its own goroutine
//   - Capture callback on the PortAudio thread
//   - Capture health reporting until shutdown
//
// 3. Shutdown Phase (Cold Path):
//   - Quit key or SIGINT/SIGTERM ends the frame loop
//   - Audio source, plugins and terminal are released once each
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "termviz: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	buildErr := build.Initialize()

	cfg, err := cmd.ParseArgs(args)
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil
	}
	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}
	if buildErr != nil {
		log.Debugf("build: development build (%v)", buildErr)
	}

	switch cfg.Command {
	case cmd.CommandList:
		return listDevices()
	case cmd.CommandPlugins:
		return listPlugins(cfg, os.Stdout)
	case cmd.CommandDevices:
		if err := audio.Initialize(); err != nil {
			return err
		}
		sel, err := tui.PickDevice()
		audio.Terminate()
		if err != nil {
			return err
		}
		if sel.Cancelled {
			return nil
		}
		cfg.Audio.InputDevice = sel.DeviceID
		cfg.Audio.SampleRate = sel.SampleRate
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	return visualize(cfg)
}

func listDevices() error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	return audio.ListDevices(os.Stdout)
}

// listPlugins prints every discovered plugin and whether it loads.
func listPlugins(cfg *config.Config, w io.Writer) error {
	sources, err := plugin.Discover(cfg.Plugins.Dir, visualizers.Catalog())
	if err != nil {
		return err
	}
	opts := plugin.Options{FaultLogInterval: cfg.Plugins.FaultLogInterval}
	loaded := 0
	for _, src := range sources {
		p, err := plugin.Open(src, opts)
		if err != nil {
			fmt.Fprintf(w, "  %-24s FAILED  %v\n", src.Name(), err)
			continue
		}
		loaded++
		keys := ""
		if p.HandlesKeys() {
			keys = " (keys)"
		}
		fmt.Fprintf(w, "  %-24s ok      %s%s\n", src.Name(), p.Name, keys)
		if c, ok := p.Visualizer().(io.Closer); ok {
			c.Close()
		}
	}
	fmt.Fprintf(w, "%d of %d plugins loaded from %s\n", loaded, len(sources), cfg.Plugins.Dir)
	if loaded == 0 {
		return plugin.ErrNoPlugins
	}
	return nil
}

// visualize runs the frame loop until quit. Startup failures are returned
// before the terminal is taken over, so they reach stderr.
func visualize(cfg *config.Config) error {
	logFile, err := log.Open(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log.Infof("%s starting", build.GetBuildInfo())

	source, capture, err := openSource(cfg)
	if err != nil {
		return err
	}
	// Ownership moves to the scheduler once it exists.
	owned := false
	defer func() {
		if !owned {
			source.Close()
		}
	}()

	analyzer, err := analysis.New(analysis.ConfigFrom(cfg))
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}

	sources, err := plugin.Discover(cfg.Plugins.Dir, visualizers.Catalog())
	if err != nil {
		return err
	}
	registry, err := plugin.Load(sources, plugin.Options{FaultLogInterval: cfg.Plugins.FaultLogInterval})
	if err != nil {
		return err
	}
	defer func() {
		if !owned {
			registry.Close()
		}
	}()

	display, err := surface.Open(cfg.Display)
	if err != nil {
		return err
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	sched := scheduler.New(cfg, source, analyzer, display, registry)
	owned = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	loopDone := make(chan struct{})
	g.Go(func() error {
		defer close(loopDone)
		return sched.Run(ctx)
	})
	g.Go(func() error {
		reportStats(loopDone, capture)
		return nil
	})

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if err := g.Wait(); err != nil {
		return err
	}
	if cfg.Recording.Enabled {
		fmt.Printf("Recording saved to: %s\n", cfg.Recording.Output)
	}
	st := sched.State()
	log.Infof("termviz: %d ticks, %d frames analysed, %d stale, %d draw faults",
		st.Ticks, st.Frames, st.Stale, st.DrawFaults)
	return sched.Close()
}

// openSource opens the WAV file or capture device named by cfg. capture is
// nil for file sources.
func openSource(cfg *config.Config) (audio.Source, *audio.Capture, error) {
	if cfg.Audio.InputFile != "" {
		src, err := audio.OpenFile(cfg.Audio.InputFile, cfg.Audio.FramesPerBuffer, cfg.Audio.Loop)
		if err != nil {
			return nil, nil, err
		}
		cfg.Audio.SampleRate = src.SampleRate()
		cfg.Analysis.MaxHz = min(cfg.Analysis.MaxHz, src.SampleRate()/2)
		return src, nil, nil
	}

	if err := audio.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", audio.ErrDeviceUnavailable, err)
	}

	var rec *audio.Recorder
	if cfg.Recording.Enabled {
		r, err := audio.NewRecorder(cfg.Recording.Output, cfg.Audio.SampleRate, cfg.Recording.BitDepth)
		if err != nil {
			audio.Terminate()
			return nil, nil, err
		}
		rec = r
	}

	capture, err := audio.OpenCapture(cfg.Audio, rec)
	if err != nil {
		errs := []error{err}
		if rec != nil {
			errs = append(errs, rec.Close())
		}
		audio.Terminate()
		return nil, nil, errors.Join(errs...)
	}
	return &terminatingSource{capture}, capture, nil
}

// terminatingSource shuts PortAudio down after the capture stream closes.
type terminatingSource struct {
	*audio.Capture
}

func (s *terminatingSource) Close() error {
	return errors.Join(s.Capture.Close(), audio.Terminate())
}

// reportStats logs capture queue drops until done is closed.
func reportStats(done <-chan struct{}, capture *audio.Capture) {
	if capture == nil {
		return
	}
	t := time.NewTicker(statsInterval)
	defer t.Stop()
	var last uint64
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if d := capture.Dropped(); d != last {
				log.Debugf("audio: %d frames dropped (+%d)", d, d-last)
				last = d
			}
		}
	}
}
