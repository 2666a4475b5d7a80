// SPDX-License-Identifier: MIT
/*
Package scheduler runs the frame loop.

Each tick drains pending keys, pulls the newest audio frame, analyses it and
hands the spectrum to the active plugin inside a surface frame. Ticks run at
the configured rate; a late tick is never made up with a burst of catch-up
frames.
*/
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"

	"termviz/internal/analysis"
	"termviz/internal/audio"
	"termviz/internal/config"
	"termviz/internal/log"
	"termviz/internal/plugin"
	"termviz/pkg/viz"
)

// Display is the terminal the scheduler draws to. *surface.Surface
// implements it.
type Display interface {
	viz.Surface
	Render(fn func() error) error
	ClearRow(y int)
	Show()
	PollKey() (viz.Key, bool)
	Close() error
}

// Scheduler owns the frame loop and tears down its collaborators when the
// loop ends.
type Scheduler struct {
	cfg      *config.Config
	source   audio.Source
	analyzer *analysis.Analyzer
	display  Display
	registry *plugin.Registry

	keys     keyMap
	interval time.Duration
	state    AppState

	sourceDone bool

	closeOnce sync.Once
	closeErr  error
}

// New creates a scheduler. It takes ownership of source, display and
// registry and closes them when Run returns.
func New(cfg *config.Config, source audio.Source, analyzer *analysis.Analyzer, display Display, registry *plugin.Registry) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		source:   source,
		analyzer: analyzer,
		display:  display,
		registry: registry,
		keys:     newKeyMap(cfg.Keys),
		interval: cfg.FrameInterval(),
		state: AppState{
			State:       Running,
			Sensitivity: cfg.ClampSensitivity(cfg.Display.Sensitivity),
		},
	}
}

// State returns a copy of the loop state.
func (s *Scheduler) State() AppState { return s.state }

// Run ticks until a quit key is pressed or ctx is cancelled, then closes
// the source, the plugins and the display, in that order.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.Close()

	log.Infof("scheduler: starting at %d fps with %q (%d plugins)",
		s.cfg.Display.FPS, s.registry.Active().Name, s.registry.Len())

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	deadline := time.Now()
	for {
		s.Tick()
		if s.state.State == Terminated {
			log.Infof("scheduler: quit after %d ticks", s.state.Ticks)
			return nil
		}

		deadline = nextDeadline(deadline, s.interval, time.Now())
		timer.Reset(time.Until(deadline))
		select {
		case <-ctx.Done():
			s.state.State = Terminated
			log.Infof("scheduler: stopping after %d ticks: %v", s.state.Ticks, context.Cause(ctx))
			return nil
		case <-timer.C:
		}
	}
}

// nextDeadline schedules the tick after prev. A tick that ran late moves
// the schedule forward rather than firing the missed ticks back to back.
func nextDeadline(prev time.Time, interval time.Duration, now time.Time) time.Time {
	next := prev.Add(interval)
	if next.Before(now) {
		return now
	}
	return next
}

// Tick runs one frame loop iteration.
func (s *Scheduler) Tick() {
	if s.state.State == Terminated {
		return
	}
	s.state.Ticks++

	for {
		k, ok := s.display.PollKey()
		if !ok {
			break
		}
		s.handleKey(k)
		if s.state.State == Terminated {
			return
		}
	}

	if s.state.State == Paused {
		s.repaintPaused()
		return
	}

	s.pull()
	s.state.HueOffset = math.Mod(s.state.HueOffset+s.cfg.Display.HueStep, 1)
	s.render()
}

func (s *Scheduler) handleKey(k viz.Key) {
	switch {
	case key.Matches(k, s.keys.Quit):
		s.state.State = Terminated
	case key.Matches(k, s.keys.Pause):
		if s.state.State == Paused {
			s.state.State = Running
		} else {
			s.state.State = Paused
		}
		log.Debugf("scheduler: %s", s.state.State)
	case key.Matches(k, s.keys.Next):
		log.Debugf("scheduler: switched to %q", s.registry.Next().Name)
	case key.Matches(k, s.keys.Previous):
		log.Debugf("scheduler: switched to %q", s.registry.Previous().Name)
	case key.Matches(k, s.keys.SensitivityUp):
		s.adjustSensitivity(s.cfg.Display.SensitivityStep)
	case key.Matches(k, s.keys.SensitivityDown):
		s.adjustSensitivity(-s.cfg.Display.SensitivityStep)
	default:
		p := s.registry.Active()
		handled := p.HandleKey(k)
		log.Debugf("scheduler: key %q forwarded to %q (handled=%t)", k, p.Name, handled)
	}
}

func (s *Scheduler) adjustSensitivity(delta float64) {
	s.state.Sensitivity = s.cfg.ClampSensitivity(s.state.Sensitivity + delta)
	log.Debugf("scheduler: sensitivity %.1f", s.state.Sensitivity)
}

// pull analyses the newest audio frame. Without one the previous spectrum
// stays on screen.
func (s *Scheduler) pull() {
	frame, err := s.source.NextFrame(s.cfg.Audio.ReadTimeout)
	switch {
	case err == nil:
		s.state.Spectrum = s.analyzer.Analyze(frame, s.state.Sensitivity)
		s.state.Frames++
		return
	case errors.Is(err, audio.ErrStreamClosed):
		if !s.sourceDone {
			s.sourceDone = true
			log.Infof("scheduler: audio source ended, holding last spectrum")
		}
	case errors.Is(err, audio.ErrTimeout):
	default:
		log.Debugf("scheduler: audio read failed: %v", err)
	}
	s.state.Stale++
}

func (s *Scheduler) render() {
	p := s.registry.Active()
	spec := s.state.Spectrum
	err := s.display.Render(func() error {
		if s.cfg.Display.ShowStatus {
			s.drawStatus("")
		}
		h, w := s.display.Dimensions()
		s.state.Height, s.state.Width = h, w
		return p.Draw(s.display, spec, h, w, spec.Energy, s.state.HueOffset)
	})
	if err != nil {
		s.state.DrawFaults++
	}
}

// repaintPaused refreshes only the status row; the last frame stays up.
func (s *Scheduler) repaintPaused() {
	s.display.ClearRow(0)
	s.drawStatus("PAUSED")
	s.display.Show()
}

func (s *Scheduler) drawStatus(flag string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Terminal Audio Visualizer | %s | %d/%d | Sensitivity: %.1f",
		s.registry.Active().Name, s.registry.Index()+1, s.registry.Len(), s.state.Sensitivity)
	if flag != "" {
		fmt.Fprintf(&b, " | %s", flag)
	}
	if s.cfg.Debug {
		fmt.Fprintf(&b, " | frames %d stale %d faults %d", s.state.Frames, s.state.Stale, s.state.DrawFaults)
	}
	for _, kb := range []key.Binding{s.keys.Quit, s.keys.Next, s.keys.SensitivityUp, s.keys.SensitivityDown, s.keys.Pause} {
		h := kb.Help()
		if h.Key == "" {
			continue
		}
		fmt.Fprintf(&b, " | [%s] %s", helpKey(h.Key), h.Desc)
	}
	s.display.DrawGlyph(0, 0, b.String(), viz.DefaultSlot, viz.AttrReverse)
}

func helpKey(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

// Close releases the source, the plugins and the display, each exactly
// once, and returns their joined errors.
func (s *Scheduler) Close() error {
	s.closeOnce.Do(func() {
		s.state.State = Terminated
		var errs []error
		if err := s.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audio source: %w", err))
		}
		if err := s.registry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close plugins: %w", err))
		}
		if err := s.display.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close display: %w", err))
		}
		s.closeErr = errors.Join(errs...)
		if s.closeErr != nil {
			log.Errorf("scheduler: teardown: %v", s.closeErr)
		}
	})
	return s.closeErr
}
