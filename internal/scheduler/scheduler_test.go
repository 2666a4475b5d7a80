// SPDX-License-Identifier: MIT
package scheduler

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"termviz/internal/analysis"
	"termviz/internal/audio"
	"termviz/internal/config"
	"termviz/internal/plugin"
	"termviz/internal/surface"
	"termviz/pkg/utils"
	"termviz/pkg/viz"
)

type fakeSource struct {
	frames []audio.Frame
	err    error // returned once frames run out
	calls  int
	closed int
}

func (f *fakeSource) NextFrame(time.Duration) (audio.Frame, error) {
	f.calls++
	if len(f.frames) > 0 {
		fr := f.frames[0]
		f.frames = f.frames[1:]
		return fr, nil
	}
	if f.err != nil {
		return audio.Frame{}, f.err
	}
	return audio.Frame{}, audio.ErrTimeout
}

func (f *fakeSource) Close() error {
	f.closed++
	return nil
}

// scriptedDisplay replaces the terminal key pump with a scripted queue.
type scriptedDisplay struct {
	*surface.Surface
	keys   []viz.Key
	closed int
}

func (d *scriptedDisplay) PollKey() (viz.Key, bool) {
	if len(d.keys) == 0 {
		return "", false
	}
	k := d.keys[0]
	d.keys = d.keys[1:]
	return k, true
}

func (d *scriptedDisplay) Close() error {
	d.closed++
	return d.Surface.Close()
}

type testVis struct {
	name   string
	panics bool
	draws  int
	keys   []viz.Key
	closed int
}

func (v *testVis) Name() string { return v.name }

func (v *testVis) Draw(s viz.Surface, spec viz.Spectrum, h, w int, _, _ float64) error {
	v.draws++
	if v.panics {
		panic("broken plugin")
	}
	s.DrawGlyph(h-1, 0, "#", s.ColorHSV(0.5, 1, 1), viz.AttrNone)
	return nil
}

func (v *testVis) HandleKey(k viz.Key) bool {
	v.keys = append(v.keys, k)
	return true
}

func (v *testVis) Close() error {
	v.closed++
	return nil
}

type visSource struct{ v *testVis }

func (s visSource) Name() string       { return s.v.name }
func (s visSource) Open() (any, error) { return s.v, nil }

type fixture struct {
	sched   *Scheduler
	cfg     *config.Config
	source  *fakeSource
	display *scriptedDisplay
	sim     tcell.SimulationScreen
	vis     []*testVis
}

func newFixture(t *testing.T, vis ...*testVis) *fixture {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Display.ShowStatus = true

	sim := tcell.NewSimulationScreen("UTF-8")
	if err := sim.Init(); err != nil {
		t.Fatalf("sim.Init() error: %v", err)
	}
	sim.SetSize(120, 20)
	display := &scriptedDisplay{Surface: surface.New(sim, cfg.Display)}

	an, err := analysis.New(analysis.ConfigFrom(cfg))
	if err != nil {
		t.Fatalf("analysis.New() error: %v", err)
	}

	var sources []plugin.Source
	for _, v := range vis {
		sources = append(sources, visSource{v})
	}
	reg, err := plugin.Load(sources, plugin.Options{FaultLogInterval: time.Second})
	if err != nil {
		t.Fatalf("plugin.Load() error: %v", err)
	}

	src := &fakeSource{}
	f := &fixture{
		sched:   New(cfg, src, an, display, reg),
		cfg:     cfg,
		source:  src,
		display: display,
		sim:     sim,
		vis:     vis,
	}
	t.Cleanup(func() { f.sched.Close() })
	return f
}

func (f *fixture) press(keys ...viz.Key) {
	f.display.keys = append(f.display.keys, keys...)
}

func (f *fixture) row(y int) string {
	cells, w, _ := f.sim.GetContents()
	var b strings.Builder
	for x := range w {
		b.WriteString(string(cells[y*w+x].Runes))
	}
	return b.String()
}

func sineFrame(cfg *config.Config, hz float64) audio.Frame {
	return audio.Frame{
		Samples:    utils.GenerateSineWave(cfg.Audio.FramesPerBuffer, cfg.Audio.SampleRate, hz),
		SampleRate: cfg.Audio.SampleRate,
		Captured:   time.Now(),
	}
}

func TestScheduler_FaultingPluginKeepsRunning(t *testing.T) {
	bad := &testVis{name: "Broken", panics: true}
	good := &testVis{name: "Good"}
	f := newFixture(t, bad, good)

	for range 100 {
		f.sched.Tick()
	}
	st := f.sched.State()
	if st.State != Running {
		t.Fatalf("state = %v after faults, want running", st.State)
	}
	if bad.draws != 100 || st.DrawFaults != 100 {
		t.Errorf("draws = %d, faults = %d; want 100 each", bad.draws, st.DrawFaults)
	}
	if st.Height != 20 || st.Width != 120 {
		t.Errorf("dimensions = %dx%d, want 20x120", st.Height, st.Width)
	}
	if !strings.Contains(f.row(0), "Broken | 1/2") {
		t.Errorf("status row = %q", f.row(0))
	}

	f.press("m")
	f.sched.Tick()
	if good.draws != 1 {
		t.Errorf("next plugin draws = %d, want 1", good.draws)
	}
	if !strings.Contains(f.row(0), "Good | 2/2") {
		t.Errorf("status row after switch = %q", f.row(0))
	}
}

func TestScheduler_KeyRouting(t *testing.T) {
	a, b, c := &testVis{name: "A"}, &testVis{name: "B"}, &testVis{name: "C"}
	f := newFixture(t, a, b, c)

	f.press("M", "x", "m", "m", "z")
	f.sched.Tick()

	if len(c.keys) != 1 || c.keys[0] != "x" {
		t.Errorf("C keys = %v, want [x]", c.keys)
	}
	if len(b.keys) != 1 || b.keys[0] != "z" {
		t.Errorf("B keys = %v, want [z]", b.keys)
	}
	if len(a.keys) != 0 {
		t.Errorf("A keys = %v, want none", a.keys)
	}
	if b.draws != 1 || a.draws != 0 || c.draws != 0 {
		t.Errorf("draws a=%d b=%d c=%d; want only B", a.draws, b.draws, c.draws)
	}
}

func TestScheduler_Pause(t *testing.T) {
	v := &testVis{name: "V"}
	f := newFixture(t, v)

	f.sched.Tick()
	calls := f.source.calls
	hue := f.sched.State().HueOffset

	f.press(" ")
	for range 10 {
		f.sched.Tick()
	}
	if f.sched.State().State != Paused {
		t.Fatalf("state = %v, want paused", f.sched.State().State)
	}
	if v.draws != 1 {
		t.Errorf("plugin drawn %d times, want 1", v.draws)
	}
	if f.source.calls != calls || f.sched.State().HueOffset != hue {
		t.Error("paused ticks advanced audio or hue")
	}
	if !strings.Contains(f.row(0), "PAUSED") {
		t.Errorf("status row = %q, want PAUSED", f.row(0))
	}
	// The last frame stays on screen.
	if got := f.row(19); !strings.HasPrefix(got, "#") {
		t.Errorf("bottom row = %q, want last frame kept", got)
	}

	f.press(" ")
	f.sched.Tick()
	if f.sched.State().State != Running || v.draws != 2 {
		t.Errorf("resume: state = %v, draws = %d", f.sched.State().State, v.draws)
	}
}

func TestScheduler_SensitivityClamp(t *testing.T) {
	f := newFixture(t, &testVis{name: "V"})

	tests := []struct {
		key   viz.Key
		times int
		want  float64
	}{
		{"+", 3, 1.3},
		{"-", 1, 1.2},
		{"=", 100, f.cfg.Display.MaxSensitivity},
		{"-", 100, f.cfg.Display.MinSensitivity},
	}
	for _, tt := range tests {
		for range tt.times {
			f.press(tt.key)
		}
		f.sched.Tick()
		if got := f.sched.State().Sensitivity; math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("after %d x %q sensitivity = %v, want %v", tt.times, tt.key, got, tt.want)
		}
	}
}

func TestScheduler_HueWraps(t *testing.T) {
	f := newFixture(t, &testVis{name: "V"})
	f.cfg.Display.HueStep = 0.3

	want := 0.0
	for range 7 {
		f.sched.Tick()
		want = math.Mod(want+0.3, 1)
		got := f.sched.State().HueOffset
		if got < 0 || got >= 1 || math.Abs(got-want) > 1e-9 {
			t.Fatalf("hue = %v, want %v", got, want)
		}
	}
}

func TestScheduler_AudioFlow(t *testing.T) {
	f := newFixture(t, &testVis{name: "V"})
	f.source.frames = []audio.Frame{sineFrame(f.cfg, 1000)}

	f.sched.Tick()
	st := f.sched.State()
	if st.Frames != 1 || len(st.Spectrum.Bands) != f.cfg.Analysis.Bands {
		t.Fatalf("frames = %d, bands = %d", st.Frames, len(st.Spectrum.Bands))
	}
	prev := st.Spectrum

	// A timeout keeps the previous spectrum.
	f.sched.Tick()
	st = f.sched.State()
	if st.Stale != 1 || &st.Spectrum.Bands[0] != &prev.Bands[0] {
		t.Error("timeout did not keep the previous spectrum")
	}

	// So does the end of the stream.
	f.source.err = audio.ErrStreamClosed
	for range 3 {
		f.sched.Tick()
	}
	if st = f.sched.State(); st.Stale != 4 || st.State != Running {
		t.Errorf("stale = %d, state = %v", st.Stale, st.State)
	}
}

func TestScheduler_Quit(t *testing.T) {
	v := &testVis{name: "V"}
	f := newFixture(t, v)

	f.press("x", "q", "y")
	f.sched.Tick()
	if f.sched.State().State != Terminated {
		t.Fatalf("state = %v, want terminated", f.sched.State().State)
	}
	if len(v.keys) != 1 || v.draws != 0 {
		t.Errorf("keys after quit were handled or a frame was drawn: keys=%v draws=%d", v.keys, v.draws)
	}
	f.sched.Tick()
	if v.draws != 0 {
		t.Error("Tick after quit drew a frame")
	}
}

func TestScheduler_RunQuitsAndTearsDownOnce(t *testing.T) {
	v := &testVis{name: "V"}
	f := newFixture(t, v)
	f.press("ctrl+c")

	done := make(chan error, 1)
	go func() { done <- f.sched.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after quit key")
	}

	f.sched.Close()
	if f.source.closed != 1 || v.closed != 1 || f.display.closed != 1 {
		t.Errorf("closed source=%d plugin=%d display=%d; want 1 each", f.source.closed, v.closed, f.display.closed)
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	v := &testVis{name: "V"}
	f := newFixture(t, v)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.sched.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if v.draws == 0 {
		t.Error("no frames drawn before cancel")
	}
	if f.source.closed != 1 || f.display.closed != 1 {
		t.Errorf("closed source=%d display=%d; want 1 each", f.source.closed, f.display.closed)
	}
}

func TestNextDeadline(t *testing.T) {
	base := time.Unix(1000, 0)
	interval := 16 * time.Millisecond

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"on time", base.Add(5 * time.Millisecond), base.Add(interval)},
		{"exactly due", base.Add(interval), base.Add(interval)},
		{"late resets", base.Add(100 * time.Millisecond), base.Add(100 * time.Millisecond)},
	}
	for _, tt := range tests {
		if got := nextDeadline(base, interval, tt.now); !got.Equal(tt.want) {
			t.Errorf("%s: nextDeadline() = %v, want %v", tt.name, got.Sub(base), tt.want.Sub(base))
		}
	}
}

func TestCloseJoinsErrors(t *testing.T) {
	f := newFixture(t, &testVis{name: "V"})
	f.sched.source = &failingSource{}
	err := f.sched.Close()
	if !errors.Is(err, errCloseFailed) {
		t.Errorf("Close() error = %v, want errCloseFailed", err)
	}
	if f.sched.Close() != err {
		t.Error("second Close() returned a different error")
	}
}

var errCloseFailed = errors.New("close failed")

type failingSource struct{ fakeSource }

func (f *failingSource) Close() error { return errCloseFailed }
