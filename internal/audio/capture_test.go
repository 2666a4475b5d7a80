package audio

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"termviz/internal/config"

	"github.com/gordonklaus/portaudio"
)

type fakeStream struct {
	started, stopped, closed int
	startErr                 error
}

func (s *fakeStream) Start() error { s.started++; return s.startErr }
func (s *fakeStream) Stop() error  { s.stopped++; return nil }
func (s *fakeStream) Close() error { s.closed++; return nil }

// stubOpenStream records the callback and stream parameters of each open.
func stubOpenStream(t *testing.T, failures int) (*fakeStream, *func([]int32), *portaudio.StreamParameters) {
	t.Helper()
	orig := paOpenStreamFunc
	t.Cleanup(func() { paOpenStreamFunc = orig })

	s := &fakeStream{}
	var cb func([]int32)
	var params portaudio.StreamParameters
	paOpenStreamFunc = func(p portaudio.StreamParameters, fn func([]int32)) (stream, error) {
		if failures > 0 {
			failures--
			return nil, fmt.Errorf("device busy")
		}
		cb, params = fn, p
		return s, nil
	}
	return s, &cb, &params
}

func testAudioConfig() config.AudioConfig {
	cfg := config.NewConfig().Audio
	cfg.FramesPerBuffer = 8
	cfg.GateThreshold = 0
	return cfg
}

func TestOpenCapture_DeliversMonoFrames(t *testing.T) {
	stubPortAudio(t, fakeDevices)
	stream, cb, params := stubOpenStream(t, 0)

	cfg := testAudioConfig()
	cfg.InputChannels = 2
	cfg.LowLatency = true

	c, err := OpenCapture(cfg, nil)
	if err != nil {
		t.Fatalf("OpenCapture() error: %v", err)
	}
	if stream.started != 1 {
		t.Errorf("stream started %d times", stream.started)
	}
	if params.Input.Channels != 2 || params.FramesPerBuffer != 8 {
		t.Errorf("stream params = %+v", params)
	}
	if params.Input.Latency != 5*time.Millisecond {
		t.Errorf("latency = %v, want low latency", params.Input.Latency)
	}

	in := make([]int32, 16)
	for i := range in {
		in[i] = int32(i + 1)
	}
	(*cb)(in)

	f, err := c.NextFrame(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("NextFrame() error: %v", err)
	}
	want := []int32{1, 3, 5, 7, 9, 11, 13, 15}
	for i, v := range want {
		if f.Samples[i] != v {
			t.Fatalf("Samples = %v, want %v", f.Samples, want)
		}
	}
	if f.SampleRate != cfg.SampleRate || f.Captured.IsZero() {
		t.Errorf("frame metadata = %v, %v", f.SampleRate, f.Captured)
	}

	// The callback buffer is reused by PortAudio; the frame must not alias it.
	in[0] = 99
	if f.Samples[0] != 1 {
		t.Error("frame aliases the callback buffer")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if stream.stopped != 1 || stream.closed != 1 {
		t.Errorf("stream stopped %d closed %d, want 1 each", stream.stopped, stream.closed)
	}
	if _, err := c.NextFrame(time.Millisecond); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("NextFrame() after Close() error = %v", err)
	}
}

func TestOpenCapture_ClampsChannelsToDevice(t *testing.T) {
	stubPortAudio(t, fakeDevices)
	_, _, params := stubOpenStream(t, 0)

	cfg := testAudioConfig()
	cfg.InputChannels = 6
	c, err := OpenCapture(cfg, nil)
	if err != nil {
		t.Fatalf("OpenCapture() error: %v", err)
	}
	defer c.Close()

	if params.Input.Channels != 2 {
		t.Errorf("channels = %d, want device maximum 2", params.Input.Channels)
	}
}

func TestOpenCapture_GatesQuietFrames(t *testing.T) {
	stubPortAudio(t, fakeDevices)
	_, cb, _ := stubOpenStream(t, 0)

	cfg := testAudioConfig()
	cfg.InputChannels = 1
	cfg.GateThreshold = 0.5
	c, err := OpenCapture(cfg, nil)
	if err != nil {
		t.Fatalf("OpenCapture() error: %v", err)
	}
	defer c.Close()

	(*cb)([]int32{1000, -1000, 1000, -1000, 1000, -1000, 1000, -1000})
	f, err := c.NextFrame(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("NextFrame() error: %v", err)
	}
	if Peak(f.Samples) != 0 {
		t.Errorf("gated frame = %v, want silence", f.Samples)
	}
}

func TestOpenCapture_RetriesOnce(t *testing.T) {
	stubPortAudio(t, fakeDevices)
	var inits int
	paLibInitialize = func() error { inits++; return nil }

	stubOpenStream(t, 1)
	c, err := OpenCapture(testAudioConfig(), nil)
	if err != nil {
		t.Fatalf("OpenCapture() error after one failure: %v", err)
	}
	c.Close()
	if inits != 1 {
		t.Errorf("PortAudio re-initialised %d times, want 1", inits)
	}
}

func TestOpenCapture_DeviceUnavailable(t *testing.T) {
	stubPortAudio(t, fakeDevices)
	stubOpenStream(t, 2)

	_, err := OpenCapture(testAudioConfig(), nil)
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("OpenCapture() error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestOpenCapture_NonInputDevice(t *testing.T) {
	stubPortAudio(t, fakeDevices)
	stubOpenStream(t, 0)

	cfg := testAudioConfig()
	cfg.InputDevice = 1
	_, err := OpenCapture(cfg, nil)
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("OpenCapture() error = %v, want ErrDeviceUnavailable", err)
	}
}
