// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"sync"
	"time"

	"termviz/internal/config"
	"termviz/internal/log"

	"github.com/gordonklaus/portaudio"
)

// stream is the subset of *portaudio.Stream used by Capture.
type stream interface {
	Start() error
	Stop() error
	Close() error
}

var paOpenStreamFunc = func(p portaudio.StreamParameters, cb func(in []int32)) (stream, error) {
	s, err := portaudio.OpenStream(p, cb)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Capture reads frames from a PortAudio input device.
type Capture struct {
	cfg      config.AudioConfig
	device   *portaudio.DeviceInfo
	latency  time.Duration
	stream   stream
	queue    *FrameQueue
	gate     *Gate
	recorder *Recorder

	closeOnce sync.Once
	closeErr  error
}

// OpenCapture opens and starts an input stream on the configured device.
// rec may be nil. A stream that fails to open is retried once after
// re-initialising PortAudio; a second failure wraps ErrDeviceUnavailable.
func OpenCapture(cfg config.AudioConfig, rec *Recorder) (*Capture, error) {
	c := &Capture{
		cfg:      cfg,
		queue:    NewFrameQueue(cfg.QueueDepth),
		gate:     NewGate(cfg.GateThreshold),
		recorder: rec,
	}
	if cfg.InputChannels < 1 {
		c.cfg.InputChannels = 1
	}

	err := c.start()
	if err != nil {
		log.Warnf("audio: opening input stream failed, retrying: %v", err)
		if err := Terminate(); err != nil {
			log.Debugf("audio: %v", err)
		}
		if ierr := Initialize(); ierr != nil {
			return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, ierr)
		}
		err = c.start()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	log.Infof("audio: capturing from %q at %.0f Hz, %d frames per buffer, latency %v",
		c.device.Name, cfg.SampleRate, cfg.FramesPerBuffer, c.latency)
	return c, nil
}

func (c *Capture) start() error {
	device, err := InputDevice(c.cfg.InputDevice)
	if err != nil {
		return err
	}
	c.device = device

	channels := min(c.cfg.InputChannels, max(device.MaxInputChannels, 1))
	c.cfg.InputChannels = channels

	if c.cfg.LowLatency {
		c.latency = device.DefaultLowInputLatency
	} else {
		c.latency = device.DefaultHighInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: channels,
			Device:   device,
			Latency:  c.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: c.cfg.FramesPerBuffer,
		SampleRate:      c.cfg.SampleRate,
	}

	s, err := paOpenStreamFunc(params, c.process)
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		s.Close()
		return err
	}
	c.stream = s
	return nil
}

// process is the PortAudio callback. It copies channel 0 of the interleaved
// buffer into a fresh frame and never blocks.
func (c *Capture) process(in []int32) {
	frame := Frame{
		Samples:    make([]int32, c.cfg.FramesPerBuffer),
		SampleRate: c.cfg.SampleRate,
		Captured:   time.Now(),
	}

	channels := c.cfg.InputChannels
	if channels == 1 {
		copy(frame.Samples, in)
	} else {
		for i := range frame.Samples {
			if j := i * channels; j < len(in) {
				frame.Samples[i] = in[j]
			}
		}
	}

	c.gate.Apply(frame.Samples)

	if c.recorder != nil {
		c.recorder.Write(frame)
	}
	c.queue.Push(frame)
}

// NextFrame returns the newest captured frame.
func (c *Capture) NextFrame(timeout time.Duration) (Frame, error) {
	return c.queue.Pop(timeout)
}

// Dropped returns the number of frames the consumer never saw.
func (c *Capture) Dropped() uint64 { return c.queue.Dropped() }

// Close stops the stream and the recorder. It is safe to call more than once.
func (c *Capture) Close() error {
	c.closeOnce.Do(func() {
		if c.stream != nil {
			if err := c.stream.Stop(); err != nil {
				log.Warnf("audio: stopping stream: %v", err)
			}
			c.closeErr = c.stream.Close()
		}
		c.queue.Close()
		if c.recorder != nil {
			if err := c.recorder.Close(); err != nil && c.closeErr == nil {
				c.closeErr = err
			}
		}
	})
	return c.closeErr
}
