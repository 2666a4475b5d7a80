// SPDX-License-Identifier: MIT
/*
Package audio supplies fixed-size mono sample frames to the frame loop:
- Live capture from a PortAudio input device
- Real-time replay of a WAV file
- A drop-oldest queue between the producer and the frame loop
- Noise gate and optional WAV recording of what was captured

Thread Safety:
- Frames are produced on the PortAudio callback thread (or the replay
  goroutine) and consumed on the frame loop goroutine
- A Frame is never modified after it has been pushed
*/
package audio

import (
	"errors"
	"time"
)

var (
	// ErrDeviceUnavailable is returned when the input stream cannot be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// ErrTimeout is returned when no frame arrived within the read timeout.
	ErrTimeout = errors.New("timed out waiting for audio frame")

	// ErrStreamClosed is returned once the source is closed and drained.
	ErrStreamClosed = errors.New("audio stream closed")
)

// Frame is one block of mono samples at full int32 scale.
type Frame struct {
	Samples    []int32
	SampleRate float64
	Captured   time.Time
}

// Len returns the number of samples in the frame.
func (f Frame) Len() int { return len(f.Samples) }

// Source yields frames for the frame loop.
type Source interface {
	// NextFrame returns the newest available frame, waiting at most timeout.
	NextFrame(timeout time.Duration) (Frame, error)
	Close() error
}
