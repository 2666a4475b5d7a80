package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"termviz/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// recorderBacklog is the number of frames buffered between the capture
// callback and the disk writer.
const recorderBacklog = 64

// Recorder writes captured frames to a mono WAV file on its own goroutine.
// Write never blocks the capture callback; frames are dropped when the
// writer falls behind.
type Recorder struct {
	path     string
	file     *os.File
	encoder  *wav.Encoder
	bitDepth int
	frames   chan Frame
	done     chan struct{}

	written atomic.Uint64
	dropped atomic.Uint64
	err     error // first write error, read after done is closed

	closeOnce sync.Once
	closeErr  error
}

// NewRecorder creates path and starts the writer goroutine. bitDepth is 16,
// 24 or 32.
func NewRecorder(path string, sampleRate float64, bitDepth int) (*Recorder, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create recording directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	r := &Recorder{
		path:     path,
		file:     file,
		encoder:  wav.NewEncoder(file, int(sampleRate), bitDepth, 1, 1),
		bitDepth: bitDepth,
		frames:   make(chan Frame, recorderBacklog),
		done:     make(chan struct{}),
	}
	go r.run(int(sampleRate))
	return r, nil
}

func (r *Recorder) run(sampleRate int) {
	defer close(r.done)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: r.bitDepth,
	}
	shift := 32 - r.bitDepth

	for f := range r.frames {
		if r.err != nil {
			continue
		}
		if cap(buf.Data) < len(f.Samples) {
			buf.Data = make([]int, len(f.Samples))
		}
		buf.Data = buf.Data[:len(f.Samples)]
		for i, s := range f.Samples {
			buf.Data[i] = int(s >> shift)
		}
		if err := r.encoder.Write(buf); err != nil {
			r.err = err
			log.Errorf("recorder: writing %s: %v", r.path, err)
			continue
		}
		r.written.Add(1)
	}
}

// Write queues f for writing. It must not be called after Close.
func (r *Recorder) Write(f Frame) {
	select {
	case r.frames <- f:
	default:
		r.dropped.Add(1)
	}
}

// Written returns the number of frames written to disk.
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Dropped returns the number of frames discarded because the writer lagged.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Path returns the output file name.
func (r *Recorder) Path() string { return r.path }

// Close drains pending frames, finalises the WAV header and closes the file.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.frames)
		<-r.done
		r.closeErr = errors.Join(r.err, r.encoder.Close(), r.file.Close())
		if n := r.dropped.Load(); n > 0 {
			log.Warnf("recorder: %d frames dropped while writing %s", n, r.path)
		}
	})
	return r.closeErr
}
