package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"termviz/internal/log"

	"github.com/go-audio/wav"
)

// FileSource replays a WAV file in real time, one frame per frame duration,
// through the same drop-oldest queue used for live capture.
type FileSource struct {
	samples    []int32
	sampleRate float64
	frameSize  int
	loop       bool

	queue *FrameQueue
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// OpenFile decodes path and starts replaying it. Only the first channel is
// used. When loop is false the source closes at end of file.
func OpenFile(path string, frameSize int, loop bool) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	channels := max(int(dec.NumChans), 1)
	bitDepth := int(dec.BitDepth)
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d in %s", bitDepth, path)
	}

	samples := make([]int32, len(buf.Data)/channels)
	for i := range samples {
		samples[i] = toFullScale(buf.Data[i*channels], bitDepth)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%s contains no audio", path)
	}

	s := &FileSource{
		samples:    samples,
		sampleRate: float64(dec.SampleRate),
		frameSize:  frameSize,
		loop:       loop,
		queue:      NewFrameQueue(1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	log.Infof("audio: replaying %s (%d samples at %.0f Hz, %d-bit, loop=%v)",
		path, len(samples), s.sampleRate, bitDepth, loop)

	go s.run()
	return s, nil
}

// toFullScale scales a decoded PCM value to int32 full scale. 8-bit WAV
// data is unsigned.
func toFullScale(v, bitDepth int) int32 {
	if bitDepth == 8 {
		v -= 128
	}
	return int32(v << (32 - bitDepth))
}

func (s *FileSource) run() {
	defer close(s.done)
	defer s.queue.Close()

	interval := time.Duration(float64(s.frameSize) / s.sampleRate * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pos := 0
	for {
		frame := Frame{
			Samples:    make([]int32, s.frameSize),
			SampleRate: s.sampleRate,
			Captured:   time.Now(),
		}
		n := copy(frame.Samples, s.samples[pos:])
		pos += n
		s.queue.Push(frame)

		if pos >= len(s.samples) {
			if !s.loop {
				return
			}
			pos = 0
		}

		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
	}
}

// SampleRate returns the file's sample rate.
func (s *FileSource) SampleRate() float64 { return s.sampleRate }

// NextFrame returns the newest replayed frame.
func (s *FileSource) NextFrame(timeout time.Duration) (Frame, error) {
	return s.queue.Pop(timeout)
}

// Close stops replay. It is safe to call more than once.
func (s *FileSource) Close() error {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}
