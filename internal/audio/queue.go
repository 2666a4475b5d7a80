// SPDX-License-Identifier: MIT
package audio

import (
	"sync"
	"sync/atomic"
	"time"
)

// FrameQueue is a bounded hand-off between one producer and one consumer.
// Push never blocks: when the queue is full the oldest frame is discarded.
// Pop always returns the newest frame, discarding anything older.
type FrameQueue struct {
	ch     chan Frame
	closed chan struct{}
	once   sync.Once

	pushed  atomic.Uint64
	dropped atomic.Uint64
}

// NewFrameQueue creates a queue holding at most depth frames. depth is
// clamped to [1, 2]; deeper queues only add latency.
func NewFrameQueue(depth int) *FrameQueue {
	depth = max(1, min(depth, 2))
	return &FrameQueue{
		ch:     make(chan Frame, depth),
		closed: make(chan struct{}),
	}
}

// Push enqueues f, evicting the oldest frame if the queue is full. It
// reports false once the queue is closed. Only one goroutine may push.
func (q *FrameQueue) Push(f Frame) bool {
	select {
	case <-q.closed:
		return false
	default:
	}

	for {
		select {
		case q.ch <- f:
			q.pushed.Add(1)
			return true
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

// Pop waits up to timeout for a frame and returns the newest one queued.
// A non-positive timeout polls. ErrStreamClosed is returned only after the
// queue is closed and empty.
func (q *FrameQueue) Pop(timeout time.Duration) (Frame, error) {
	var f Frame

	select {
	case f = <-q.ch:
	default:
		if timeout <= 0 {
			if q.isClosed() {
				return Frame{}, ErrStreamClosed
			}
			return Frame{}, ErrTimeout
		}

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case f = <-q.ch:
		case <-q.closed:
			select {
			case f = <-q.ch:
			default:
				return Frame{}, ErrStreamClosed
			}
		case <-timer.C:
			return Frame{}, ErrTimeout
		}
	}

	// Skip to the newest frame.
	for {
		select {
		case next := <-q.ch:
			q.dropped.Add(1)
			f = next
		default:
			return f, nil
		}
	}
}

// Close stops further pushes. Frames already queued can still be popped.
func (q *FrameQueue) Close() {
	q.once.Do(func() { close(q.closed) })
}

func (q *FrameQueue) isClosed() bool {
	select {
	case <-q.closed:
		return true
	default:
		return false
	}
}

// Pushed returns the number of frames accepted.
func (q *FrameQueue) Pushed() uint64 { return q.pushed.Load() }

// Dropped returns the number of frames discarded as stale.
func (q *FrameQueue) Dropped() uint64 { return q.dropped.Load() }
