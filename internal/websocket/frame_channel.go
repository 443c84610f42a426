package websocket

import (
	"context"
	"errors"
	"sync"

	"github.com/satriahrh/voicerelay/domain/entities"
)

var errFrameChannelClosed = errors.New("frame channel closed")

// FrameChannel is the bounded FIFO handing inbound audio from the socket
// reader to the backend submitter. It has exactly one producer and one
// consumer; both block while the channel is full or empty and both give up
// as soon as their context is cancelled or the channel is closed.
type FrameChannel struct {
	frames    chan entities.AudioChunk
	done      chan struct{}
	closeOnce sync.Once
}

// NewFrameChannel creates a channel holding up to size chunks
func NewFrameChannel(size int) *FrameChannel {
	if size < 1 {
		size = 1
	}
	return &FrameChannel{
		frames: make(chan entities.AudioChunk, size),
		done:   make(chan struct{}),
	}
}

// Push enqueues a chunk, waiting for room if the channel is full
func (f *FrameChannel) Push(ctx context.Context, chunk entities.AudioChunk) error {
	select {
	case <-f.done:
		return errFrameChannelClosed
	default:
	}

	select {
	case f.frames <- chunk:
		return nil
	case <-f.done:
		return errFrameChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop dequeues the oldest chunk, waiting while the channel is empty
func (f *FrameChannel) Pop(ctx context.Context) (entities.AudioChunk, error) {
	select {
	case chunk := <-f.frames:
		return chunk, nil
	case <-f.done:
		return entities.AudioChunk{}, errFrameChannelClosed
	case <-ctx.Done():
		return entities.AudioChunk{}, ctx.Err()
	}
}

// Len returns the number of queued chunks
func (f *FrameChannel) Len() int {
	return len(f.frames)
}

// Close stops the channel and discards anything still queued.
// It returns how many chunks were dropped and is safe to call more than once.
func (f *FrameChannel) Close() int {
	dropped := 0
	f.closeOnce.Do(func() {
		close(f.done)
		for {
			select {
			case <-f.frames:
				dropped++
			default:
				return
			}
		}
	})
	return dropped
}
