package websocket

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/satriahrh/voicerelay/domain/entities"
	"github.com/satriahrh/voicerelay/domain/repositories"
)

type audioSink interface {
	SendAudio(ctx context.Context, chunk entities.AudioChunk) error
}

// Submitter drains the frame channel into the backend session in order
type Submitter struct {
	frames *FrameChannel
	sink   audioSink
	logger *zap.Logger

	submitted int
}

// NewSubmitter creates the backend submitter for one connection
func NewSubmitter(frames *FrameChannel, sink audioSink, logger *zap.Logger) *Submitter {
	return &Submitter{frames: frames, sink: sink, logger: logger}
}

// Run forwards chunks until cancelled. Submission failures are logged and
// the loop continues; a dead backend is noticed by the demultiplexer.
func (s *Submitter) Run(ctx context.Context) error {
	for {
		chunk, err := s.frames.Pop(ctx)
		if err != nil {
			return err
		}

		if err := s.sink.SendAudio(ctx, chunk); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, repositories.ErrSessionClosed) {
				return err
			}
			s.logger.Error("Failed to submit audio chunk",
				zap.Int("bytes", len(chunk.Data)),
				zap.Error(err))
			continue
		}
		s.submitted++
	}
}
