package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/voicerelay/domain"
	"github.com/satriahrh/voicerelay/domain/entities"
)

var errClientDisconnected = errors.New("client disconnected")

type messageReader interface {
	ReadMessage() (messageType int, p []byte, err error)
}

// Ingress reads client messages and queues inbound audio
type Ingress struct {
	conn       messageReader
	frames     *FrameChannel
	sampleRate int
	logger     *zap.Logger

	chunkCount int
}

// NewIngress creates the socket reader for one connection
func NewIngress(conn messageReader, frames *FrameChannel, sampleRate int, logger *zap.Logger) *Ingress {
	return &Ingress{
		conn:       conn,
		frames:     frames,
		sampleRate: sampleRate,
		logger:     logger,
	}
}

// Run reads until the socket closes or errors. Malformed messages are
// logged and skipped.
func (in *Ingress) Run(ctx context.Context) error {
	for {
		messageType, message, err := in.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
				websocket.CloseAbnormalClosure) {
				return errClientDisconnected
			}
			return fmt.Errorf("read client message: %w", err)
		}

		switch messageType {
		case websocket.TextMessage:
			err = in.processMessage(ctx, message)
		case websocket.BinaryMessage:
			err = in.enqueue(ctx, message)
		default:
			in.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
		if err != nil {
			return err
		}
	}
}

// processMessage handles one JSON envelope. Only queueing failures are returned.
func (in *Ingress) processMessage(ctx context.Context, message []byte) error {
	msg, err := domain.DecodeWireMessage(message)
	if err != nil {
		in.logger.Warn("Ignoring malformed client message", zap.Error(err))
		return nil
	}

	switch msg.Type {
	case domain.MessageTypeAudio:
		audio, err := msg.AudioPayload()
		if err != nil {
			in.logger.Warn("Ignoring undecodable audio message", zap.Error(err))
			return nil
		}
		return in.enqueue(ctx, audio)
	case domain.MessageTypeEnd:
		in.logger.Info("Received end signal from client", zap.Int("chunks", in.chunkCount))
	case domain.MessageTypeText:
		in.logger.Info("Received text message, ignoring", zap.Int("length", len(msg.Data)))
	default:
		in.logger.Warn("Unknown message type", zap.String("type", string(msg.Type)))
	}
	return nil
}

func (in *Ingress) enqueue(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		in.logger.Warn("Ignoring empty audio frame")
		return nil
	}
	if err := in.frames.Push(ctx, entities.NewInboundChunk(audio, in.sampleRate)); err != nil {
		return fmt.Errorf("queue audio chunk: %w", err)
	}
	in.chunkCount++
	in.logger.Debug("Queued audio chunk",
		zap.Int("bytes", len(audio)),
		zap.Int("totalChunks", in.chunkCount))
	return nil
}
