package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/satriahrh/voicerelay/domain"
	"github.com/satriahrh/voicerelay/domain/repositories"
)

var errBackendStreamEnded = errors.New("backend event stream ended unexpectedly")

type eventSource interface {
	Receive(ctx context.Context) (*repositories.BackendEvent, error)
}

type messageSender interface {
	Send(msg domain.WireMessage) error
}

// Demultiplexer turns backend events into client wire messages
type Demultiplexer struct {
	source eventSource
	out    messageSender
	turn   TurnMachine
	logger *zap.Logger
}

// NewDemultiplexer creates the response demultiplexer for one connection
func NewDemultiplexer(source eventSource, out messageSender, logger *zap.Logger) *Demultiplexer {
	return &Demultiplexer{source: source, out: out, logger: logger}
}

// State exposes the turn state, mainly for tests
func (d *Demultiplexer) State() TurnState {
	return d.turn.State()
}

// Run consumes the backend stream until it ends or ctx is cancelled.
// Any end of the stream terminates the connection.
func (d *Demultiplexer) Run(ctx context.Context) error {
	for {
		event, err := d.source.Receive(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, repositories.ErrSessionClosed):
				return err
			case errors.Is(err, io.EOF):
				return errBackendStreamEnded
			default:
				return fmt.Errorf("receive backend event: %w", err)
			}
		}

		if err := d.Handle(event); err != nil {
			return err
		}
	}
}

// Handle applies one event. Only client write failures are returned.
func (d *Demultiplexer) Handle(event *repositories.BackendEvent) error {
	if err := event.Validate(); err != nil {
		d.logger.Warn("Skipping malformed backend event", zap.Error(err))
		return nil
	}

	for _, part := range event.Parts {
		if err := d.handlePart(part); err != nil {
			return err
		}
	}

	if event.Interrupted && d.turn.Interrupt() {
		d.logger.Info("Interruption detected")
		if err := d.send(domain.InterruptedMessage()); err != nil {
			return err
		}
	}

	if event.TurnComplete {
		notify, summary := d.turn.Complete()
		if notify {
			d.logger.Info("Backend done talking")
			if err := d.send(domain.TurnCompleteMessage()); err != nil {
				return err
			}
		}
		d.logTurn(summary)
	}

	return nil
}

func (d *Demultiplexer) handlePart(part repositories.ContentPart) error {
	if part.IsEmpty() {
		d.logger.Warn("Skipping empty content part", zap.String("role", string(part.Role)))
		return nil
	}

	if part.IsAudio() {
		d.turn.MarkContent()
		if err := d.send(domain.AudioMessage(part.Audio)); err != nil {
			return err
		}
	}

	if part.Text == "" {
		return nil
	}

	if part.Role == repositories.UserRole {
		d.turn.AddInput(part.Text)
		return nil
	}

	d.turn.AddOutput(part.Text)
	// The final fragment repeats the partials already streamed.
	if !part.Partial {
		return nil
	}
	return d.send(domain.TextMessage(part.Text))
}

func (d *Demultiplexer) send(msg domain.WireMessage) error {
	if err := d.out.Send(msg); err != nil {
		return fmt.Errorf("send %s message: %w", msg.Type, err)
	}
	return nil
}

func (d *Demultiplexer) logTurn(summary TurnSummary) {
	if len(summary.Inputs) > 0 {
		d.logger.Info("Input transcription", zap.String("text", summary.InputTranscript()))
	}
	if len(summary.Outputs) > 0 {
		d.logger.Info("Output transcription",
			zap.String("text", summary.OutputTranscript()),
			zap.Bool("interrupted", summary.Interrupted))
	}
}
