package repositories

import (
	"context"
	"errors"

	"github.com/satriahrh/voicerelay/domain/entities"
)

// ErrSessionClosed is returned by Receive once the session was closed locally
var ErrSessionClosed = errors.New("voice session closed")

// VoiceBackend abstracts any conversational voice provider
type VoiceBackend interface {
	// Connect opens a live session bound to one client connection
	Connect(ctx context.Context, cfg SessionConfig) (VoiceSession, error)
}

// SessionConfig carries per-connection settings for a backend session
type SessionConfig struct {
	ConnectionID       string
	InboundSampleRate  int
	OutboundSampleRate int
}

// VoiceSession is a live, bidirectional backend session.
// SendAudio and Receive may be called concurrently with each other;
// neither may be called concurrently with itself.
type VoiceSession interface {
	ID() string
	// SendAudio forwards one realtime audio segment
	SendAudio(ctx context.Context, chunk entities.AudioChunk) error
	// Receive blocks until the next event. It returns ErrSessionClosed after
	// Close and io.EOF when the backend ended the stream on its own.
	Receive(ctx context.Context) (*BackendEvent, error)
	Close() error
}

// Role defines who produced a piece of content
type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
)

// ContentPart is one piece of backend output: either audio or text
type ContentPart struct {
	Role     Role
	Partial  bool
	Text     string
	Audio    []byte
	MIMEType string
}

// IsEmpty reports a part with neither audio nor text. Such parts are
// skipped without affecting the rest of their event.
func (p ContentPart) IsEmpty() bool {
	return !p.IsAudio() && p.Text == ""
}

// IsAudio reports whether the part carries an audio payload
func (p ContentPart) IsAudio() bool {
	return len(p.Audio) > 0
}

// BackendEvent is a typed event from the backend stream
type BackendEvent struct {
	Parts        []ContentPart
	Interrupted  bool
	TurnComplete bool
}

// Validate reports events that carry nothing the relay can act on
func (e *BackendEvent) Validate() error {
	if e == nil {
		return errors.New("nil event")
	}
	if len(e.Parts) == 0 && !e.Interrupted && !e.TurnComplete {
		return errors.New("event has no parts and no lifecycle flags")
	}
	return nil
}
