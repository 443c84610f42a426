package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction tells which way an audio chunk travels through the relay
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Connection represents one live client socket bound to a backend session
type Connection struct {
	ID         string    `json:"id"`
	RemoteAddr string    `json:"remote_addr"`
	SessionID  string    `json:"session_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewConnection creates a connection with a fresh identity
func NewConnection(remoteAddr string) *Connection {
	return &Connection{
		ID:         uuid.New().String(),
		RemoteAddr: remoteAddr,
		CreatedAt:  time.Now(),
	}
}

// AudioChunk is one opaque audio frame. It must not be mutated once created.
type AudioChunk struct {
	Data       []byte
	SampleRate int
	Direction  Direction
}

// NewInboundChunk creates a chunk received from the client
func NewInboundChunk(data []byte, sampleRate int) AudioChunk {
	return AudioChunk{Data: data, SampleRate: sampleRate, Direction: DirectionInbound}
}

// MIMEType returns the raw PCM marker carrying the sample rate, e.g. audio/pcm;rate=16000
func (c AudioChunk) MIMEType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", c.SampleRate)
}

// Validate checks the chunk carries data and a usable sample rate
func (c AudioChunk) Validate() error {
	if len(c.Data) == 0 {
		return errors.New("audio chunk is empty")
	}
	if c.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}
	return nil
}
