package domain

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType is the `type` tag of a wire envelope
type MessageType string

const (
	MessageTypeReady        MessageType = "ready"
	MessageTypeAudio        MessageType = "audio"
	MessageTypeText         MessageType = "text"
	MessageTypeEnd          MessageType = "end"
	MessageTypeInterrupted  MessageType = "interrupted"
	MessageTypeTurnComplete MessageType = "turn_complete"
)

// WireMessage is the only vocabulary exchanged with the client.
// Data is base64 for audio, plain text for text and empty otherwise.
type WireMessage struct {
	Type MessageType `json:"type"`
	Data string      `json:"data,omitempty"`
}

var (
	ErrMissingType = errors.New("message missing type field")
	ErrEmptyAudio  = errors.New("audio message has no data")
)

// ReadyMessage tells the client the session is initialized
func ReadyMessage() WireMessage {
	return WireMessage{Type: MessageTypeReady}
}

// AudioMessage wraps raw audio for transport
func AudioMessage(audio []byte) WireMessage {
	return WireMessage{Type: MessageTypeAudio, Data: base64.StdEncoding.EncodeToString(audio)}
}

// TextMessage carries one partial assistant text fragment
func TextMessage(text string) WireMessage {
	return WireMessage{Type: MessageTypeText, Data: text}
}

// InterruptedMessage signals the current turn was superseded
func InterruptedMessage() WireMessage {
	return WireMessage{Type: MessageTypeInterrupted}
}

// TurnCompleteMessage signals the backend finished the current turn
func TurnCompleteMessage() WireMessage {
	return WireMessage{Type: MessageTypeTurnComplete}
}

// DecodeWireMessage parses a client envelope. Unknown types are returned
// as-is so the caller decides how to treat them.
func DecodeWireMessage(raw []byte) (WireMessage, error) {
	var msg WireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return WireMessage{}, fmt.Errorf("invalid JSON format: %w", err)
	}
	if msg.Type == "" {
		return WireMessage{}, ErrMissingType
	}
	return msg, nil
}

// AudioPayload decodes the base64 payload of an audio message
func (m WireMessage) AudioPayload() ([]byte, error) {
	if m.Data == "" {
		return nil, ErrEmptyAudio
	}
	audio, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid audio payload: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	return audio, nil
}
