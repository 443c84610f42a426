package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/voicerelay/domain/entities"
	"github.com/satriahrh/voicerelay/domain/repositories"
)

const defaultTranscriptEvery = 50

// MockLiveBackend is a local backend that echoes audio back to the client.
// It is used when no Gemini credentials are configured.
type MockLiveBackend struct {
	transcriptEvery int
	logger          *zap.Logger
}

// NewMockLiveBackend creates a mock backend. Every transcriptEvery inbound
// chunks the session emits a short scripted turn; zero picks a default.
func NewMockLiveBackend(transcriptEvery int, logger *zap.Logger) *MockLiveBackend {
	if transcriptEvery <= 0 {
		transcriptEvery = defaultTranscriptEvery
	}
	return &MockLiveBackend{transcriptEvery: transcriptEvery, logger: logger}
}

// Connect implements repositories.VoiceBackend
func (b *MockLiveBackend) Connect(ctx context.Context, sc repositories.SessionConfig) (repositories.VoiceSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session := &MockLiveSession{
		id:              uuid.New().String(),
		transcriptEvery: b.transcriptEvery,
		outboundRate:    sc.OutboundSampleRate,
		events:          make(chan *repositories.BackendEvent, 64),
		done:            make(chan struct{}),
	}
	b.logger.Info("Mock live session opened",
		zap.String("connectionID", sc.ConnectionID),
		zap.String("sessionID", session.id))
	return session, nil
}

// MockLiveSession echoes every inbound chunk as assistant audio
type MockLiveSession struct {
	id              string
	transcriptEvery int
	outboundRate    int

	mu       sync.Mutex
	received int

	events    chan *repositories.BackendEvent
	done      chan struct{}
	closeOnce sync.Once
}

// ID implements repositories.VoiceSession
func (s *MockLiveSession) ID() string {
	return s.id
}

// SendAudio implements repositories.VoiceSession
func (s *MockLiveSession) SendAudio(ctx context.Context, chunk entities.AudioChunk) error {
	s.mu.Lock()
	s.received++
	received := s.received
	s.mu.Unlock()

	data := make([]byte, len(chunk.Data))
	copy(data, chunk.Data)

	events := []*repositories.BackendEvent{{
		Parts: []repositories.ContentPart{{
			Role:     repositories.AssistantRole,
			Audio:    data,
			MIMEType: fmt.Sprintf("audio/pcm;rate=%d", s.outboundRate),
		}},
	}}
	if received%s.transcriptEvery == 0 {
		events = append(events, scriptedTurn(received)...)
	}

	for _, event := range events {
		select {
		case s.events <- event:
		case <-s.done:
			return repositories.ErrSessionClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Receive implements repositories.VoiceSession
func (s *MockLiveSession) Receive(ctx context.Context) (*repositories.BackendEvent, error) {
	select {
	case <-s.done:
		return nil, repositories.ErrSessionClosed
	default:
	}

	select {
	case event := <-s.events:
		return event, nil
	case <-s.done:
		return nil, repositories.ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements repositories.VoiceSession
func (s *MockLiveSession) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func scriptedTurn(received int) []*repositories.BackendEvent {
	rest := fmt.Sprintf(" %d chunks of audio.", received)
	final := "I heard" + rest
	return []*repositories.BackendEvent{
		{Parts: []repositories.ContentPart{{Role: repositories.UserRole, Text: fmt.Sprintf("(%d chunks)", received)}}},
		{Parts: []repositories.ContentPart{{Role: repositories.AssistantRole, Partial: true, Text: "I heard"}}},
		{Parts: []repositories.ContentPart{{Role: repositories.AssistantRole, Partial: true, Text: rest}}},
		{
			Parts:        []repositories.ContentPart{{Role: repositories.AssistantRole, Text: final}},
			TurnComplete: true,
		},
	}
}
