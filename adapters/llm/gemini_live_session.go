package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/voicerelay/domain/entities"
	"github.com/satriahrh/voicerelay/domain/repositories"
)

// liveConn is the part of *genai.Session the relay uses
type liveConn interface {
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	SendToolResponse(input genai.LiveToolResponseInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

// GeminiLiveSession implements the VoiceSession interface over one Live API session
type GeminiLiveSession struct {
	id     string
	conn   liveConn
	tools  repositories.ToolDispatcher
	logger *zap.Logger

	sendMu sync.Mutex

	events  chan *repositories.BackendEvent
	readErr error

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error

	// readerDone is closed when readLoop returns. Only readLoop adds to
	// toolCalls, so Close waits for it before waiting on toolCalls.
	readerDone chan struct{}
	toolCalls  sync.WaitGroup
}

func newGeminiLiveSession(conn liveConn, tools repositories.ToolDispatcher, sc repositories.SessionConfig, logger *zap.Logger) *GeminiLiveSession {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New().String()
	s := &GeminiLiveSession{
		id:     id,
		conn:   conn,
		tools:  tools,
		logger: logger.With(zap.String("sessionID", id), zap.String("connectionID", sc.ConnectionID)),
		events: make(chan *repositories.BackendEvent, 16),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),

		readerDone: make(chan struct{}),
	}
	go s.readLoop(newEventConverter(sc.OutboundSampleRate))
	return s
}

// ID returns the session identifier
func (s *GeminiLiveSession) ID() string {
	return s.id
}

// SendAudio forwards one realtime audio segment
func (s *GeminiLiveSession) SendAudio(ctx context.Context, chunk entities.AudioChunk) error {
	if s.isClosed() {
		return repositories.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.sendMu.Lock()
	err := s.conn.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: chunk.Data, MIMEType: chunk.MIMEType()},
	})
	s.sendMu.Unlock()

	if err != nil {
		if s.isClosed() {
			return repositories.ErrSessionClosed
		}
		return fmt.Errorf("failed to send realtime audio: %w", err)
	}
	return nil
}

// Receive blocks until the next event
func (s *GeminiLiveSession) Receive(ctx context.Context) (*repositories.BackendEvent, error) {
	if s.isClosed() {
		return nil, repositories.ErrSessionClosed
	}

	select {
	case event, ok := <-s.events:
		if !ok {
			if s.isClosed() {
				return nil, repositories.ErrSessionClosed
			}
			return nil, s.readErr
		}
		return event, nil
	case <-s.done:
		return nil, repositories.ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the underlying Live session. Only the first call has any effect.
func (s *GeminiLiveSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
		s.closeErr = s.conn.Close()
		<-s.readerDone
		s.toolCalls.Wait()
		s.logger.Info("Gemini Live session closed")
	})
	return s.closeErr
}

func (s *GeminiLiveSession) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// readLoop converts server messages into events until the stream ends.
// readErr is written before events is closed.
func (s *GeminiLiveSession) readLoop(converter *eventConverter) {
	defer close(s.readerDone)
	defer close(s.events)

	for {
		msg, err := s.conn.Receive()
		if err != nil {
			s.readErr = classifyReceiveError(err)
			if !s.isClosed() {
				s.logger.Info("Gemini Live stream ended", zap.Error(err))
			}
			return
		}

		if msg.GoAway != nil {
			s.logger.Warn("Gemini Live server is going away")
		}
		if msg.ToolCall != nil {
			s.dispatchToolCalls(msg.ToolCall.FunctionCalls)
		}

		event := converter.convert(msg)
		if event == nil {
			continue
		}

		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}
}

func (s *GeminiLiveSession) dispatchToolCalls(calls []*genai.FunctionCall) {
	if s.tools == nil || len(calls) == 0 {
		return
	}

	s.toolCalls.Add(1)
	go func() {
		defer s.toolCalls.Done()

		responses := make([]*genai.FunctionResponse, 0, len(calls))
		for _, call := range calls {
			s.logger.Info("Tool call", zap.String("tool", call.Name), zap.Any("args", call.Args))
			responses = append(responses, &genai.FunctionResponse{
				ID:       call.ID,
				Name:     call.Name,
				Response: s.tools.Dispatch(s.ctx, call.Name, call.Args),
			})
		}

		if s.isClosed() {
			return
		}

		s.sendMu.Lock()
		err := s.conn.SendToolResponse(genai.LiveToolResponseInput{FunctionResponses: responses})
		s.sendMu.Unlock()
		if err != nil && !s.isClosed() {
			s.logger.Error("Failed to send tool response", zap.Error(err))
		}
	}()
}

func classifyReceiveError(err error) error {
	if errors.Is(err, io.EOF) || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return io.EOF
	}
	return fmt.Errorf("gemini live receive: %w", err)
}

// eventConverter turns server messages into backend events. It keeps the
// assistant text of the current turn so turn completion can report the
// final text.
type eventConverter struct {
	outboundMIMEType string
	assistant        strings.Builder
}

func newEventConverter(outboundSampleRate int) *eventConverter {
	return &eventConverter{
		outboundMIMEType: fmt.Sprintf("audio/pcm;rate=%d", outboundSampleRate),
	}
}

// convert returns nil for messages carrying nothing to relay
func (c *eventConverter) convert(msg *genai.LiveServerMessage) *repositories.BackendEvent {
	content := msg.ServerContent
	if content == nil {
		return nil
	}

	event := &repositories.BackendEvent{}

	if content.InputTranscription != nil && content.InputTranscription.Text != "" {
		event.Parts = append(event.Parts, repositories.ContentPart{
			Role:    repositories.UserRole,
			Partial: !content.InputTranscription.Finished,
			Text:    content.InputTranscription.Text,
		})
	}

	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part == nil || part.Thought {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = c.outboundMIMEType
				}
				event.Parts = append(event.Parts, repositories.ContentPart{
					Role:     repositories.AssistantRole,
					Audio:    part.InlineData.Data,
					MIMEType: mimeType,
				})
			}
			if part.Text != "" {
				event.Parts = append(event.Parts, c.assistantPartial(part.Text))
			}
		}
	}

	if content.OutputTranscription != nil && content.OutputTranscription.Text != "" {
		event.Parts = append(event.Parts, c.assistantPartial(content.OutputTranscription.Text))
	}

	if content.Interrupted {
		event.Interrupted = true
		c.assistant.Reset()
	}

	if content.TurnComplete {
		event.TurnComplete = true
		if final := strings.TrimSpace(c.assistant.String()); final != "" && !content.Interrupted {
			event.Parts = append(event.Parts, repositories.ContentPart{
				Role: repositories.AssistantRole,
				Text: final,
			})
		}
		c.assistant.Reset()
	}

	if len(event.Parts) == 0 && !event.Interrupted && !event.TurnComplete {
		return nil
	}
	return event
}

// assistantPartial forwards the fragment as received. The builder only
// feeds the final part reported at turn completion.
func (c *eventConverter) assistantPartial(delta string) repositories.ContentPart {
	c.assistant.WriteString(delta)
	return repositories.ContentPart{
		Role:    repositories.AssistantRole,
		Partial: true,
		Text:    delta,
	}
}
