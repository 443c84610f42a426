package websocket

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/satriahrh/voicerelay/domain"
	"github.com/satriahrh/voicerelay/domain/entities"
	"github.com/satriahrh/voicerelay/domain/repositories"
)

// fakeSession is a scripted backend session. Events pushed on events are
// returned by Receive; closing events simulates the backend going away.
type fakeSession struct {
	id     string
	events chan *repositories.BackendEvent
	echo   bool

	mu       sync.Mutex
	sent     []entities.AudioChunk
	failNext int

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeSession(echo bool) *fakeSession {
	return &fakeSession{
		id:     "session-test",
		events: make(chan *repositories.BackendEvent, 64),
		echo:   echo,
		closed: make(chan struct{}),
	}
}

func (f *fakeSession) ID() string { return f.id }

func (f *fakeSession) SendAudio(ctx context.Context, chunk entities.AudioChunk) error {
	f.mu.Lock()
	if f.failNext > 0 {
		f.failNext--
		f.mu.Unlock()
		return errors.New("transient backend failure")
	}
	f.sent = append(f.sent, chunk)
	f.mu.Unlock()

	if f.echo {
		f.events <- &repositories.BackendEvent{
			Parts: []repositories.ContentPart{{Role: repositories.AssistantRole, Audio: chunk.Data}},
		}
	}
	return nil
}

func (f *fakeSession) Receive(ctx context.Context) (*repositories.BackendEvent, error) {
	select {
	case ev, ok := <-f.events:
		if !ok {
			return nil, io.EOF
		}
		return ev, nil
	case <-f.closed:
		return nil, repositories.ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeSession) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeSession) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeSession) sentChunks() []entities.AudioChunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entities.AudioChunk, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeBackend struct {
	session *fakeSession
	err     error
}

func (b *fakeBackend) Connect(ctx context.Context, cfg repositories.SessionConfig) (repositories.VoiceSession, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.session, nil
}

// recordingSender captures outbound wire messages
type recordingSender struct {
	mu   sync.Mutex
	msgs []domain.WireMessage
	err  error
}

func (r *recordingSender) Send(msg domain.WireMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingSender) messages() []domain.WireMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.WireMessage, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func (r *recordingSender) types() []domain.MessageType {
	var out []domain.MessageType
	for _, m := range r.messages() {
		out = append(out, m.Type)
	}
	return out
}

type frame struct {
	messageType int
	data        []byte
}

// scriptedReader replays frames then reports a normal close
type scriptedReader struct {
	frames []frame
	pos    int
}

func (s *scriptedReader) ReadMessage() (int, []byte, error) {
	if s.pos >= len(s.frames) {
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
	f := s.frames[s.pos]
	s.pos++
	return f.messageType, f.data, nil
}

func textFrame(s string) frame {
	return frame{messageType: websocket.TextMessage, data: []byte(s)}
}
