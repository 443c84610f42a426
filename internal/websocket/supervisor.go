package websocket

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/voicerelay/domain"
	"github.com/satriahrh/voicerelay/domain/entities"
	"github.com/satriahrh/voicerelay/domain/repositories"
)

// RelayConfig holds the connection-wide audio settings
type RelayConfig struct {
	InboundSampleRate  int
	OutboundSampleRate int
	FrameQueueSize     int
}

// Supervisor owns every live connection from upgrade to teardown
type Supervisor struct {
	hub     *Hub
	backend repositories.VoiceBackend
	cfg     RelayConfig
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	active sync.WaitGroup
}

// NewSupervisor creates a supervisor. Shutdown tears down all connections.
func NewSupervisor(hub *Hub, backend repositories.VoiceBackend, cfg RelayConfig, logger *zap.Logger) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		hub:     hub,
		backend: backend,
		cfg:     cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Shutdown cancels every running connection
func (s *Supervisor) Shutdown() {
	s.cancel()
}

// Wait blocks until every connection has been torn down or ctx is done
func (s *Supervisor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleWebSocket upgrades the request and serves the connection until it ends
func HandleWebSocket(s *Supervisor, c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	s.Serve(c.Request().Context(), ws, c.RealIP())
	return nil
}

// Serve runs one connection: register, greet, open the backend session and
// run ingress, submitter and demultiplexer as a single failure unit.
func (s *Supervisor) Serve(ctx context.Context, ws *websocket.Conn, remoteAddr string) {
	s.active.Add(1)
	defer s.active.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	conn := entities.NewConnection(remoteAddr)
	client := newClientConn(ws)
	logger := s.logger.With(zap.String("connectionID", conn.ID))

	if err := s.hub.Register(conn); err != nil {
		logger.Error("Failed to register connection", zap.Error(err))
		client.Close(websocket.CloseInternalServerErr)
		return
	}

	if err := client.Send(domain.ReadyMessage()); err != nil {
		logger.Info("Client went away before ready", zap.Error(err))
		s.hub.Unregister(conn.ID)
		client.Close(websocket.CloseNormalClosure)
		return
	}

	session, err := s.backend.Connect(ctx, repositories.SessionConfig{
		ConnectionID:       conn.ID,
		InboundSampleRate:  s.cfg.InboundSampleRate,
		OutboundSampleRate: s.cfg.OutboundSampleRate,
	})
	if err != nil {
		logger.Error("Failed to create backend session", zap.Error(err))
		s.hub.Unregister(conn.ID)
		client.Close(websocket.CloseInternalServerErr)
		return
	}
	s.hub.AttachSession(conn.ID, session.ID())
	logger = logger.With(zap.String("sessionID", session.ID()))
	logger.Info("New client connected", zap.String("remoteAddr", remoteAddr))

	frames := NewFrameChannel(s.cfg.FrameQueueSize)
	ingress := NewIngress(client, frames, s.cfg.InboundSampleRate, logger)
	submitter := NewSubmitter(frames, session, logger)
	demux := NewDemultiplexer(session, client, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(task(gctx, logger, "ingress", ingress.Run))
	g.Go(task(gctx, logger, "submitter", submitter.Run))
	g.Go(task(gctx, logger, "demultiplexer", demux.Run))
	g.Go(task(gctx, logger, "keepalive", func(ctx context.Context) error {
		return keepalive(ctx, client)
	}))
	// Blocked reads only return once their source is closed.
	g.Go(func() error {
		<-gctx.Done()
		_ = session.Close()
		client.Close(websocket.CloseNormalClosure)
		return nil
	})

	err = g.Wait()

	dropped := frames.Close()
	if err := session.Close(); err != nil {
		logger.Debug("Backend session close", zap.Error(err))
	}
	s.hub.Unregister(conn.ID)
	client.Close(websocket.CloseNormalClosure)

	duration := time.Since(conn.CreatedAt)
	switch {
	case isCleanShutdown(err):
		logger.Info("Client disconnected",
			zap.Duration("duration", duration),
			zap.Int("droppedChunks", dropped),
			zap.NamedError("reason", err))
	default:
		logger.Error("Error handling client",
			zap.Duration("duration", duration),
			zap.Int("droppedChunks", dropped),
			zap.Error(err))
	}
}

// task adapts a loop to the group. A loop that returns at all ends the
// connection, so a nil return is turned into an error to cancel siblings.
func task(ctx context.Context, logger *zap.Logger, name string, run func(context.Context) error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Task panicked",
					zap.String("task", name),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				err = fmt.Errorf("%s panicked: %v", name, r)
			}
		}()

		if err := run(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return fmt.Errorf("%s: %w", name, errTaskExited)
	}
}

var errTaskExited = errors.New("task exited")

func keepalive(ctx context.Context, client *clientConn) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := client.Ping(); err != nil {
				return fmt.Errorf("ping client: %w", err)
			}
		}
	}
}

// isCleanShutdown reports teardown causes that are not failures
func isCleanShutdown(err error) bool {
	return err == nil ||
		errors.Is(err, errClientDisconnected) ||
		errors.Is(err, repositories.ErrSessionClosed) ||
		errors.Is(err, context.Canceled)
}
