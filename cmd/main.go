package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/satriahrh/voicerelay/adapters"
	"github.com/satriahrh/voicerelay/adapters/llm"
	"github.com/satriahrh/voicerelay/adapters/mongo"
	"github.com/satriahrh/voicerelay/domain/repositories"
	"github.com/satriahrh/voicerelay/internal/api"
	"github.com/satriahrh/voicerelay/internal/config"
	"github.com/satriahrh/voicerelay/internal/websocket"
	"github.com/satriahrh/voicerelay/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger level comes from config, so fall back to a default one.
		zap.NewExample().Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize logger
	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx := context.Background()

	// Initialize storage
	var orders repositories.OrderRepository = adapters.NewMemoryOrderRepository()
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer mongoClient.Close(context.Background())
		orders = mongo.NewOrderRepository(mongoClient.Database)
	} else {
		logger.Info("MONGODB_URI not set, using in-memory orders")
	}

	// Initialize voice backend and tools
	backend, err := newBackend(ctx, cfg, orders, logger)
	if err != nil {
		logger.Fatal("Failed to initialize voice backend", zap.Error(err))
	}

	// Initialize relay
	hub := websocket.NewHub(logger)
	monitor := websocket.NewHubMonitor(hub, time.Minute, logger)
	monitor.Start()
	defer monitor.Stop()

	supervisor := websocket.NewSupervisor(hub, backend, websocket.RelayConfig{
		InboundSampleRate:  cfg.InboundSampleRate,
		OutboundSampleRate: cfg.OutboundSampleRate,
		FrameQueueSize:     cfg.FrameQueueSize,
	}, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, hub, supervisor, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Voice relay started",
		zap.String("port", cfg.Port),
		zap.String("backend", cfg.Backend),
		zap.Int("inboundSampleRate", cfg.InboundSampleRate),
		zap.Int("outboundSampleRate", cfg.OutboundSampleRate))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by the HTTP server.
	supervisor.Shutdown()
	if err := supervisor.Wait(shutdownCtx); err != nil {
		logger.Warn("Connections still open at shutdown", zap.Int("active", hub.Count()))
	}

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(level string) *zap.Logger {
	if level == "debug" {
		logger, _ := zap.NewDevelopment()
		return logger
	}

	zapConfig := zap.NewProductionConfig()
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		zapConfig.Level = zap.NewAtomicLevelAt(parsed)
	}
	logger, err := zapConfig.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func newBackend(ctx context.Context, cfg *config.Config, orders repositories.OrderRepository, logger *zap.Logger) (repositories.VoiceBackend, error) {
	if cfg.Backend == config.BackendMock {
		logger.Info("Using mock voice backend")
		return llm.NewMockLiveBackend(0, logger), nil
	}

	geminiConfig := llm.GeminiConfig{
		APIKey:            cfg.GeminiAPIKey,
		UseVertexAI:       cfg.UseVertexAI,
		Project:           cfg.Project,
		Location:          cfg.Location,
		Model:             cfg.Model,
		Voice:             cfg.Voice,
		SystemInstruction: cfg.SystemInstruction,
	}

	client, err := llm.NewGeminiClient(ctx, geminiConfig)
	if err != nil {
		return nil, err
	}

	var kb repositories.KnowledgeBase
	if err := llm.ValidateRAGConfig(geminiConfig, cfg.RAGCorpus); err == nil {
		kb = llm.NewVertexRAGKnowledgeBase(client, cfg.RAGCorpus, logger)
	} else {
		logger.Info("Knowledge search disabled", zap.String("reason", err.Error()))
	}

	tools, err := usecase.NewToolRegistry(logger,
		usecase.NewOrderStatusService(orders, logger),
		usecase.NewKnowledgeSearchService(kb, logger),
	)
	if err != nil {
		return nil, err
	}

	return llm.NewGeminiLiveBackend(client, geminiConfig, tools, logger), nil
}
