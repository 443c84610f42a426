package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendGemini = "gemini"
	BackendMock   = "mock"

	defaultPort               = "8765"
	defaultLocation           = "us-central1"
	defaultModel              = "gemini-2.0-flash-live-preview-04-09"
	defaultVoice              = "Puck"
	defaultInboundSampleRate  = 16000
	defaultOutboundSampleRate = 24000
	defaultFrameQueueSize     = 64
	defaultMongoDatabase      = "voicerelay"
)

// DefaultSystemInstruction is used when SYSTEM_INSTRUCTION_FILE is not set
const DefaultSystemInstruction = `You are a friendly customer support agent.
Answer questions about our products and services.
Use get_order_status to look up orders by their ID and rag_knowledge_search for policy details.`

// Config holds process-wide settings
type Config struct {
	Port     string
	LogLevel string

	Backend           string
	GeminiAPIKey      string
	UseVertexAI       bool
	Project           string
	Location          string
	Model             string
	Voice             string
	SystemInstruction string
	RAGCorpus         string

	InboundSampleRate  int
	OutboundSampleRate int
	FrameQueueSize     int

	MongoURI      string
	MongoDatabase string
}

// Load reads .env (if present) and the environment
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", defaultPort),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		Project:       os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Location:      getEnv("GOOGLE_CLOUD_LOCATION", defaultLocation),
		Model:         getEnv("GEMINI_MODEL", defaultModel),
		Voice:         getEnv("GEMINI_VOICE", defaultVoice),
		RAGCorpus:     os.Getenv("RAG_CORPUS"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: getEnv("MONGODB_DATABASE", defaultMongoDatabase),
	}

	var err error
	if cfg.UseVertexAI, err = getBool("GOOGLE_GENAI_USE_VERTEXAI", false); err != nil {
		return nil, err
	}
	if cfg.InboundSampleRate, err = getInt("INBOUND_SAMPLE_RATE", defaultInboundSampleRate); err != nil {
		return nil, err
	}
	if cfg.OutboundSampleRate, err = getInt("OUTBOUND_SAMPLE_RATE", defaultOutboundSampleRate); err != nil {
		return nil, err
	}
	if cfg.FrameQueueSize, err = getInt("FRAME_QUEUE_SIZE", defaultFrameQueueSize); err != nil {
		return nil, err
	}

	cfg.SystemInstruction = DefaultSystemInstruction
	if path := os.Getenv("SYSTEM_INSTRUCTION_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read system instruction: %w", err)
		}
		cfg.SystemInstruction = string(b)
	}

	cfg.Backend = strings.ToLower(os.Getenv("VOICE_BACKEND"))
	if cfg.Backend == "" {
		cfg.Backend = BackendMock
		if cfg.GeminiAPIKey != "" || (cfg.UseVertexAI && cfg.Project != "") {
			cfg.Backend = BackendGemini
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings are usable together
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.InboundSampleRate <= 0 || c.OutboundSampleRate <= 0 {
		return errors.New("sample rates must be positive")
	}
	if c.FrameQueueSize <= 0 {
		return errors.New("FRAME_QUEUE_SIZE must be positive")
	}

	switch c.Backend {
	case BackendMock:
	case BackendGemini:
		if c.UseVertexAI {
			if c.Project == "" {
				return errors.New("GOOGLE_CLOUD_PROJECT is required with Vertex AI")
			}
		} else if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY environment variable is required")
		}
	default:
		return fmt.Errorf("unknown VOICE_BACKEND %q", c.Backend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}
