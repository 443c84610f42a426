package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/voicerelay/domain/repositories"
)

// GeminiConfig holds the settings needed to reach Gemini
type GeminiConfig struct {
	APIKey            string
	UseVertexAI       bool
	Project           string
	Location          string
	Model             string
	Voice             string
	SystemInstruction string
}

// NewGeminiClient creates a genai client for either the Gemini API or Vertex AI
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*genai.Client, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.UseVertexAI {
		clientConfig = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	} else if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required unless Vertex AI is enabled")
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// GeminiLiveBackend implements the VoiceBackend interface using the Gemini Live API
type GeminiLiveBackend struct {
	client *genai.Client
	cfg    GeminiConfig
	tools  repositories.ToolDispatcher
	logger *zap.Logger
}

// NewGeminiLiveBackend creates a new Gemini Live backend. tools may be nil.
func NewGeminiLiveBackend(client *genai.Client, cfg GeminiConfig, tools repositories.ToolDispatcher, logger *zap.Logger) *GeminiLiveBackend {
	return &GeminiLiveBackend{
		client: client,
		cfg:    cfg,
		tools:  tools,
		logger: logger,
	}
}

// Connect opens a live session for one client connection
func (b *GeminiLiveBackend) Connect(ctx context.Context, sc repositories.SessionConfig) (repositories.VoiceSession, error) {
	session, err := b.client.Live.Connect(ctx, b.cfg.Model, b.connectConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Gemini Live: %w", err)
	}

	b.logger.Info("Gemini Live session opened",
		zap.String("connectionID", sc.ConnectionID),
		zap.String("model", b.cfg.Model),
		zap.String("voice", b.cfg.Voice))

	return newGeminiLiveSession(session, b.tools, sc, b.logger), nil
}

func (b *GeminiLiveBackend) connectConfig() *genai.LiveConnectConfig {
	config := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: b.cfg.Voice},
			},
		},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}

	if b.cfg.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(b.cfg.SystemInstruction, genai.RoleUser)
	}

	if b.tools != nil {
		if declarations := functionDeclarations(b.tools.Tools()); len(declarations) > 0 {
			config.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
		}
	}

	return config
}

// functionDeclarations describes every tool as an object of string arguments
func functionDeclarations(tools []repositories.Tool) []*genai.FunctionDeclaration {
	var declarations []*genai.FunctionDeclaration
	for _, tool := range tools {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema),
		}
		for _, param := range tool.Parameters() {
			schema.Properties[param.Name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: param.Description,
			}
			if param.Required {
				schema.Required = append(schema.Required, param.Name)
			}
		}

		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  schema,
		})
	}
	return declarations
}
