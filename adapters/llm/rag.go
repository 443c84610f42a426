package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultRAGModel   = "gemini-2.0-flash"
	ragAttempts       = 3
	ragRequestTimeout = 15 * time.Second
)

// VertexRAGKnowledgeBase implements the KnowledgeBase interface by grounding
// a Gemini request on a Vertex AI RAG corpus
type VertexRAGKnowledgeBase struct {
	client *genai.Client
	model  string
	corpus string
	logger *zap.Logger
}

// NewVertexRAGKnowledgeBase creates a knowledge base over corpus, a full
// resource name such as projects/p/locations/l/ragCorpora/123
func NewVertexRAGKnowledgeBase(client *genai.Client, corpus string, logger *zap.Logger) *VertexRAGKnowledgeBase {
	return &VertexRAGKnowledgeBase{
		client: client,
		model:  defaultRAGModel,
		corpus: corpus,
		logger: logger,
	}
}

// Retrieve returns passages from the corpus relevant to query
func (k *VertexRAGKnowledgeBase) Retrieve(ctx context.Context, query string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ragRequestTimeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(query, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{
			Retrieval: &genai.Retrieval{
				VertexRAGStore: &genai.VertexRAGStore{
					RAGResources: []*genai.VertexRAGStoreRAGResource{{RAGCorpus: k.corpus}},
				},
			},
		}},
	}

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < ragAttempts; attempt++ {
		response, err = k.client.Models.GenerateContent(ctx, k.model, contents, config)
		if err == nil {
			break
		}

		k.logger.Warn("Failed to query RAG corpus, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < ragAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query RAG corpus: %w", err)
	}

	passages := retrievedPassages(response)
	k.logger.Info("RAG query completed",
		zap.String("query", query),
		zap.Int("passages", len(passages)))
	return passages, nil
}

// retrievedPassages prefers the retrieved contexts from grounding metadata
// and falls back to the generated answer
func retrievedPassages(response *genai.GenerateContentResponse) []string {
	if response == nil || len(response.Candidates) == 0 {
		return nil
	}
	candidate := response.Candidates[0]

	var passages []string
	if candidate.GroundingMetadata != nil {
		for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.RetrievedContext == nil {
				continue
			}
			if text := strings.TrimSpace(chunk.RetrievedContext.Text); text != "" {
				passages = append(passages, text)
			}
		}
	}
	if len(passages) > 0 {
		return passages
	}

	if candidate.Content == nil {
		return nil
	}
	var answer strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			answer.WriteString(part.Text)
		}
	}
	if text := strings.TrimSpace(answer.String()); text != "" {
		return []string{text}
	}
	return nil
}

var errNoRAGCorpus = errors.New("RAG corpus is not configured")

// ValidateRAGConfig checks the knowledge base can be built for cfg
func ValidateRAGConfig(cfg GeminiConfig, corpus string) error {
	if corpus == "" {
		return errNoRAGCorpus
	}
	if !cfg.UseVertexAI {
		return errors.New("RAG retrieval requires Vertex AI")
	}
	return nil
}
