package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/voicerelay/domain/repositories"
)

const (
	maxKnowledgePassages = 3

	knowledgeUnavailable = "I apologize, but I'm having trouble accessing our knowledge base right now. " +
		"Let me help you with general information about our services."
	knowledgeEmpty = "I found some information but couldn't retrieve the specific details. " +
		"Let me help you with general information about our services."
)

// KnowledgeSearchService answers rag_knowledge_search tool calls.
// Retrieval failures become a spoken apology, never an error.
type KnowledgeSearchService struct {
	kb     repositories.KnowledgeBase
	logger *zap.Logger
}

// NewKnowledgeSearchService creates the tool. kb may be nil when no corpus is configured.
func NewKnowledgeSearchService(kb repositories.KnowledgeBase, logger *zap.Logger) *KnowledgeSearchService {
	return &KnowledgeSearchService{
		kb:     kb,
		logger: logger,
	}
}

func (s *KnowledgeSearchService) Name() string {
	return "rag_knowledge_search"
}

func (s *KnowledgeSearchService) Description() string {
	return "Search the knowledge base for detailed information about products, services, policies, and procedures. " +
		"Use this tool when customers ask questions that require specific details from our knowledge base."
}

func (s *KnowledgeSearchService) Parameters() []repositories.ToolParameter {
	return []repositories.ToolParameter{
		{Name: "query", Description: "The customer's question or search query", Required: true},
		{Name: "context", Description: "Additional context about the customer's situation"},
	}
}

// Call searches the knowledge base and returns {"result": text}
func (s *KnowledgeSearchService) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	query, ok := stringArg(args, "query")
	if !ok {
		return nil, errors.New("query is required")
	}
	if extra, ok := stringArg(args, "context"); ok {
		query = query + "\n\nContext: " + extra
	}

	return map[string]any{"result": s.search(ctx, query)}, nil
}

func (s *KnowledgeSearchService) search(ctx context.Context, query string) string {
	if s.kb == nil {
		return knowledgeUnavailable
	}

	passages, err := s.kb.Retrieve(ctx, query)
	if err != nil {
		s.logger.Error("Knowledge search failed", zap.Error(err))
		return knowledgeUnavailable
	}
	if len(passages) == 0 {
		return knowledgeEmpty
	}

	if len(passages) > maxKnowledgePassages {
		passages = passages[:maxKnowledgePassages]
	}
	return "Based on our knowledge base: " + strings.Join(passages, "\n\n")
}
