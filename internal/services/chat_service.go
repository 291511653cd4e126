package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/plogger/backend/internal/logger"
	"github.com/plogger/backend/internal/models"
)

const (
	callTypeCondense = "condense"
	callTypeAnswer   = "answer"
)

// LogRetriever returns a user's entries nearest to a vector.
type LogRetriever interface {
	Retrieve(ctx context.Context, userID string, vector []float32, k int) ([]models.LogEntry, error)
}

// ChatResponse is the caller-visible result of one conversation turn.
type ChatResponse struct {
	Answer  string          `json:"answer"`
	Sources []models.Source `json:"sources"`
}

// ChatService answers questions about a user's own logs with per-session memory.
type ChatService struct {
	sessions  *SessionStore
	embedder  TextEmbedder
	retriever LogRetriever
	llm       Completer
	topK      int
}

func NewChatService(sessions *SessionStore, embedder TextEmbedder, retriever LogRetriever, llm Completer, topK int) (*ChatService, error) {
	if sessions == nil {
		return nil, ErrSessionStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if llm == nil {
		return nil, ErrCompleterRequired
	}
	if topK < 1 {
		topK = DefaultTopK
	}
	return &ChatService{
		sessions:  sessions,
		embedder:  embedder,
		retriever: retriever,
		llm:       llm,
		topK:      topK,
	}, nil
}

// Answer runs one turn: condense with history, retrieve, generate, then remember.
// Session memory is only written when every step succeeded.
func (cs *ChatService) Answer(ctx context.Context, userID, sessionID, query string) (*ChatResponse, error) {
	log := logger.WithSession(sessionID, userID)

	resp, err := cs.answer(ctx, userID, sessionID, query)
	if err != nil {
		log.WithField("error", err.Error()).Error("Error in chat")
		return nil, err
	}
	log.WithField("sources", len(resp.Sources)).Info("Chat turn answered")
	return resp, nil
}

func (cs *ChatService) answer(ctx context.Context, userID, sessionID, query string) (*ChatResponse, error) {
	history := cs.sessions.GetHistory(sessionID)

	question := query
	if len(history) > 0 {
		condensed, err := cs.condense(ctx, history, query)
		if err != nil {
			return nil, err
		}
		question = condensed
	}

	vector, err := cs.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	entries, err := cs.retriever.Retrieve(ctx, userID, vector, cs.topK)
	if err != nil {
		return nil, err
	}

	excerpts := make([]string, len(entries))
	for i, entry := range entries {
		excerpts[i] = FormatExcerpt(entry)
	}

	answer, err := cs.llm.Complete(ctx, callTypeAnswer, []ChatMessage{
		{Role: RoleSystem, Content: fmt.Sprintf(LOG_ANALYSIS_PROMPT, strings.Join(excerpts, "\n\n"))},
		{Role: RoleUser, Content: question},
	})
	if err != nil {
		return nil, err
	}

	// A caller that went away gets nothing remembered on its behalf.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cs.sessions.AppendTurn(sessionID, query, answer, excerpts)

	sources := make([]models.Source, len(entries))
	for i, entry := range entries {
		sources[i] = models.Source{LogID: entry.ID, Content: entry.Metadata()}
	}
	return &ChatResponse{Answer: answer, Sources: sources}, nil
}

// condense rewrites query into a standalone question using the history, including
// the hidden context blocks of earlier assistant turns.
func (cs *ChatService) condense(ctx context.Context, history []Turn, query string) (string, error) {
	messages := make([]ChatMessage, 0, len(history)+2)
	messages = append(messages, ChatMessage{Role: RoleSystem, Content: CONDENSE_QUESTION_PROMPT})
	for _, turn := range history {
		messages = append(messages, ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, ChatMessage{Role: RoleUser, Content: query})

	standalone, err := cs.llm.Complete(ctx, callTypeCondense, messages)
	if err != nil {
		return "", err
	}
	standalone = strings.TrimSpace(standalone)
	if standalone == "" {
		logger.WithLLM(callTypeCondense).Warn("Empty condensed question, falling back to the original query")
		return query, nil
	}
	return standalone, nil
}

// ClearSession drops a session's memory; unknown ids are ignored.
func (cs *ChatService) ClearSession(sessionID string) {
	if cs.sessions.Delete(sessionID) {
		logger.Info("Cleaned up session", map[string]interface{}{"session_id": sessionID})
	}
}
