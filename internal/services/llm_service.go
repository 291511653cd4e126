package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/plogger/backend/internal/logger"
	"github.com/sashabaranov/go-openai"
)

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant

	maxTrackedCalls = 100
)

// ChatMessage is one message of a completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer turns a message list into generated text.
type Completer interface {
	Complete(ctx context.Context, callType string, messages []ChatMessage) (string, error)
}

// chatClient is the subset of *openai.Client the service uses.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

type LLMService struct {
	client      chatClient
	model       string
	temperature float32
	timeout     time.Duration
	apiCalls    []LLMAPICall
	callMutex   sync.RWMutex
}

// LLMAPICall records one completion call for the admin endpoints.
type LLMAPICall struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	Model        string        `json:"model"`
	CallType     string        `json:"callType"` // "condense", "answer"
	PromptLength int           `json:"promptLength"`
	Status       string        `json:"status"`
	Duration     time.Duration `json:"duration"`
	Response     string        `json:"response"`
	Error        string        `json:"error,omitempty"`
}

// NewLLMService creates a completion service for an OpenAI-compatible endpoint.
// An empty baseURL uses the public OpenAI API.
func NewLLMService(baseURL, apiKey, model string, temperature float32, timeout time.Duration) *LLMService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return newLLMService(openai.NewClientWithConfig(config), model, temperature, timeout)
}

func newLLMService(client chatClient, model string, temperature float32, timeout time.Duration) *LLMService {
	return &LLMService{
		client:      client,
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		apiCalls:    make([]LLMAPICall, 0),
	}
}

// GetAPICalls returns a copy of the tracked calls
func (ls *LLMService) GetAPICalls() []LLMAPICall {
	ls.callMutex.RLock()
	defer ls.callMutex.RUnlock()

	calls := make([]LLMAPICall, len(ls.apiCalls))
	copy(calls, ls.apiCalls)
	return calls
}

// ClearAPICalls clears the API call history
func (ls *LLMService) ClearAPICalls() {
	ls.callMutex.Lock()
	defer ls.callMutex.Unlock()
	ls.apiCalls = make([]LLMAPICall, 0)
}

func (ls *LLMService) addAPICall(call LLMAPICall) {
	ls.callMutex.Lock()
	defer ls.callMutex.Unlock()

	if len(ls.apiCalls) >= maxTrackedCalls {
		ls.apiCalls = ls.apiCalls[1:]
	}
	ls.apiCalls = append(ls.apiCalls, call)
}

// Complete sends messages to the model. Failures, empty responses and timeouts
// are reported as ErrGenerationFailure.
func (ls *LLMService) Complete(ctx context.Context, callType string, messages []ChatMessage) (string, error) {
	if ls.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ls.timeout)
		defer cancel()
	}

	promptLength := 0
	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		promptLength += len(m.Content)
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	call := LLMAPICall{
		ID:           fmt.Sprintf("llm_%d", time.Now().UnixNano()),
		Timestamp:    time.Now(),
		Model:        ls.model,
		CallType:     callType,
		PromptLength: promptLength,
	}

	start := time.Now()
	resp, err := ls.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       ls.model,
		Messages:    oaMsgs,
		Temperature: ls.temperature,
	})
	call.Duration = time.Since(start)

	if err == nil && len(resp.Choices) == 0 {
		err = fmt.Errorf("model returned no choices")
	}
	if err != nil {
		call.Status = "error"
		call.Error = err.Error()
		ls.addAPICall(call)
		logger.WithLLM(callType).WithField("duration", call.Duration.String()).Errorf("LLM request failed: %v", err)
		return "", fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}

	content := resp.Choices[0].Message.Content
	call.Status = "ok"
	call.Response = content
	ls.addAPICall(call)

	logger.WithLLM(callType).WithFields(map[string]interface{}{
		"duration":      call.Duration.String(),
		"prompt_length": promptLength,
	}).Debug("LLM request completed")

	return content, nil
}

// CheckLLMHealth verifies the completion endpoint is reachable.
func (ls *LLMService) CheckLLMHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := ls.client.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM service not available: %w", err)
	}
	return nil
}
