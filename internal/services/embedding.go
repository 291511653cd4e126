package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/plogger/backend/internal/logger"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder is the raw text-to-vector model. langchaingo's embeddings.Embedder satisfies it.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbedderLoader builds the model on first use.
type EmbedderLoader func(ctx context.Context) (Embedder, error)

// EmbeddingProvider is the shared, lazily-initialized embedding model used by
// both ingestion and retrieval. Safe for concurrent use.
type EmbeddingProvider struct {
	load      EmbedderLoader
	dimension int
	timeout   time.Duration

	once     sync.Once
	embedder Embedder
	loadErr  error
}

// NewEmbeddingProvider creates a provider; the model is not loaded until the first Embed call.
func NewEmbeddingProvider(load EmbedderLoader, dimension int, timeout time.Duration) *EmbeddingProvider {
	return &EmbeddingProvider{
		load:      load,
		dimension: dimension,
		timeout:   timeout,
	}
}

// NewLangchainEmbedderLoader loads an OpenAI-compatible embedding model (e.g. an
// Ollama /v1 endpoint serving all-minilm) and probes it once.
func NewLangchainEmbedderLoader(baseURL, apiKey, model string) EmbedderLoader {
	return func(ctx context.Context) (Embedder, error) {
		client, err := openai.New(
			openai.WithBaseURL(baseURL),
			openai.WithToken(apiKey),
			openai.WithEmbeddingModel(model),
		)
		if err != nil {
			return nil, err
		}

		embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
		if err != nil {
			return nil, err
		}

		if _, err := embedder.EmbedQuery(ctx, "model warmup"); err != nil {
			return nil, fmt.Errorf("model probe failed: %w", err)
		}
		return embedder, nil
	}
}

// Dimension is the length of every vector returned by Embed.
func (p *EmbeddingProvider) Dimension() int {
	return p.dimension
}

func (p *EmbeddingProvider) init() error {
	p.once.Do(func() {
		if p.load == nil {
			p.loadErr = fmt.Errorf("%w: no loader configured", ErrModelUnavailable)
			return
		}

		// The load must not inherit a caller's cancellation, or one aborted request
		// would leave the provider permanently unavailable.
		ctx, cancel := p.withTimeout(context.Background())
		defer cancel()

		start := time.Now()
		embedder, err := p.load(ctx)
		if err != nil {
			p.loadErr = fmt.Errorf("%w: %w", ErrModelUnavailable, err)
			logger.WithError(err, "embedding_provider").Error("Failed to load embedding model")
			return
		}
		p.embedder = embedder
		logger.Info("Embedding model loaded", map[string]interface{}{
			"dimension": p.dimension,
			"duration":  time.Since(start).String(),
		})
	})
	return p.loadErr
}

func (p *EmbeddingProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout > 0 {
		return context.WithTimeout(ctx, p.timeout)
	}
	return context.WithCancel(ctx)
}

// Embed returns the vector for text. A model that failed to load yields ErrModelUnavailable;
// any other failure, including a wrong dimension, yields ErrEmbeddingFailure.
func (p *EmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := p.init(); err != nil {
		return nil, err
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}
	if len(vector) != p.dimension {
		return nil, fmt.Errorf("%w: expected dimension %d, got %d", ErrEmbeddingFailure, p.dimension, len(vector))
	}
	return vector, nil
}
