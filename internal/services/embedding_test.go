package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEmbedder struct {
	dimension int
}

func (e fixedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return deterministicVector(text, e.dimension), nil
}

func countingLoader(loads *atomic.Int32, embedder Embedder, err error) EmbedderLoader {
	return func(ctx context.Context) (Embedder, error) {
		loads.Add(1)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return embedder, err
	}
}

func TestEmbeddingProviderLoadsOnce(t *testing.T) {
	var loads atomic.Int32
	provider := NewEmbeddingProvider(countingLoader(&loads, fixedEmbedder{dimension: 384}, nil), 384, time.Second)
	assert.Equal(t, int32(0), loads.Load())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vector, err := provider.Embed(context.Background(), "Database timeout")
			assert.NoError(t, err)
			assert.Len(t, vector, 384)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, 384, provider.Dimension())
}

func TestEmbeddingProviderIsDeterministic(t *testing.T) {
	var loads atomic.Int32
	provider := NewEmbeddingProvider(countingLoader(&loads, fixedEmbedder{dimension: 384}, nil), 384, 0)

	a, err := provider.Embed(context.Background(), "same text")
	require.NoError(t, err)
	b, err := provider.Embed(context.Background(), "same text")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbeddingProviderLoadFailureIsSticky(t *testing.T) {
	var loads atomic.Int32
	provider := NewEmbeddingProvider(countingLoader(&loads, nil, errors.New("model not found")), 384, time.Second)

	for i := 0; i < 3; i++ {
		_, err := provider.Embed(context.Background(), "x")
		assert.ErrorIs(t, err, ErrModelUnavailable)
	}
	assert.Equal(t, int32(1), loads.Load())
}

func TestEmbeddingProviderWithoutLoader(t *testing.T) {
	provider := NewEmbeddingProvider(nil, 384, time.Second)

	_, err := provider.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestEmbeddingProviderRejectsWrongDimension(t *testing.T) {
	var loads atomic.Int32
	provider := NewEmbeddingProvider(countingLoader(&loads, fixedEmbedder{dimension: 16}, nil), 384, time.Second)

	_, err := provider.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmbeddingFailure)
	assert.NotErrorIs(t, err, ErrModelUnavailable)
}

func TestEmbeddingProviderLoadIgnoresCallerCancellation(t *testing.T) {
	var loads atomic.Int32
	provider := NewEmbeddingProvider(countingLoader(&loads, fixedEmbedder{dimension: 384}, nil), 384, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := provider.Embed(ctx, "x")
	assert.ErrorIs(t, err, ErrEmbeddingFailure)

	vector, err := provider.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, vector, 384)
	assert.Equal(t, int32(1), loads.Load())
}
