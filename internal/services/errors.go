package services

import "errors"

var (
	// ErrValidation is returned for malformed intake such as an empty batch.
	ErrValidation = errors.New("validation error")

	// ErrDependencyResolution is returned when missing users could not be resolved.
	ErrDependencyResolution = errors.New("dependency resolution failed")

	// ErrEmbeddingFailure is returned when an embedding could not be generated.
	ErrEmbeddingFailure = errors.New("embedding failed")

	// ErrModelUnavailable is returned when the embedding model cannot be loaded.
	// It is sticky for the lifetime of the provider.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrGenerationFailure is returned when the completion call failed or timed out.
	ErrGenerationFailure = errors.New("generation failed")

	// ErrStoreTransaction is returned when a store commit failed and was rolled back.
	ErrStoreTransaction = errors.New("store transaction failed")

	// ErrIngestionQueueFull is returned when an accepted batch cannot be queued without waiting.
	ErrIngestionQueueFull = errors.New("ingestion queue is full")

	// ErrIngestionClosed is returned for batches submitted after shutdown began.
	ErrIngestionClosed = errors.New("ingestion pipeline is closed")

	// ErrRepositoryRequired is returned when a log repository is not provided.
	ErrRepositoryRequired = errors.New("log repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrCompleterRequired is returned when a completion client is not provided.
	ErrCompleterRequired = errors.New("completer required")

	// ErrSessionStoreRequired is returned when a session store is not provided.
	ErrSessionStoreRequired = errors.New("session store required")

	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")
)
