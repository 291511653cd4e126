package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/pgvector/pgvector-go"
	"github.com/plogger/backend/internal/logger"
	"github.com/plogger/backend/internal/models"
	"gorm.io/datatypes"
)

const (
	// TimestampLayout is the client SDK's timestamp format.
	TimestampLayout = "2006-01-02 15:04:05"

	maxEmbeddedTraceChars = 500
)

// TextEmbedder turns text into a fixed-dimension vector.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LogRepository is the write side of the Log Store used by ingestion.
type LogRepository interface {
	ExistingUserIDs(ctx context.Context, ids []string) ([]string, error)
	CreateUsers(ctx context.Context, ids []string) (int64, error)
	InsertLogEntries(ctx context.Context, entries []models.LogEntry) error
}

// IngestionStats is a snapshot of the pipeline counters.
type IngestionStats struct {
	BatchesAccepted  int64 `json:"batchesAccepted"`
	BatchesSucceeded int64 `json:"batchesSucceeded"`
	BatchesFailed    int64 `json:"batchesFailed"`
	BatchesRejected  int64 `json:"batchesRejected"`
	RecordsIngested  int64 `json:"recordsIngested"`
	UsersCreated     int64 `json:"usersCreated"`
	QueuedBatches    int   `json:"queuedBatches"`
	RunningWorkers   int   `json:"runningWorkers"`
}

type batchJob struct {
	id      string
	records []models.LogRecord
}

// IngestionPipeline embeds and stores log batches on a bounded worker pool.
// Batches are acknowledged before processing; failures are logged, never retried.
type IngestionPipeline struct {
	repo     LogRepository
	embedder TextEmbedder
	pool     *ants.Pool
	now      func() time.Time

	// queue buffers accepted batches; a single dispatcher feeds them to the pool.
	queue      chan batchJob
	dispatched chan struct{}
	mu         sync.RWMutex
	closed     bool

	accepted  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
	records   atomic.Int64
	users     atomic.Int64
}

// NewIngestionPipeline creates a pipeline with workers goroutines and room for
// queueSize accepted batches waiting for a worker. Submit never waits: a full
// queue rejects the batch with ErrIngestionQueueFull.
func NewIngestionPipeline(repo LogRepository, embedder TextEmbedder, workers, queueSize int) (*IngestionPipeline, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = workers
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}

	p := &IngestionPipeline{
		repo:       repo,
		embedder:   embedder,
		pool:       pool,
		now:        time.Now,
		queue:      make(chan batchJob, queueSize),
		dispatched: make(chan struct{}),
	}
	go p.dispatch()
	return p, nil
}

// Submit queues a batch and returns its id without waiting for processing.
func (p *IngestionPipeline) Submit(batch []models.LogRecord) (string, error) {
	if len(batch) == 0 {
		return "", fmt.Errorf("%w: log batch cannot be empty", ErrValidation)
	}

	job := batchJob{id: uuid.NewString(), records: batch}
	if err := p.enqueue(job); err != nil {
		p.rejected.Add(1)
		logger.WithBatch(job.id, len(batch)).WithField("error", err.Error()).Warn("Ingestion batch rejected")
		return "", err
	}

	p.accepted.Add(1)
	logger.WithBatch(job.id, len(batch)).Info("Ingestion batch queued")
	return job.id, nil
}

func (p *IngestionPipeline) enqueue(job batchJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrIngestionClosed
	}
	select {
	case p.queue <- job:
		return nil
	default:
		return ErrIngestionQueueFull
	}
}

// dispatch hands queued batches to the pool, waiting for a free worker.
func (p *IngestionPipeline) dispatch() {
	defer close(p.dispatched)
	for job := range p.queue {
		if err := p.pool.Submit(func() { p.run(job) }); err != nil {
			p.failed.Add(1)
			logger.WithBatch(job.id, len(job.records)).WithField("error", err.Error()).Error("Ingestion batch dropped")
		}
	}
}

// run processes one batch; ingestion has no cancellation once scheduled.
func (p *IngestionPipeline) run(job batchJob) {
	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			logger.WithBatch(job.id, len(job.records)).WithField("panic", fmt.Sprint(r)).Error("Ingestion worker panicked")
		}
	}()
	_ = p.Ingest(context.Background(), job.id, job.records)
}

// Ingest resolves missing users, embeds every record and inserts all entries in one
// transaction. Users created before a later failure are kept.
func (p *IngestionPipeline) Ingest(ctx context.Context, batchID string, batch []models.LogRecord) error {
	if len(batch) == 0 {
		return nil
	}
	log := logger.WithBatch(batchID, len(batch))

	err := p.ingest(ctx, batch)
	if err != nil {
		p.failed.Add(1)
		log.WithField("error", err.Error()).Error("CRITICAL ERROR in ingestion task")
		return err
	}

	p.succeeded.Add(1)
	p.records.Add(int64(len(batch)))
	log.Info("Successfully ingested logs")
	return nil
}

func (p *IngestionPipeline) ingest(ctx context.Context, batch []models.LogRecord) error {
	if err := p.resolveUsers(ctx, batch); err != nil {
		return err
	}

	entries := make([]models.LogEntry, 0, len(batch))
	for i, record := range batch {
		entry, err := p.buildEntry(ctx, record)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	if err := p.repo.InsertLogEntries(ctx, entries); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreTransaction, err)
	}
	return nil
}

// resolveUsers creates the batch's unknown users and commits before any log insert.
func (p *IngestionPipeline) resolveUsers(ctx context.Context, batch []models.LogRecord) error {
	ids := distinctUserIDs(batch)

	existing, err := p.repo.ExistingUserIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDependencyResolution, err)
	}

	known := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	created, err := p.repo.CreateUsers(ctx, missing)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDependencyResolution, err)
	}
	p.users.Add(created)
	logger.Info("Created new users", map[string]interface{}{"count": created})
	return nil
}

func (p *IngestionPipeline) buildEntry(ctx context.Context, record models.LogRecord) (models.LogEntry, error) {
	vector, err := p.embedder.Embed(ctx, CanonicalText(record.Severity, record.ProjectName, record.Data, record.StackTrace))
	if err != nil {
		return models.LogEntry{}, err
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return models.LogEntry{}, fmt.Errorf("failed to encode raw payload: %w", err)
	}

	return models.LogEntry{
		UserID:      record.UserID,
		RawData:     datatypes.JSON(raw),
		Message:     record.Data,
		Severity:    record.Severity,
		Timestamp:   ParseTimestamp(record.Timestamp, p.now),
		ThreadID:    record.ThreadID,
		ThreadName:  record.ThreadName,
		StackTrace:  record.StackTrace,
		ProjectName: record.ProjectName,
		Embedding:   pgvector.NewVector(vector),
	}, nil
}

// CanonicalText is the exact text every log embedding is derived from.
func CanonicalText(severity, projectName, message string, stackTrace *string) string {
	snippet := ""
	if stackTrace != nil {
		snippet = truncateRunes(*stackTrace, maxEmbeddedTraceChars)
	}
	return fmt.Sprintf("[%s] %s: %s %s", severity, projectName, message, snippet)
}

// ParseTimestamp parses the SDK layout, substituting the current UTC time when the
// value is malformed.
func ParseTimestamp(value string, now func() time.Time) time.Time {
	ts, err := time.Parse(TimestampLayout, value)
	if err != nil {
		return now().UTC()
	}
	return ts
}

func distinctUserIDs(batch []models.LogRecord) []string {
	seen := make(map[string]struct{}, len(batch))
	ids := make([]string, 0, len(batch))
	for _, record := range batch {
		if _, ok := seen[record.UserID]; ok {
			continue
		}
		seen[record.UserID] = struct{}{}
		ids = append(ids, record.UserID)
	}
	sort.Strings(ids)
	return ids
}

// Stats returns a snapshot of the pipeline counters.
func (p *IngestionPipeline) Stats() IngestionStats {
	return IngestionStats{
		BatchesAccepted:  p.accepted.Load(),
		BatchesSucceeded: p.succeeded.Load(),
		BatchesFailed:    p.failed.Load(),
		BatchesRejected:  p.rejected.Load(),
		RecordsIngested:  p.records.Load(),
		UsersCreated:     p.users.Load(),
		QueuedBatches:    len(p.queue),
		RunningWorkers:   p.pool.Running(),
	}
}

// Release stops accepting batches and waits up to timeout for queued and
// in-flight ones to finish. Calling it more than once is safe.
func (p *IngestionPipeline) Release(timeout time.Duration) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	deadline := time.Now().Add(timeout)
	select {
	case <-p.dispatched:
	case <-time.After(timeout):
		p.pool.Release()
		return fmt.Errorf("ingestion queue not drained within %s", timeout)
	}

	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	return p.pool.ReleaseTimeout(remaining)
}
