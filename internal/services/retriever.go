package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/plogger/backend/internal/logger"
	"github.com/plogger/backend/internal/models"
)

const (
	DefaultTopK = 5

	maxExcerptTraceChars = 300
)

// VectorSearcher finds a user's log entries nearest to a query vector.
type VectorSearcher interface {
	NearestLogEntries(ctx context.Context, userID string, vector []float32, k int) ([]models.LogEntry, error)
}

// Retriever returns the top-K entries of a single user ordered by cosine distance.
type Retriever struct {
	searcher VectorSearcher
	topK     int
}

func NewRetriever(searcher VectorSearcher, topK int) (*Retriever, error) {
	if searcher == nil {
		return nil, ErrRepositoryRequired
	}
	if topK < 1 {
		topK = DefaultTopK
	}
	return &Retriever{searcher: searcher, topK: topK}, nil
}

// Retrieve returns up to k of userID's entries sorted ascending by distance to
// vector, ties broken by ascending id. k <= 0 uses the configured default.
func (r *Retriever) Retrieve(ctx context.Context, userID string, vector []float32, k int) ([]models.LogEntry, error) {
	if k <= 0 {
		k = r.topK
	}

	candidates, err := r.searcher.NearestLogEntries(ctx, userID, vector, k)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	entries := make([]models.LogEntry, 0, len(candidates))
	distances := make(map[uint]float64, len(candidates))
	for _, entry := range candidates {
		if entry.UserID != userID {
			logger.Warn("Dropped cross-user retrieval result", map[string]interface{}{
				"user_id":  userID,
				"entry_id": entry.ID,
			})
			continue
		}
		entries = append(entries, entry)
		distances[entry.ID] = cosineDistance(vector, entry.Embedding.Slice())
	}

	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := distances[entries[i].ID], distances[entries[j].ID]
		if di != dj {
			return di < dj
		}
		return entries[i].ID < entries[j].ID
	})

	if len(entries) > k {
		entries = entries[:k]
	}
	return entries, nil
}

// cosineDistance is 1 - cosine similarity; mismatched or zero vectors are maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// FormatExcerpt renders an entry the way it is shown to the model.
func FormatExcerpt(entry models.LogEntry) string {
	trace := "None"
	if entry.StackTrace != nil && *entry.StackTrace != "" {
		trace = truncateRunes(*entry.StackTrace, maxExcerptTraceChars)
	}
	return fmt.Sprintf("thread : %sTime: %s | Level: %s | Project: %s | Msg: %s | Trace: %s |Severity: %s",
		entry.ThreadName,
		entry.Timestamp.Format(TimestampLayout),
		entry.Severity,
		entry.ProjectName,
		entry.Message,
		trace,
		entry.Severity,
	)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
