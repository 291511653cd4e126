package services

import (
	"context"
	"errors"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/plogger/backend/internal/models"
)

// memoryRepo is an in-memory Log Store with failure injection.
type memoryRepo struct {
	mu      sync.Mutex
	users   map[string]models.User
	entries []models.LogEntry
	nextID  uint

	failExisting bool
	failCreate   bool
	failInsert   bool
	failSearch   bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]models.User)}
}

func (r *memoryRepo) ExistingUserIDs(ctx context.Context, ids []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failExisting {
		return nil, errors.New("users query failed")
	}
	var out []string
	for _, id := range ids {
		if _, ok := r.users[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *memoryRepo) CreateUsers(ctx context.Context, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return 0, errors.New("users insert failed")
	}
	var created int64
	for _, id := range ids {
		if _, ok := r.users[id]; ok {
			continue
		}
		r.users[id] = models.User{ID: id}
		created++
	}
	return created, nil
}

func (r *memoryRepo) InsertLogEntries(ctx context.Context, entries []models.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInsert {
		return errors.New("commit failed")
	}
	for _, e := range entries {
		if _, ok := r.users[e.UserID]; !ok {
			return errors.New("foreign key violation")
		}
	}
	for _, e := range entries {
		r.nextID++
		e.ID = r.nextID
		r.entries = append(r.entries, e)
	}
	return nil
}

// NearestLogEntries scans the user's entries by cosine distance, ties by id.
func (r *memoryRepo) NearestLogEntries(ctx context.Context, userID string, vector []float32, k int) ([]models.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSearch {
		return nil, errors.New("search failed")
	}
	var owned []models.LogEntry
	for _, e := range r.entries {
		if e.UserID == userID {
			owned = append(owned, e)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		di := cosineDistance(vector, owned[i].Embedding.Slice())
		dj := cosineDistance(vector, owned[j].Embedding.Slice())
		if di != dj {
			return di < dj
		}
		return owned[i].ID < owned[j].ID
	})
	if len(owned) > k {
		owned = owned[:k]
	}
	return owned, nil
}

func (r *memoryRepo) entriesFor(userID string) []models.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.LogEntry
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

func (r *memoryRepo) hasUser(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[id]
	return ok
}

// hashEmbedder produces deterministic unit-length vectors from an FNV seed.
type hashEmbedder struct {
	mu        sync.Mutex
	dimension int
	texts     []string
	err       error

	// gate, when set, holds every Embed call until it is closed.
	gate     chan struct{}
	panicMsg string
}

func newHashEmbedder() *hashEmbedder {
	return &hashEmbedder{dimension: models.EmbeddingDimension}
}

func (e *hashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.Embed(ctx, text)
}

func (e *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.gate != nil {
		<-e.gate
	}
	if e.panicMsg != "" {
		panic(e.panicMsg)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	if e.err != nil {
		return nil, e.err
	}
	return deterministicVector(text, e.dimension), nil
}

func (e *hashEmbedder) calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.texts...)
}

func deterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := range vector {
		seed = seed*1664525 + 1013904223
		vector[i] = float32(seed%1000)/1000.0 + 0.001
	}
	return vector
}

// scriptedCompleter returns queued responses per call type and records every request.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses map[string][]string
	errs      map[string]error
	calls     []completerCall
}

type completerCall struct {
	callType string
	messages []ChatMessage
}

func newScriptedCompleter() *scriptedCompleter {
	return &scriptedCompleter{
		responses: make(map[string][]string),
		errs:      make(map[string]error),
	}
}

func (c *scriptedCompleter) queue(callType, response string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[callType] = append(c.responses[callType], response)
}

func (c *scriptedCompleter) Complete(ctx context.Context, callType string, messages []ChatMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, completerCall{callType: callType, messages: append([]ChatMessage(nil), messages...)})
	if err := c.errs[callType]; err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	queued := c.responses[callType]
	if len(queued) == 0 {
		return callType + " response", nil
	}
	c.responses[callType] = queued[1:]
	return queued[0], nil
}

func (c *scriptedCompleter) callsOf(callType string) []completerCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []completerCall
	for _, call := range c.calls {
		if call.callType == callType {
			out = append(out, call)
		}
	}
	return out
}

func strPtr(s string) *string {
	return &s
}
