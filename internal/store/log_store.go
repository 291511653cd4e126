package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/plogger/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
)

const insertBatchSize = 100

// LogStore persists users and log entries in postgres with a pgvector index on embeddings.
type LogStore struct {
	db *gorm.DB
}

func NewLogStore(db *gorm.DB) *LogStore {
	return &LogStore{db: db}
}

// ExistingUserIDs returns the subset of ids that already have a User row.
func (s *LogStore) ExistingUserIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var existing []string
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id IN ?", ids).
		Pluck("id", &existing).Error; err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return existing, nil
}

// CreateUsers inserts bare users in their own committed transaction.
// Ids created concurrently by another batch are skipped, so the call is idempotent.
func (s *LogStore) CreateUsers(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	users := make([]models.User, len(ids))
	for i, id := range ids {
		users[i] = models.User{ID: id}
	}

	var created int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&users)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create users: %w", err)
	}
	return created, nil
}

// InsertLogEntries writes all entries in a single transaction; either all rows persist or none do.
func (s *LogStore) InsertLogEntries(ctx context.Context, entries []models.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("User").CreateInBatches(&entries, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert log entries: %w", err)
	}
	return nil
}

// NearestLogEntries returns up to k of userID's entries ordered by cosine distance to
// vector, ties broken by ascending id.
func (s *LogStore) NearestLogEntries(ctx context.Context, userID string, vector []float32, k int) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return nearestScan(tx, userID, vector, k, &entries)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest log entries: %w", err)
	}
	return entries, nil
}

// iterativeScanSQL keeps the HNSW scan going until k rows survive the user_id
// filter. Requires pgvector 0.8 or newer; scoped to the enclosing transaction.
const iterativeScanSQL = "SET LOCAL hnsw.iterative_scan = strict_order"

func nearestScan(tx *gorm.DB, userID string, vector []float32, k int, out *[]models.LogEntry) error {
	if err := tx.Exec(iterativeScanSQL).Error; err != nil {
		return err
	}
	return nearestQuery(tx, userID, vector, k).Find(out).Error
}

func nearestQuery(tx *gorm.DB, userID string, vector []float32, k int) *gorm.DB {
	return tx.Model(&models.LogEntry{}).
		Where("user_id = ?", userID).
		Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:  "embedding <=> ?, id ASC",
			Vars: []interface{}{pgvector.NewVector(vector)},
		}}).
		Limit(k)
}
