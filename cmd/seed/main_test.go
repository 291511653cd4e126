package main

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/plogger/backend/internal/models"
	"github.com/plogger/backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryAccounts struct {
	byName map[string]models.User
}

func (m *memoryAccounts) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, ok := m.byName[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *memoryAccounts) CreateUser(ctx context.Context, user *models.User) error {
	m.byName[*user.Username] = *user
	return nil
}

type recordingIngester struct {
	batches [][]models.LogRecord
	err     error
}

func (r *recordingIngester) Ingest(ctx context.Context, batchID string, batch []models.LogRecord) error {
	r.batches = append(r.batches, batch)
	return r.err
}

func repoSeedFile(t *testing.T) string {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", defaultSeedFile)
}

func TestLoadSeedData(t *testing.T) {
	data, err := loadSeedData(repoSeedFile(t))
	require.NoError(t, err)

	require.Len(t, data.Users, 2)
	require.NotEmpty(t, data.Logs)
	for _, record := range data.Logs {
		assert.NotEmpty(t, record.UserID)
		assert.NotEmpty(t, record.Data)
	}
}

func TestSeedAccountsSkipsExisting(t *testing.T) {
	accounts := &memoryAccounts{byName: map[string]models.User{"demo": {ID: "existing"}}}

	created, err := seedAccounts(context.Background(), accounts, []SeedUser{
		{Username: "demo", Password: "demo-password"},
		{ID: "u-ops", Username: "ops", Password: "ops-password"},
		{Username: "fresh", Password: "fresh-password"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	assert.Equal(t, "existing", accounts.byName["demo"].ID)
	assert.Equal(t, "u-ops", accounts.byName["ops"].ID)
	assert.NotEmpty(t, accounts.byName["fresh"].ID)
	assert.NotEqual(t, "fresh-password", accounts.byName["fresh"].PasswordHash)
}

func TestSeedLogs(t *testing.T) {
	ingester := &recordingIngester{}
	require.NoError(t, seedLogs(context.Background(), ingester, nil))
	assert.Empty(t, ingester.batches)

	records := []models.LogRecord{{Data: "x", UserID: "u1"}}
	require.NoError(t, seedLogs(context.Background(), ingester, records))
	require.Len(t, ingester.batches, 1)

	ingester.err = errors.New("store down")
	assert.Error(t, seedLogs(context.Background(), ingester, records))
}
