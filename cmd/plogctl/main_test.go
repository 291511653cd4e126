package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/plogger/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend mimics the server routes the client calls.
func fakeBackend(t *testing.T) (*httptest.Server, *[]models.LogRecord, *[]string) {
	t.Helper()
	var ingested []models.LogRecord
	var cleared []string

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok","version":"1.0.0","services":{"database":{"status":"ok"}}}`))
	})
	mux.HandleFunc("/logs/ingest", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ingested))
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"status":"accepted","batchId":"b-1","message":"Queued 1 logs for background processing"}`))
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok","token_type":"bearer","user_id":"u1","username":"alice"}`))
	})
	mux.HandleFunc("/chat/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"answer":"The DB timed out.","sources":[{"log_id":7,"content":{"id":7,"message":"Database timeout","severity":"ERROR"}}]}`))
	})
	mux.HandleFunc("/chat/session/", func(w http.ResponseWriter, r *http.Request) {
		cleared = append(cleared, filepath.Base(r.URL.Path))
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &ingested, &cleared
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	err := app.Run(append([]string{"plogctl"}, args...))
	return out.String(), err
}

func TestHealthCommand(t *testing.T) {
	srv, _, _ := fakeBackend(t)

	out, err := run(t, "--url", srv.URL, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Health check passed")
}

func TestIngestCommand(t *testing.T) {
	srv, ingested, _ := fakeBackend(t)
	path := filepath.Join(t.TempDir(), "batch.json")
	batch := `[{"data":"Database timeout","severity":"ERROR","timestamp":"2025-01-02 10:00:00","threadId":"1","threadName":"main","stackTrace":null,"project_name":"pay","user_Id":"u1"}]`
	require.NoError(t, os.WriteFile(path, []byte(batch), 0o600))

	out, err := run(t, "--url", srv.URL, "ingest", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "batch b-1")
	require.Len(t, *ingested, 1)
	assert.Equal(t, "u1", (*ingested)[0].UserID)
}

func TestIngestCommandRequiresFile(t *testing.T) {
	_, err := run(t, "ingest")
	assert.Error(t, err)
}

func TestAskCommand(t *testing.T) {
	srv, _, cleared := fakeBackend(t)

	out, err := run(t, "--url", srv.URL, "ask", "--username", "alice", "--password", "secret", "--session", "s1", "--clear", "What failed?")
	require.NoError(t, err)
	assert.Contains(t, out, "The DB timed out.")
	assert.Contains(t, out, "[7]")
	assert.Equal(t, []string{"s1"}, *cleared)
}

func TestAskCommandRequiresQuestion(t *testing.T) {
	srv, _, _ := fakeBackend(t)

	_, err := run(t, "--url", srv.URL, "ask", "--username", "alice", "--password", "secret")
	assert.Error(t, err)
}
