package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/plogger/backend/internal/models"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Services  struct {
		Database struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		} `json:"database"`
	} `json:"services"`
}

type IngestResponse struct {
	Status  string `json:"status"`
	BatchID string `json:"batchId"`
	Message string `json:"message"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
}

type QueryResponse struct {
	Answer  string          `json:"answer"`
	Sources []models.Source `json:"sources"`
}

// apiClient talks to a running PLogger backend.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) Health() (*HealthResponse, error) {
	var health HealthResponse
	if err := c.do(http.MethodGet, "/health", nil, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *apiClient) Ingest(batch []models.LogRecord) (*IngestResponse, error) {
	var resp IngestResponse
	if err := c.do(http.MethodPost, "/logs/ingest", batch, &resp, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login stores the returned token for later authenticated calls.
func (c *apiClient) Login(username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	body := map[string]string{"username": username, "password": password}
	if err := c.do(http.MethodPost, "/auth/login", body, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	c.token = resp.AccessToken
	return &resp, nil
}

func (c *apiClient) Query(sessionID, query string) (*QueryResponse, error) {
	var resp QueryResponse
	body := map[string]string{"session_id": sessionID, "query": query}
	if err := c.do(http.MethodPost, "/chat/query", body, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) ClearSession(sessionID string) error {
	return c.do(http.MethodDelete, "/chat/session/"+sessionID, nil, nil, http.StatusNoContent)
}

func (c *apiClient) do(method, path string, in, out interface{}, expected int) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error connecting to %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != expected {
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(data))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error parsing JSON response: %w", err)
	}
	return nil
}
