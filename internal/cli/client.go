package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/askindex/internal/models"
)

// APIError is a non-200 response of the search server.
type APIError struct {
	StatusCode int
	Body       models.ErrorResponse
	Raw        string
}

func (e *APIError) Error() string {
	if e.Body.Error == "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, strings.TrimSpace(e.Raw))
	}
	msg := fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body.Error)
	if e.Body.Message != "" {
		msg += ": " + e.Body.Message
	}
	for _, d := range e.Body.Details {
		msg += fmt.Sprintf("; %s: %s", d.Field, d.Reason)
	}
	return msg
}

// Client posts queries to a running search server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 90 * time.Second},
	}
}

// Search sends q to POST /search. Non-200 responses return *APIError.
func (c *Client) Search(ctx context.Context, q *models.SearchQuery) ([]models.SearchResult, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode, Raw: string(b)}
		_ = json.Unmarshal(b, &apiErr.Body)
		return nil, apiErr
	}
	var results []models.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return results, nil
}
