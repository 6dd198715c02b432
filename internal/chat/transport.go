package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"testcase-assistant/internal/models"
)

// Transport delivers one request envelope and returns the decoded answer.
// *services.ProxyService satisfies it for in-process use.
type Transport interface {
	Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResponse, error)
}

// RequestError is a non-2xx answer from the generate endpoint.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// HTTPTransport posts envelopes to a running server's /generate endpoint.
type HTTPTransport struct {
	endpoint string
	client   *http.Client
}

func NewHTTPTransport(serverURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		endpoint: strings.TrimRight(serverURL, "/") + "/generate",
		client:   &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	var data models.GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &RequestError{Status: resp.StatusCode, Message: "Failed to generate response"}
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := data.Error
		if msg == "" {
			msg = "Failed to generate response"
		}
		return nil, &RequestError{Status: resp.StatusCode, Message: msg}
	}

	return &data, nil
}
