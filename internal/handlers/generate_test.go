package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"testcase-assistant/internal/models"
	"testcase-assistant/internal/services"
)

type stubGenerator struct {
	resp *models.GenerateResponse
	err  error
	last models.GenerateRequest
}

func (s *stubGenerator) Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResponse, error) {
	s.last = req
	return s.resp, s.err
}

type stubText struct {
	text  string
	err   error
	calls int
}

func (s *stubText) GenerateText(context.Context, string) (string, error) {
	s.calls++
	return s.text, s.err
}

func postGenerate(h *GenerateHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Generate(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Error
}

func TestGenerateHandler_Success(t *testing.T) {
	answer := "AES is a symmetric cipher."
	gen := &stubGenerator{resp: &models.GenerateResponse{Response: &answer}}
	rr := postGenerate(NewGenerateHandler(gen), `{"message":"Explain AES","context":"Provide QA support and guidance","model":"gemini"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Body.String(); got != "{\"response\":\"AES is a symmetric cipher.\"}\n" {
		t.Fatalf("unexpected body %q", got)
	}
	if gen.last.Message != "Explain AES" || gen.last.Model != "gemini" {
		t.Fatalf("unexpected forwarded request %+v", gen.last)
	}
}

func TestGenerateHandler_TestCasesPassThrough(t *testing.T) {
	gen := &stubGenerator{resp: &models.GenerateResponse{TestCases: json.RawMessage(`[{"title":"T1"}]`)}}
	rr := postGenerate(NewGenerateHandler(gen), `{"message":"login","model":"rag"}`)

	if got := rr.Body.String(); got != "{\"testCases\":[{\"title\":\"T1\"}]}\n" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestGenerateHandler_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"local rate limit", &services.RateLimitError{Message: "Please wait a moment before sending another request."}, 429, "Please wait a moment before sending another request."},
		{"auth", &services.UpstreamError{Kind: services.KindAuthentication, Status: 401, Message: "Invalid API key. Please check your API key configuration."}, 401, "Invalid API key. Please check your API key configuration."},
		{"model", &services.UpstreamError{Kind: services.KindModelNotFound, Status: 404, Message: "The specified model is not available. Please check the model configuration."}, 404, "The specified model is not available. Please check the model configuration."},
		{"rag", &services.UpstreamError{Kind: services.KindGenericUpstream, Status: 500, Message: "RAG backend error"}, 500, "RAG backend error"},
		{"unexpected", errors.New("boom"), 500, "Error: boom"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := postGenerate(NewGenerateHandler(&stubGenerator{err: tc.err}), `{"message":"x","model":"gemini"}`)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			if got := decodeError(t, rr); got != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, got)
			}
		})
	}
}

func TestGenerateHandler_InvalidBody(t *testing.T) {
	rr := postGenerate(NewGenerateHandler(&stubGenerator{}), `{"message":`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if got := decodeError(t, rr); got != "Error: unexpected EOF" {
		t.Fatalf("unexpected error %q", got)
	}
}

// Two gemini requests 200ms apart through the real proxy: the second is
// rejected locally and never reaches the model.
func TestGenerateHandler_GeminiRequestsTooCloseTogether(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := services.ClockFunc(func() time.Time { return now })
	text := &stubText{text: "first answer"}
	guard := services.NewIntervalGuard(clock, time.Second, nil)
	proxy := services.NewProxyService(text, nil, guard, services.NewRequestPolicy("gemini"), nil)
	h := NewGenerateHandler(proxy)

	first := postGenerate(h, `{"message":"one","model":"gemini"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", first.Code)
	}

	now = now.Add(200 * time.Millisecond)
	second := postGenerate(h, `{"message":"two","model":"gemini"}`)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if text.calls != 1 {
		t.Fatalf("expected the model to be called once, got %d", text.calls)
	}
}
