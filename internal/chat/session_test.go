package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"testcase-assistant/internal/models"
	"testcase-assistant/internal/services"
)

type stubTransport struct {
	resp     *models.GenerateResponse
	err      error
	requests []models.GenerateRequest
	release  chan struct{}
}

func (s *stubTransport) Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResponse, error) {
	s.requests = append(s.requests, req)
	if s.release != nil {
		<-s.release
	}
	return s.resp, s.err
}

func text(s string) *string { return &s }

func TestSession_RAGUnreachableFallsBackToMock(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	deadURL := srv.URL
	srv.Close()

	backend := services.NewBackendClient(deadURL, deadURL, time.Second, time.Minute)
	proxy := services.NewProxyService(services.MissingKeyGenerator{}, backend, nil, services.NewRequestPolicy(models.ModelGemini), nil)
	session := NewSession(proxy, WithModel("rag"))

	res, err := session.Submit(context.Background(), "Explain AES")
	if err != nil {
		t.Fatalf("expected fallback instead of error, got %v", err)
	}

	transcript := session.Transcript()
	want := []models.ChatMessage{
		{Role: models.RoleUser, Content: "Explain AES"},
		{Role: models.RoleAssistant, Content: ragFallbackMessage},
	}
	if diff := cmp.Diff(want, transcript); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(res.Advisory, "Flask server") {
		t.Fatalf("expected advisory to mention the Flask server, got %q", res.Advisory)
	}
	if res.Outcome != StateFailed {
		t.Fatalf("expected failed outcome, got %s", res.Outcome)
	}
	if session.State() != StateIdle || session.InFlight() {
		t.Fatalf("expected session to be idle after the exchange")
	}
}

func TestSession_RAGArrayIsFormatted(t *testing.T) {
	payload := "```json\n" + `[{"title":"T1","description":"D1","steps":["s1","s2"],"expected_result":"E1"}]` + "\n```"
	transport := &stubTransport{resp: &models.GenerateResponse{Response: text(payload)}}
	session := NewSession(transport, WithModel(models.ModelRAG))

	res, err := session.Submit(context.Background(), "login story")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	transcript := session.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("expected one user and one assistant message, got %d", len(transcript))
	}
	reply := transcript[1].Content
	for _, want := range []string{"Test Case 1: T1", "Description: D1", "  1. s1", "  2. s2", "Expected Result: E1"} {
		if !strings.Contains(reply, want) {
			t.Errorf("expected reply to contain %q, got:\n%s", want, reply)
		}
	}
	if res.Reply != reply || res.Advisory != "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSession_RAGTestCasesField(t *testing.T) {
	transport := &stubTransport{resp: &models.GenerateResponse{
		TestCases: json.RawMessage(`[{"title":"Login","description":"Valid login","steps":"Open page","expected_result":"Dashboard"}]`),
	}}
	session := NewSession(transport)

	res, err := session.Submit(context.Background(), "login")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Test Case 1: Login\nDescription: Valid login\nSteps:\n  1. Open page\nExpected Result: Dashboard\n"
	if res.Reply != want {
		t.Fatalf("unexpected reply:\n%q\nwant\n%q", res.Reply, want)
	}

	req := transport.requests[0]
	if req.Model != models.ModelRAG || req.Context != ContextTestCases || req.Message != "login" {
		t.Fatalf("unexpected envelope %+v", req)
	}
}

func TestSession_RAGFreeText(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"prose is cleaned", "```\nNo similar stories found.\n```", "No similar stories found."},
		{"object is shown as text", `{"note":"x"}`, `{"note":"x"}`},
		{"empty output", "```json\n```", NoOutputPlaceholder},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			session := NewSession(&stubTransport{resp: &models.GenerateResponse{Response: text(tc.response)}})
			res, err := session.Submit(context.Background(), "q")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Reply != tc.want {
				t.Fatalf("got %q, want %q", res.Reply, tc.want)
			}
		})
	}
}

func TestSession_GeminiVerbatim(t *testing.T) {
	answer := "```json\n[1,2]\n```"
	transport := &stubTransport{resp: &models.GenerateResponse{Response: text(answer)}}
	session := NewSession(transport, WithModel("gemini"))

	res, err := session.Submit(context.Background(), "What is QA?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reply != answer {
		t.Fatalf("expected gemini reply to be shown verbatim, got %q", res.Reply)
	}
	if transport.requests[0].Context != ContextQASupport {
		t.Fatalf("unexpected context %q", transport.requests[0].Context)
	}
}

func TestSession_GeminiFailureAdvisory(t *testing.T) {
	transport := &stubTransport{err: &RequestError{Status: 429, Message: "Please wait a moment before sending another request."}}
	session := NewSession(transport, WithModel("gemini"))

	res, err := session.Submit(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reply != geminiFallbackMessage || res.Advisory != geminiFallbackAdvisory {
		t.Fatalf("unexpected fallback %+v", res)
	}
	if session.Advisory() != geminiFallbackAdvisory {
		t.Fatalf("expected advisory to be kept on the session")
	}
}

func TestSession_MalformedResponseFallsBack(t *testing.T) {
	transport := &stubTransport{resp: &models.GenerateResponse{TestCases: json.RawMessage(`{"title":"not a list"}`)}}
	session := NewSession(transport)

	res, err := session.Submit(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != StateFailed || res.Reply != ragFallbackMessage {
		t.Fatalf("expected fallback for malformed payload, got %+v", res)
	}
}

func TestSession_MockDetail(t *testing.T) {
	transport := &stubTransport{err: errors.New("connection refused")}
	session := NewSession(transport, WithModel("gemini"), WithMockDetail(true))

	res, _ := session.Submit(context.Background(), "Explain AES")
	if !strings.HasPrefix(res.Reply, "# Advanced Encryption Standard (AES)") {
		t.Fatalf("expected detailed mock answer, got %q", res.Reply)
	}
}

func TestSession_FailVisibly(t *testing.T) {
	boom := errors.New("connection refused")
	session := NewSession(&stubTransport{err: boom}, WithFallbackPolicy(FallbackFail))

	_, err := session.Submit(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error to be returned, got %v", err)
	}
	transcript := session.Transcript()
	if len(transcript) != 1 || transcript[0].Role != models.RoleUser {
		t.Fatalf("expected only the user message, got %+v", transcript)
	}
	if session.InFlight() {
		t.Fatalf("expected in-flight flag to be cleared")
	}
}

func TestSession_DropsBlankAndBusySubmissions(t *testing.T) {
	transport := &stubTransport{
		resp:    &models.GenerateResponse{Response: text("ok")},
		release: make(chan struct{}),
	}
	session := NewSession(transport, WithModel("gemini"))

	if _, err := session.Submit(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		session.Submit(context.Background(), "first")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !session.InFlight() {
		if time.Now().After(deadline) {
			t.Fatalf("first exchange never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := session.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(transport.release)
	wg.Wait()

	want := []models.ChatMessage{
		{Role: models.RoleUser, Content: "first"},
		{Role: models.RoleAssistant, Content: "ok"},
	}
	if diff := cmp.Diff(want, session.Transcript()); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_ObserverSeesExchangeInOrder(t *testing.T) {
	var events []Event
	transport := &stubTransport{resp: &models.GenerateResponse{Response: text("raw"), Error: "Failed to parse LLM output as JSON"}}
	session := NewSession(transport, WithGreeting(DefaultGreeting), WithObserver(func(e Event) {
		events = append(events, e)
	}))

	session.Submit(context.Background(), "story")

	var kinds []string
	for _, e := range events {
		if e.Type == EventState {
			kinds = append(kinds, "state:"+e.State.String())
		} else {
			kinds = append(kinds, string(e.Type))
		}
	}
	want := []string{"message", "state:awaiting_response", "message", "advisory", "state:resolved", "state:idle"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("event order mismatch (-want +got):\n%s", diff)
	}
	if got := session.Transcript(); len(got) != 3 || got[0].Content != DefaultGreeting {
		t.Fatalf("expected greeting to open the transcript, got %+v", got)
	}
}

func TestSession_SetModel(t *testing.T) {
	transport := &stubTransport{resp: &models.GenerateResponse{Response: text("ok")}}
	session := NewSession(transport)

	session.SetModel("Gemini")
	if session.Model() != models.ModelGemini {
		t.Fatalf("expected gemini, got %q", session.Model())
	}
	session.Submit(context.Background(), "q")
	if transport.requests[0].Model != models.ModelGemini {
		t.Fatalf("expected envelope to carry the selected model")
	}
}
