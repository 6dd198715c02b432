package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"testcase-assistant/internal/chat"
	"testcase-assistant/internal/models"
)

type echoTransport struct {
	fail bool
}

func (e echoTransport) Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResponse, error) {
	if e.fail {
		return nil, errors.New("connection refused")
	}
	reply := req.Model + ": " + req.Message
	return &models.GenerateResponse{Response: &reply}, nil
}

func TestRunREPL(t *testing.T) {
	session := chat.NewSession(echoTransport{}, chat.WithModel("gemini"))
	in := strings.NewReader("hello\n/model rag\n/history\n/quit\nnever sent\n")
	var out bytes.Buffer

	if err := runREPL(context.Background(), session, in, &out, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{"assistant> gemini: hello", "switched to rag", "user> hello"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, got)
		}
	}
	if strings.Contains(got, "never sent") {
		t.Fatalf("expected input after /quit to be ignored")
	}
}

func TestRunREPL_FallbackAdvisory(t *testing.T) {
	session := chat.NewSession(echoTransport{fail: true})
	var out bytes.Buffer

	runREPL(context.Background(), session, strings.NewReader("login story\n"), &out, time.Second)

	if !strings.Contains(out.String(), "note: Using mock test cases. To use RAG backend, ensure the Flask server is running.") {
		t.Fatalf("expected advisory to be printed, got:\n%s", out.String())
	}
}
