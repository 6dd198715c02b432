package models

import "encoding/json"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Model selectors accepted by the generate endpoint.
const (
	ModelGemini = "gemini"
	ModelRAG    = "rag"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// GenerateRequest is the payload sent to the generate endpoint.
type GenerateRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
	Model   string `json:"model"`
}

// GenerateResponse carries either free text or the RAG backend's test cases.
// Response is a pointer so clients can tell an absent field from an empty one.
// Error is set alongside Response when the RAG backend returned unparsed output.
type GenerateResponse struct {
	Response  *string         `json:"response,omitempty"`
	TestCases json.RawMessage `json:"testCases,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// NormalizedResponse is the result of stripping code fences from model output.
// Parsed is nil when Cleaned is not valid JSON.
type NormalizedResponse struct {
	Parsed  interface{}
	Cleaned string
}
