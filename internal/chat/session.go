// Package chat drives a single assistant conversation: it keeps the transcript,
// allows one exchange at a time and turns backend answers (or failures) into
// assistant messages.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"testcase-assistant/internal/models"
	"testcase-assistant/internal/services"
	"testcase-assistant/pkg/log"
)

const (
	ContextTestCases = "Generate comprehensive test cases for the following feature or user story"
	ContextQASupport = "Provide QA support and guidance"

	NoOutputPlaceholder = "[No output from LLM]"

	DefaultGreeting = "Hello! I'm your AI Test Case Assistant. I can help you in two ways:\n\n" +
		"🔍 **RAG Mode (Default)**: Generate comprehensive test cases based on your user stories and existing test case database.\n\n" +
		"💬 **Gemini Mode**: Ask questions about software testing, QA processes, and best practices.\n\n" +
		"What would you like to do today?"
)

const (
	ragFallbackMessage    = "I'm using mock test cases for demonstration. In production, you would connect to the RAG backend."
	geminiFallbackMessage = "I'm using mock QA support for demonstration. In production, you would connect to the Gemini API."

	ragFallbackAdvisory    = "Using mock test cases. To use RAG backend, ensure the Flask server is running."
	geminiFallbackAdvisory = "Using mock QA support. To use Gemini API, add GOOGLE_GENERATIVE_AI_API_KEY to your environment."
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("an exchange is already in flight")
)

// State is where a session is within an exchange.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// FallbackPolicy decides what a failed exchange shows the user.
type FallbackPolicy int

const (
	// FallbackMock appends canned content and reports an advisory.
	FallbackMock FallbackPolicy = iota
	// FallbackFail returns the error and appends nothing.
	FallbackFail
)

type EventType string

const (
	EventMessage  EventType = "message"
	EventAdvisory EventType = "advisory"
	EventState    EventType = "state"
)

// Event is emitted to the observer for every transcript append, advisory and
// state change.
type Event struct {
	Type     EventType
	Message  models.ChatMessage
	Advisory string
	State    State
}

// Result describes a finished exchange. Outcome is StateResolved or StateFailed.
type Result struct {
	Reply    string
	Advisory string
	Outcome  State
}

type Option func(*Session)

func WithModel(model string) Option {
	return func(s *Session) { s.model = services.NormalizeModel(model) }
}

func WithFallbackPolicy(p FallbackPolicy) Option {
	return func(s *Session) { s.policy = p }
}

// WithMockDetail replaces the short fallback sentence with full canned test
// cases or QA notes for the submitted message.
func WithMockDetail(enabled bool) Option {
	return func(s *Session) { s.mockDetail = enabled }
}

// WithGreeting seeds the transcript with an assistant greeting.
func WithGreeting(text string) Option {
	return func(s *Session) {
		s.transcript = append(s.transcript, models.ChatMessage{Role: models.RoleAssistant, Content: text})
	}
}

// WithObserver registers fn to receive session events. fn is called without
// the session lock held.
func WithObserver(fn func(Event)) Option {
	return func(s *Session) { s.observer = fn }
}

type Session struct {
	transport  Transport
	policy     FallbackPolicy
	mockDetail bool
	observer   func(Event)

	mu         sync.Mutex
	model      string
	transcript []models.ChatMessage
	inFlight   bool
	state      State
	advisory   string
}

// NewSession starts in RAG mode unless WithModel says otherwise.
func NewSession(transport Transport, opts ...Option) *Session {
	s := &Session{
		transport: transport,
		model:     models.ModelRAG,
		policy:    FallbackMock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs one exchange. Blank input and submissions made while another
// exchange is in flight are dropped with ErrEmptyMessage or ErrBusy and leave
// the transcript untouched.
func (s *Session) Submit(ctx context.Context, message string) (*Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.inFlight = true
	model := s.model
	userMsg := models.ChatMessage{Role: models.RoleUser, Content: message}
	s.transcript = append(s.transcript, userMsg)
	s.advisory = ""
	s.state = StateAwaitingResponse
	s.mu.Unlock()

	s.emit(Event{Type: EventMessage, Message: userMsg})
	s.emit(Event{Type: EventState, State: StateAwaitingResponse})

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.state = StateIdle
		s.mu.Unlock()
		s.emit(Event{Type: EventState, State: StateIdle})
	}()

	req := models.GenerateRequest{
		Message: message,
		Context: contextFor(model),
		Model:   model,
	}
	resp, err := s.transport.Generate(ctx, req)
	var reply string
	if err == nil {
		reply, err = renderReply(model, resp)
	}
	if err != nil {
		return s.fail(model, message, err)
	}

	s.finish(reply, resp.Error, StateResolved)
	return &Result{Reply: reply, Advisory: resp.Error, Outcome: StateResolved}, nil
}

func (s *Session) fail(model, message string, err error) (*Result, error) {
	log.Warnw("chat exchange failed", "model", model, "error", err)

	if s.policy == FallbackFail {
		s.mu.Lock()
		s.state = StateFailed
		s.mu.Unlock()
		s.emit(Event{Type: EventState, State: StateFailed})
		return nil, err
	}

	reply, advisory := fallbackFor(model)
	if s.mockDetail {
		if model == models.ModelRAG {
			reply = services.MockTestCases(message)
		} else {
			reply = services.MockQASupport(message)
		}
	}
	s.finish(reply, advisory, StateFailed)
	return &Result{Reply: reply, Advisory: advisory, Outcome: StateFailed}, nil
}

func (s *Session) finish(reply, advisory string, outcome State) {
	msg := models.ChatMessage{Role: models.RoleAssistant, Content: reply}

	s.mu.Lock()
	s.transcript = append(s.transcript, msg)
	s.advisory = advisory
	s.state = outcome
	s.mu.Unlock()

	s.emit(Event{Type: EventMessage, Message: msg})
	if advisory != "" {
		s.emit(Event{Type: EventAdvisory, Advisory: advisory})
	}
	s.emit(Event{Type: EventState, State: outcome})
}

func (s *Session) emit(e Event) {
	if s.observer != nil {
		s.observer(e)
	}
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// SetModel switches the model for later submissions. An exchange already in
// flight keeps the model it started with.
func (s *Session) SetModel(model string) {
	s.mu.Lock()
	s.model = services.NormalizeModel(model)
	s.mu.Unlock()
}

func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Advisory is the notice from the last exchange, empty when there was none.
func (s *Session) Advisory() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advisory
}

func contextFor(model string) string {
	if model == models.ModelRAG {
		return ContextTestCases
	}
	return ContextQASupport
}

func fallbackFor(model string) (reply, advisory string) {
	if model == models.ModelRAG {
		return ragFallbackMessage, ragFallbackAdvisory
	}
	return geminiFallbackMessage, geminiFallbackAdvisory
}

// renderReply turns a successful answer into assistant text. A missing
// payload is reported as a malformed response so it takes the failure path.
func renderReply(model string, resp *models.GenerateResponse) (string, error) {
	if resp == nil {
		return "", &services.MalformedResponseError{Message: "empty response"}
	}

	if model != models.ModelRAG {
		if resp.Response == nil {
			return "", &services.MalformedResponseError{Message: "response field missing"}
		}
		return *resp.Response, nil
	}

	if resp.Response != nil {
		n := services.Normalize(*resp.Response)
		if items, ok := n.Parsed.([]interface{}); ok {
			raw, err := json.Marshal(items)
			if err != nil {
				return "", err
			}
			return formatRaw(raw)
		}
		if n.Cleaned == "" {
			return NoOutputPlaceholder, nil
		}
		return n.Cleaned, nil
	}

	if len(resp.TestCases) > 0 {
		return formatRaw(resp.TestCases)
	}
	return "", &services.MalformedResponseError{Message: "neither testCases nor response present"}
}

func formatRaw(raw json.RawMessage) (string, error) {
	var cases []models.TestCase
	if err := json.Unmarshal(raw, &cases); err != nil {
		return "", &services.MalformedResponseError{Message: "test cases are not a list of objects: " + err.Error()}
	}
	text := FormatTestCases(cases)
	if text == "" {
		return NoOutputPlaceholder, nil
	}
	return text, nil
}
