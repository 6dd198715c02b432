package services

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"testcase-assistant/internal/models"
	"testcase-assistant/pkg/log"
)

const systemPrompt = `As an expert Software Engineer and QA consultant, provide a comprehensive and well-structured response about software development, security, or QA concepts. Format your response using markdown with clear headings, bullet points, and code examples where relevant.

Key areas to cover if applicable:
- Technical concepts and principles
- Best practices and industry standards
- Common challenges and solutions
- Implementation considerations
- Security implications
- Performance aspects`

const localRateLimitMessage = "Please wait a moment before sending another request."

// RAGBackend generates test cases from stored stories.
type RAGBackend interface {
	RAGChat(ctx context.Context, query string) (*RAGResult, error)
}

// Recorder receives proxy outcomes for metrics.
type Recorder interface {
	RecordGenerate(model, status string)
	RecordRateLimited(model string)
	ObserveUpstream(target string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordGenerate(string, string)         {}
func (nopRecorder) RecordRateLimited(string)              {}
func (nopRecorder) ObserveUpstream(string, time.Duration) {}

type ProxyService struct {
	generator  TextGenerator
	rag        RAGBackend
	guard      *IntervalGuard
	policy     RequestPolicy
	classifier *ErrorClassifier
	recorder   Recorder
}

func NewProxyService(generator TextGenerator, rag RAGBackend, guard *IntervalGuard, policy RequestPolicy, classifier *ErrorClassifier) *ProxyService {
	if guard == nil {
		guard = NewIntervalGuard(nil, time.Second, nil)
	}
	if classifier == nil {
		classifier = NewErrorClassifier()
	}
	return &ProxyService{
		generator:  generator,
		rag:        rag,
		guard:      guard,
		policy:     policy,
		classifier: classifier,
		recorder:   nopRecorder{},
	}
}

// SetRecorder attaches a metrics recorder. A nil recorder disables recording.
func (s *ProxyService) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	s.recorder = r
}

// NormalizeModel maps a request's model selector onto a known model. Anything
// other than "rag" takes the Gemini path.
func NormalizeModel(model string) string {
	if strings.EqualFold(strings.TrimSpace(model), models.ModelRAG) {
		return models.ModelRAG
	}
	return models.ModelGemini
}

// Generate routes req to the RAG backend or Gemini and returns the answer
// unchanged. Failures are typed service errors carrying an HTTP status.
func (s *ProxyService) Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResponse, error) {
	model := NormalizeModel(req.Model)

	resp, err := s.generate(ctx, model, req.Message)
	s.recorder.RecordGenerate(model, statusOf(err))
	return resp, err
}

func (s *ProxyService) generate(ctx context.Context, model, message string) (*models.GenerateResponse, error) {
	if s.policy.Guards(model) {
		ok, err := s.guard.Allow(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			rl := &RateLimitError{Message: localRateLimitMessage}
			s.recorder.RecordRateLimited(model)
			log.Warnw("Request rejected by interval guard", "model", model, "kind", string(rl.Kind()))
			return nil, rl
		}
	}

	if model == models.ModelRAG {
		return s.generateRAG(ctx, message)
	}
	return s.generateGemini(ctx, message)
}

func (s *ProxyService) generateRAG(ctx context.Context, message string) (*models.GenerateResponse, error) {
	start := time.Now()
	result, err := s.rag.RAGChat(ctx, message)
	s.recorder.ObserveUpstream(models.ModelRAG, time.Since(start))

	if err != nil {
		log.Error("RAG backend request failed", err)

		var backendErr *BackendError
		var unavailable *BackendUnavailableError
		var malformed *MalformedResponseError
		switch {
		case errors.As(err, &backendErr):
			msg := backendErr.Message
			if !backendErr.Remote || msg == "" {
				msg = "RAG backend error"
			}
			return nil, &UpstreamError{Kind: KindGenericUpstream, Status: http.StatusInternalServerError, Message: msg, Err: err}
		case errors.As(err, &unavailable):
			return nil, &UpstreamError{Kind: KindBackendUnavailable, Status: http.StatusInternalServerError, Message: "Error: " + unavailable.Err.Error(), Err: err}
		case errors.As(err, &malformed):
			return nil, &UpstreamError{Kind: KindMalformedResponse, Status: http.StatusInternalServerError, Message: "Error: " + malformed.Message, Err: err}
		}
		return nil, err
	}

	if result.TestCases != nil {
		return &models.GenerateResponse{TestCases: result.TestCases}, nil
	}
	if result.Warning != "" {
		log.Warnw("RAG backend returned unparsed output", "warning", result.Warning)
	}
	raw := result.Raw
	return &models.GenerateResponse{Response: &raw, Error: result.Warning}, nil
}

func (s *ProxyService) generateGemini(ctx context.Context, message string) (*models.GenerateResponse, error) {
	prompt := systemPrompt + "\n\nUser Question: " + message

	start := time.Now()
	text, err := s.generator.GenerateText(ctx, prompt)
	s.recorder.ObserveUpstream(models.ModelGemini, time.Since(start))

	if err != nil {
		if errors.Is(err, ErrEmptyResponse) {
			log.Errorf("No text in Gemini response")
		}
		classified := s.classifier.Classify(err)
		log.Warnw("Gemini request failed",
			"kind", string(classified.Kind),
			"status", classified.Status,
			"error", err,
		)
		return nil, classified
	}

	log.Infow("Gemini content generated", "length", len(text))
	return &models.GenerateResponse{Response: &text}, nil
}

// statusOf is the HTTP status a Generate outcome maps to, for metrics labels.
func statusOf(err error) string {
	if err == nil {
		return strconv.Itoa(http.StatusOK)
	}
	var rl *RateLimitError
	var up *UpstreamError
	switch {
	case errors.As(err, &rl):
		return strconv.Itoa(http.StatusTooManyRequests)
	case errors.As(err, &up):
		return strconv.Itoa(up.Status)
	}
	return strconv.Itoa(http.StatusInternalServerError)
}
