package services

import (
	"net/http"
	"strings"
)

// ClassificationRule maps an upstream error whose message contains any of
// Substrings (case-insensitive) to a fixed kind, status and client message.
type ClassificationRule struct {
	Substrings []string
	Kind       ErrorKind
	Status     int
	Message    string
}

// DefaultClassificationRules mirrors the wording the Gemini API uses today.
// Order matters: the first matching rule wins.
func DefaultClassificationRules() []ClassificationRule {
	return []ClassificationRule{
		{
			Substrings: []string{"api key"},
			Kind:       KindAuthentication,
			Status:     http.StatusUnauthorized,
			Message:    "Invalid API key. Please check your API key configuration.",
		},
		{
			Substrings: []string{"quota", "rate"},
			Kind:       KindThrottling,
			Status:     http.StatusTooManyRequests,
			Message:    "Please wait a moment and try again.",
		},
		{
			Substrings: []string{"not found"},
			Kind:       KindModelNotFound,
			Status:     http.StatusNotFound,
			Message:    "The specified model is not available. Please check the model configuration.",
		},
	}
}

type ErrorClassifier struct {
	rules []ClassificationRule
}

// NewErrorClassifier uses DefaultClassificationRules when rules is empty.
func NewErrorClassifier(rules ...ClassificationRule) *ErrorClassifier {
	if len(rules) == 0 {
		rules = DefaultClassificationRules()
	}
	return &ErrorClassifier{rules: rules}
}

// Classify turns an opaque model error into an UpstreamError. Errors that match
// no rule become a 500 echoing the original message.
func (c *ErrorClassifier) Classify(err error) *UpstreamError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if msg == "" {
		msg = "Unknown error occurred"
	}
	lower := strings.ToLower(msg)

	for _, rule := range c.rules {
		for _, sub := range rule.Substrings {
			if strings.Contains(lower, strings.ToLower(sub)) {
				return &UpstreamError{Kind: rule.Kind, Status: rule.Status, Message: rule.Message, Err: err}
			}
		}
	}

	return &UpstreamError{
		Kind:    KindGenericUpstream,
		Status:  http.StatusInternalServerError,
		Message: "Gemini API Error: " + msg,
		Err:     err,
	}
}
