package handlers

import (
	"net/http"
	"strings"

	"testcase-assistant/internal/services"
)

type mockResponse struct {
	Response string `json:"response"`
}

// MockTestCases serves canned test cases for ?feature=.
func MockTestCases(w http.ResponseWriter, r *http.Request) {
	feature := strings.TrimSpace(r.URL.Query().Get("feature"))
	if feature == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("feature is required"))
		return
	}
	writeJSON(w, http.StatusOK, mockResponse{Response: services.MockTestCases(feature)})
}

// MockQASupport serves a canned QA answer for ?question=.
func MockQASupport(w http.ResponseWriter, r *http.Request) {
	question := strings.TrimSpace(r.URL.Query().Get("question"))
	if question == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("question is required"))
		return
	}
	writeJSON(w, http.StatusOK, mockResponse{Response: services.MockQASupport(question)})
}
