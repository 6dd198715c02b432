package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"testcase-assistant/internal/models"
)

type generator interface {
	Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResponse, error)
}

type GenerateHandler struct {
	proxy generator
}

func NewGenerateHandler(proxy generator) *GenerateHandler {
	return &GenerateHandler{proxy: proxy}
}

// Generate answers a chat message with Gemini text or RAG test cases.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("Error: "+err.Error()))
		return
	}

	resp, err := h.proxy.Generate(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
