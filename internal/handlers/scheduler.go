package handlers

import (
	"net/http"

	"testcase-assistant/internal/services"
)

type SchedulerHandler struct {
	backend *services.BackendClient
}

func NewSchedulerHandler(backend *services.BackendClient) *SchedulerHandler {
	return &SchedulerHandler{backend: backend}
}

// NextReload relays the scheduler's next reload time as plain text.
func (h *SchedulerHandler) NextReload(w http.ResponseWriter, r *http.Request) {
	next, err := h.backend.NextReload(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(next))
}

func (h *SchedulerHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	body, err := h.backend.TriggerReload(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, body)
}
