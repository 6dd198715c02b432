package handlers

import (
	"encoding/json"
	"net/http"

	"testcase-assistant/internal/models"
	"testcase-assistant/internal/services"
	"testcase-assistant/pkg/log"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeRaw sends a backend JSON body through untouched.
func writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func errorResp(message string) models.ErrorResponse {
	return models.ErrorResponse{Error: message}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorResp(e.Message))
	case *services.RateLimitError:
		writeJSON(w, http.StatusTooManyRequests, errorResp(e.Message))
	case *services.UpstreamError:
		writeJSON(w, e.Status, errorResp(e.Message))
	case *services.BackendError:
		writeJSON(w, e.Status, errorResp(e.Message))
	case *services.BackendUnavailableError:
		writeJSON(w, http.StatusBadGateway, errorResp(e.Error()))
	case *services.MalformedResponseError:
		writeJSON(w, http.StatusBadGateway, errorResp(e.Message))
	default:
		log.Error("unhandled error on "+r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Error: "+err.Error()))
	}
}
