package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"testcase-assistant/internal/models"
	"testcase-assistant/internal/services"
	"testcase-assistant/pkg/log"
)

// StoryHandler exposes the story backend's browsing and impact endpoints to
// the dashboard.
type StoryHandler struct {
	backend *services.BackendClient
}

func NewStoryHandler(backend *services.BackendClient) *StoryHandler {
	return &StoryHandler{backend: backend}
}

func (h *StoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := queryInt(q.Get("page"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("page must be a number"))
		return
	}
	perPage, err := queryInt(q.Get("per_page"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("per_page must be a number"))
		return
	}

	result, err := h.backend.ListStories(r.Context(), models.StoryQuery{
		Page:      page,
		PerPage:   perPage,
		FromDate:  q.Get("from_date"),
		ToDate:    q.Get("to_date"),
		ProjectID: q.Get("project_id"),
		SortOrder: q.Get("sort_order"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *StoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Invalid request body"))
		return
	}

	result, err := h.backend.SearchStories(r.Context(), req.Query, req.Limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, result)
}

func (h *StoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r)(h.backend.Story(r.Context(), chi.URLParam(r, "id")))
}

func (h *StoryHandler) TestCases(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r)(h.backend.StoryTestCases(r.Context(), chi.URLParam(r, "id")))
}

func (h *StoryHandler) TestCase(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r)(h.backend.TestCase(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "testCaseID")))
}

func (h *StoryHandler) Projects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.backend.Projects(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ProjectsResponse{Projects: projects})
}

func (h *StoryHandler) StoryImpacts(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r)(h.backend.StoryImpacts(r.Context(), chi.URLParam(r, "id")))
}

func (h *StoryHandler) ImpactDetails(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r)(h.backend.ImpactDetails(r.Context(), chi.URLParam(r, "id")))
}

func (h *StoryHandler) ImpactSummary(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r)(h.backend.ImpactSummary(r.Context(), chi.URLParam(r, "projectID")))
}

func (h *StoryHandler) StoryTestCaseImpacts(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r)(h.backend.StoryTestCaseImpacts(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("project_id")))
}

// Download streams the backend's test case export with its file headers.
func (h *StoryHandler) Download(w http.ResponseWriter, r *http.Request) {
	dl, err := h.backend.DownloadTestCases(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	defer dl.Body.Close()

	if dl.ContentType != "" {
		w.Header().Set("Content-Type", dl.ContentType)
	}
	if dl.ContentDisposition != "" {
		w.Header().Set("Content-Disposition", dl.ContentDisposition)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, dl.Body); err != nil {
		log.Error("test case download interrupted", err)
	}
}

// relay writes a backend JSON answer or maps its error.
func (h *StoryHandler) relay(w http.ResponseWriter, r *http.Request) func(json.RawMessage, error) {
	return func(body json.RawMessage, err error) {
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeRaw(w, http.StatusOK, body)
	}
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
