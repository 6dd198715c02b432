package handlers

import (
	"context"
	"net/http"

	"testcase-assistant/internal/models"
	"testcase-assistant/internal/services"
	"testcase-assistant/pkg/log"
)

const maxUploadSize = 100 * 1024 * 1024 // 100MB

type storyUploader interface {
	Upload(ctx context.Context, form models.UploadForm) (*services.UploadResult, error)
	InvalidateProjects()
}

type UploadHandler struct {
	backend storyUploader
}

func NewUploadHandler(backend storyUploader) *UploadHandler {
	return &UploadHandler{backend: backend}
}

// Upload forwards a story upload to the backend and relays its answer.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		log.Error("Upload proxy error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Internal server error"))
		return
	}

	form := models.UploadForm{
		ProjectID: r.FormValue("project_id"),
		StoryID:   r.FormValue("story_id"),
		Content:   r.FormValue("content"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		form.File = file
		form.FileName = header.Filename
	case err != http.ErrMissingFile:
		log.Error("Upload proxy error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Internal server error"))
		return
	}

	res, err := h.backend.Upload(r.Context(), form)
	if err != nil {
		log.Error("Upload proxy error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("Internal server error"))
		return
	}

	if res.Status >= 200 && res.Status < 300 {
		h.backend.InvalidateProjects()
		log.Infow("story uploaded", "project_id", form.ProjectID, "story_id", form.StoryID, "status", res.Status)
	}
	writeRaw(w, res.Status, res.Body)
}
