package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"testcase-assistant/internal/models"
)

const projectsCacheKey = "projects"

// RAGResult is the story backend's answer to a RAG chat query. Exactly one of
// TestCases or Raw is set; Raw comes with Warning when the backend could not
// parse its own model output.
type RAGResult struct {
	TestCases json.RawMessage
	Raw       string
	Warning   string
}

// UploadResult is the backend's verdict on a story upload.
type UploadResult struct {
	Status int
	Body   json.RawMessage
}

// Download streams a file from the backend. The caller closes Body.
type Download struct {
	Body               io.ReadCloser
	ContentType        string
	ContentDisposition string
}

// BackendClient talks to the story REST backend and its scheduler.
type BackendClient struct {
	baseURL      string
	schedulerURL string
	http         *http.Client
	projects     *cache.Cache
}

func NewBackendClient(baseURL, schedulerURL string, timeout, projectsTTL time.Duration) *BackendClient {
	return &BackendClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		schedulerURL: strings.TrimRight(schedulerURL, "/"),
		http:         &http.Client{Timeout: timeout},
		projects:     cache.New(projectsTTL, 2*projectsTTL),
	}
}

// RAGChat asks the backend to generate test cases for query from similar stories.
func (c *BackendClient) RAGChat(ctx context.Context, query string) (*RAGResult, error) {
	var out struct {
		TestCases json.RawMessage `json:"testCases"`
		Raw       *string         `json:"raw"`
		Error     string          `json:"error"`
	}
	body := map[string]string{"query": query}
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/stories/rag-chat", body, &out); err != nil {
		return nil, err
	}

	if len(out.TestCases) > 0 && !bytes.Equal(out.TestCases, []byte("null")) {
		return &RAGResult{TestCases: out.TestCases}, nil
	}
	if out.Raw != nil {
		return &RAGResult{Raw: *out.Raw, Warning: out.Error}, nil
	}
	return nil, &MalformedResponseError{Message: "RAG backend response has no testCases"}
}

// Upload forwards a story upload as multipart form data. Non-2xx answers are
// returned as results, not errors, so their status can be passed through.
func (c *BackendClient) Upload(ctx context.Context, form models.UploadForm) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"project_id", form.ProjectID},
		{"story_id", form.StoryID},
		{"content", form.Content},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", f[0], err)
		}
	}
	if form.File != nil {
		part, err := mw.CreateFormFile("file", form.FileName)
		if err != nil {
			return nil, fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := io.Copy(part, form.File); err != nil {
			return nil, fmt.Errorf("failed to copy upload file: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/stories/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &BackendUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}
	if !json.Valid(raw) {
		return nil, &MalformedResponseError{Message: "upload response is not JSON"}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &UploadResult{Status: resp.StatusCode, Body: raw}, nil
	}

	msg := remoteErrorMessage(raw)
	if msg == "" {
		msg = "Upload failed"
	}
	body, _ := json.Marshal(models.ErrorResponse{Error: msg})
	return &UploadResult{Status: resp.StatusCode, Body: body}, nil
}

// ListStories fetches one page of stories with generated test cases.
func (c *BackendClient) ListStories(ctx context.Context, q models.StoryQuery) (*models.StoriesPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = 10
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		return nil, &ValidationError{Message: `Invalid sort_order. Must be "asc" or "desc"`}
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("sort_order", q.SortOrder)
	if q.FromDate != "" {
		params.Set("from_date", q.FromDate)
	}
	if q.ToDate != "" {
		params.Set("to_date", q.ToDate)
	}
	if q.ProjectID != "" {
		params.Set("project_id", q.ProjectID)
	}

	var page models.StoriesPage
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/stories/?"+params.Encode(), nil, &page); err != nil {
		return nil, err
	}
	if page.Stories == nil || page.Pagination == nil {
		return nil, &MalformedResponseError{Message: "Invalid response format from server"}
	}
	return &page, nil
}

func (c *BackendClient) SearchStories(ctx context.Context, query string, limit int) (json.RawMessage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Message: "Query cannot be empty"}
	}
	if limit <= 0 {
		limit = 3
	}
	var out json.RawMessage
	err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/stories/search", models.SearchRequest{Query: query, Limit: limit}, &out)
	return out, err
}

func (c *BackendClient) Story(ctx context.Context, storyID string) (json.RawMessage, error) {
	return c.getRaw(ctx, c.baseURL+"/api/stories/"+url.PathEscape(storyID))
}

func (c *BackendClient) StoryTestCases(ctx context.Context, storyID string) (json.RawMessage, error) {
	return c.getRaw(ctx, c.baseURL+"/api/stories/"+url.PathEscape(storyID)+"/testcases")
}

func (c *BackendClient) TestCase(ctx context.Context, storyID, testCaseID string) (json.RawMessage, error) {
	return c.getRaw(ctx, c.baseURL+"/api/stories/"+url.PathEscape(storyID)+"/test-cases/"+url.PathEscape(testCaseID))
}

// Projects lists known project IDs. Answers are cached for the configured TTL.
func (c *BackendClient) Projects(ctx context.Context) ([]string, error) {
	if v, ok := c.projects.Get(projectsCacheKey); ok {
		return v.([]string), nil
	}

	var out models.ProjectsResponse
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/stories/projects", nil, &out); err != nil {
		return nil, err
	}
	if out.Projects == nil {
		out.Projects = []string{}
	}
	c.projects.SetDefault(projectsCacheKey, out.Projects)
	return out.Projects, nil
}

// InvalidateProjects drops the cached project list, e.g. after an upload
// created a new project.
func (c *BackendClient) InvalidateProjects() {
	c.projects.Delete(projectsCacheKey)
}

func (c *BackendClient) StoryImpacts(ctx context.Context, storyID string) (json.RawMessage, error) {
	return c.getRaw(ctx, c.baseURL+"/api/stories/impacts/story/"+url.PathEscape(storyID))
}

func (c *BackendClient) ImpactDetails(ctx context.Context, impactID string) (json.RawMessage, error) {
	return c.getRaw(ctx, c.baseURL+"/api/stories/impacts/details/"+url.PathEscape(impactID))
}

func (c *BackendClient) ImpactSummary(ctx context.Context, projectID string) (json.RawMessage, error) {
	return c.getRaw(ctx, c.baseURL+"/api/stories/impacts/summary/"+url.PathEscape(projectID))
}

func (c *BackendClient) StoryTestCaseImpacts(ctx context.Context, storyID, projectID string) (json.RawMessage, error) {
	if projectID == "" {
		return nil, &ValidationError{Message: "project_id is required as query parameter"}
	}
	u := c.baseURL + "/api/stories/impacts/story-test-cases/" + url.PathEscape(storyID) + "?project_id=" + url.QueryEscape(projectID)
	return c.getRaw(ctx, u)
}

// NextReload returns the scheduler's next reload time as sent (plain text).
func (c *BackendClient) NextReload(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.schedulerURL+"/api/scheduler/next-reload", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &BackendUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read scheduler response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", backendError(resp.StatusCode, raw)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (c *BackendClient) TriggerReload(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.doJSON(ctx, http.MethodPost, c.schedulerURL+"/api/scheduler/trigger", nil, &out)
	return out, err
}

// DownloadTestCases opens the backend's test case export for storyID.
func (c *BackendClient) DownloadTestCases(ctx context.Context, storyID string) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stories/testcases/download/"+url.PathEscape(storyID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &BackendUnavailableError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, backendError(resp.StatusCode, raw)
	}
	return &Download{
		Body:               resp.Body,
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
	}, nil
}

func (c *BackendClient) getRaw(ctx context.Context, u string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// doJSON sends body as JSON (when non-nil) and decodes a 2xx answer into out.
func (c *BackendClient) doJSON(ctx context.Context, method, u string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &BackendUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return backendError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &MalformedResponseError{Message: "Invalid response format from server"}
	}
	return nil
}

func backendError(status int, raw []byte) *BackendError {
	msg := remoteErrorMessage(raw)
	if msg == "" {
		return &BackendError{Status: status, Message: fmt.Sprintf("HTTP error! status: %d", status)}
	}
	return &BackendError{Status: status, Message: msg, Remote: true}
}

func remoteErrorMessage(raw []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &e) != nil {
		return ""
	}
	return e.Error
}
