package models

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// FlexString decodes a JSON string, number, bool or object into text.
// LLM-produced test cases are loose about field types.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*f = FlexString(buf.String())
	return nil
}

// FlexList decodes either a JSON array or a single scalar into a list of strings.
type FlexList []FlexString

func (l *FlexList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []FlexString
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var one FlexString
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return err
	}
	if strings.TrimSpace(string(one)) == "" {
		*l = nil
		return nil
	}
	*l = FlexList{one}
	return nil
}

// TestCase is a generated test case as returned by the story backend.
type TestCase struct {
	ID              FlexString `json:"id,omitempty"`
	TestCaseID      FlexString `json:"test_case_id,omitempty"`
	Title           FlexString `json:"title"`
	Description     FlexString `json:"description,omitempty"`
	Steps           FlexList   `json:"steps,omitempty"`
	ExpectedResult  FlexString `json:"expected_result,omitempty"`
	ExpectedResults FlexList   `json:"expected_results,omitempty"`
	Priority        FlexString `json:"priority,omitempty"`
	Status          FlexString `json:"status,omitempty"`
	CreatedAt       FlexString `json:"created_at,omitempty"`
	UpdatedAt       FlexString `json:"updated_at,omitempty"`
}

type Story struct {
	ID                  string          `json:"id"`
	Description         string          `json:"description"`
	DocContentText      *string         `json:"doc_content_text"`
	CreatedOn           string          `json:"created_on,omitempty"`
	TestCaseCount       int             `json:"test_case_count"`
	EmbeddingTimestamp  *string         `json:"embedding_timestamp"`
	TestCaseCreatedTime *string         `json:"test_case_created_time"`
	ProjectID           string          `json:"project_id"`
	Title               string          `json:"title,omitempty"`
	Summary             string          `json:"summary,omitempty"`
	ImpactedTestCases   int             `json:"impactedTestCases"`
	DownloadLink        string          `json:"download_link,omitempty"`
	Source              json.RawMessage `json:"source,omitempty"`
}

type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

type StoriesPage struct {
	Stories    []Story     `json:"stories"`
	Pagination *Pagination `json:"pagination"`
}

// StoryQuery filters a story listing. Zero values mean "not set".
type StoryQuery struct {
	Page      int
	PerPage   int
	FromDate  string
	ToDate    string
	ProjectID string
	SortOrder string
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type ProjectsResponse struct {
	Projects []string `json:"projects"`
}

// UploadForm is the multipart story upload forwarded to the backend.
type UploadForm struct {
	ProjectID string
	StoryID   string
	Content   string
	FileName  string
	File      io.Reader // nil when no file was attached
}
