package services

import (
	"encoding/json"
	"strings"

	"testcase-assistant/internal/models"
)

const fence = "```"

// Normalize strips a markdown code fence that wraps the whole of raw and tries
// to decode what is left as JSON. Only fences at the very start or end of the
// trimmed text are removed.
func Normalize(raw string) models.NormalizedResponse {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, fence+"json")
	cleaned = strings.TrimPrefix(cleaned, fence)
	cleaned = strings.TrimSuffix(cleaned, fence)
	cleaned = strings.TrimSpace(cleaned)

	var parsed interface{}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return models.NormalizedResponse{Cleaned: cleaned}
	}
	return models.NormalizedResponse{Parsed: parsed, Cleaned: cleaned}
}
