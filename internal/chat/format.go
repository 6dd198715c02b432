package chat

import (
	"fmt"
	"strings"

	"testcase-assistant/internal/models"
)

// FormatTestCases renders test cases as numbered plain-text blocks:
//
//	Test Case 1: <title>
//	Description: <description>
//	Steps:
//	  1. <step>
//	Expected Result: <expected>
//
// Each block ends with an empty line.
func FormatTestCases(cases []models.TestCase) string {
	blocks := make([]string, 0, len(cases))
	for i, tc := range cases {
		lines := []string{
			fmt.Sprintf("Test Case %d: %s", i+1, tc.Title),
			"Description: " + string(tc.Description),
			"Steps:",
		}
		for j, step := range tc.Steps {
			lines = append(lines, fmt.Sprintf("  %d. %s", j+1, step))
		}
		lines = append(lines, "Expected Result: "+expectedResult(tc), "")
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n")
}

// Older backends send a list of expected results instead of a single one.
func expectedResult(tc models.TestCase) string {
	if tc.ExpectedResult != "" {
		return string(tc.ExpectedResult)
	}
	parts := make([]string, len(tc.ExpectedResults))
	for i, r := range tc.ExpectedResults {
		parts[i] = string(r)
	}
	return strings.Join(parts, "; ")
}
