package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/usmanhx/labinsight/pkg/models"
)

// stripCodeFence extracts the payload from a markdown-fenced model response.
// Models frequently wrap JSON in ```json blocks despite instructions.
func stripCodeFence(s string) string {
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+len("```"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	return strings.TrimSpace(s)
}

func parseClassification(raw string) (Classification, error) {
	var c Classification
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &c); err != nil {
		return Classification{}, fmt.Errorf("%w: classification: %v", ErrInvalidResponse, err)
	}
	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 1 {
		c.Confidence = 1
	}
	if c.Reason == "" {
		c.Reason = "No reason provided"
	}
	return c, nil
}

func parseAnalysis(raw string) (*models.StructuredAnalysis, error) {
	var a models.StructuredAnalysis
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &a); err != nil {
		return nil, fmt.Errorf("%w: analysis: %v", ErrInvalidResponse, err)
	}
	if strings.TrimSpace(a.Summary) == "" {
		return nil, fmt.Errorf("%w: analysis missing summary", ErrInvalidResponse)
	}
	if a.Categories == nil {
		return nil, fmt.Errorf("%w: analysis missing categories", ErrInvalidResponse)
	}
	a.Normalize()
	return &a, nil
}
