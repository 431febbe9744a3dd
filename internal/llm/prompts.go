package llm

import (
	"fmt"
	"strings"
)

const classifyPrompt = `You are a document classifier for a medical lab-report service.
Decide whether the following text was extracted from a clinical laboratory report
(blood panel, urinalysis, lipid profile, thyroid panel, etc.).

Respond with JSON only, no prose:
{"is_lab_report": true|false, "confidence": 0.0-1.0, "reason": "one sentence"}

Text:
%s`

const analyzePrompt = `You are a clinical lab-report interpreter. The text below was extracted
from a lab report and has had identifying information redacted. Patient context:
age %s, gender %s.

Produce JSON only, no prose, with this exact shape:
{
  "patient_info": {"age": null|int, "gender": null|string, "report_date": null|string},
  "summary": "2-3 sentence plain-language overview",
  "categories": [
    {
      "name": "panel name",
      "tests": [
        {
          "test_name": "...",
          "value": <number or string label>,
          "unit": null|string,
          "reference_range": "as printed, or standard range if absent",
          "reference_source": "document"|"standard_knowledge",
          "severity": "normal"|"borderline"|"critical",
          "interpretation": "one sentence"
        }
      ]
    }
  ],
  "abnormal_analysis": "discussion of out-of-range values",
  "clinical_associations": "general associations, not diagnoses",
  "lifestyle_tips": "diet/exercise suggestions",
  "disclaimer": "educational-use disclaimer"
}

Report text:
%s`

const translatePrompt = `Translate the JSON lab-report analysis below into %s.
Rules:
- Translate only narrative text: summary, interpretations, abnormal_analysis,
  clinical_associations, lifestyle_tips, disclaimer, category names.
- Keep every technical/medical term annotated with the English term in
  parentheses, e.g. translated-term (Hemoglobin).
- Never change numbers, units, severities, reference ranges, or JSON structure.
Respond with the translated JSON only.

%s`

const chatPrompt = `You are a helpful assistant answering questions about one lab-report
analysis. Base every answer ONLY on the analysis JSON below. You explain and
educate; you never diagnose or prescribe. If asked something outside the
report, say so briefly. Keep answers under 200 words.

Analysis:
%s

Conversation so far:
%s

User: %s
Assistant:`

// BuildChatPrompt assembles the chat prompt from the analysis JSON, prior
// conversation turns, and the new user message.
func BuildChatPrompt(analysisJSON string, history []ChatMessage, message string) string {
	historyText := "(No previous messages)"
	if len(history) > 0 {
		var lines []string
		for _, m := range history {
			role := "Assistant"
			if m.Role == "user" {
				role = "User"
			}
			lines = append(lines, fmt.Sprintf("%s: %s", role, m.Content))
		}
		historyText = strings.Join(lines, "\n")
	}
	return fmt.Sprintf(chatPrompt, analysisJSON, historyText, message)
}
