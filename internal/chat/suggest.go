package chat

import (
	"fmt"
	"strings"

	"github.com/usmanhx/labinsight/pkg/models"
)

const (
	maxStarterSuggestions  = 4
	maxFollowUpSuggestions = 3
)

// StarterSuggestions builds opening questions from the analysis: abnormal
// findings first, then a lifestyle question for the affected panel, then
// generic fallbacks.
func StarterSuggestions(analysis *models.StructuredAnalysis) []string {
	var suggestions []string

	abnormal := analysis.AbnormalFindings()
	if len(abnormal) > 0 {
		// AbnormalFindings orders critical first.
		first := abnormal[0]
		if first.Finding.Severity == models.SeverityCritical {
			suggestions = append(suggestions,
				fmt.Sprintf("What does my critical %s level mean?", first.Finding.TestName))
		}
		for _, af := range abnormal {
			if len(suggestions) >= 2 {
				break
			}
			if af.Finding.Severity == models.SeverityBorderline {
				suggestions = append(suggestions,
					fmt.Sprintf("Should I be concerned about my %s?", af.Finding.TestName))
				break
			}
		}

		suggestions = append(suggestions, lifestyleQuestion(abnormal))
	}

	generic := []string{
		"Give me an overview of my lab results.",
		"Are there any values I should pay attention to?",
		"What do my results mean overall?",
		"Should I discuss any results with my doctor?",
	}
	for _, q := range generic {
		if len(suggestions) >= maxStarterSuggestions {
			break
		}
		if !contains(suggestions, q) {
			suggestions = append(suggestions, q)
		}
	}

	if len(suggestions) > maxStarterSuggestions {
		suggestions = suggestions[:maxStarterSuggestions]
	}
	return suggestions
}

func lifestyleQuestion(abnormal []models.AbnormalFinding) string {
	var names []string
	for _, af := range abnormal {
		names = append(names, af.Category)
	}
	joined := strings.Join(names, " ")

	switch {
	case strings.Contains(joined, "Lipid"):
		return "What dietary changes can help improve my cholesterol?"
	case strings.Contains(joined, "CBC") || strings.Contains(joined, "Blood"):
		return "How can I improve my blood health naturally?"
	case strings.Contains(joined, "Liver"):
		return "What lifestyle changes support liver health?"
	case strings.Contains(joined, "Kidney"):
		return "How can I support my kidney function?"
	case strings.Contains(joined, "Thyroid"):
		return "What factors affect thyroid health?"
	default:
		return "What lifestyle changes do you recommend based on my results?"
	}
}

var topicWords = map[string][]string{
	"cholesterol": {"cholesterol", "ldl", "hdl", "lipid", "triglyceride"},
	"blood":       {"hemoglobin", "rbc", "wbc", "platelet", "anemia", "cbc"},
	"liver":       {"liver", "alt", "ast", "bilirubin", "albumin"},
	"kidney":      {"kidney", "creatinine", "bun", "egfr", "urea"},
	"thyroid":     {"thyroid", "tsh", "t3", "t4"},
	"diet":        {"diet", "food", "eat", "nutrition"},
	"exercise":    {"exercise", "physical", "workout", "activity"},
}

// FollowUpSuggestions builds contextual follow-up questions from the last
// exchange by detecting which topics it touched.
func FollowUpSuggestions(lastQuestion, lastResponse string) []string {
	text := strings.ToLower(lastQuestion) + " " + strings.ToLower(lastResponse)

	discussed := func(topic string) bool {
		for _, w := range topicWords[topic] {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}

	var suggestions []string
	switch {
	case discussed("cholesterol"):
		if !discussed("diet") {
			suggestions = append(suggestions, "What foods should I eat to lower cholesterol?")
		}
		if !discussed("exercise") {
			suggestions = append(suggestions, "How does exercise affect cholesterol levels?")
		}
		suggestions = append(suggestions, "Tell me about my other lipid values.")
	case discussed("blood"):
		suggestions = append(suggestions,
			"What foods are rich in iron?",
			"What causes low hemoglobin levels?")
	case discussed("liver"):
		suggestions = append(suggestions,
			"What foods support liver health?",
			"What can damage the liver?")
	case discussed("kidney"):
		suggestions = append(suggestions,
			"How much water should I drink daily?",
			"What foods are good for kidney health?")
	case discussed("thyroid"):
		suggestions = append(suggestions,
			"What affects thyroid function?",
			"Are there foods that support thyroid health?")
	case discussed("diet") && !discussed("exercise"):
		suggestions = append(suggestions, "What exercise routine do you recommend?")
	case discussed("exercise") && !discussed("diet"):
		suggestions = append(suggestions, "What dietary changes would complement my exercise?")
	}

	if len(suggestions) < maxFollowUpSuggestions {
		suggestions = append(suggestions, "What other results should I know about?")
	}
	if len(suggestions) < 2 {
		suggestions = append(suggestions,
			"Should I follow up with my doctor?",
			"What tests might I need in the future?")
	}

	if len(suggestions) > maxFollowUpSuggestions {
		suggestions = suggestions[:maxFollowUpSuggestions]
	}
	return suggestions
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
