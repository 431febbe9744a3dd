// Package report renders a completed analysis into deliverable formats:
// GitHub-flavored markdown for API consumers and a PDF for download.
package report

import (
	"fmt"
	"strings"

	"github.com/usmanhx/labinsight/pkg/models"
)

var severityEmoji = map[string]string{
	models.SeverityNormal:     "\U0001F7E2",
	models.SeverityBorderline: "\U0001F7E1",
	models.SeverityCritical:   "\U0001F534",
}

// RenderMarkdown converts an analysis into formatted markdown with severity
// indicators and one GFM table per category.
func RenderMarkdown(a *models.StructuredAnalysis) string {
	var b strings.Builder

	b.WriteString("# Lab Report Analysis\n\n")
	writePatientInfo(&b, a.PatientInfo)
	writeSummary(&b, a.Summary)
	writeCategories(&b, a.Categories)

	if a.AbnormalAnalysis != "" {
		fmt.Fprintf(&b, "## Abnormal Value Analysis\n\n%s\n\n", a.AbnormalAnalysis)
	}
	if a.ClinicalAssociations != "" {
		fmt.Fprintf(&b, "## Clinical Associations\n\n%s\n\n", a.ClinicalAssociations)
	}
	if a.LifestyleTips != "" {
		fmt.Fprintf(&b, "## Lifestyle Recommendations\n\n%s\n\n", a.LifestyleTips)
	}

	disclaimer := a.Disclaimer
	if disclaimer == "" {
		disclaimer = models.DefaultDisclaimer
	}
	fmt.Fprintf(&b, "---\n\n> **Disclaimer:** %s\n", disclaimer)

	return b.String()
}

func writePatientInfo(b *strings.Builder, info models.PatientInfo) {
	age := "N/A"
	if info.Age != nil {
		age = fmt.Sprintf("%d", *info.Age)
	}
	gender := "N/A"
	if info.Gender != nil && *info.Gender != "" {
		gender = *info.Gender
	}
	reportDate := "N/A"
	if info.ReportDate != nil && *info.ReportDate != "" {
		reportDate = *info.ReportDate
	}

	b.WriteString("## Patient Information\n\n")
	fmt.Fprintf(b, "- **Age:** %s\n", age)
	fmt.Fprintf(b, "- **Gender:** %s\n", gender)
	fmt.Fprintf(b, "- **Report Date:** %s\n\n", reportDate)
}

func writeSummary(b *strings.Builder, summary string) {
	if summary == "" {
		summary = "No summary available."
	}
	fmt.Fprintf(b, "## Summary\n\n%s\n\n", summary)
}

func writeCategories(b *strings.Builder, categories []models.Category) {
	if len(categories) == 0 {
		b.WriteString("## Test Results\n\nNo test results found.\n\n")
		return
	}

	b.WriteString("## Test Results\n\n")
	for _, category := range categories {
		name := category.Name
		if name == "" {
			name = "Uncategorized"
		}
		fmt.Fprintf(b, "### %s\n\n", name)

		if len(category.Findings) == 0 {
			b.WriteString("No tests in this category.\n\n")
			continue
		}

		b.WriteString("| Status | Test | Value | Unit | Reference Range | Interpretation |\n")
		b.WriteString("|:------:|------|-------|------|-----------------|----------------|\n")

		hasKnowledgeRange := false
		for _, f := range category.Findings {
			emoji, ok := severityEmoji[f.Severity]
			if !ok {
				emoji = severityEmoji[models.SeverityNormal]
			}
			unit := ""
			if f.Unit != nil {
				unit = *f.Unit
			}
			refRange := f.ReferenceRange
			if f.RefSource == models.RefSourceKnowledge {
				refRange += " *"
				hasKnowledgeRange = true
			}
			fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s |\n",
				emoji,
				escapePipe(f.TestName),
				escapePipe(f.Value.String()),
				escapePipe(unit),
				escapePipe(refRange),
				escapePipe(f.Interpretation),
			)
		}

		if hasKnowledgeRange {
			b.WriteString("\n*\\* Reference values not available in the report; ranges based on standard medical knowledge.*\n")
		}
		b.WriteString("\n")
	}
}

// escapePipe keeps free text from breaking GFM table cells.
func escapePipe(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
