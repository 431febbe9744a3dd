package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/usmanhx/labinsight/pkg/models"
)

func sampleAnalysis() *models.StructuredAnalysis {
	age := 42
	gender := "male"
	unit := "g/dL"
	a := &models.StructuredAnalysis{
		PatientInfo: models.PatientInfo{Age: &age, Gender: &gender},
		Summary:     "Hemoglobin is slightly low; everything else is in range.",
		Categories: []models.Category{
			{
				Name: "Complete Blood Count",
				Findings: []models.Finding{
					{
						TestName:       "Hemoglobin",
						Value:          models.NumericValue(11.2),
						Unit:           &unit,
						ReferenceRange: "13.0 - 17.0",
						RefSource:      models.RefSourceDocument,
						Severity:       models.SeverityBorderline,
						Interpretation: "Slightly below range.",
					},
					{
						TestName:       "WBC Count",
						Value:          models.NumericValue(7200),
						ReferenceRange: "4000 - 11000",
						RefSource:      models.RefSourceKnowledge,
						Severity:       models.SeverityNormal,
						Interpretation: "Within range.",
					},
				},
			},
		},
		AbnormalAnalysis: "Hemoglobin is mildly reduced.",
		LifestyleTips:    "Eat iron-rich foods.",
		Disclaimer:       models.DefaultDisclaimer,
	}
	a.Normalize()
	return a
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(sampleAnalysis())

	assert.True(t, strings.HasPrefix(md, "# Lab Report Analysis"))
	assert.Contains(t, md, "- **Age:** 42")
	assert.Contains(t, md, "- **Gender:** male")
	assert.Contains(t, md, "- **Report Date:** N/A")
	assert.Contains(t, md, "## Summary")
	assert.Contains(t, md, "### Complete Blood Count")

	// Table rows carry severity indicators.
	assert.Contains(t, md, "| \U0001F7E1 | Hemoglobin | 11.2 | g/dL | 13.0 - 17.0 | Slightly below range. |")
	assert.Contains(t, md, "| \U0001F7E2 | WBC Count | 7200 |  | 4000 - 11000 * | Within range. |")

	// Knowledge-sourced ranges get a footnote.
	assert.Contains(t, md, "ranges based on standard medical knowledge")

	assert.Contains(t, md, "## Abnormal Value Analysis")
	assert.Contains(t, md, "## Lifestyle Recommendations")
	assert.NotContains(t, md, "## Clinical Associations")
	assert.Contains(t, md, "> **Disclaimer:**")
}

func TestRenderMarkdownEmpty(t *testing.T) {
	md := RenderMarkdown(&models.StructuredAnalysis{})

	assert.Contains(t, md, "No summary available.")
	assert.Contains(t, md, "No test results found.")
	assert.Contains(t, md, models.DefaultDisclaimer)
}

func TestRenderMarkdownEscapesPipes(t *testing.T) {
	a := &models.StructuredAnalysis{
		Summary: "ok",
		Categories: []models.Category{
			{
				Name: "Serology",
				Findings: []models.Finding{
					{
						TestName:       "HBsAg",
						Value:          models.QualitativeValue("Neg | Non-Reactive"),
						ReferenceRange: "N/A",
						Severity:       models.SeverityNormal,
					},
				},
			},
		},
	}

	md := RenderMarkdown(a)
	assert.Contains(t, md, `Neg \| Non-Reactive`)
}
