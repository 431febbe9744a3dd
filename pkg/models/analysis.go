package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	SeverityNormal     = "normal"
	SeverityBorderline = "borderline"
	SeverityCritical   = "critical"
)

const (
	// RefSourceDocument marks a reference range read off the uploaded report.
	RefSourceDocument = "document"
	// RefSourceKnowledge marks a range the model supplied from background knowledge.
	RefSourceKnowledge = "standard_knowledge"
)

// DefaultDisclaimer is appended to every analysis whose model output omitted one.
const DefaultDisclaimer = "This report provides educational insights and clinical associations only. " +
	"It is not a diagnosis or treatment recommendation. Please consult a qualified physician."

// StructuredAnalysis is the parsed interpretation of a lab report, produced by
// the analysis stage and owned by the job afterwards.
type StructuredAnalysis struct {
	PatientInfo          PatientInfo `json:"patient_info"`
	Summary              string      `json:"summary"`
	Categories           []Category  `json:"categories"`
	AbnormalAnalysis     string      `json:"abnormal_analysis,omitempty"`
	ClinicalAssociations string      `json:"clinical_associations,omitempty"`
	LifestyleTips        string      `json:"lifestyle_tips,omitempty"`
	Disclaimer           string      `json:"disclaimer"`
}

// PatientInfo carries optional patient context extracted from the document or
// supplied on submission. All fields may be absent.
type PatientInfo struct {
	Age        *int    `json:"age,omitempty"`
	Gender     *string `json:"gender,omitempty"`
	ReportDate *string `json:"report_date,omitempty"`
}

// Category groups findings under one panel heading, e.g. "Lipid Profile".
type Category struct {
	Name     string    `json:"name"`
	Findings []Finding `json:"tests"`
}

// Finding is one test result within a category.
type Finding struct {
	TestName       string       `json:"test_name"`
	Value          FindingValue `json:"value"`
	Unit           *string      `json:"unit,omitempty"`
	ReferenceRange string       `json:"reference_range"`
	RefSource      string       `json:"reference_source"`
	Severity       string       `json:"severity"`
	Interpretation string       `json:"interpretation"`
}

// FindingValue is a tagged union: a test result is either numeric (chartable)
// or a qualitative label such as "Positive". Chart generation and severity
// mapping dispatch on IsNumeric explicitly.
type FindingValue struct {
	IsNumeric bool
	Numeric   float64
	Label     string
}

// NumericValue returns a FindingValue holding a number.
func NumericValue(v float64) FindingValue {
	return FindingValue{IsNumeric: true, Numeric: v}
}

// QualitativeValue returns a FindingValue holding a label.
func QualitativeValue(label string) FindingValue {
	return FindingValue{Label: label}
}

func (v FindingValue) String() string {
	if v.IsNumeric {
		return strconv.FormatFloat(v.Numeric, 'f', -1, 64)
	}
	return v.Label
}

// MarshalJSON emits a JSON number for numeric values and a string otherwise.
func (v FindingValue) MarshalJSON() ([]byte, error) {
	if v.IsNumeric {
		return json.Marshal(v.Numeric)
	}
	return json.Marshal(v.Label)
}

// UnmarshalJSON accepts JSON numbers, numeric strings (models often quote
// numbers), and free-text labels.
func (v *FindingValue) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*v = NumericValue(num)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("finding value must be a number or string: %w", err)
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		*v = NumericValue(f)
		return nil
	}
	*v = QualitativeValue(s)
	return nil
}

// Normalize backfills required invariants after parsing model output:
// every finding has a severity, the disclaimer is never empty, and
// reference-source tags fall back to document.
func (a *StructuredAnalysis) Normalize() {
	if strings.TrimSpace(a.Disclaimer) == "" {
		a.Disclaimer = DefaultDisclaimer
	}
	for ci := range a.Categories {
		for fi := range a.Categories[ci].Findings {
			f := &a.Categories[ci].Findings[fi]
			switch f.Severity {
			case SeverityNormal, SeverityBorderline, SeverityCritical:
			default:
				f.Severity = SeverityNormal
			}
			if f.RefSource != RefSourceKnowledge {
				f.RefSource = RefSourceDocument
			}
		}
	}
}

// AbnormalFindings returns borderline and critical findings with the names of
// the categories they belong to, critical first.
func (a *StructuredAnalysis) AbnormalFindings() []AbnormalFinding {
	var critical, borderline []AbnormalFinding
	for _, c := range a.Categories {
		for _, f := range c.Findings {
			af := AbnormalFinding{Category: c.Name, Finding: f}
			switch f.Severity {
			case SeverityCritical:
				critical = append(critical, af)
			case SeverityBorderline:
				borderline = append(borderline, af)
			}
		}
	}
	return append(critical, borderline...)
}

// AbnormalFinding pairs a finding with its category name.
type AbnormalFinding struct {
	Category string
	Finding  Finding
}
