package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrub(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		contains    []string
		notContains []string
	}{
		{
			name:        "patient name label",
			text:        "Patient Name: John Doe\nHemoglobin 13.5 g/dL",
			contains:    []string{"[REDACTED]", "Hemoglobin 13.5 g/dL"},
			notContains: []string{"John Doe"},
		},
		{
			name:        "titled name",
			text:        "Report for Mr. Ahmed Khan, sample collected today",
			contains:    []string{"[REDACTED]"},
			notContains: []string{"Ahmed Khan"},
		},
		{
			name:        "medical record number",
			text:        "MRN: A-48213 Glucose 92 mg/dL",
			contains:    []string{"[ID_REDACTED]", "Glucose 92 mg/dL"},
			notContains: []string{"A-48213"},
		},
		{
			name:        "phone number",
			text:        "Contact +92-300-1234567 for queries",
			contains:    []string{"[PHONE_REDACTED]"},
			notContains: []string{"1234567"},
		},
		{
			name:        "date of birth",
			text:        "DOB: 12/04/1988",
			contains:    []string{"[DOB_REDACTED]"},
			notContains: []string{"12/04/1988"},
		},
		{
			name:        "referring doctor",
			text:        "Referred by: Sara Malik",
			contains:    []string{"[DOCTOR_REDACTED]"},
			notContains: []string{"Sara Malik"},
		},
		{
			name:        "email",
			text:        "results sent to patient@example.com",
			contains:    []string{"[EMAIL_REDACTED]"},
			notContains: []string{"patient@example.com"},
		},
		{
			name:        "national id",
			text:        "CNIC 42101-1234567-1 on file",
			contains:    []string{"[CNIC_REDACTED]"},
			notContains: []string{"42101-1234567-1"},
		},
		{
			name:        "doctor line does not swallow next line",
			text:        "Consultant: Imran Qureshi\nPlatelets 250",
			contains:    []string{"[DOCTOR_REDACTED]", "Platelets 250"},
			notContains: []string{"Imran Qureshi"},
		},
		{
			name:     "clinical values untouched",
			text:     "Cholesterol 210 mg/dL (Reference: < 200)",
			contains: []string{"Cholesterol 210 mg/dL (Reference: < 200)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scrub(tt.text)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, gone := range tt.notContains {
				assert.NotContains(t, got, gone)
			}
		})
	}
}

func TestScrubEmpty(t *testing.T) {
	assert.Equal(t, "", Scrub(""))
}

func TestSummary(t *testing.T) {
	scrubbed := Scrub("Patient Name: John Doe, email patient@example.com, MRN: XK-99231")

	summary := Summary(scrubbed)
	assert.Equal(t, 1, summary["redacted"])
	assert.Equal(t, 1, summary["email_redacted"])
	assert.Equal(t, 1, summary["id_redacted"])
}
