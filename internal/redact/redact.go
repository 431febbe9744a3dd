// Package redact strips personally identifiable information from extracted
// report text before it reaches any model provider. Redaction is regex based
// and intentionally aggressive: a false positive costs a little context, a
// false negative leaks patient data.
package redact

import (
	"log/slog"
	"regexp"
	"strings"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

var rules = []rule{
	// Patient name after a label, e.g. "Patient Name: John Doe". Case folding
	// applies to the label only; name words stay Title-case and separators stay
	// on one line so the rule cannot swallow the clinical line that follows.
	{
		regexp.MustCompile(`((?i:patient\s*name|name))[ \t]*[:][ \t]*[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){1,3}`),
		"${1}: [REDACTED]",
	},
	// Title followed by a name, e.g. "Mr. John Doe".
	{
		regexp.MustCompile(`\b(?i:Mr\.?|Mrs\.?|Ms\.?|Miss|Dr\.?)[ \t]+[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){1,2}\b`),
		"[REDACTED]",
	},
	// Medical record numbers and hospital identifiers.
	{
		regexp.MustCompile(`(?i)(patient\s*id|mrn|medical\s*record\s*(?:number|no\.?)|uhid|hospital\s*id)\s*[:]\s*[\w-]+`),
		"${1}: [ID_REDACTED]",
	},
	{
		regexp.MustCompile(`(?i)\b(id|mrn)\s*[:]\s*[A-Z0-9-]{4,20}\b`),
		"${1}: [ID_REDACTED]",
	},
	// National identity numbers in NNNNN-NNNNNNN-N format. Must run before the
	// phone rules, which would otherwise consume the digits.
	{
		regexp.MustCompile(`\b\d{5}-\d{7}-\d{1}\b`),
		"[CNIC_REDACTED]",
	},
	// Phone numbers, international and local mobile formats.
	{
		regexp.MustCompile(`\+?\d{1,3}[-.\s]?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{3,4}`),
		"[PHONE_REDACTED]",
	},
	{
		regexp.MustCompile(`\b0[3][0-9]{2}[-.\s]?[0-9]{7}\b`),
		"[PHONE_REDACTED]",
	},
	// Street addresses.
	{
		regexp.MustCompile(`(?i)(house\s*(?:no\.?|#)?|street|road|lane|block|sector|phase)\s*[:.]?\s*[\w\s,.-]{5,50}`),
		"[ADDRESS_REDACTED]",
	},
	// Date of birth.
	{
		regexp.MustCompile(`(?i)(date\s*of\s*birth|dob|d\.o\.b\.?|birth\s*date)\s*[:]\s*[\d/.-]+`),
		"${1}: [DOB_REDACTED]",
	},
	{
		regexp.MustCompile(`(?i)(?:born|dob)\s*[:.]?\s*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}[/-]\d{1,2}[/-]\d{1,2})`),
		"born: [DOB_REDACTED]",
	},
	// Referring doctor. Same single-line, Title-case-name scoping as the
	// patient-name rule.
	{
		regexp.MustCompile(`((?i:referred\s*by|doctor|physician|consultant))[ \t]*[:.]?[ \t]*[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){1,3}`),
		"${1}: [DOCTOR_REDACTED]",
	},
	{
		regexp.MustCompile(`\b(?i:Dr\.?)[ \t]+[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){0,2}\b`),
		"[DOCTOR_REDACTED]",
	},
	// Hospital / laboratory names.
	{
		regexp.MustCompile(`((?i:hospital|laboratory|lab|clinic|medical\s*center|diagnostic\s*center|healthcare))[ \t]*[:.]?[ \t]*[A-Z][A-Za-z &]+(?:Hospital|Lab|Clinic|Center|Healthcare|Diagnostics)?`),
		"${1}: [LAB_REDACTED]",
	},
	// Email addresses.
	{
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		"[EMAIL_REDACTED]",
	},
}

// Markers lists every redaction marker a rule can emit.
var Markers = []string{
	"[REDACTED]",
	"[ID_REDACTED]",
	"[PHONE_REDACTED]",
	"[ADDRESS_REDACTED]",
	"[DOB_REDACTED]",
	"[DOCTOR_REDACTED]",
	"[LAB_REDACTED]",
	"[EMAIL_REDACTED]",
	"[CNIC_REDACTED]",
}

// Scrub replaces PII in text with redaction markers.
func Scrub(text string) string {
	if text == "" {
		return text
	}

	scrubbed := text
	redactions := 0
	for _, r := range rules {
		matches := r.pattern.FindAllStringIndex(scrubbed, -1)
		if len(matches) == 0 {
			continue
		}
		redactions += len(matches)
		scrubbed = r.pattern.ReplaceAllString(scrubbed, r.replacement)
	}

	if redactions > 0 {
		slog.Info("scrubbed PII from extracted text", "redactions", redactions)
	}
	return scrubbed
}

// Summary counts the redaction markers present in scrubbed text, keyed by
// marker name without brackets, lowercased.
func Summary(scrubbed string) map[string]int {
	out := make(map[string]int)
	for _, marker := range Markers {
		if n := strings.Count(scrubbed, marker); n > 0 {
			key := strings.ToLower(strings.Trim(marker, "[]"))
			out[key] = n
		}
	}
	return out
}
