package ocr

import "regexp"

const (
	minTextLength = 50
	minAlnumRatio = 0.3
	maxCharRun    = 4
)

// 5+ consecutive special characters is a strong junk signal.
var specialRunPattern = regexp.MustCompile(`[^\w\s.,;:!?()-]{5,}`)

// IsGarbageText reports whether extracted text looks like the output of OCR on
// a blurred or unreadable scan: too short, too few alphanumeric characters, or
// dominated by repeated junk.
func IsGarbageText(text string) bool {
	trimmed := 0
	alnum := 0
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			continue
		}
		if isAlnum(r) {
			alnum++
		}
		trimmed++
	}

	if trimmed < minTextLength {
		return true
	}
	if float64(alnum)/float64(trimmed) < minAlnumRatio {
		return true
	}

	if specialRunPattern.MatchString(text) {
		return true
	}
	return hasRepeatedRun(text)
}

// hasRepeatedRun detects runs of 5+ identical characters. Digits are exempt so
// values like "10000" survive.
func hasRepeatedRun(text string) bool {
	var prev rune
	run := 1
	for _, r := range text {
		if r == prev && r != ' ' && !(r >= '0' && r <= '9') {
			run++
			if run > maxCharRun {
				return true
			}
		} else {
			run = 1
		}
		prev = r
	}
	return false
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
