package chart

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	boundedPattern     = regexp.MustCompile(`^([\d.]+)\s*[-–]\s*([\d.]+)`)
	lessThanPattern    = regexp.MustCompile(`^<\s*([\d.]+)`)
	greaterThanPattern = regexp.MustCompile(`^>\s*([\d.]+)`)
)

// ParseReferenceRange turns a printed reference range into numeric bounds.
// Supported forms:
//
//	"13.0 - 17.0"  -> (13.0, 17.0)
//	"< 200"        -> (0, 200)
//	"> 40"         -> (40, 120)   upper bound estimated at 3x
//
// ok is false for "N/A", empty strings, and anything unparseable.
func ParseReferenceRange(ref string) (low, high float64, ok bool) {
	ref = strings.TrimRight(strings.TrimSpace(ref), " *")
	if ref == "" || ref == "N/A" {
		return 0, 0, false
	}

	if m := boundedPattern.FindStringSubmatch(ref); m != nil {
		low, err1 := strconv.ParseFloat(m[1], 64)
		high, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return low, high, true
	}

	if m := lessThanPattern.FindStringSubmatch(ref); m != nil {
		high, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, 0, false
		}
		return 0, high, true
	}

	if m := greaterThanPattern.FindStringSubmatch(ref); m != nil {
		low, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, 0, false
		}
		return low, low * 3, true
	}

	return 0, 0, false
}
