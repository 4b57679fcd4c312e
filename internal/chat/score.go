package chat

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// FieldType names the kind of value a flow step expects.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldEmail   FieldType = "email"
	FieldPhone   FieldType = "phone"
	FieldAddress FieldType = "address"
	FieldNumber  FieldType = "number"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s+\-()]{10,}$`)
)

// ScoreField returns a 0-100 heuristic confidence that text is a plausible
// value of the expected type. Advisory only; callers apply thresholds to
// decide accept, re-prompt or escalate. Pure function.
func ScoreField(text string, ft FieldType) int {
	text = strings.TrimSpace(text)

	switch ft {
	case FieldEmail:
		if emailPattern.MatchString(text) {
			return 100
		}
		return 30
	case FieldPhone:
		if phonePattern.MatchString(text) {
			return 100
		}
		return 40
	case FieldAddress:
		if len(text) > 10 && hasDigit(text) && hasLetter(text) {
			return 90
		}
		return 50
	case FieldNumber:
		if _, err := strconv.ParseFloat(text, 64); err == nil {
			return 100
		}
		return 20
	default:
		switch n := len(text); {
		case n < 3:
			return 20
		case n < 10:
			return 50
		case n > 20:
			return 90
		default:
			return 70
		}
	}
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
