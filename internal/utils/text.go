package utils

import (
	"strings"
	"unicode/utf8"
)

// CleanUTF8 removes or replaces invalid UTF8 characters from a string
// Returns the cleaned string and a boolean indicating if cleaning was needed
func CleanUTF8(input string) (string, bool) {
	needsCleaning := strings.Contains(input, "\x00") || !utf8.ValidString(input)

	if !needsCleaning {
		return input, false
	}

	cleaned := strings.ToValidUTF8(input, "")
	cleaned = strings.ReplaceAll(cleaned, "\x00", "")

	return cleaned, true
}

// CleanText strips invalid UTF8 and surrounding whitespace from operator input.
func CleanText(input string) string {
	cleaned, _ := CleanUTF8(input)
	return strings.TrimSpace(cleaned)
}

// CleanTextPtr applies CleanText and maps blank results to nil.
func CleanTextPtr(input *string) *string {
	if input == nil {
		return nil
	}
	cleaned := CleanText(*input)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
