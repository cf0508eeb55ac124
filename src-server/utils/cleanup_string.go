package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// strips spaces and the trailing period, uppercase first letter
func CleanupString(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return s
	}
	first := []rune(s)[0:1]
	return strings.ToUpper(string(first)) + s[len(string(first)):]
}

// "not_going" -> "Not Going"
func Label(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}
