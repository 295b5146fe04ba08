package domain

import "strings"

// SafeReturnPath neutralizes candidate return addresses that could leave
// the app's origin. Only app-relative paths survive; absolute URLs,
// scheme-relative ("//evil.com") and backslash variants fall back.
func SafeReturnPath(candidate, fallback string) string {
	if candidate == "" {
		return fallback
	}
	if !strings.HasPrefix(candidate, "/") {
		return fallback
	}
	if strings.HasPrefix(candidate, "//") || strings.HasPrefix(candidate, "/\\") {
		return fallback
	}
	return candidate
}
