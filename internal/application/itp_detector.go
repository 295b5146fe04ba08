package application

import (
	"regexp"
	"strings"
)

var partitionPattern = regexp.MustCompile(`Version/12\.0\.?\d* Safari`)

// ITPDetector flags user agents whose default cookie policy blocks
// third-party cookies inside an iframe: Safari with Intelligent Tracking
// Prevention, and every iOS browser, since they all run the same WebKit.
// For these browsers a cookie-based flow cannot be trusted until a
// top-level page has been allowed to set storage.
type ITPDetector struct{}

// NewITPDetector creates a new ITP detector
func NewITPDetector() *ITPDetector {
	return &ITPDetector{}
}

// IsAffected reports whether the user agent blocks third-party cookies by
// default. Unknown and empty agents are not flagged; they fall through to
// the normal cookie flow.
func (d *ITPDetector) IsAffected(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return false
	}
	for _, ios := range []string{"iphone", "ipad", "ipod", "crios", "fxios", "edgios"} {
		if strings.Contains(ua, ios) {
			return true
		}
	}
	if !strings.Contains(ua, "safari") {
		return false
	}
	// Chrome, Edge and Opera all advertise "Safari" in their UA strings
	for _, impostor := range []string{"chrome", "chromium", "edg", "opr"} {
		if strings.Contains(ua, impostor) {
			return false
		}
	}
	return true
}

// CanPartitionCookies reports whether the agent is Safari 12.0, which
// partitions third-party storage instead of blocking it outright and
// needs the same top-level handshake
func (d *ITPDetector) CanPartitionCookies(userAgent string) bool {
	return partitionPattern.MatchString(userAgent)
}
