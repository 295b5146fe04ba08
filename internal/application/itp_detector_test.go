package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	uaSafariMac  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Safari/605.1.15"
	uaSafari12   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_14) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/12.0 Safari/605.1.15"
	uaSafariIOS  = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Mobile/15E148 Safari/604.1"
	uaChromeIOS  = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/119.0.6045.109 Mobile/15E148 Safari/604.1"
	uaFirefoxIOS = "Mozilla/5.0 (iPad; CPU OS 16_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) FxiOS/119.0 Mobile/15E148 Safari/605.1.15"
	uaChromeMac  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"
	uaEdgeWin    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 Edg/119.0.2151.44"
	uaOpera      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 OPR/105.0.0.0"
	uaFirefox    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/119.0"
)

func TestITPDetectorIsAffected(t *testing.T) {
	detector := NewITPDetector()

	tests := []struct {
		name      string
		userAgent string
		want      bool
	}{
		{name: "safari on macos", userAgent: uaSafariMac, want: true},
		{name: "safari on ios", userAgent: uaSafariIOS, want: true},
		{name: "chrome on ios", userAgent: uaChromeIOS, want: true},
		{name: "firefox on ios", userAgent: uaFirefoxIOS, want: true},
		{name: "chrome on macos", userAgent: uaChromeMac, want: false},
		{name: "edge on windows", userAgent: uaEdgeWin, want: false},
		{name: "opera on windows", userAgent: uaOpera, want: false},
		{name: "firefox on windows", userAgent: uaFirefox, want: false},
		{name: "empty agent", userAgent: "", want: false},
		{name: "headless client", userAgent: "curl/8.4.0", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detector.IsAffected(tt.userAgent))
		})
	}
}

func TestITPDetectorCanPartitionCookies(t *testing.T) {
	detector := NewITPDetector()

	assert.True(t, detector.CanPartitionCookies(uaSafari12))
	assert.True(t, detector.CanPartitionCookies("Mozilla/5.0 AppleWebKit/605.1.15 Version/12.0.3 Safari/605.1.15"))
	assert.False(t, detector.CanPartitionCookies(uaSafariMac))
	assert.False(t, detector.CanPartitionCookies(uaChromeMac))
	assert.False(t, detector.CanPartitionCookies(""))
}
