package utils

import "testing"

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		origin  string
		allowed bool
	}{
		// localhost
		{"http://localhost", true},
		{"http://localhost:8484", true},
		{"https://localhost:3000", true},

		// private IPs
		{"http://192.168.1.1", true},
		{"http://192.168.1.1:8484", true},
		{"http://10.0.0.1", true},
		{"http://172.16.0.1", true},
		{"http://172.31.255.255:443", true},
		{"http://127.0.0.1:3000", true},

		// link-local
		{"http://169.254.1.1", true},

		// .local hostnames
		{"http://mediabox.local", true},
		{"http://mediabox.local:8484", true},

		// single-label hostnames (LAN)
		{"http://catalog:8484", true},

		// public domains
		{"http://example.com", false},
		{"https://evil.com", false},
		{"http://image.tmdb.org.evil.com", false},

		// public IPs
		{"http://8.8.8.8", false},
		{"http://1.1.1.1", false},

		// empty/invalid
		{"", false},
		{"not-a-url", false},
	}

	for _, tt := range tests {
		got := IsAllowedOrigin(tt.origin)
		if got != tt.allowed {
			t.Errorf("IsAllowedOrigin(%q) = %v, want %v", tt.origin, got, tt.allowed)
		}
	}
}
