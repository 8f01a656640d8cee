package server

import (
	"net/http/httptest"
	"testing"
)

func TestOriginAllowed(t *testing.T) {
	cases := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin header", "", "panel.local:8080", true},
		{"same origin", "http://panel.local:8080", "panel.local:8080", true},
		{"localhost", "http://localhost:3000", "panel.local:8080", true},
		{"loopback v4", "http://127.0.0.1", "panel.local:8080", true},
		{"loopback v6", "http://[::1]:8080", "panel.local:8080", true},
		{"private range", "http://192.168.1.20", "panel.local:8080", true},
		{"public host", "http://evil.example.com", "panel.local:8080", false},
		{"unparseable", "http://bad\x00origin", "panel.local:8080", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "http://"+tc.host+"/ws", nil)
			r.Host = tc.host
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			if got := originAllowed(r); got != tc.want {
				t.Errorf("originAllowed(origin=%q) = %v, want %v", tc.origin, got, tc.want)
			}
		})
	}
}
