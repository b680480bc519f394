package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOriginAllowed(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{
			name:    "listed origin",
			allowed: []string{"http://chat.example.com"},
			origin:  "http://chat.example.com",
			want:    true,
		},
		{
			name:    "case-insensitive match",
			allowed: []string{"http://chat.example.com"},
			origin:  "HTTP://Chat.Example.COM",
			want:    true,
		},
		{
			name:    "unlisted origin",
			allowed: []string{"http://chat.example.com"},
			origin:  "http://evil.example.com",
			want:    false,
		},
		{
			name:    "missing origin header",
			allowed: []string{"http://chat.example.com"},
			origin:  "",
			want:    false,
		},
		{
			name:    "wildcard allows any valid origin",
			allowed: []string{"*"},
			origin:  "https://anywhere.example.com",
			want:    true,
		},
		{
			name:    "wildcard still requires a parseable origin",
			allowed: []string{"*"},
			origin:  "://",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetConfig(&Config{AllowedOrigins: tt.allowed})

			r := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}

			assert.Equal(t, tt.want, originAllowed(r))
		})
	}
}
