// Package server enforces the configured origin allow-list on WebSocket
// upgrades. Browsers attach the Origin header to cross-site handshakes, so
// normalizing and matching it here is what keeps arbitrary pages from
// driving the broadcast channel.
package server

import (
	"log"
	"net/http"
	"net/url"
	"strings"
)

// normalizeOrigins canonicalizes the configured origin list, dropping
// entries that do not parse. A lone "*" switches the allow-list to
// accept any well-formed origin.
func normalizeOrigins(origins []string) ([]string, bool) {
	if len(origins) == 0 {
		return nil, false
	}

	normalized := make([]string, 0, len(origins))
	allowAll := false

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		switch {
		case trimmed == "":
			continue
		case trimmed == "*":
			allowAll = true
		default:
			canonical, ok := normalizeOrigin(trimmed)
			if !ok {
				log.Printf("Ignoring invalid origin in configuration: %q", origin)
				continue
			}
			normalized = append(normalized, canonical)
		}
	}

	return normalized, allowAll
}

// normalizeOrigin reduces an origin to lowercase scheme://host form so that
// configuration entries and request headers compare consistently.
func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// originAllowed reports whether the request's Origin header normalizes to a
// configured origin. Requests without a parseable Origin header never pass,
// wildcard or not.
func originAllowed(r *http.Request) bool {
	origin, ok := normalizeOrigin(r.Header.Get("Origin"))
	if !ok {
		return false
	}

	configMu.RLock()
	defer configMu.RUnlock()

	if allowAllOrigins {
		return true
	}
	_, exists := allowedOrigins[origin]
	return exists
}

// checkOrigin is the upgrader's CheckOrigin hook: refused handshakes are
// logged with the offending header so blocked deployments are diagnosable.
func checkOrigin(r *http.Request) bool {
	if originAllowed(r) {
		return true
	}

	log.Printf("Blocked WebSocket connection from disallowed origin: %q", r.Header.Get("Origin"))
	return false
}
