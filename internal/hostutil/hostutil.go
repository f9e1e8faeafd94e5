// Package hostutil normalizes gateway host arguments.
package hostutil

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize turns a host argument into a gateway origin. Loopback hosts get
// http://, other bare hosts https://, and full URLs pass through.
func Normalize(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	if IsLocalhost(host) {
		return "http://" + host
	}
	return "https://" + host
}

// IsLocalhost reports whether host (with optional port) is localhost, a
// .localhost subdomain, 127.0.0.1 or [::1].
func IsLocalhost(host string) bool {
	name := host
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		if !strings.HasPrefix(host, "[") || strings.HasPrefix(host, "[::1]:") {
			name = host[:idx]
		}
	}

	switch {
	case name == "localhost", strings.HasSuffix(name, ".localhost"):
		return true
	case name == "127.0.0.1", name == "[::1]":
		return true
	}
	return false
}

// RequireSecureURL rejects plain-http origins outside loopback, where a
// bearer token would cross the network in the clear.
func RequireSecureURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid gateway URL %q: %w", raw, err)
	}
	if u.Scheme != "http" {
		return nil
	}
	if IsLocalhost(u.Host) {
		return nil
	}
	return fmt.Errorf("refusing insecure http:// gateway %s", u.Host)
}
