package fleetauth

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ParseDomain extracts a bare lowercase hostname from whatever the user
// supplied: a full URL, a host/path string, or a plain domain.
func ParseDomain(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if strings.Contains(value, "://") {
		parsed, err := url.Parse(value)
		if err != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(parsed.Hostname()))
	}
	if idx := strings.Index(value, "/"); idx >= 0 {
		value = value[:idx]
	}
	return strings.ToLower(strings.TrimSpace(value))
}

// RegistrableDomain reduces a hostname to its registrable (eTLD+1) form,
// which is what the partner registration endpoint expects to match against
// the app's allowed origins.
func RegistrableDomain(domain string) (string, error) {
	root, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return "", fmt.Errorf("failed to derive registrable domain from %q: %v", domain, err)
	}
	return root, nil
}
