package tracking

import (
	"net/url"
	"regexp"
	"strings"
)

var private172 = regexp.MustCompile(`^172\.(1[6-9]|2\d|3[01])\.`)

// IsValidRedirectURL reports whether a decoded click target is safe to
// redirect to: http(s) scheme and a public hostname. Loopback, private-range,
// and link-local hosts are rejected so the redirect endpoint cannot be used
// to probe internal infrastructure.
func IsValidRedirectURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" || host == "localhost" || host == "::1" {
		return false
	}
	if strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(host, "10.") ||
		strings.HasPrefix(host, "192.168.") ||
		strings.HasPrefix(host, "169.254.") ||
		private172.MatchString(host) {
		return false
	}
	return true
}
