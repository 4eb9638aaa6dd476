package domain

import (
	"net/url"
	"strings"
)

// ValidEmailAddress performs basic structural validation of an email address.
func ValidEmailAddress(email string) bool {
	email = strings.TrimSpace(email)
	if len(email) < 3 || len(email) > 254 {
		return false
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}

	local, dom := parts[0], parts[1]
	if len(local) == 0 || len(local) > 64 {
		return false
	}
	if len(dom) == 0 || len(dom) > 253 {
		return false
	}
	if !strings.Contains(dom, ".") {
		return false
	}

	_, err := url.Parse("mailto:" + email)
	return err == nil
}
