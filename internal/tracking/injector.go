package tracking

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PixelURL builds the open-tracking endpoint URL for an identifier.
func PixelURL(baseURL, trackingID string) string {
	return fmt.Sprintf("%s/track/pixel?t=%s", strings.TrimRight(baseURL, "/"), trackingID)
}

// PixelTag renders the invisible 1x1 image element for an identifier.
func PixelTag(baseURL, trackingID string) string {
	return fmt.Sprintf(`<img src="%s" width="1" height="1" style="display:none;width:1px;height:1px;" alt="" />`,
		PixelURL(baseURL, trackingID))
}

// TrackedLinkURL builds a redirect-endpoint URL carrying the identifier and
// the exact original destination. The destination survives the round trip:
// decoding the u parameter yields the original URL byte-for-byte.
func TrackedLinkURL(baseURL, trackingID, originalURL, linkID string) string {
	u := fmt.Sprintf("%s/track/link?t=%s&u=%s",
		strings.TrimRight(baseURL, "/"), trackingID, url.QueryEscape(originalURL))
	if linkID != "" {
		u += "&l=" + url.QueryEscape(linkID)
	}
	return u
}

// InjectTracking returns a copy of the HTML body with every outbound link
// routed through the redirect endpoint and an open-tracking pixel inserted
// before the closing body tag (appended when the body has none). The input
// is never mutated; injection is a pure transformation.
func InjectTracking(html, trackingID, baseURL string) string {
	out := rewriteLinks(html, trackingID, baseURL)

	pixel := PixelTag(baseURL, trackingID)
	if strings.Contains(out, "</body>") {
		return strings.Replace(out, "</body>", pixel+"</body>", 1)
	}
	return out + pixel
}

// rewriteLinks replaces each href pointing at an http(s) URL with a tracked
// redirect URL. Links already routed through our redirect endpoint are left
// alone; other hosts are rewritten even when their path contains "/track/".
// Link ids are 1-based ordinals in document order.
func rewriteLinks(html, trackingID, baseURL string) string {
	var b strings.Builder
	rest := html
	ordinal := 0
	trackedPrefix := strings.TrimRight(baseURL, "/") + "/track/link"

	for {
		idx := strings.Index(rest, `href="http`)
		if idx == -1 {
			b.WriteString(rest)
			break
		}
		start := idx + len(`href="`)
		end := strings.Index(rest[start:], `"`)
		if end == -1 {
			b.WriteString(rest)
			break
		}

		original := rest[start : start+end]
		b.WriteString(rest[:start])
		if strings.HasPrefix(original, trackedPrefix) {
			b.WriteString(original)
		} else {
			ordinal++
			b.WriteString(TrackedLinkURL(baseURL, trackingID, original, strconv.Itoa(ordinal)))
		}
		rest = rest[start+end:]
	}

	return b.String()
}
