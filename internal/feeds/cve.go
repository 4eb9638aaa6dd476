package feeds

import (
	"regexp"
	"strings"
)

var cvePattern = regexp.MustCompile(`CVE-\d{4}-\d{4,7}`)

// extractCVEs pulls distinct CVE identifiers out of free text, in order of
// first appearance.
func extractCVEs(text string) []string {
	matches := cvePattern.FindAllString(strings.ToUpper(text), -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
