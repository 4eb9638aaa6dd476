package delivery

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inteldesk/inteldesk/internal/domain"
)

func testAdvisory() *domain.Advisory {
	return &domain.Advisory{
		ID:            uuid.New(),
		Title:         "OpenSSL <Handshake> RCE",
		Severity:      domain.SeverityCritical,
		Description:   "Remote code execution.",
		PublishedDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRender_BasicFields(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render(testAdvisory(), &domain.ScheduledEmail{})
	require.NoError(t, err)

	assert.Contains(t, out, "OpenSSL &lt;Handshake&gt; RCE")
	assert.Contains(t, out, "Critical")
	assert.Contains(t, out, "#dc2626")
	assert.Contains(t, out, "February 01, 2026")
	assert.Contains(t, out, "Remote code execution.")
}

func TestRender_OptionalSectionsOmittedWhenEmpty(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render(testAdvisory(), &domain.ScheduledEmail{})
	require.NoError(t, err)

	assert.NotContains(t, out, "Affected Products")
	assert.NotContains(t, out, "References")
	assert.NotContains(t, out, "CVEs")
}

func TestRender_OptionalSectionsPresent(t *testing.T) {
	adv := testAdvisory()
	adv.AffectedProducts = []string{"OpenSSL 3.2", "OpenSSL 3.3"}
	adv.References = []string{"https://vendor.example.com/adv"}
	adv.CVEIDs = []string{"CVE-2026-12345", "CVE-2026-12346"}

	r := NewRenderer()
	out, err := r.Render(adv, &domain.ScheduledEmail{CustomMessage: "Patch by Friday."})
	require.NoError(t, err)

	assert.Contains(t, out, "Affected Products")
	assert.Contains(t, out, "OpenSSL 3.2")
	assert.Contains(t, out, `href="https://vendor.example.com/adv"`)
	assert.Contains(t, out, "CVE-2026-12345, CVE-2026-12346")
	assert.Contains(t, out, "Patch by Friday.")
}

func TestRender_SeverityColors(t *testing.T) {
	r := NewRenderer()
	colors := map[domain.Severity]string{
		domain.SeverityCritical: "#dc2626",
		domain.SeverityHigh:     "#ea580c",
		domain.SeverityMedium:   "#d97706",
		domain.SeverityLow:      "#16a34a",
	}
	for severity, color := range colors {
		adv := testAdvisory()
		adv.Severity = severity
		out, err := r.Render(adv, &domain.ScheduledEmail{})
		require.NoError(t, err)
		assert.Contains(t, out, color, string(severity))
	}
}
