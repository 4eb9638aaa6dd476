package delivery

import (
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	"github.com/inteldesk/inteldesk/internal/domain"
)

// advisoryTemplate is the default Liquid template for an advisory
// notification email. Affected products and references render only when
// present.
const advisoryTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#f4f5f7;font-family:Arial,Helvetica,sans-serif;">
  <div style="max-width:640px;margin:0 auto;padding:24px;">
    <div style="background:#1a1f36;color:#ffffff;padding:16px 24px;border-radius:6px 6px 0 0;">
      <h1 style="margin:0;font-size:20px;">Security Advisory</h1>
    </div>
    <div style="background:#ffffff;padding:24px;border-radius:0 0 6px 6px;">
      <h2 style="margin-top:0;">{{ title | escape }}</h2>
      <p>
        <span style="display:inline-block;padding:4px 12px;border-radius:4px;color:#ffffff;background-color:{{ severity | severity_color }};font-weight:bold;">{{ severity }}</span>
        <span style="color:#6b7280;margin-left:12px;">Published {{ published_date | date: "%B %d, %Y" }}</span>
      </p>
      {% if custom_message != "" %}<div style="background:#eef2ff;border-left:4px solid #4f46e5;padding:12px 16px;margin:16px 0;">{{ custom_message | escape }}</div>{% endif %}
      <p style="white-space:pre-line;">{{ description | escape }}</p>
      {% if affected_products.size > 0 %}
      <h3>Affected Products</h3>
      <ul>{% for product in affected_products %}<li>{{ product | escape }}</li>{% endfor %}</ul>
      {% endif %}
      {% if cve_ids.size > 0 %}
      <p><strong>CVEs:</strong> {{ cve_ids | join: ", " }}</p>
      {% endif %}
      {% if references.size > 0 %}
      <h3>References</h3>
      <ul>{% for ref in references %}<li><a href="{{ ref }}">{{ ref }}</a></li>{% endfor %}</ul>
      {% endif %}
    </div>
    <p style="color:#9ca3af;font-size:12px;text-align:center;margin-top:16px;">
      You are receiving this because your organization subscribes to threat intelligence advisories.
    </p>
  </div>
</body>
</html>`

// Renderer turns an advisory plus per-email fields into the final HTML body.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // template string -> *liquid.Template
}

// NewRenderer creates a renderer with the advisory-specific filters
// registered.
func NewRenderer() *Renderer {
	engine := liquid.NewEngine()

	engine.RegisterFilter("severity_color", func(s string) string {
		switch domain.Severity(s) {
		case domain.SeverityCritical:
			return "#dc2626"
		case domain.SeverityHigh:
			return "#ea580c"
		case domain.SeverityMedium:
			return "#d97706"
		case domain.SeverityLow:
			return "#16a34a"
		}
		return "#6b7280"
	})
	engine.RegisterFilter("escape", html.EscapeString)

	return &Renderer{engine: engine}
}

// Render produces the email body for one scheduled send.
func (r *Renderer) Render(adv *domain.Advisory, email *domain.ScheduledEmail) (string, error) {
	return r.render(advisoryTemplate, bindings(adv, email))
}

func (r *Renderer) render(tpl string, ctx map[string]interface{}) (string, error) {
	if cached, ok := r.cache.Load(tpl); ok {
		return cached.(*liquid.Template).RenderString(ctx)
	}

	parsed, err := r.engine.ParseString(tpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	r.cache.Store(tpl, parsed)

	out, err := parsed.RenderString(ctx)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

func bindings(adv *domain.Advisory, email *domain.ScheduledEmail) map[string]interface{} {
	return map[string]interface{}{
		"title":             adv.Title,
		"severity":          string(adv.Severity),
		"category":          adv.Category,
		"description":       adv.Description,
		"summary":           adv.Summary,
		"affected_products": adv.AffectedProducts,
		"references":        adv.References,
		"cve_ids":           adv.CVEIDs,
		"published_date":    adv.PublishedDate,
		"author":            adv.Author,
		"custom_message":    strings.TrimSpace(email.CustomMessage),
	}
}
