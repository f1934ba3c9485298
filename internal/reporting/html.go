// internal/reporting/html.go
package reporting

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>UI Quality Report: {{.Target}}</title>
<style>
body{font-family:system-ui,-apple-system,sans-serif;max-width:72rem;margin:0 auto;padding:2rem;color:#1f2328;line-height:1.5}
table{border-collapse:collapse;margin:1rem 0;width:100%}
th,td{border:1px solid #d0d7de;padding:.4rem .6rem;text-align:left;vertical-align:top}
th{background:#f6f8fa}
code{background:#f6f8fa;padding:.1rem .3rem;border-radius:4px}
.health{font-size:2rem;font-weight:700}
</style>
</head>
<body>
<main>
<p class="health">Health {{printf "%.1f" .Health}}</p>
{{.Body}}
</main>
</body>
</html>
`))

// HTMLRenderer renders the Markdown report to a standalone page. Report
// content comes from audited pages, so the converted body is sanitized.
type HTMLRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}
}

func (*HTMLRenderer) Format() string { return "html" }
func (*HTMLRenderer) Path() string   { return "report.html" }

func (r *HTMLRenderer) Render(m *MasterReport) ([]byte, error) {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(renderMarkdown(m)), &body); err != nil {
		return nil, fmt.Errorf("failed to convert markdown: %w", err)
	}
	clean := r.policy.SanitizeBytes(body.Bytes())

	var out bytes.Buffer
	err := pageTemplate.Execute(&out, struct {
		Target string
		Health float64
		Body   template.HTML
	}{m.Target, m.HealthScore, template.HTML(clean)})
	if err != nil {
		return nil, fmt.Errorf("failed to render html page: %w", err)
	}
	return out.Bytes(), nil
}
