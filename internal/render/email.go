// Package render builds alert payloads for each delivery channel from a batch
// of new notices.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"strings"

	"hsr-monitor/internal/notice"
)

// Email is a rendered alert email.
type Email struct {
	Subject string
	HTML    string
	Text    string
}

type emailItem struct {
	Date     string
	Title    string
	Acquirer string
	Target   string
	Link     string
}

type emailData struct {
	Count int
	Items []emailItem
}

const fallbackLayout = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;">
<h2>HSR early termination alert</h2>
<p>{{.Count}} new early termination notice(s) were published.</p>
<ul>
{{range .Items}}<li><strong>{{.Date}}</strong>: {{if .Link}}<a href="{{.Link}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}<br>
Acquirer: {{.Acquirer}}<br>Target: {{.Target}}</li>
{{end}}</ul>
</body></html>`

var fallbackTemplate = template.Must(template.New("fallback").Parse(fallbackLayout))

// EmailRenderer renders the email body from an external html/template file,
// using a built-in layout when the file is missing or broken.
type EmailRenderer struct {
	tmpl *template.Template
}

// NewEmailRenderer loads the template at path. Load failures are logged and
// leave the renderer on the built-in layout.
func NewEmailRenderer(path string) *EmailRenderer {
	r := &EmailRenderer{}
	if path == "" {
		return r
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Email template unavailable, using built-in layout", "path", path, "error", err)
		return r
	}
	tmpl, err := template.New("email").Parse(string(data))
	if err != nil {
		slog.Warn("Email template failed to parse, using built-in layout", "path", path, "error", err)
		return r
	}
	r.tmpl = tmpl
	return r
}

// Subject returns the alert subject line for count new notices.
func Subject(count int) string {
	if count == 1 {
		return "HSR Monitor: 1 new early termination notice"
	}
	return fmt.Sprintf("HSR Monitor: %d new early termination notices", count)
}

// Render builds the email for items. It never fails.
func (r *EmailRenderer) Render(items []notice.Notice) Email {
	data := emailData{Count: len(items), Items: make([]emailItem, 0, len(items))}
	for _, n := range items {
		data.Items = append(data.Items, emailItem{
			Date:     notice.OrNA(n.Date),
			Title:    notice.OrNA(n.Title),
			Acquirer: notice.OrNA(n.Acquirer),
			Target:   notice.OrNA(n.Target),
			Link:     n.Link,
		})
	}

	return Email{
		Subject: Subject(len(items)),
		HTML:    r.renderHTML(data),
		Text:    renderText(data),
	}
}

func (r *EmailRenderer) renderHTML(data emailData) string {
	if r.tmpl != nil {
		var buf bytes.Buffer
		err := r.tmpl.Execute(&buf, data)
		if err == nil {
			return buf.String()
		}
		slog.Warn("Email template failed to execute, using built-in layout", "error", err)
	}

	var buf bytes.Buffer
	if err := fallbackTemplate.Execute(&buf, data); err != nil {
		return "<pre>" + template.HTMLEscapeString(renderText(data)) + "</pre>"
	}
	return buf.String()
}

func renderText(data emailData) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d new HSR early termination notice(s)\n\n", data.Count)
	for _, it := range data.Items {
		fmt.Fprintf(&sb, "- %s: %s\n  Acquirer: %s\n  Target: %s\n", it.Date, it.Title, it.Acquirer, it.Target)
		if it.Link != "" {
			fmt.Fprintf(&sb, "  %s\n", it.Link)
		}
	}
	return sb.String()
}
