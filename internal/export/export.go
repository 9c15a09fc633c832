// Package export renders a stored transcript as GitHub-flavored markdown
// or as a standalone HTML page.
package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"agentworld/internal/appinfo"
	"agentworld/internal/store"
)

//go:embed transcript_template.html
var transcriptTemplateFS embed.FS

type transcriptTemplateData struct {
	AppDisplay string
	Title      string
	Body       template.HTML
	Footer     string
}

var (
	transcriptTemplateOnce sync.Once
	transcriptTemplate     *template.Template
	transcriptTemplateErr  error
)

func getTranscriptTemplate() (*template.Template, error) {
	transcriptTemplateOnce.Do(func() {
		b, err := transcriptTemplateFS.ReadFile("transcript_template.html")
		if err != nil {
			transcriptTemplateErr = err
			return
		}
		transcriptTemplate, transcriptTemplateErr = template.New("transcript_template.html").Parse(string(b))
	})
	return transcriptTemplate, transcriptTemplateErr
}

var transcriptMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Linkify),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
)

var transcriptMarkdownMu sync.Mutex

// Markdown renders the transcript as GFM: one section per message with the
// speaker as heading and the content verbatim below it.
func Markdown(title string, msgs []store.Message) string {
	var b strings.Builder
	title = strings.TrimSpace(title)
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	for _, msg := range msgs {
		speaker := strings.TrimSpace(msg.Agent)
		if speaker == "" {
			speaker = strings.TrimSpace(msg.Role)
		}
		if speaker == "" {
			speaker = "unknown"
		}
		fmt.Fprintf(&b, "## %s\n\n", speaker)
		if !msg.CreatedAt.IsZero() {
			fmt.Fprintf(&b, "_%s_\n\n", msg.CreatedAt.UTC().Format(time.RFC3339))
		}
		content := strings.TrimRight(msg.Content, "\n")
		if strings.TrimSpace(content) == "" {
			content = "(empty)"
		}
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// HTML converts the markdown transcript to a standalone HTML page. When
// markdown conversion fails the body falls back to an escaped <pre> block.
func HTML(title string, msgs []store.Message) (string, error) {
	md := Markdown("", msgs)
	if strings.TrimSpace(md) == "" {
		md = "(empty)"
	}

	var content bytes.Buffer
	transcriptMarkdownMu.Lock()
	err := transcriptMarkdown.Convert([]byte(md), &content)
	transcriptMarkdownMu.Unlock()
	if err != nil {
		escaped := template.HTMLEscapeString(md)
		content.Reset()
		content.WriteString("<pre>")
		content.WriteString(escaped)
		content.WriteString("</pre>")
	}

	data := transcriptTemplateData{
		AppDisplay: appinfo.Display(),
		Title:      strings.TrimSpace(title),
		Body:       template.HTML(content.String()),
		Footer:     fmt.Sprintf("%s • %s", appinfo.Name, time.Now().UTC().Format(time.RFC3339)),
	}

	tmpl, err := getTranscriptTemplate()
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return "", err
	}
	return out.String(), nil
}
