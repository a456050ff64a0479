// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/codeai-tui/internal/markdown"
	"github.com/jeranaias/codeai-tui/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page with
// embedded CSS and no script. Replies pass the same sanitizer as the web
// shell; user text is escaped.
type HTMLExporter struct {
	options  *Options
	renderer *markdown.HTML
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts, renderer: markdown.NewHTML()}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *Conversation) ([]byte, error) {
	if err := conv.validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(conv.Title))
	sb.WriteString("<meta name=\"generator\" content=\"codeai\">\n")
	fmt.Fprintf(&sb, "<meta name=\"date\" content=\"%s\">\n", conv.Exported.Format(time.RFC3339))
	sb.WriteString(exportCSS)
	sb.WriteString("</head>\n<body>\n<div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString("<header>\n")
		fmt.Fprintf(&sb, "<h1>%s</h1>\n", html.EscapeString(conv.Title))
		if conv.Model != "" {
			fmt.Fprintf(&sb, "<p class=\"meta\">Model: %s &middot; %d messages</p>\n", html.EscapeString(conv.Model), len(conv.Messages))
		}
		sb.WriteString("</header>\n")
	}

	sb.WriteString("<main>\n")
	for _, msg := range conv.Messages {
		body, err := e.renderBody(msg)
		if err != nil {
			return nil, fmt.Errorf("render message %s: %w", msg.ID, err)
		}
		fmt.Fprintf(&sb, "<div class=\"message %s\">\n<div class=\"message-header\"><span class=\"role\">%s</span>", msg.Role, msg.Role.DisplayName())
		if e.options.IncludeTimestamps {
			fmt.Fprintf(&sb, " <span class=\"time\">%s</span>", formatShortTimestamp(msg.CreatedAt))
		}
		sb.WriteString("</div>\n<div class=\"message-content\">")
		sb.WriteString(body)
		sb.WriteString("</div>\n</div>\n")
	}
	sb.WriteString("</main>\n")

	if e.options.IncludeMetadata {
		fmt.Fprintf(&sb, "<footer>Exported on %s</footer>\n", html.EscapeString(formatTimestamp(conv.Exported)))
	}
	sb.WriteString("</div>\n</body>\n</html>\n")
	return []byte(sb.String()), nil
}

func (e *HTMLExporter) renderBody(msg model.Message) (string, error) {
	if msg.Role == model.RoleUser {
		return "<p>" + markdown.EscapeUserText(msg.Text) + "</p>", nil
	}
	return e.renderer.Render(msg.Text)
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html; charset=utf-8"
}

const exportCSS = `<style>
:root {
  --bg: #ffffff; --fg: #1f2937; --muted: #6b7280; --border: #e5e7eb;
  --user: #eff6ff; --model: #f5f3ff; --accent: #4f46e5; --code: #f3f4f6;
}
@media (prefers-color-scheme: dark) {
  :root {
    --bg: #1e1e2e; --fg: #cdd6f4; --muted: #6c7086; --border: #313244;
    --user: #1e3a5f; --model: #181825; --accent: #a5b4fc; --code: #11111b;
  }
}
* { box-sizing: border-box; }
body { margin: 0; background: var(--bg); color: var(--fg);
  font: 16px/1.6 -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; }
.container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
header h1 { color: var(--accent); margin: 0 0 .25rem; }
.meta, footer, .time { color: var(--muted); font-size: .85rem; }
.message { border: 1px solid var(--border); border-radius: 8px; padding: .75rem 1rem; margin: 1rem 0; }
.message.user { background: var(--user); }
.message.model { background: var(--model); }
.role { font-weight: 600; }
pre, code { font-family: "SF Mono", Menlo, Consolas, monospace; background: var(--code); }
pre { padding: .75rem; border-radius: 6px; overflow-x: auto; }
details { border-left: 3px solid var(--accent); padding-left: .75rem; margin: .5rem 0; }
summary { cursor: pointer; font-weight: 600; }
footer { margin-top: 2rem; text-align: center; }
</style>
`
