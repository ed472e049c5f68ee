// Package transcript renders an ordered message history snapshot into durable
// text and HTML documents. Rendering is a pure function of the snapshot: the
// same history always yields byte-identical output.
package transcript

import (
	"fmt"
	"html"
	"strings"
	"time"
)

type Attachment struct {
	Name string
	URL  string
}

// Message is one captured record of a channel's history, oldest first.
type Message struct {
	ID          string
	AuthorID    string
	AuthorName  string
	Bot         bool
	Timestamp   time.Time
	Content     string
	Attachments []Attachment
}

// Document holds both renderings of one history snapshot.
type Document struct {
	Text string
	HTML string
}

const timeLayout = "2006-01-02 15:04:05"

// Render produces the text and HTML forms for a channel's history.
func Render(channelName, channelID string, msgs []Message) Document {
	return Document{
		Text: renderText(msgs),
		HTML: renderHTML(channelName, channelID, msgs),
	}
}

// renderText emits one line per message; embedded newlines in content are
// escaped to a literal \n so the line format survives, and each attachment
// gets an indented line of its own.
func renderText(msgs []Message) string {
	if len(msgs) == 0 {
		return "No messages.\n"
	}
	var sb strings.Builder
	for _, m := range msgs {
		content := strings.ReplaceAll(m.Content, "\r\n", "\\n")
		content = strings.ReplaceAll(content, "\n", "\\n")
		fmt.Fprintf(&sb, "[%s] %s (%s): %s\n",
			m.Timestamp.UTC().Format(timeLayout), m.AuthorName, m.AuthorID, content)
		for _, a := range m.Attachments {
			fmt.Fprintf(&sb, "    [attachment] %s -> %s\n", a.Name, a.URL)
		}
	}
	return sb.String()
}

// renderHTML emits a minimal self-contained document. All user-supplied text
// is escaped before embedding; transcripts are opened by arbitrary staff, so
// this is a correctness requirement, not cosmetics.
func renderHTML(channelName, channelID string, msgs []Message) string {
	var sb strings.Builder
	sb.WriteString("<!doctype html><html><head><meta charset='utf-8'>\n")
	sb.WriteString("<title>Transcript</title>\n")
	sb.WriteString("<style>body{font-family:system-ui,Segoe UI,Arial,sans-serif;background:#0b1220;color:#e8eefb;padding:20px}")
	sb.WriteString(".msg{margin:10px 0;padding:10px;border-radius:10px;background:#111a2e}")
	sb.WriteString(".meta{opacity:.7;font-size:12px;margin-bottom:6px}")
	sb.WriteString(".content{white-space:pre-wrap}")
	sb.WriteString(".att a{color:#9ecbff}</style></head><body>\n")
	fmt.Fprintf(&sb, "<h2>Transcript — #%s</h2>\n", html.EscapeString(channelName))
	fmt.Fprintf(&sb, "<div class='meta'>Channel ID: %s</div>\n", html.EscapeString(channelID))

	if len(msgs) == 0 {
		sb.WriteString("<div class='msg'>No messages.</div>\n")
	}
	for _, m := range msgs {
		sb.WriteString("<div class='msg'>\n")
		fmt.Fprintf(&sb, "<div class='meta'>%s (%s) • %s</div>\n",
			html.EscapeString(m.AuthorName), html.EscapeString(m.AuthorID),
			m.Timestamp.UTC().Format(timeLayout))
		fmt.Fprintf(&sb, "<div class='content'>%s</div>\n", html.EscapeString(m.Content))
		if len(m.Attachments) > 0 {
			sb.WriteString("<div class='att'>Attachments:<ul>\n")
			for _, a := range m.Attachments {
				fmt.Fprintf(&sb, "<li><a href='%s' target='_blank'>%s</a></li>\n",
					html.EscapeString(a.URL), html.EscapeString(a.Name))
			}
			sb.WriteString("</ul></div>\n")
		}
		sb.WriteString("</div>\n")
	}
	sb.WriteString("</body></html>\n")
	return sb.String()
}
