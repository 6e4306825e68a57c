// ABOUTME: Conversation export as a standalone HTML page or labelled plain text
// ABOUTME: Message bodies are Markdown rendered with goldmark

package transcript

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/zeeking/internal/conversation"
)

// Speaker labels
const (
	UserLabel      = "You"
	AssistantLabel = "ZeekingAI"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var page = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
.message { border-radius: 8px; padding: 0.5rem 1rem; margin: 0.75rem 0; }
.user { background: #e8f0fe; margin-left: 4rem; }
.assistant { background: #f4f4f4; margin-right: 4rem; }
.error { background: #fdecea; color: #a12622; }
.speaker { font-size: 0.8rem; font-weight: bold; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Messages}}<div class="{{.Class}}">
<div class="speaker">{{.Speaker}}</div>
{{.Body}}</div>
{{end}}</body>
</html>
`))

type renderedMessage struct {
	Class   string
	Speaker string
	Body    template.HTML
}

// WriteHTML renders msgs as an HTML page titled title.
func WriteHTML(w io.Writer, title string, msgs []conversation.Message) error {
	rendered := make([]renderedMessage, len(msgs))
	for i, m := range msgs {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(m.Text), &buf); err != nil {
			return fmt.Errorf("rendering message %d: %w", i, err)
		}
		rendered[i] = renderedMessage{
			Class:   "message " + class(m),
			Speaker: speaker(m),
			Body:    template.HTML(buf.String()),
		}
	}

	data := struct {
		Title    string
		Messages []renderedMessage
	}{Title: title, Messages: rendered}

	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	return nil
}

// WriteText renders msgs as labelled plain text, one blank line between
// messages. Error replies are marked.
func WriteText(w io.Writer, msgs []conversation.Message) error {
	for i, m := range msgs {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return fmt.Errorf("writing transcript: %w", err)
			}
		}
		label := speaker(m)
		if m.IsError {
			label += " (error)"
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", label, strings.TrimRight(m.Text, "\n")); err != nil {
			return fmt.Errorf("writing transcript: %w", err)
		}
	}
	return nil
}

// Write picks the format from the file name: .html and .htm get HTML,
// everything else plain text.
func Write(w io.Writer, name, title string, msgs []conversation.Message) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return WriteHTML(w, title, msgs)
	default:
		return WriteText(w, msgs)
	}
}

func speaker(m conversation.Message) string {
	if m.Role == conversation.RoleUser {
		return UserLabel
	}
	return AssistantLabel
}

func class(m conversation.Message) string {
	switch {
	case m.IsError:
		return "assistant error"
	case m.Role == conversation.RoleUser:
		return "user"
	default:
		return "assistant"
	}
}
