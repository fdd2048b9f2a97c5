// ABOUTME: Renders a local chat session as a Markdown or HTML transcript
// ABOUTME: HTML is produced by converting the Markdown transcript with goldmark

package transcript

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/mission-control/internal/mission"
)

const timeLayout = "2006-01-02 15:04:05 MST"

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown renders s as a Markdown document, one section per message.
func Markdown(s mission.Session) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# %s\n\n", headingText(s.Title))
	fmt.Fprintf(&b, "- Session key: `%s`\n", s.SessionKey)
	fmt.Fprintf(&b, "- Updated: %s\n", s.UpdatedAt.UTC().Format(timeLayout))
	fmt.Fprintf(&b, "- Messages: %d\n", len(s.Messages))

	for _, m := range s.Messages {
		fmt.Fprintf(&b, "\n## %s (%s)\n\n", roleLabel(m.Role), m.Timestamp.UTC().Format(timeLayout))
		text := strings.TrimSpace(m.Text)
		if text == "" {
			text = "_empty_"
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.Bytes()
}

// HTML renders s as a standalone HTML page. Raw HTML inside messages is
// not passed through.
func HTML(s mission.Session) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert(Markdown(s), &body); err != nil {
		return nil, fmt.Errorf("converting transcript: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(headingText(s.Title)))
	b.WriteString("</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.Bytes(), nil
}

func roleLabel(r mission.Role) string {
	switch r {
	case mission.RoleUser:
		return "User"
	case mission.RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// headingText keeps a title on one line so it stays a heading.
func headingText(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return "Untitled session"
	}
	return title
}
