// ABOUTME: Extracts incremental text deltas from single event-stream lines
// ABOUTME: Accepts several payload shapes and silently skips anything unrecognized

package gateway

import (
	"strings"

	"github.com/tidwall/gjson"
)

const streamTerminator = "[DONE]"

// ExtractDelta returns the text delta carried by one event-stream line.
// Blank lines, event-type lines, the [DONE] terminator, non-JSON payloads and
// payloads without a known text field all report ok=false.
func ExtractDelta(line string) (string, bool) {
	payload := strings.TrimSpace(line)
	if payload == "" || strings.HasPrefix(payload, "event:") {
		return "", false
	}
	if rest, found := strings.CutPrefix(payload, "data:"); found {
		payload = strings.TrimSpace(rest)
	}
	if payload == "" || payload == streamTerminator {
		return "", false
	}

	if !gjson.Valid(payload) {
		return "", false
	}
	root := gjson.Parse(payload)
	if !root.IsObject() {
		return "", false
	}

	for _, key := range []string{"delta", "text", "output_text"} {
		if v := root.Get(key); v.Type == gjson.String && v.Str != "" {
			return v.Str, true
		}
	}

	if content := root.Get("item.content"); content.IsArray() {
		var b strings.Builder
		for _, part := range content.Array() {
			if t := part.Get("text"); t.Type == gjson.String {
				b.WriteString(t.Str)
			}
		}
		if b.Len() > 0 {
			return b.String(), true
		}
	}

	if v := root.Get("delta.text"); v.Type == gjson.String && v.Str != "" {
		return v.Str, true
	}

	return "", false
}
