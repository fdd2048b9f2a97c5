// ABOUTME: Tests for event-stream delta extraction
// ABOUTME: Covers every payload shape and the lines that must be skipped

package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDelta(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   string
		wantOK bool
	}{
		{"data delta", `data: {"delta":"X"}`, "X", true},
		{"data delta no space", `data:{"delta":"Hel"}`, "Hel", true},
		{"bare json", `{"delta":"lo"}`, "lo", true},
		{"text field", `data: {"type":"response.output_text.delta","text":"hi"}`, "hi", true},
		{"output_text field", `data: {"output_text":"out"}`, "out", true},
		{"item content", `data: {"item":{"content":[{"text":"a"},{"type":"img"},{"text":"b"}]}}`, "ab", true},
		{"nested delta text", `data: {"delta":{"text":"nested"}}`, "nested", true},
		{"empty delta falls through", `data: {"delta":"","text":"fallback"}`, "fallback", true},
		{"priority delta over text", `data: {"delta":"d","text":"t"}`, "d", true},
		{"preserves inner whitespace", `data: {"delta":" world"}`, " world", true},
		{"done", `data: [DONE]`, "", false},
		{"bare done", `[DONE]`, "", false},
		{"event line", `event: ping`, "", false},
		{"blank", `   `, "", false},
		{"empty data", `data:`, "", false},
		{"non json", `data: hello there`, "", false},
		{"json array", `data: ["x"]`, "", false},
		{"unknown shape", `data: {"type":"response.completed"}`, "", false},
		{"empty item content", `data: {"item":{"content":[{"text":""}]}}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractDelta(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
