// ABOUTME: Tolerant decoders for health, status and session-list response bodies
// ABOUTME: Strict JSON decode first, then alias lookup across known field spellings

package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/tidwall/gjson"
)

// StatusSnapshot is the gateway's self-reported runtime status.
// Nil fields were absent or malformed in the response.
type StatusSnapshot struct {
	UptimeSec      *int    `json:"uptimeSec,omitempty"`
	ActiveSessions *int    `json:"activeSessions,omitempty"`
	Model          *string `json:"model,omitempty"`
}

// SessionSummary is one row of the gateway's session list.
type SessionSummary struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	MessageCount *int       `json:"messageCount,omitempty"`
}

var errTrailingData = errors.New("trailing data after JSON value")

var (
	uptimeAliases       = []string{"uptimeSec", "uptime_sec", "uptime"}
	activeAliases       = []string{"activeSessions", "active_sessions", "sessions"}
	modelAliases        = []string{"model", "defaultModel", "default_model"}
	sessionIDAliases    = []string{"sessionKey", "session_key", "id"}
	sessionTitleAliases = []string{"title", "name"}
	messageCountAliases = []string{"messageCount", "message_count"}
	updatedAtAliases    = []string{"updatedAt", "updated_at", "lastSeen"}
	sessionListWrappers = []string{"sessions", "items", "data"}
)

// DecodeHealth reports the gateway's health from a 2xx body.
// A missing or undecodable "ok" field counts as healthy.
func DecodeHealth(body []byte) bool {
	var strict struct {
		OK *bool `json:"ok"`
	}
	if decodeStrict(body, &strict) == nil {
		return strict.OK == nil || *strict.OK
	}

	ok := gjson.GetBytes(body, "ok")
	if ok.Type == gjson.True || ok.Type == gjson.False {
		return ok.Bool()
	}
	return true
}

// DecodeStatus decodes a status body. Unknown or malformed fields stay nil.
func DecodeStatus(body []byte) StatusSnapshot {
	var strict StatusSnapshot
	if decodeStrict(body, &strict) == nil {
		if strict.Model != nil && *strict.Model == "" {
			strict.Model = nil
		}
		return strict
	}

	if !gjson.ValidBytes(body) {
		return StatusSnapshot{}
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return StatusSnapshot{}
	}

	return StatusSnapshot{
		UptimeSec:      intAlias(root, uptimeAliases),
		ActiveSessions: intAlias(root, activeAliases),
		Model:          stringAlias(root, modelAliases),
	}
}

// DecodeSessions decodes a session-list body. The list may be a bare array or
// wrapped under "sessions", "items" or "data". Rows without any identifier are
// dropped. An undecodable body yields an empty list.
func DecodeSessions(body []byte) []SessionSummary {
	var strict []struct {
		ID           string  `json:"id"`
		Title        string  `json:"title"`
		UpdatedAt    *string `json:"updatedAt"`
		MessageCount *int    `json:"messageCount"`
	}
	if decodeStrict(body, &strict) == nil {
		out := make([]SessionSummary, 0, len(strict))
		for _, row := range strict {
			if row.ID == "" {
				continue
			}
			s := SessionSummary{ID: row.ID, Title: row.Title, MessageCount: row.MessageCount}
			if s.Title == "" {
				s.Title = s.ID
			}
			if row.UpdatedAt != nil {
				s.UpdatedAt = parseTimestamp(*row.UpdatedAt)
			}
			out = append(out, s)
		}
		return out
	}

	out := []SessionSummary{}
	if !gjson.ValidBytes(body) {
		return out
	}

	rows := locateSessionRows(gjson.ParseBytes(body))
	for _, row := range rows {
		if s, ok := decodeSessionRow(row); ok {
			out = append(out, s)
		}
	}
	return out
}

func locateSessionRows(root gjson.Result) []gjson.Result {
	if root.IsArray() {
		return root.Array()
	}
	if !root.IsObject() {
		return nil
	}
	for _, key := range sessionListWrappers {
		if v := root.Get(key); v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

func decodeSessionRow(row gjson.Result) (SessionSummary, bool) {
	if !row.IsObject() {
		return SessionSummary{}, false
	}

	id := stringAlias(row, sessionIDAliases)
	if id == nil {
		return SessionSummary{}, false
	}

	s := SessionSummary{ID: *id, Title: *id}
	if title := stringAlias(row, sessionTitleAliases); title != nil {
		s.Title = *title
	}

	s.MessageCount = intAlias(row, messageCountAliases)
	if s.MessageCount == nil {
		if msgs := row.Get("messages"); msgs.IsArray() {
			n := len(msgs.Array())
			s.MessageCount = &n
		}
	}

	for _, key := range updatedAtAliases {
		if v := row.Get(key); v.Type == gjson.String {
			s.UpdatedAt = parseTimestamp(v.Str)
			break
		}
	}

	return s, true
}

// decodeStrict decodes body into v, rejecting unknown fields and trailing data.
func decodeStrict(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}

// intAlias returns the first alias holding an integral number.
func intAlias(obj gjson.Result, aliases []string) *int {
	for _, key := range aliases {
		v := obj.Get(key)
		if v.Type != gjson.Number {
			continue
		}
		if v.Num != math.Trunc(v.Num) || math.Abs(v.Num) > math.MaxInt32 {
			continue
		}
		n := int(v.Num)
		return &n
	}
	return nil
}

// stringAlias returns the first alias holding a non-empty string.
func stringAlias(obj gjson.Result, aliases []string) *string {
	for _, key := range aliases {
		v := obj.Get(key)
		if v.Type == gjson.String && v.Str != "" {
			s := v.Str
			return &s
		}
	}
	return nil
}

func parseTimestamp(s string) *time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
