// ABOUTME: Streaming chat send flow for the selected local session
// ABOUTME: Applies deltas in arrival order and records latency, task progress and events

package mission

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/2389/mission-control/internal/config"
	"github.com/2389/mission-control/internal/conversation"
	"github.com/2389/mission-control/internal/gateway"
	"github.com/2389/mission-control/internal/store"
)

// EmptyResponseText replaces an assistant reply that streamed no text.
const EmptyResponseText = "(No response text)"

var sendSteps = []string{
	"Validate local configuration",
	"Send request to gateway",
	"Stream model response",
	"Persist response to session",
}

// SendMessage sends text to the gateway on the selected session and streams
// the reply into a new assistant message. Blank text is ignored.
//
// Stream failures are recorded in the session, the task and the event log;
// the returned error is informational.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) error {
	payload := strings.TrimSpace(text)
	if payload == "" {
		return nil
	}

	o.mu.Lock()
	run := o.tracker.Begin("Process chat request", "Validating request", sendSteps)
	o.publishTask()

	if err := o.profile.Validate(true, o.token); err != nil {
		run.Fail(firstIssue(err))
		o.publishTask()
		o.addEventLocked(LevelError, "Settings invalid")
		o.mu.Unlock()
		return err
	}

	idx := o.sessionIndexLocked(o.selectedID)
	if idx < 0 {
		run.Fail("No active session selected")
		o.publishTask()
		o.addEventLocked(LevelError, "No active session selected")
		o.mu.Unlock()
		return ErrNoActiveSession
	}
	run.Advance(0, "Configuration verified", 0.2)

	session := &o.sessions[idx]
	sessionID := session.ID
	now := o.now()
	session.Messages = append(session.Messages, Message{
		ID:        uuid.New().String(),
		Role:      RoleUser,
		Text:      payload,
		Timestamp: now,
	})
	session.UpdatedAt = now
	o.persistSessionsLocked()

	run.Advance(1, "Sending request to OpenClaw gateway", 0.4)
	started := o.now()
	assistantID := uuid.New().String()
	session.Messages = append(session.Messages, Message{
		ID:        assistantID,
		Role:      RoleAssistant,
		Timestamp: started,
	})
	session.UpdatedAt = started
	o.persistSessionsLocked()
	o.publishLocked(conversation.Change{Kind: conversation.ChangeSessions, SessionID: sessionID})
	o.publishTask()

	req := gateway.StreamRequest{
		BaseURL:    o.profile.NormalizedBaseURL(),
		Token:      o.token,
		SessionKey: session.SessionKey,
		Model:      o.profile.Model,
		Input:      payload,
	}
	model := o.profile.Model
	o.mu.Unlock()

	var (
		streamed  strings.Builder
		chunks    int
		streamErr error
	)
	persist := rate.Sometimes{Every: 4}
	for delta, err := range o.client.StreamResponse(ctx, req) {
		if err != nil {
			streamErr = err
			break
		}
		chunks++
		streamed.WriteString(delta)

		o.mu.Lock()
		if o.setMessageTextLocked(sessionID, assistantID, streamed.String()) {
			persist.Do(o.persistSessionsLocked)
		}
		run.Advance(2, "Streaming response…", min(0.85, 0.45+float64(chunks)*0.015))
		o.broadcaster.Publish(conversation.SessionTopic(sessionID), conversation.Change{
			Kind:      conversation.ChangeDelta,
			SessionID: sessionID,
			MessageID: assistantID,
			Text:      delta,
			At:        o.now(),
		}, "")
		o.mu.Unlock()
		o.publishTask()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if streamErr != nil {
		msg := streamErr.Error()
		if idx := o.sessionIndexLocked(sessionID); idx >= 0 {
			ts := o.now()
			o.sessions[idx].Messages = append(o.sessions[idx].Messages, Message{
				ID:        uuid.New().String(),
				Role:      RoleAssistant,
				Text:      "Error: " + msg,
				Timestamp: ts,
			})
			o.sessions[idx].UpdatedAt = ts
			o.persistSessionsLocked()
			o.publishLocked(conversation.Change{Kind: conversation.ChangeSessions, SessionID: sessionID})
		}
		run.Fail("Request failed: " + msg)
		o.publishTask()
		o.addEventLocked(LevelError, "Send failed: "+msg)
		return fmt.Errorf("streaming response: %w", streamErr)
	}

	final := strings.TrimSpace(streamed.String())
	if final == "" {
		final = EmptyResponseText
	}
	o.setMessageTextLocked(sessionID, assistantID, final)
	o.persistSessionsLocked()

	latency := int(o.now().Sub(started).Milliseconds())
	o.recordLatencyLocked(latency)
	o.lastModelUsed = model

	run.Advance(3, "Session updated", 0.95)
	run.Complete("Request completed successfully")
	o.publishTask()
	o.publishLocked(conversation.Change{Kind: conversation.ChangeSessions, SessionID: sessionID})
	o.addEventLocked(LevelInfo, "Response received (streaming)")

	o.goLocked(func(ctx context.Context) {
		if err := o.RefreshGatewayData(ctx); err != nil {
			o.logger.Debug("post-send refresh failed", "error", err)
		}
	})
	return nil
}

// setMessageTextLocked replaces the text of one message and bumps the session
// timestamp. It reports false when the session or message no longer exists.
func (o *Orchestrator) setMessageTextLocked(sessionID, messageID, text string) bool {
	idx := o.sessionIndexLocked(sessionID)
	if idx < 0 {
		return false
	}
	session := &o.sessions[idx]
	m := slices.IndexFunc(session.Messages, func(msg Message) bool { return msg.ID == messageID })
	if m < 0 {
		return false
	}
	session.Messages[m].Text = text
	session.UpdatedAt = o.now()
	return true
}

func (o *Orchestrator) recordLatencyLocked(ms int) {
	o.latencySamples = append(o.latencySamples, ms)
	if n := len(o.latencySamples); n > LatencySampleLimit {
		o.latencySamples = slices.Delete(o.latencySamples, 0, n-LatencySampleLimit)
	}
	o.lastLatencyMs = &ms
	o.persistLocked(store.KeyLatencySamples, o.latencySamples)
}

// firstIssue returns the message shown for a failed validation.
func firstIssue(err error) string {
	var verr *config.ValidationError
	if errors.As(err, &verr) {
		return verr.First()
	}
	return err.Error()
}
