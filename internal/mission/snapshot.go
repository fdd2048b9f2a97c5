// ABOUTME: Derived metrics and deep-copied snapshots of orchestrator state
// ABOUTME: Metrics count today's requests and errors and average recorded latency

package mission

import (
	"slices"
	"time"

	"github.com/2389/mission-control/internal/gateway"
)

// Metrics computes derived counters at the current clock time.
func (o *Orchestrator) Metrics() Metrics {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.metricsLocked()
}

func (o *Orchestrator) metricsLocked() Metrics {
	now := o.now()
	var m Metrics

	for _, s := range o.sessions {
		for _, msg := range s.Messages {
			if msg.Role == RoleUser && sameDay(msg.Timestamp, now) {
				m.RequestsToday++
			}
		}
	}
	for _, ev := range o.events {
		if ev.Level == LevelError && sameDay(ev.Timestamp, now) {
			m.ErrorsToday++
		}
	}

	if n := len(o.latencySamples); n > 0 {
		total := 0
		for _, v := range o.latencySamples {
			total += v
		}
		avg := total / n
		m.AverageLatencyMs = &avg
	}
	if o.lastLatencyMs != nil {
		last := *o.lastLatencyMs
		m.LastLatencyMs = &last
	}

	m.EffectiveActiveSessions = len(o.gatewaySessions)
	if o.gatewayStatus != nil && o.gatewayStatus.ActiveSessions != nil {
		m.EffectiveActiveSessions = *o.gatewayStatus.ActiveSessions
	}

	switch {
	case o.gatewayStatus != nil && o.gatewayStatus.Model != nil:
		m.EffectiveModel = *o.gatewayStatus.Model
	case o.lastModelUsed != "":
		m.EffectiveModel = o.lastModelUsed
	default:
		m.EffectiveModel = o.profile.Model
	}
	return m
}

// sameDay reports whether a and b fall on the same calendar day in b's location.
func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Snapshot returns a deep copy of all visible state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		Profile:           o.profile,
		HasToken:          o.token != "",
		Sessions:          o.cloneSessionsLocked(),
		SelectedSessionID: o.selectedID,
		Events:            slices.Clone(o.events),
		Journal:           slices.Clone(o.journal),
		CronJobs:          slices.Clone(o.cronJobs),
		Task:              o.tracker.Current(),
		TaskHistory:       o.tracker.History(),
		Connection:        o.connection,
		ConnectionDetail:  o.connectionDetail,
		GatewaySessions:   cloneSummaries(o.gatewaySessions),
		SyncError:         o.syncError,
		LatencySamples:    slices.Clone(o.latencySamples),
		Metrics:           o.metricsLocked(),
	}
	if o.gatewayStatus != nil {
		s := cloneStatus(*o.gatewayStatus)
		snap.GatewayStatus = &s
	}
	if o.lastSyncAt != nil {
		t := *o.lastSyncAt
		snap.LastSyncAt = &t
	}
	return snap
}

func cloneStatus(s gateway.StatusSnapshot) gateway.StatusSnapshot {
	return gateway.StatusSnapshot{
		UptimeSec:      clonePtr(s.UptimeSec),
		ActiveSessions: clonePtr(s.ActiveSessions),
		Model:          clonePtr(s.Model),
	}
}

func cloneSummaries(in []gateway.SessionSummary) []gateway.SessionSummary {
	out := make([]gateway.SessionSummary, len(in))
	for i, s := range in {
		out[i] = gateway.SessionSummary{
			ID:           s.ID,
			Title:        s.Title,
			UpdatedAt:    clonePtr(s.UpdatedAt),
			MessageCount: clonePtr(s.MessageCount),
		}
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
