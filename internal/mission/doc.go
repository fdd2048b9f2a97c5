// Package mission holds the orchestrator that owns all mission-control state.
//
// # Overview
//
// The Orchestrator keeps the connection profile, local chat sessions, the
// event log, journal entries, cron jobs, latency samples and the latest
// gateway projections behind a single mutex. Network calls happen with the
// lock released; results are applied in one critical section so related
// fields never tear.
//
// # Flows
//
//   - SendMessage streams a reply into a new assistant message, applying
//     deltas in arrival order and persisting at most every fourth delta.
//   - RunHealthCheck updates the connection label and records one event.
//   - RefreshGatewayData fetches status and remote sessions concurrently and
//     replaces both projections only when both succeed.
//
// Every state change is published to the conversation.EventBroadcaster on
// conversation.TopicMission. Streaming deltas go to the per-session topic.
//
// # Persistence
//
// Each mutation saves its whole collection to the store. Save failures are
// logged and do not roll back in-memory state.
package mission
