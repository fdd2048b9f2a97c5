// Package store provides persistent storage for mission-control using SQLite.
//
// # Architecture
//
// The store exposes two small interfaces:
//
//   - Store: whole-collection save and load keyed by a logical name
//   - SecretsStore: key/value secrets such as the gateway token
//
// SQLiteStore implements both in a single struct. MockStore is an in-memory
// implementation for tests that also counts saves and can inject failures.
//
// # Collections
//
// Each collection is one JSON document replaced wholesale on every save; the
// last write wins and there is no schema versioning. The orchestrator uses
// these keys:
//
//	missioncontrol.profile         connection profile
//	missioncontrol.sessions        local sessions with their messages
//	missioncontrol.events          event log, newest first
//	missioncontrol.journal         journal entries
//	missioncontrol.cronjobs        scheduled gateway jobs
//	missioncontrol.latencySamples  send latencies in milliseconds
//
// SaveJSON and LoadJSON wrap the byte-level interface:
//
//	var sessions []mission.Session
//	found, err := store.LoadJSON(ctx, s, store.KeySessions, &sessions)
//
// # SQLite Configuration
//
// The database runs in WAL mode with a busy timeout. The path ":memory:"
// opens a private in-memory database limited to one connection.
package store
