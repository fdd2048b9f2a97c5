// Package progress tracks the lifecycle of one logical client operation.
//
// A task moves idle → running → completed or failed. Begin starts a new task
// and silently discards one still running; the discarded task is not recorded
// in history. Finished tasks are kept most-recent-first, up to HistoryLimit.
//
// Callers that may be superseded should use the *Run returned by Begin, so a
// late update from an old operation cannot touch the task that replaced it:
//
//	run := tracker.Begin("Health check", "Starting", []string{"Validate", "Query"})
//	run.Advance(0, "Validated", 0.25)
//	run.Complete("Gateway healthy")
package progress
