// ABOUTME: Change notifications published by the mission orchestrator
// ABOUTME: One value per visible state change, keyed by topic

package conversation

import "time"

// TopicMission carries every change except streaming deltas.
const TopicMission = "mission"

// ChangeKind identifies what changed.
type ChangeKind string

const (
	ChangeEvent         ChangeKind = "event"          // an event was appended
	ChangeEventsCleared ChangeKind = "events_cleared" // the event log was emptied
	ChangeTask          ChangeKind = "task"           // current task moved
	ChangeSessions      ChangeKind = "sessions"       // local sessions changed
	ChangeDelta         ChangeKind = "delta"          // text appended to a streaming message
	ChangeConnection    ChangeKind = "connection"     // connection label changed
	ChangeGateway       ChangeKind = "gateway"        // gateway projections replaced or sync failed
	ChangeProfile       ChangeKind = "profile"
	ChangeJournal       ChangeKind = "journal"
	ChangeCronJobs      ChangeKind = "cron_jobs"
)

// Change describes one state change. Fields beyond Kind and At are set
// only when they apply to the kind.
type Change struct {
	Kind      ChangeKind
	SessionID string
	MessageID string
	Text      string // delta text, event message, or connection label
	Level     string // event level
	At        time.Time
}

// SessionTopic is the topic carrying deltas for one local session.
func SessionTopic(sessionID string) string {
	return "session:" + sessionID
}
