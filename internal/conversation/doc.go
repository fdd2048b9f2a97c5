// Package conversation fans out orchestrator state changes to listeners.
//
// # Overview
//
// The mission orchestrator owns all shared state. Whenever that state changes
// it publishes a Change so that a terminal UI or the CLI can redraw without
// polling. Publishing never blocks: a subscriber that falls behind loses
// changes rather than stalling a stream.
//
// # Topics
//
//   - TopicMission: events, task progress, connection label, gateway sync,
//     profile, journal and cron job changes
//   - SessionTopic(id): streaming deltas for one local session
//
// # Usage
//
//	ch, _ := broadcaster.Subscribe(ctx, conversation.SessionTopic(sessionID))
//	for change := range ch {
//	    if change.Kind == conversation.ChangeDelta {
//	        fmt.Print(change.Text)
//	    }
//	}
//
// The channel closes when ctx is cancelled or the broadcaster is closed.
package conversation
