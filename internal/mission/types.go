// ABOUTME: Domain types owned by the mission orchestrator
// ABOUTME: Local sessions, messages, events, journal entries, cron jobs and snapshots

package mission

import (
	"slices"
	"time"

	"github.com/2389/mission-control/internal/config"
	"github.com/2389/mission-control/internal/gateway"
	"github.com/2389/mission-control/internal/progress"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a local session.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a locally persisted conversation bound to a gateway session key.
type Session struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SessionKey string    `json:"sessionKey"`
	Messages   []Message `json:"messages"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (s Session) clone() Session {
	s.Messages = slices.Clone(s.Messages)
	return s
}

// Level is the severity of an event.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is one entry in the append-only event log.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}

// JournalEntry is a free-form operator note.
type JournalEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CronJob is a locally tracked scheduled gateway job.
type CronJob struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Enabled  bool   `json:"enabled"`
	LastRun  string `json:"lastRun"`
}

// ConnectionState is the label shown for gateway reachability.
type ConnectionState string

const (
	ConnectionUnknown       ConnectionState = "Unknown"
	ConnectionNotConfigured ConnectionState = "Not configured"
	ConnectionConnected     ConnectionState = "Connected"
	ConnectionUnhealthy     ConnectionState = "Unhealthy"
	ConnectionDisconnected  ConnectionState = "Disconnected"
)

// Metrics are derived counters over local and gateway state.
type Metrics struct {
	RequestsToday           int    `json:"requestsToday"`
	ErrorsToday             int    `json:"errorsToday"`
	AverageLatencyMs        *int   `json:"averageLatencyMs,omitempty"`
	LastLatencyMs           *int   `json:"lastLatencyMs,omitempty"`
	EffectiveActiveSessions int    `json:"effectiveActiveSessions"`
	EffectiveModel          string `json:"effectiveModel"`
}

// Snapshot is a deep copy of all visible orchestrator state.
type Snapshot struct {
	Profile           config.Profile           `json:"profile"`
	HasToken          bool                     `json:"hasToken"`
	Sessions          []Session                `json:"sessions"`
	SelectedSessionID string                   `json:"selectedSessionId,omitempty"`
	Events            []Event                  `json:"events"`
	Journal           []JournalEntry           `json:"journal"`
	CronJobs          []CronJob                `json:"cronJobs"`
	Task              progress.Task            `json:"task"`
	TaskHistory       []progress.Task          `json:"taskHistory"`
	Connection        ConnectionState          `json:"connection"`
	ConnectionDetail  string                   `json:"connectionDetail,omitempty"`
	GatewayStatus     *gateway.StatusSnapshot  `json:"gatewayStatus,omitempty"`
	GatewaySessions   []gateway.SessionSummary `json:"gatewaySessions"`
	SyncError         string                   `json:"syncError,omitempty"`
	LastSyncAt        *time.Time               `json:"lastSyncAt,omitempty"`
	LatencySamples    []int                    `json:"latencySamples"`
	Metrics           Metrics                  `json:"metrics"`
}
