// ABOUTME: Mission orchestrator owning all control-plane state behind one mutex
// ABOUTME: Loads persisted collections, records events and publishes every change

package mission

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/mission-control/internal/config"
	"github.com/2389/mission-control/internal/conversation"
	"github.com/2389/mission-control/internal/credentials"
	"github.com/2389/mission-control/internal/gateway"
	"github.com/2389/mission-control/internal/poller"
	"github.com/2389/mission-control/internal/progress"
	"github.com/2389/mission-control/internal/store"
)

const (
	// EventLimit is the number of events retained; the oldest are dropped.
	EventLimit = 500
	// LatencySampleLimit is the number of request latencies retained.
	LatencySampleLimit = 500

	defaultSessionTitle = "Main"
)

var (
	// ErrNoActiveSession is returned by SendMessage when no session is selected.
	ErrNoActiveSession = errors.New("no active session selected")
	// ErrSessionNotFound is returned for operations on an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrJournalEntryNotFound is returned for operations on an unknown journal id.
	ErrJournalEntryNotFound = errors.New("journal entry not found")
	// ErrCronJobNotFound is returned for operations on an unknown cron job id.
	ErrCronJobNotFound = errors.New("cron job not found")
	// ErrGatewayUnhealthy is returned by RunHealthCheck when the gateway answers but reports unhealthy.
	ErrGatewayUnhealthy = errors.New("gateway reported unhealthy")
)

// GatewayClient is the subset of the gateway client the orchestrator uses.
type GatewayClient interface {
	Health(ctx context.Context, baseURL, token string) (bool, error)
	FetchStatus(ctx context.Context, baseURL, token string) (gateway.StatusSnapshot, error)
	FetchSessions(ctx context.Context, baseURL, token string, limit int) ([]gateway.SessionSummary, error)
	StreamResponse(ctx context.Context, r gateway.StreamRequest) iter.Seq2[string, error]
}

// CredentialStore loads and saves the gateway token.
type CredentialStore interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, value string) error
}

// Options configures an Orchestrator.
type Options struct {
	Store       store.Store
	Credentials CredentialStore
	Client      GatewayClient
	Logger      *slog.Logger
	Broadcaster *conversation.EventBroadcaster
	Poller      *poller.Poller

	// Profile, when set, replaces any persisted profile.
	Profile *config.Profile

	// Clock defaults to time.Now.
	Clock func() time.Time

	// SessionLimit is passed to FetchSessions. Zero means gateway.DefaultSessionLimit.
	SessionLimit int
}

// Orchestrator is the single owner of mission-control state. All fields
// below mu are guarded by it; the lock is never held across network I/O.
type Orchestrator struct {
	store        store.Store
	creds        CredentialStore
	client       GatewayClient
	logger       *slog.Logger
	broadcaster  *conversation.EventBroadcaster
	poller       *poller.Poller
	tracker      *progress.Tracker
	now          func() time.Time
	sessionLimit int

	lifetime context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu               sync.Mutex
	closed           bool
	profile          config.Profile
	token            string
	sessions         []Session
	selectedID       string
	events           []Event
	journal          []JournalEntry
	cronJobs         []CronJob
	latencySamples   []int
	lastLatencyMs    *int
	lastModelUsed    string
	connection       ConnectionState
	connectionDetail string
	gatewayStatus    *gateway.StatusSnapshot
	gatewaySessions  []gateway.SessionSummary
	syncError        string
	lastSyncAt       *time.Time
}

// New loads persisted state and returns a ready orchestrator.
// Decoding failures of individual collections fall back to defaults.
func New(ctx context.Context, opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, errors.New("mission: store is required")
	}
	if opts.Client == nil {
		return nil, errors.New("mission: gateway client is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mission")

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	broadcaster := opts.Broadcaster
	if broadcaster == nil {
		broadcaster = conversation.NewEventBroadcaster(logger)
	}

	p := opts.Poller
	if p == nil {
		p = poller.New(logger)
	}

	limit := opts.SessionLimit
	if limit == 0 {
		limit = gateway.DefaultSessionLimit
	}

	lifetime, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		store:        opts.Store,
		creds:        opts.Credentials,
		client:       opts.Client,
		logger:       logger,
		broadcaster:  broadcaster,
		poller:       p,
		tracker:      progress.NewTracker(clock),
		now:          clock,
		sessionLimit: gateway.ClampSessionLimit(limit),
		lifetime:     lifetime,
		cancel:       cancel,
		connection:   ConnectionUnknown,
	}

	o.load(ctx, opts.Profile)

	o.mu.Lock()
	o.addEventLocked(LevelInfo, "Mission Control initialized")
	o.mu.Unlock()

	return o, nil
}

func (o *Orchestrator) load(ctx context.Context, seed *config.Profile) {
	o.profile = config.DefaultProfile()
	if seed != nil {
		o.profile = *seed
	} else {
		o.loadCollection(ctx, store.KeyProfile, &o.profile)
	}

	if o.creds != nil {
		token, err := o.creds.Load(ctx, credentials.TokenKey)
		if err != nil {
			o.logger.Warn("failed to load gateway token", "error", err)
		}
		o.token = token
	}

	if !o.loadCollection(ctx, store.KeySessions, &o.sessions) || len(o.sessions) == 0 {
		o.sessions = []Session{{
			ID:         uuid.New().String(),
			Title:      defaultSessionTitle,
			SessionKey: config.DefaultSessionKey,
			Messages:   []Message{},
			UpdatedAt:  o.now(),
		}}
	}
	o.selectedID = o.sessions[0].ID

	o.loadCollection(ctx, store.KeyEvents, &o.events)
	o.loadCollection(ctx, store.KeyJournal, &o.journal)
	if !o.loadCollection(ctx, store.KeyCronJobs, &o.cronJobs) {
		o.cronJobs = defaultCronJobs()
	}
	o.loadCollection(ctx, store.KeyLatencySamples, &o.latencySamples)
	if n := len(o.latencySamples); n > LatencySampleLimit {
		o.latencySamples = o.latencySamples[n-LatencySampleLimit:]
	}
	if n := len(o.latencySamples); n > 0 {
		last := o.latencySamples[n-1]
		o.lastLatencyMs = &last
	}
}

// loadCollection reports whether key held a decodable value.
func (o *Orchestrator) loadCollection(ctx context.Context, key string, v any) bool {
	found, err := store.LoadJSON(ctx, o.store, key, v)
	if err != nil {
		o.logger.Warn("failed to load collection, using defaults", "key", key, "error", err)
		return false
	}
	return found
}

func defaultCronJobs() []CronJob {
	return []CronJob{
		{ID: uuid.New().String(), Name: "healthcheck:security-audit", Schedule: "Mon 15:00 UTC", Enabled: true, LastRun: "Pending"},
		{ID: uuid.New().String(), Name: "healthcheck:update-status", Schedule: "Mon 15:10 UTC", Enabled: true, LastRun: "Pending"},
	}
}

// Subscribe registers for change notifications on topic until ctx is done.
func (o *Orchestrator) Subscribe(ctx context.Context, topic string) <-chan conversation.Change {
	ch, _ := o.broadcaster.Subscribe(ctx, topic)
	return ch
}

// StartHealthPolling runs a health check now and then every profile polling
// interval, replacing any running poll loop.
func (o *Orchestrator) StartHealthPolling() {
	o.mu.Lock()
	interval := time.Duration(o.profile.HealthPollingSeconds) * time.Second
	closed := o.closed
	o.mu.Unlock()
	if closed {
		return
	}

	o.poller.Start(o.lifetime, interval, func(ctx context.Context) {
		_ = o.RunHealthCheck(ctx)
	})
}

// StopHealthPolling stops the poll loop after any in-flight check.
func (o *Orchestrator) StopHealthPolling() {
	o.poller.Stop()
}

// Close cancels background work and waits for it to finish.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.poller.Stop()
	o.wg.Wait()
}

// goLocked runs fn in the background under the orchestrator lifetime.
// Nothing is started after Close.
func (o *Orchestrator) goLocked(fn func(ctx context.Context)) {
	if o.closed {
		return
	}
	o.wg.Go(func() { fn(o.lifetime) })
}

// Events returns a copy of the event log, newest first.
func (o *Orchestrator) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.events)
}

// ClearEvents empties the event log.
func (o *Orchestrator) ClearEvents() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.events = nil
	o.persistLocked(store.KeyEvents, []Event{})
	o.publishLocked(conversation.Change{Kind: conversation.ChangeEventsCleared})
}

// Task returns the current task.
func (o *Orchestrator) Task() progress.Task {
	return o.tracker.Current()
}

// TaskHistory returns finished tasks, newest first.
func (o *Orchestrator) TaskHistory() []progress.Task {
	return o.tracker.History()
}

// Connection returns the connection label and its detail.
func (o *Orchestrator) Connection() (ConnectionState, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.connection, o.connectionDetail
}

// Profile returns the active connection profile.
func (o *Orchestrator) Profile() config.Profile {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.profile
}

func (o *Orchestrator) addEventLocked(level Level, message string) {
	ev := Event{
		ID:        uuid.New().String(),
		Timestamp: o.now(),
		Level:     level,
		Message:   message,
	}
	o.events = slices.Insert(o.events, 0, ev)
	if len(o.events) > EventLimit {
		o.events = o.events[:EventLimit]
	}
	o.persistLocked(store.KeyEvents, o.events)

	switch level {
	case LevelError:
		o.logger.Error(message)
	case LevelWarning:
		o.logger.Warn(message)
	default:
		o.logger.Info(message)
	}

	o.publishLocked(conversation.Change{Kind: conversation.ChangeEvent, Text: message, Level: string(level)})
}

func (o *Orchestrator) setConnectionLocked(state ConnectionState, detail string) {
	o.connection = state
	o.connectionDetail = detail
	o.publishLocked(conversation.Change{Kind: conversation.ChangeConnection, Text: string(state)})
}

// persistLocked saves a collection. Failures are logged; in-memory state stays authoritative.
func (o *Orchestrator) persistLocked(key string, v any) {
	if err := store.SaveJSON(context.Background(), o.store, key, v); err != nil {
		o.logger.Error("failed to persist collection", "key", key, "error", err)
	}
}

func (o *Orchestrator) persistSessionsLocked() {
	o.persistLocked(store.KeySessions, o.sessions)
}

func (o *Orchestrator) publishLocked(change conversation.Change) {
	change.At = o.now()
	o.broadcaster.Publish(conversation.TopicMission, change, "")
}

func (o *Orchestrator) publishTask() {
	o.broadcaster.Publish(conversation.TopicMission, conversation.Change{Kind: conversation.ChangeTask, At: o.now()}, "")
}
