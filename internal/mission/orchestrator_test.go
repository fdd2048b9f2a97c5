// ABOUTME: Tests for the mission orchestrator flows
// ABOUTME: Uses a scripted gateway client, the mock store and an httptest gateway

package mission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mission-control/internal/config"
	"github.com/2389/mission-control/internal/conversation"
	"github.com/2389/mission-control/internal/credentials"
	"github.com/2389/mission-control/internal/gateway"
	"github.com/2389/mission-control/internal/progress"
	"github.com/2389/mission-control/internal/store"
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClient is a scripted GatewayClient.
type fakeClient struct {
	mu          sync.Mutex
	healthy     bool
	healthErr   error
	status      gateway.StatusSnapshot
	statusErr   error
	sessions    []gateway.SessionSummary
	sessionsErr error
	deltas      []string
	streamErr   error
	requests    []gateway.StreamRequest
}

func (f *fakeClient) Health(ctx context.Context, baseURL, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy, f.healthErr
}

func (f *fakeClient) FetchStatus(ctx context.Context, baseURL, token string) (gateway.StatusSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.statusErr
}

func (f *fakeClient) FetchSessions(ctx context.Context, baseURL, token string, limit int) ([]gateway.SessionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions, f.sessionsErr
}

func (f *fakeClient) StreamResponse(ctx context.Context, r gateway.StreamRequest) iter.Seq2[string, error] {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	deltas := f.deltas
	streamErr := f.streamErr
	f.mu.Unlock()

	return func(yield func(string, error) bool) {
		for _, d := range deltas {
			if !yield(d, nil) {
				return
			}
		}
		if streamErr != nil {
			yield("", streamErr)
		}
	}
}

func (f *fakeClient) set(fn func(f *fakeClient)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func testProfile() config.Profile {
	p := config.DefaultProfile()
	p.BaseURL = "http://gateway.test:18789/"
	return p
}

func newTestOrchestrator(t *testing.T, client GatewayClient, configure ...func(*Options)) (*Orchestrator, *store.MockStore) {
	t.Helper()

	st := store.NewMockStore()
	require.NoError(t, st.SetSecret(context.Background(), credentials.TokenKey, "test-token"))

	profile := testProfile()
	opts := Options{
		Store:       st,
		Credentials: credentials.New(credentials.Options{Secrets: st, Logger: testLogger()}),
		Client:      client,
		Profile:     &profile,
		Logger:      testLogger(),
		Clock:       func() time.Time { return testNow },
	}
	for _, fn := range configure {
		fn(&opts)
	}

	o, err := New(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o, st
}

func eventMessages(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Message
	}
	return out
}

func TestNew_Defaults(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{}, func(opts *Options) { opts.Profile = nil })

	sessions := o.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "Main", sessions[0].Title)
	assert.Equal(t, "agent:main:main", sessions[0].SessionKey)

	selected, ok := o.SelectedSession()
	require.True(t, ok)
	assert.Equal(t, sessions[0].ID, selected.ID)

	jobs := o.CronJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "healthcheck:security-audit", jobs[0].Name)
	assert.Equal(t, "Mon 15:10 UTC", jobs[1].Schedule)
	assert.True(t, jobs[0].Enabled)

	assert.Equal(t, []string{"Mission Control initialized"}, eventMessages(o.Events()))
	assert.Equal(t, config.DefaultProfile(), o.Profile())

	state, _ := o.Connection()
	assert.Equal(t, ConnectionUnknown, state)
	assert.Equal(t, progress.StateIdle, o.Task().State)
}

func TestNew_RequiresStoreAndClient(t *testing.T) {
	_, err := New(context.Background(), Options{Client: &fakeClient{}})
	assert.Error(t, err)

	_, err = New(context.Background(), Options{Store: store.NewMockStore()})
	assert.Error(t, err)
}

func TestNew_ReloadsPersistedState(t *testing.T) {
	client := &fakeClient{deltas: []string{"pong"}}
	o, st := newTestOrchestrator(t, client)

	added := o.AddSession()
	require.NoError(t, o.SendMessage(context.Background(), "ping"))
	_, ok := o.AddJournalEntry("Rotated token", "")
	require.True(t, ok)
	o.Close()

	reloaded, err := New(context.Background(), Options{
		Store:       st,
		Credentials: credentials.New(credentials.Options{Secrets: st, Logger: testLogger()}),
		Client:      client,
		Logger:      testLogger(),
		Clock:       func() time.Time { return testNow },
	})
	require.NoError(t, err)
	defer reloaded.Close()

	sessions := reloaded.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, added.ID, sessions[0].ID)
	require.Len(t, sessions[0].Messages, 2)
	assert.Equal(t, "pong", sessions[0].Messages[1].Text)
	assert.Len(t, reloaded.JournalEntries(), 1)
	assert.Len(t, reloaded.Snapshot().LatencySamples, 1)
	assert.True(t, reloaded.Snapshot().HasToken)
}

func TestNew_CorruptCollectionFallsBack(t *testing.T) {
	st := store.NewMockStore()
	require.NoError(t, st.SaveCollection(context.Background(), store.KeySessions, []byte("{not json")))

	o, err := New(context.Background(), Options{Store: st, Client: &fakeClient{}, Logger: testLogger()})
	require.NoError(t, err)
	defer o.Close()

	sessions := o.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "Main", sessions[0].Title)
}

func TestSendMessage_BlankIsNoop(t *testing.T) {
	client := &fakeClient{}
	o, st := newTestOrchestrator(t, client)
	before := st.SaveCount(store.KeySessions)

	require.NoError(t, o.SendMessage(context.Background(), "   \n\t"))

	assert.Equal(t, progress.StateIdle, o.Task().State)
	assert.Empty(t, client.requests)
	assert.Equal(t, before, st.SaveCount(store.KeySessions))
	selected, _ := o.SelectedSession()
	assert.Empty(t, selected.Messages)
}

func TestSendMessage_StreamsDeltas(t *testing.T) {
	client := &fakeClient{deltas: []string{"Hel", "lo", " world"}}
	o, _ := newTestOrchestrator(t, client)

	require.NoError(t, o.SendMessage(context.Background(), "  hi there  "))

	selected, ok := o.SelectedSession()
	require.True(t, ok)
	require.Len(t, selected.Messages, 2)
	assert.Equal(t, RoleUser, selected.Messages[0].Role)
	assert.Equal(t, "hi there", selected.Messages[0].Text)
	assert.Equal(t, RoleAssistant, selected.Messages[1].Role)
	assert.Equal(t, "Hello world", selected.Messages[1].Text)

	task := o.Task()
	assert.Equal(t, progress.StateCompleted, task.State)
	assert.Equal(t, 1.0, task.Percent)
	assert.Equal(t, "Request completed successfully", task.Detail)
	for _, step := range task.Steps {
		assert.True(t, step.Done, step.Title)
	}

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "http://gateway.test:18789", req.BaseURL)
	assert.Equal(t, "test-token", req.Token)
	assert.Equal(t, "agent:main:main", req.SessionKey)
	assert.Equal(t, config.DefaultModel, req.Model)
	assert.Equal(t, "hi there", req.Input)

	assert.Contains(t, eventMessages(o.Events()), "Response received (streaming)")
	m := o.Metrics()
	assert.Equal(t, 1, m.RequestsToday)
	require.NotNil(t, m.LastLatencyMs)
	assert.Equal(t, config.DefaultModel, m.EffectiveModel)
}

func TestSendMessage_EmptyReplyUsesPlaceholder(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{deltas: []string{"  ", "\n"}})

	require.NoError(t, o.SendMessage(context.Background(), "hello"))

	selected, _ := o.SelectedSession()
	require.Len(t, selected.Messages, 2)
	assert.Equal(t, EmptyResponseText, selected.Messages[1].Text)
}

func TestSendMessage_StreamFailureKeepsPartialText(t *testing.T) {
	client := &fakeClient{
		deltas:    []string{"Hel"},
		streamErr: errors.New("connection reset"),
	}
	o, _ := newTestOrchestrator(t, client)

	err := o.SendMessage(context.Background(), "hello")
	require.Error(t, err)

	selected, _ := o.SelectedSession()
	require.Len(t, selected.Messages, 3)
	assert.Equal(t, "Hel", selected.Messages[1].Text)
	assert.Equal(t, "Error: connection reset", selected.Messages[2].Text)

	task := o.Task()
	assert.Equal(t, progress.StateFailed, task.State)
	assert.Equal(t, "Request failed: connection reset", task.Detail)

	events := o.Events()
	last := events[0]
	assert.Equal(t, LevelError, last.Level)
	assert.Equal(t, "Send failed: connection reset", last.Message)
	assert.Empty(t, o.Snapshot().LatencySamples)
}

func TestSendMessage_InvalidSettings(t *testing.T) {
	client := &fakeClient{}
	o, _ := newTestOrchestrator(t, client, func(opts *Options) { opts.Credentials = nil })

	err := o.SendMessage(context.Background(), "hello")

	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Gateway token is required.", verr.First())

	task := o.Task()
	assert.Equal(t, progress.StateFailed, task.State)
	assert.Equal(t, "Gateway token is required.", task.Detail)
	assert.Empty(t, client.requests)

	events := o.Events()
	assert.Equal(t, "Settings invalid", events[0].Message)
	selected, _ := o.SelectedSession()
	assert.Empty(t, selected.Messages)
}

func TestSendMessage_NoActiveSession(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{})
	main, _ := o.SelectedSession()
	require.NoError(t, o.DeleteSession(main.ID))

	err := o.SendMessage(context.Background(), "hello")
	require.ErrorIs(t, err, ErrNoActiveSession)

	assert.Equal(t, "No active session selected", o.Task().Detail)
	events := o.Events()
	assert.Equal(t, "No active session selected", events[0].Message)
}

func TestSendMessage_ThrottlesPersistence(t *testing.T) {
	client := &fakeClient{deltas: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}}
	o, st := newTestOrchestrator(t, client)
	before := st.SaveCount(store.KeySessions)

	require.NoError(t, o.SendMessage(context.Background(), "go"))

	// user message, assistant placeholder, deltas 1, 5 and 9, final text
	assert.Equal(t, before+6, st.SaveCount(store.KeySessions))
}

func TestSendMessage_PublishesDeltas(t *testing.T) {
	client := &fakeClient{deltas: []string{"one", "two"}}
	o, _ := newTestOrchestrator(t, client)
	selected, _ := o.SelectedSession()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := o.Subscribe(ctx, conversation.SessionTopic(selected.ID))

	require.NoError(t, o.SendMessage(context.Background(), "count"))

	var got []string
	for range 2 {
		select {
		case c := <-changes:
			assert.Equal(t, conversation.ChangeDelta, c.Kind)
			got = append(got, c.Text)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delta")
		}
	}
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestSendMessage_DeltaOrderOnSessionTopic(t *testing.T) {
	deltas := make([]string, 60)
	for i := range deltas {
		deltas[i] = fmt.Sprintf("%d ", i)
	}
	o, _ := newTestOrchestrator(t, &fakeClient{deltas: deltas})
	selected, _ := o.SelectedSession()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := o.Subscribe(ctx, conversation.SessionTopic(selected.ID))

	require.NoError(t, o.SendMessage(context.Background(), "count"))

	reply := o.Sessions()[0].Messages[1]
	var got []string
	for range deltas {
		select {
		case c := <-changes:
			assert.Equal(t, selected.ID, c.SessionID)
			assert.Equal(t, reply.ID, c.MessageID)
			got = append(got, c.Text)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delta")
		}
	}
	assert.Equal(t, deltas, got)
	assert.Equal(t, strings.TrimSpace(strings.Join(deltas, "")), reply.Text)
}

func TestSendMessage_MissionTopicChanges(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{deltas: []string{"a", "b"}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := o.Subscribe(ctx, conversation.TopicMission)

	require.NoError(t, o.SendMessage(context.Background(), "hi"))

	seen := map[conversation.ChangeKind]int{}
	for {
		select {
		case c := <-changes:
			seen[c.Kind]++
			if c.Kind == conversation.ChangeEvent && c.Text == "Response received (streaming)" {
				assert.Equal(t, string(LevelInfo), c.Level)
				assert.Zero(t, seen[conversation.ChangeDelta], "deltas stay on the session topic")
				assert.GreaterOrEqual(t, seen[conversation.ChangeSessions], 2)
				assert.GreaterOrEqual(t, seen[conversation.ChangeTask], 4)
				return
			}
		case <-time.After(time.Second):
			t.Fatalf("no completion event; saw %v", seen)
		}
	}
}

func TestSendMessage_TriggersRefresh(t *testing.T) {
	model := "remote-model"
	client := &fakeClient{
		deltas: []string{"ok"},
		status: gateway.StatusSnapshot{Model: &model},
	}
	o, _ := newTestOrchestrator(t, client)

	require.NoError(t, o.SendMessage(context.Background(), "hi"))
	o.Close()

	status, sessions, syncErr := o.GatewayData()
	require.NotNil(t, status)
	assert.Equal(t, "remote-model", *status.Model)
	assert.NotNil(t, sessions)
	assert.Empty(t, syncErr)
}

func TestRunHealthCheck_Healthy(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{healthy: true})
	before := len(o.Events())

	require.NoError(t, o.RunHealthCheck(context.Background()))

	state, detail := o.Connection()
	assert.Equal(t, ConnectionConnected, state)
	assert.Empty(t, detail)

	task := o.Task()
	assert.Equal(t, progress.StateCompleted, task.State)
	assert.Equal(t, "Gateway healthy", task.Detail)

	events := o.Events()
	require.Len(t, events, before+1)
	assert.Equal(t, "Health check OK", events[0].Message)
}

func TestRunHealthCheck_Unhealthy(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{healthy: false})
	before := len(o.Events())

	err := o.RunHealthCheck(context.Background())
	require.ErrorIs(t, err, ErrGatewayUnhealthy)

	state, detail := o.Connection()
	assert.Equal(t, ConnectionUnhealthy, state)
	assert.Equal(t, "Gateway responded but reported unhealthy.", detail)
	assert.Equal(t, progress.StateFailed, o.Task().State)

	events := o.Events()
	require.Len(t, events, before+1)
	assert.Equal(t, LevelWarning, events[0].Level)
}

func TestRunHealthCheck_ServerErrorDisconnects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	profile := testProfile()
	profile.BaseURL = srv.URL
	o, _ := newTestOrchestrator(t, gateway.NewClient(gateway.WithLogger(testLogger())), func(opts *Options) {
		opts.Profile = &profile
	})
	before := len(o.Events())

	err := o.RunHealthCheck(context.Background())
	require.Error(t, err)
	assert.True(t, gateway.IsServerError(err))

	state, detail := o.Connection()
	assert.Equal(t, ConnectionDisconnected, state)
	assert.Contains(t, detail, "ssh -N -L")

	task := o.Task()
	assert.Equal(t, progress.StateFailed, task.State)
	assert.True(t, strings.HasPrefix(task.Detail, "Health check failed: "))

	events := o.Events()
	require.Len(t, events, before+1)
	assert.Equal(t, LevelError, events[0].Level)
	assert.True(t, strings.HasPrefix(events[0].Message, "Health check failed: "))
}

func TestRunHealthCheck_NotConfigured(t *testing.T) {
	client := &fakeClient{healthy: true}
	o, _ := newTestOrchestrator(t, client, func(opts *Options) { opts.Credentials = nil })
	before := len(o.Events())

	err := o.RunHealthCheck(context.Background())
	require.Error(t, err)

	state, detail := o.Connection()
	assert.Equal(t, ConnectionNotConfigured, state)
	assert.Equal(t, "Gateway token is required.", detail)
	assert.Equal(t, "Missing or invalid gateway settings", o.Task().Detail)
	assert.Len(t, o.Events(), before+1)
}

func TestTunnelHint(t *testing.T) {
	assert.Contains(t, tunnelHint("http://10.0.0.5:9000"), "ssh -N -L 9000:127.0.0.1:9000")
	assert.Contains(t, tunnelHint("https://gw.example.com"), "18789:127.0.0.1:18789")
}

func TestRefreshGatewayData_Success(t *testing.T) {
	active := 3
	client := &fakeClient{
		status:   gateway.StatusSnapshot{ActiveSessions: &active},
		sessions: []gateway.SessionSummary{{ID: "s1", Title: "one"}},
	}
	o, _ := newTestOrchestrator(t, client)

	require.NoError(t, o.RefreshGatewayData(context.Background()))

	snap := o.Snapshot()
	require.NotNil(t, snap.GatewayStatus)
	assert.Equal(t, 3, *snap.GatewayStatus.ActiveSessions)
	assert.Len(t, snap.GatewaySessions, 1)
	assert.Empty(t, snap.SyncError)
	require.NotNil(t, snap.LastSyncAt)
	assert.Equal(t, 3, snap.Metrics.EffectiveActiveSessions)
	assert.Equal(t, "Gateway data synced", snap.Events[0].Message)
}

func TestRefreshGatewayData_FailureKeepsProjections(t *testing.T) {
	client := &fakeClient{sessions: []gateway.SessionSummary{{ID: "s1"}, {ID: "s2"}}}
	o, _ := newTestOrchestrator(t, client)
	require.NoError(t, o.RefreshGatewayData(context.Background()))

	client.set(func(f *fakeClient) {
		f.sessions = nil
		f.sessionsErr = errors.New("gateway returned status 502")
	})
	err := o.RefreshGatewayData(context.Background())
	require.Error(t, err)

	status, sessions, syncErr := o.GatewayData()
	assert.NotNil(t, status)
	assert.Len(t, sessions, 2)
	assert.Contains(t, syncErr, "status 502")

	events := o.Events()
	last := events[0]
	assert.Equal(t, LevelWarning, last.Level)
	assert.True(t, strings.HasPrefix(last.Message, "Gateway sync failed: "))
	assert.Equal(t, 2, o.Metrics().EffectiveActiveSessions)
}

func TestRefreshGatewayData_InvalidSettings(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{}, func(opts *Options) { opts.Credentials = nil })

	require.Error(t, o.RefreshGatewayData(context.Background()))

	_, sessions, syncErr := o.GatewayData()
	assert.Empty(t, sessions)
	assert.Equal(t, "Gateway token is required.", syncErr)
}

func TestEvents_Capped(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{})

	o.mu.Lock()
	for i := range EventLimit + 25 {
		o.addEventLocked(LevelInfo, fmt.Sprintf("e%d", i))
	}
	o.mu.Unlock()

	events := o.Events()
	require.Len(t, events, EventLimit)
	assert.Equal(t, "e524", events[0].Message)
	assert.Equal(t, "e25", events[EventLimit-1].Message)
	for _, e := range events {
		assert.NotEqual(t, "Mission Control initialized", e.Message)
	}

	o.ClearEvents()
	assert.Empty(t, o.Events())
}

func TestSessions_Management(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{})
	main, _ := o.SelectedSession()

	added := o.AddSession()
	assert.Equal(t, "Session 2", added.Title)
	assert.Equal(t, config.DefaultSessionKey, added.SessionKey)

	selected, _ := o.SelectedSession()
	assert.Equal(t, added.ID, selected.ID)
	assert.Equal(t, added.ID, o.Sessions()[0].ID)

	require.NoError(t, o.RenameSession(added.ID, "Ops"))
	got, ok := o.Session(added.ID)
	require.True(t, ok)
	assert.Equal(t, "Ops", got.Title)

	require.NoError(t, o.DeleteSession(added.ID))
	selected, _ = o.SelectedSession()
	assert.Equal(t, main.ID, selected.ID)

	assert.ErrorIs(t, o.RenameSession("missing", "x"), ErrSessionNotFound)
	assert.ErrorIs(t, o.DeleteSession("missing"), ErrSessionNotFound)
	assert.ErrorIs(t, o.SelectSession(""), ErrSessionNotFound)

	msgs := eventMessages(o.Events())
	assert.Contains(t, msgs, "Created new local session")
	assert.Contains(t, msgs, "Deleted local session")
}

func TestSessions_ReturnCopies(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{deltas: []string{"x"}})
	require.NoError(t, o.SendMessage(context.Background(), "hi"))

	sessions := o.Sessions()
	sessions[0].Messages[0].Text = "mutated"

	again := o.Sessions()
	assert.Equal(t, "hi", again[0].Messages[0].Text)
}

func TestJournal(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{})

	_, ok := o.AddJournalEntry("   ", "ignored")
	assert.False(t, ok)
	assert.Empty(t, o.JournalEntries())

	first, ok := o.AddJournalEntry(" First ", "body")
	require.True(t, ok)
	assert.Equal(t, "First", first.Title)
	second, _ := o.AddJournalEntry("Second", "")

	entries := o.JournalEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID)

	require.NoError(t, o.DeleteJournalEntry(first.ID))
	assert.Len(t, o.JournalEntries(), 1)
	assert.ErrorIs(t, o.DeleteJournalEntry(first.ID), ErrJournalEntryNotFound)

	msgs := eventMessages(o.Events())
	assert.Contains(t, msgs, "Journal entry added")
	assert.Contains(t, msgs, "Journal entry deleted")
}

func TestToggleCronJob(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{})
	job := o.CronJobs()[0]

	toggled, err := o.ToggleCronJob(job.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Enabled)

	events := o.Events()
	assert.Equal(t, "Cron job healthcheck:security-audit disabled", events[0].Message)

	toggled, err = o.ToggleCronJob(job.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Enabled)

	_, err = o.ToggleCronJob("missing")
	assert.ErrorIs(t, err, ErrCronJobNotFound)
}

func TestMetrics(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{})

	m := o.Metrics()
	assert.Nil(t, m.AverageLatencyMs)
	assert.Equal(t, config.DefaultModel, m.EffectiveModel)
	assert.Equal(t, 0, m.EffectiveActiveSessions)

	o.mu.Lock()
	o.recordLatencyLocked(100)
	o.recordLatencyLocked(201)
	o.lastModelUsed = "used-model"
	o.addEventLocked(LevelError, "boom")
	o.mu.Unlock()

	m = o.Metrics()
	require.NotNil(t, m.AverageLatencyMs)
	assert.Equal(t, 150, *m.AverageLatencyMs)
	assert.Equal(t, 201, *m.LastLatencyMs)
	assert.Equal(t, "used-model", m.EffectiveModel)
	assert.Equal(t, 1, m.ErrorsToday)
}

func TestLatencySamples_Bounded(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{})

	o.mu.Lock()
	for i := range LatencySampleLimit + 10 {
		o.recordLatencyLocked(i)
	}
	o.mu.Unlock()

	samples := o.Snapshot().LatencySamples
	assert.Len(t, samples, LatencySampleLimit)
	assert.Equal(t, 10, samples[0])
}

func TestSameDay(t *testing.T) {
	assert.True(t, sameDay(testNow.Add(-time.Hour), testNow))
	assert.False(t, sameDay(testNow.Add(-24*time.Hour), testNow))
}

func TestSaveProfile_Invalid(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{})
	p := testProfile()
	p.BaseURL = "gw:18789"

	err := o.SaveProfile(context.Background(), p, "tok")
	require.Error(t, err)

	_, detail := o.Connection()
	assert.Equal(t, "Gateway URL must start with http:// or https://", detail)
	events := o.Events()
	assert.Equal(t, "Profile validation failed", events[0].Message)
	assert.Equal(t, testProfile(), o.Profile())
}

func TestSaveProfile_PersistsAndChecks(t *testing.T) {
	client := &fakeClient{healthy: true}
	o, st := newTestOrchestrator(t, client)
	p := testProfile()
	p.Name = "Lab"
	p.HealthPollingSeconds = 3600

	require.NoError(t, o.SaveProfile(context.Background(), p, " new-token "))
	o.Close()

	assert.Equal(t, "Lab", o.Profile().Name)
	secret, err := st.GetSecret(context.Background(), credentials.TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "new-token", secret)
	assert.Positive(t, st.SaveCount(store.KeyProfile))

	msgs := eventMessages(o.Events())
	assert.Contains(t, msgs, "Profile saved")
	assert.Contains(t, msgs, "Health check OK")
	state, _ := o.Connection()
	assert.Equal(t, ConnectionConnected, state)
}

func TestStartHealthPolling_RunsImmediately(t *testing.T) {
	client := &fakeClient{healthy: true}
	o, _ := newTestOrchestrator(t, client)

	o.StartHealthPolling()
	require.Eventually(t, func() bool {
		state, _ := o.Connection()
		return state == ConnectionConnected
	}, 2*time.Second, 10*time.Millisecond)

	o.StopHealthPolling()
	o.Close()
	o.StartHealthPolling()
}

func TestPersistFailureKeepsState(t *testing.T) {
	o, st := newTestOrchestrator(t, &fakeClient{})
	st.FailSaves(errors.New("disk full"))

	added := o.AddSession()
	_, ok := o.Session(added.ID)
	assert.True(t, ok)
}
