// ABOUTME: Health check and gateway data refresh flows
// ABOUTME: Each run validates first, queries the gateway unlocked, then applies results

package mission

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/2389/mission-control/internal/conversation"
	"github.com/2389/mission-control/internal/gateway"
)

var healthSteps = []string{
	"Validate connection profile",
	"Query gateway /health",
	"Update runtime status",
}

// RunHealthCheck queries /health and updates the connection label.
// Every run records exactly one event.
func (o *Orchestrator) RunHealthCheck(ctx context.Context) error {
	o.mu.Lock()
	run := o.tracker.Begin("Run health check", "Validating health-check prerequisites", healthSteps)
	o.publishTask()

	if err := o.profile.Validate(true, o.token); err != nil {
		issue := firstIssue(err)
		o.setConnectionLocked(ConnectionNotConfigured, issue)
		run.Fail("Missing or invalid gateway settings")
		o.publishTask()
		o.addEventLocked(LevelError, "Health check skipped: "+issue)
		o.mu.Unlock()
		return err
	}
	run.Advance(0, "Profile validated", 0.25)
	o.publishTask()
	baseURL := o.profile.NormalizedBaseURL()
	token := o.token
	o.mu.Unlock()

	healthy, err := o.client.Health(ctx, baseURL, token)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		msg := err.Error()
		o.setConnectionLocked(ConnectionDisconnected, tunnelHint(baseURL))
		o.addEventLocked(LevelError, "Health check failed: "+msg)
		run.Fail("Health check failed: " + msg)
		o.publishTask()
		return fmt.Errorf("checking gateway health: %w", err)
	}

	run.Advance(1, "Health endpoint responded", 0.7)
	if !healthy {
		o.setConnectionLocked(ConnectionUnhealthy, "Gateway responded but reported unhealthy.")
		o.addEventLocked(LevelWarning, "Health check unhealthy")
		run.Fail("Gateway reported unhealthy")
		o.publishTask()
		return ErrGatewayUnhealthy
	}

	run.Advance(2, "Runtime status updated", 0.9)
	o.setConnectionLocked(ConnectionConnected, "")
	o.addEventLocked(LevelInfo, "Health check OK")
	run.Complete("Gateway healthy")
	o.publishTask()
	return nil
}

// tunnelHint is the detail shown when the gateway cannot be reached.
// Gateways commonly bind to loopback on a remote host.
func tunnelHint(baseURL string) string {
	port := "18789"
	if u, err := url.Parse(baseURL); err == nil && u.Port() != "" {
		port = u.Port()
	}
	return fmt.Sprintf("Gateway unreachable. If it only listens on a remote loopback, ensure an SSH tunnel is active: ssh -N -L %s:127.0.0.1:%s <user>@<host>", port, port)
}

// RefreshGatewayData fetches /status and /v1/sessions concurrently. Both
// projections are replaced together on success; on failure the previous
// projections are kept and the sync error is recorded.
func (o *Orchestrator) RefreshGatewayData(ctx context.Context) error {
	o.mu.Lock()
	if err := o.profile.Validate(true, o.token); err != nil {
		issue := firstIssue(err)
		o.syncError = issue
		o.gatewayStatus = nil
		o.gatewaySessions = nil
		o.publishLocked(conversation.Change{Kind: conversation.ChangeGateway, Text: issue})
		o.addEventLocked(LevelWarning, "Gateway sync skipped: "+issue)
		o.mu.Unlock()
		return err
	}
	baseURL := o.profile.NormalizedBaseURL()
	token := o.token
	limit := o.sessionLimit
	o.mu.Unlock()

	var (
		status   gateway.StatusSnapshot
		sessions []gateway.SessionSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := o.client.FetchStatus(gctx, baseURL, token)
		if err != nil {
			return fmt.Errorf("fetching status: %w", err)
		}
		status = s
		return nil
	})
	g.Go(func() error {
		s, err := o.client.FetchSessions(gctx, baseURL, token, limit)
		if err != nil {
			return fmt.Errorf("fetching sessions: %w", err)
		}
		sessions = s
		return nil
	})
	err := g.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.syncError = err.Error()
		o.publishLocked(conversation.Change{Kind: conversation.ChangeGateway, Text: o.syncError})
		o.addEventLocked(LevelWarning, "Gateway sync failed: "+o.syncError)
		return err
	}

	if sessions == nil {
		sessions = []gateway.SessionSummary{}
	}
	now := o.now()
	o.gatewayStatus = &status
	o.gatewaySessions = sessions
	o.syncError = ""
	o.lastSyncAt = &now
	o.publishLocked(conversation.Change{Kind: conversation.ChangeGateway})
	o.addEventLocked(LevelInfo, "Gateway data synced")
	return nil
}

// GatewayData returns the last fetched status, remote sessions and sync error.
func (o *Orchestrator) GatewayData() (*gateway.StatusSnapshot, []gateway.SessionSummary, string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var status *gateway.StatusSnapshot
	if o.gatewayStatus != nil {
		s := cloneStatus(*o.gatewayStatus)
		status = &s
	}
	return status, cloneSummaries(o.gatewaySessions), o.syncError
}
