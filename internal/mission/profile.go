// ABOUTME: Connection profile updates for the orchestrator
// ABOUTME: Validates, persists profile and token, then restarts polling

package mission

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389/mission-control/internal/config"
	"github.com/2389/mission-control/internal/conversation"
	"github.com/2389/mission-control/internal/credentials"
	"github.com/2389/mission-control/internal/store"
)

// SaveProfile validates and stores a new connection profile and token.
// On success health polling restarts and a health check plus a gateway
// refresh run in the background.
func (o *Orchestrator) SaveProfile(ctx context.Context, profile config.Profile, token string) error {
	token = strings.TrimSpace(token)

	o.mu.Lock()
	if err := profile.Validate(false, token); err != nil {
		o.connectionDetail = firstIssue(err)
		o.publishLocked(conversation.Change{Kind: conversation.ChangeConnection, Text: string(o.connection)})
		o.addEventLocked(LevelError, "Profile validation failed")
		o.mu.Unlock()
		return err
	}

	o.profile = profile
	o.token = token
	o.persistLocked(store.KeyProfile, o.profile)

	var saveErr error
	if o.creds != nil {
		if err := o.creds.Save(ctx, credentials.TokenKey, token); err != nil {
			saveErr = fmt.Errorf("saving gateway token: %w", err)
			o.logger.Error("failed to save gateway token", "error", err)
		}
	}

	o.publishLocked(conversation.Change{Kind: conversation.ChangeProfile})
	o.addEventLocked(LevelInfo, "Profile saved")
	o.goLocked(func(ctx context.Context) {
		_ = o.RunHealthCheck(ctx)
		_ = o.RefreshGatewayData(ctx)
	})
	o.mu.Unlock()

	o.StartHealthPolling()
	return saveErr
}
