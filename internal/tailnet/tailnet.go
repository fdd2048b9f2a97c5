// ABOUTME: Optional tsnet node used to reach a gateway that only listens on a tailnet
// ABOUTME: Brings the node up and hands out an HTTP client dialing through it

package tailnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/mission-control/internal/config"
)

// Node is a running embedded tailscale node.
type Node struct {
	server *tsnet.Server
	logger *slog.Logger
}

// Start brings up a tsnet node described by cfg and waits until it is ready.
func Start(ctx context.Context, cfg config.TailscaleConfig, logger *slog.Logger) (*Node, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tailnet")

	stateDir, err := resolveStateDir(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveAuthKey(cfg.AuthKey)
	if err != nil {
		return nil, err
	}

	srv := &tsnet.Server{
		Hostname:  cfg.Hostname,
		Dir:       stateDir,
		Ephemeral: cfg.Ephemeral,
		AuthKey:   authKey,
		Logf:      func(format string, args ...any) { logger.Debug(fmt.Sprintf(format, args...)) },
	}

	logger.Info("starting tailscale node", "hostname", cfg.Hostname, "state_dir", stateDir, "ephemeral", cfg.Ephemeral)
	status, err := srv.Up(ctx)
	if err != nil {
		_ = srv.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}

	n := &Node{server: srv, logger: logger}
	n.logStatus(cfg.Hostname, status)
	return n, nil
}

// HTTPClient returns a client whose connections are dialed over the tailnet.
func (n *Node) HTTPClient() *http.Client {
	return n.server.HTTPClient()
}

// Close shuts the node down.
func (n *Node) Close() error {
	return n.server.Close()
}

func (n *Node) logStatus(hostname string, status *ipnstate.Status) {
	var addr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		addr = status.TailscaleIPs[0].String()
	} else {
		n.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	n.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", addr, "dns_name", dnsName)
}

// resolveStateDir returns the state directory, using a default if not configured.
func resolveStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set transport.tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "mission-control", "tailscale"), nil
}

// resolveAuthKey returns the auth key from config or environment.
func resolveAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set transport.tailscale.auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}
