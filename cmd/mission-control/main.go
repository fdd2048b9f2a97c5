// ABOUTME: Entry point for the mission-control CLI
// ABOUTME: Dispatches subcommands and wires config, logging, storage and the gateway client

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/mission-control/internal/config"
	"github.com/2389/mission-control/internal/conversation"
	"github.com/2389/mission-control/internal/credentials"
	"github.com/2389/mission-control/internal/gateway"
	"github.com/2389/mission-control/internal/mission"
	"github.com/2389/mission-control/internal/store"
	"github.com/2389/mission-control/internal/tailnet"
)

// Version is set by goreleaser at build time.
var version = "dev"

// getConfigPath returns the path to the mission-control config file.
// Priority: MISSION_CONTROL_CONFIG env var > XDG_CONFIG_HOME/mission-control/config.yaml > ~/.config/mission-control/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("MISSION_CONTROL_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "mission-control", "config.yaml")
}

// getDataPath returns the path to the mission-control data directory.
// Priority: XDG_DATA_HOME/mission-control > ~/.local/share/mission-control
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "mission-control")
}

func usage() {
	fmt.Println("Usage: mission-control <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init                          Create a new config file interactively")
	fmt.Println("  health                        Run one gateway health check")
	fmt.Println("  status                        Sync and show gateway status and remote sessions")
	fmt.Println("  sessions [new|select|rename|rm]  List or manage local sessions")
	fmt.Println("  send [--session ID] TEXT      Send a message and stream the reply")
	fmt.Println("  watch                         Poll gateway health and print events until interrupted")
	fmt.Println("  events [--clear]              Show or clear the event log")
	fmt.Println("  journal [add|rm]              List or manage journal entries")
	fmt.Println("  cron [toggle ID]              List or toggle cron jobs")
	fmt.Println("  export ID [--html] [-o FILE]  Export a session transcript")
	fmt.Println("  doctor                        Check configuration and credentials")
	fmt.Println("  version                       Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(ctx)
	case "health":
		err = runHealth(ctx)
	case "status":
		err = runStatus(ctx)
	case "sessions":
		err = runSessions(ctx, args)
	case "send":
		err = runSend(ctx, args)
	case "watch":
		err = runWatch(ctx)
	case "events":
		err = runEvents(ctx, args)
	case "journal":
		err = runJournal(ctx, args)
	case "cron":
		err = runCron(ctx, args)
	case "export":
		err = runExport(ctx, args)
	case "doctor":
		err = runDoctor(ctx)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when none exists.
func loadConfig() (*config.Config, string, error) {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err == nil {
		return cfg, configPath, nil
	}
	if _, statErr := os.Stat(configPath); errors.Is(statErr, os.ErrNotExist) {
		return config.Default(getDataPath()), configPath, nil
	}
	return nil, configPath, fmt.Errorf("loading config: %w", err)
}

// app holds everything a command needs. close releases it in reverse order.
type app struct {
	cfg          *config.Config
	configPath   string
	logger       *slog.Logger
	store        *store.SQLiteStore
	creds        *credentials.Store
	orchestrator *mission.Orchestrator
	node         *tailnet.Node
}

func openApp(ctx context.Context) (*app, error) {
	cfg, configPath, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := setupLogger(cfg.Logging, os.Stderr)
	a := &app{cfg: cfg, configPath: configPath, logger: logger}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	a.store, err = store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a.creds = credentials.New(credentials.Options{
		EnvVar:   cfg.Credentials.TokenEnv,
		FilePath: cfg.Credentials.TokenFile,
		Secrets:  a.store,
		Logger:   logger,
	})

	clientOpts := []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithRequestTimeout(cfg.Transport.RequestTimeout),
	}
	if cfg.Transport.UserAgent != "" {
		clientOpts = append(clientOpts, gateway.WithUserAgent(cfg.Transport.UserAgent))
	} else {
		clientOpts = append(clientOpts, gateway.WithUserAgent("mission-control/"+version))
	}
	if cfg.Transport.Tailscale.Enabled {
		a.node, err = tailnet.Start(ctx, cfg.Transport.Tailscale, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("starting tailnet transport: %w", err)
		}
		clientOpts = append(clientOpts, gateway.WithHTTPClient(a.node.HTTPClient()))
	}

	a.orchestrator, err = mission.New(ctx, mission.Options{
		Store:        a.store,
		Credentials:  a.creds,
		Client:       gateway.NewClient(clientOpts...),
		Profile:      &cfg.Profile,
		Logger:       logger,
		Broadcaster:  conversation.NewEventBroadcaster(logger),
		SessionLimit: cfg.Transport.SessionLimit,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("starting orchestrator: %w", err)
	}
	return a, nil
}

func (a *app) close() {
	if a.orchestrator != nil {
		a.orchestrator.Close()
	}
	if a.node != nil {
		if err := a.node.Close(); err != nil {
			a.logger.Warn("closing tailnet node", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing database", "error", err)
		}
	}
}

// withApp opens the app, runs fn and closes the app.
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func setupLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = &colorHandler{
			mu:    &sync.Mutex{},
			out:   w,
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
// Handlers derived through WithAttrs and WithGroup share the parent's lock.
type colorHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}

	// Handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + prefix + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, buf.String())
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		mu:     h.mu,
		out:    h.out,
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		mu:     h.mu,
		out:    h.out,
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

// transportName describes how gateway requests are dialed.
func transportName(cfg *config.Config) string {
	if cfg.Transport.Tailscale.Enabled {
		return "tailnet (" + cfg.Transport.Tailscale.Hostname + ")"
	}
	return "direct"
}
