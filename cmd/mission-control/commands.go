// ABOUTME: Subcommand implementations for the mission-control CLI
// ABOUTME: Each command opens the app, drives the orchestrator and prints results

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/mission-control/internal/config"
	"github.com/2389/mission-control/internal/conversation"
	"github.com/2389/mission-control/internal/credentials"
	"github.com/2389/mission-control/internal/mission"
	"github.com/2389/mission-control/internal/progress"
	"github.com/2389/mission-control/internal/transcript"
)

const timeFormat = "2006-01-02 15:04:05"

func runHealth(ctx context.Context) error {
	return withApp(ctx, func(a *app) error {
		err := a.orchestrator.RunHealthCheck(ctx)
		state, detail := a.orchestrator.Connection()
		printConnection(state, detail)
		return err
	})
}

func printConnection(state mission.ConnectionState, detail string) {
	var c *color.Color
	switch state {
	case mission.ConnectionConnected:
		c = color.New(color.FgGreen, color.Bold)
	case mission.ConnectionUnhealthy:
		c = color.New(color.FgYellow, color.Bold)
	case mission.ConnectionDisconnected, mission.ConnectionNotConfigured:
		c = color.New(color.FgRed, color.Bold)
	default:
		c = color.New(color.FgHiBlack)
	}
	c.Println(string(state))
	if detail != "" {
		fmt.Printf("  %s\n", detail)
	}
}

func runStatus(ctx context.Context) error {
	return withApp(ctx, func(a *app) error {
		err := a.orchestrator.RefreshGatewayData(ctx)
		snap := a.orchestrator.Snapshot()

		cyan := color.New(color.FgCyan)
		cyan.Println("Gateway")
		fmt.Printf("  URL:             %s\n", snap.Profile.NormalizedBaseURL())
		if snap.GatewayStatus != nil {
			if up := snap.GatewayStatus.UptimeSec; up != nil {
				fmt.Printf("  Uptime:          %s\n", time.Duration(*up)*time.Second)
			}
		}
		fmt.Printf("  Active sessions: %d\n", snap.Metrics.EffectiveActiveSessions)
		fmt.Printf("  Model:           %s\n", snap.Metrics.EffectiveModel)
		if snap.LastSyncAt != nil {
			fmt.Printf("  Last sync:       %s\n", snap.LastSyncAt.Local().Format(timeFormat))
		}
		if snap.SyncError != "" {
			color.New(color.FgRed).Printf("  Sync error:      %s\n", snap.SyncError)
		}

		if len(snap.GatewaySessions) > 0 {
			fmt.Println()
			cyan.Println("Remote sessions")
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "  ID\tTITLE\tMESSAGES\tUPDATED")
			for _, s := range snap.GatewaySessions {
				count := "-"
				if s.MessageCount != nil {
					count = fmt.Sprint(*s.MessageCount)
				}
				updated := "-"
				if s.UpdatedAt != nil {
					updated = s.UpdatedAt.Local().Format(timeFormat)
				}
				fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", s.ID, s.Title, count, updated)
			}
			tw.Flush()
		}

		printMetrics(snap.Metrics)
		return err
	})
}

func printMetrics(m mission.Metrics) {
	fmt.Println()
	color.New(color.FgCyan).Println("Today")
	fmt.Printf("  Requests:        %d\n", m.RequestsToday)
	fmt.Printf("  Errors:          %d\n", m.ErrorsToday)
	if m.AverageLatencyMs != nil {
		fmt.Printf("  Avg latency:     %d ms\n", *m.AverageLatencyMs)
	}
	if m.LastLatencyMs != nil {
		fmt.Printf("  Last latency:    %d ms\n", *m.LastLatencyMs)
	}
}

func runSessions(ctx context.Context, args []string) error {
	return withApp(ctx, func(a *app) error {
		o := a.orchestrator
		sub := ""
		if len(args) > 0 {
			sub = args[0]
		}

		switch sub {
		case "", "list":
		case "new":
			s := o.AddSession()
			color.New(color.FgGreen).Printf("  ✓ Created %s (%s)\n", s.Title, s.ID)
		case "select":
			if len(args) < 2 {
				return errors.New("usage: sessions select ID")
			}
			if err := o.SelectSession(args[1]); err != nil {
				return fmt.Errorf("selecting session %s: %w", args[1], err)
			}
		case "rename":
			if len(args) < 3 {
				return errors.New("usage: sessions rename ID TITLE")
			}
			if err := o.RenameSession(args[1], strings.Join(args[2:], " ")); err != nil {
				return fmt.Errorf("renaming session %s: %w", args[1], err)
			}
		case "rm", "delete":
			if len(args) < 2 {
				return errors.New("usage: sessions rm ID")
			}
			if err := o.DeleteSession(args[1]); err != nil {
				return fmt.Errorf("deleting session %s: %w", args[1], err)
			}
		default:
			return fmt.Errorf("unknown sessions command: %s", sub)
		}

		printSessions(o.Sessions(), o.Snapshot().SelectedSessionID)
		return nil
	})
}

func printSessions(sessions []mission.Session, selectedID string) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  \tID\tTITLE\tKEY\tMESSAGES\tUPDATED")
	for _, s := range sessions {
		marker := ""
		if s.ID == selectedID {
			marker = "*"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%d\t%s\n",
			marker, s.ID, s.Title, s.SessionKey, len(s.Messages), s.UpdatedAt.Local().Format(timeFormat))
	}
	tw.Flush()
}

// parseSendArgs supports both "--session value" and "--session=value" formats.
func parseSendArgs(args []string) (sessionID, text string, err error) {
	var words []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--session" || arg == "-s":
			if i+1 >= len(args) {
				return "", "", errors.New("--session requires a value")
			}
			sessionID = args[i+1]
			i++
		case strings.HasPrefix(arg, "--session="):
			sessionID = strings.TrimPrefix(arg, "--session=")
		case arg == "--":
			words = append(words, args[i+1:]...)
			i = len(args)
		case strings.HasPrefix(arg, "-") && len(words) == 0:
			return "", "", fmt.Errorf("unknown flag: %s", arg)
		default:
			words = append(words, arg)
		}
	}

	text = strings.TrimSpace(strings.Join(words, " "))
	if text == "" {
		return "", "", errors.New("message text is required")
	}
	return sessionID, text, nil
}

func runSend(ctx context.Context, args []string) error {
	sessionID, text, err := parseSendArgs(args)
	if err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		o := a.orchestrator
		if sessionID != "" {
			if err := o.SelectSession(sessionID); err != nil {
				return fmt.Errorf("selecting session %s: %w", sessionID, err)
			}
		}
		selected, ok := o.SelectedSession()
		if !ok {
			return mission.ErrNoActiveSession
		}

		subCtx, stop := context.WithCancel(ctx)
		deltas := o.Subscribe(subCtx, conversation.SessionTopic(selected.ID))

		var (
			wg      sync.WaitGroup
			printed bool
		)
		wg.Go(func() {
			for c := range deltas {
				if c.Kind == conversation.ChangeDelta {
					fmt.Print(c.Text)
					printed = true
				}
			}
		})

		sendErr := o.SendMessage(ctx, text)
		stop()
		wg.Wait()

		if !printed && sendErr == nil {
			if s, ok := o.Session(selected.ID); ok && len(s.Messages) > 0 {
				fmt.Print(s.Messages[len(s.Messages)-1].Text)
			}
		}
		fmt.Println()

		task := o.Task()
		if task.State == progress.StateFailed {
			color.New(color.FgRed).Fprintf(os.Stderr, "%s\n", task.Detail)
		}
		return sendErr
	})
}

func runWatch(ctx context.Context) error {
	return withApp(ctx, func(a *app) error {
		changes := a.orchestrator.Subscribe(ctx, conversation.TopicMission)
		a.orchestrator.StartHealthPolling()

		profile := a.orchestrator.Profile()
		color.New(color.FgCyan).Printf("Watching %s every %ds (Ctrl+C to stop)\n",
			profile.NormalizedBaseURL(), max(profile.HealthPollingSeconds, 5))

		for {
			select {
			case <-ctx.Done():
				return nil
			case c, ok := <-changes:
				if !ok {
					return nil
				}
				if c.Kind == conversation.ChangeEvent {
					printEvent(c.At, mission.Level(c.Level), c.Text)
				}
			}
		}
	})
}

func printEvent(at time.Time, level mission.Level, message string) {
	var tag string
	switch level {
	case mission.LevelError:
		tag = color.New(color.FgRed, color.Bold).Sprint("ERR")
	case mission.LevelWarning:
		tag = color.YellowString("WRN")
	default:
		tag = color.CyanString("INF")
	}
	fmt.Printf("%s %s %s\n", color.HiBlackString(at.Local().Format(timeFormat)), tag, message)
}

func runEvents(ctx context.Context, args []string) error {
	clearLog := false
	for _, arg := range args {
		switch arg {
		case "--clear":
			clearLog = true
		default:
			return fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	return withApp(ctx, func(a *app) error {
		if clearLog {
			a.orchestrator.ClearEvents()
			color.New(color.FgGreen).Println("  ✓ Event log cleared")
			return nil
		}
		for _, ev := range a.orchestrator.Events() {
			printEvent(ev.Timestamp, ev.Level, ev.Message)
		}
		return nil
	})
}

func runJournal(ctx context.Context, args []string) error {
	return withApp(ctx, func(a *app) error {
		o := a.orchestrator
		sub := ""
		if len(args) > 0 {
			sub = args[0]
		}

		switch sub {
		case "", "list":
		case "add":
			if len(args) < 2 {
				return errors.New("usage: journal add TITLE [BODY...]")
			}
			entry, ok := o.AddJournalEntry(args[1], strings.Join(args[2:], " "))
			if !ok {
				return errors.New("journal title cannot be blank")
			}
			color.New(color.FgGreen).Printf("  ✓ Added %s\n", entry.ID)
		case "rm", "delete":
			if len(args) < 2 {
				return errors.New("usage: journal rm ID")
			}
			if err := o.DeleteJournalEntry(args[1]); err != nil {
				return fmt.Errorf("deleting journal entry %s: %w", args[1], err)
			}
		default:
			return fmt.Errorf("unknown journal command: %s", sub)
		}

		for _, e := range o.JournalEntries() {
			color.New(color.FgCyan).Printf("%s  %s\n", e.CreatedAt.Local().Format(timeFormat), e.Title)
			color.HiBlack("  %s", e.ID)
			if e.Body != "" {
				fmt.Printf("  %s\n", e.Body)
			}
		}
		return nil
	})
}

func runCron(ctx context.Context, args []string) error {
	return withApp(ctx, func(a *app) error {
		o := a.orchestrator
		if len(args) > 0 {
			if args[0] != "toggle" || len(args) < 2 {
				return errors.New("usage: cron [toggle ID]")
			}
			if _, err := o.ToggleCronJob(args[1]); err != nil {
				return fmt.Errorf("toggling cron job %s: %w", args[1], err)
			}
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  ID\tNAME\tSCHEDULE\tENABLED\tLAST RUN")
		for _, j := range o.CronJobs() {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%t\t%s\n", j.ID, j.Name, j.Schedule, j.Enabled, j.LastRun)
		}
		return tw.Flush()
	})
}

// parseExportArgs returns the session id, whether HTML was requested and the output path.
func parseExportArgs(args []string) (id string, asHTML bool, out string, err error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--html":
			asHTML = true
		case arg == "-o" || arg == "--output":
			if i+1 >= len(args) {
				return "", false, "", fmt.Errorf("%s requires a value", arg)
			}
			out = args[i+1]
			i++
		case strings.HasPrefix(arg, "--output="):
			out = strings.TrimPrefix(arg, "--output=")
		case strings.HasPrefix(arg, "-"):
			return "", false, "", fmt.Errorf("unknown flag: %s", arg)
		case id == "":
			id = arg
		default:
			return "", false, "", fmt.Errorf("unexpected argument: %s", arg)
		}
	}
	if id == "" {
		return "", false, "", errors.New("session id is required")
	}
	return id, asHTML, out, nil
}

func runExport(ctx context.Context, args []string) error {
	id, asHTML, out, err := parseExportArgs(args)
	if err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		s, ok := a.orchestrator.Session(id)
		if !ok {
			return fmt.Errorf("exporting session %s: %w", id, mission.ErrSessionNotFound)
		}

		data := transcript.Markdown(s)
		if asHTML {
			data, err = transcript.HTML(s)
			if err != nil {
				return err
			}
		}

		if out == "" {
			_, err := os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("writing transcript: %w", err)
		}
		color.New(color.FgGreen).Printf("  ✓ Wrote %s\n", out)
		return nil
	})
}

func runDoctor(ctx context.Context) error {
	return withApp(ctx, func(a *app) error {
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)

		if _, err := os.Stat(a.configPath); err == nil {
			green.Print("  ✓ ")
			fmt.Printf("Config:    %s\n", a.configPath)
		} else {
			yellow.Print("  ! ")
			fmt.Printf("Config:    %s (not found, using defaults)\n", a.configPath)
		}
		green.Print("  ✓ ")
		fmt.Printf("Database:  %s\n", a.cfg.Database.Path)
		green.Print("  ✓ ")
		fmt.Printf("Transport: %s\n", transportName(a.cfg))

		token, err := a.creds.Load(ctx, credentials.TokenKey)
		if err != nil {
			return fmt.Errorf("loading gateway token: %w", err)
		}

		problems := 0
		profile := a.orchestrator.Profile()
		if verr := profile.Validate(true, token); verr != nil {
			issues := []string{verr.Error()}
			var ve *config.ValidationError
			if errors.As(verr, &ve) {
				issues = ve.Issues
			}
			for _, issue := range issues {
				red.Print("  ✗ ")
				fmt.Println(issue)
				problems++
			}
		} else {
			green.Print("  ✓ ")
			fmt.Printf("Profile:   %s (%s)\n", profile.Name, profile.NormalizedBaseURL())
		}

		if token != "" {
			info := credentials.Inspect(token, time.Now())
			switch {
			case !info.IsJWT:
				green.Print("  ✓ ")
				fmt.Println("Token:     opaque")
			case info.Expired:
				red.Print("  ✗ ")
				fmt.Printf("Token:     JWT for %q expired %s\n", info.Subject, info.ExpiresAt.Local().Format(timeFormat))
				problems++
			case info.ExpiresAt != nil:
				green.Print("  ✓ ")
				fmt.Printf("Token:     JWT for %q, expires %s\n", info.Subject, info.ExpiresAt.Local().Format(timeFormat))
			default:
				green.Print("  ✓ ")
				fmt.Printf("Token:     JWT for %q, no expiry\n", info.Subject)
			}
		}

		if problems > 0 {
			return fmt.Errorf("%d problem(s) found", problems)
		}
		return nil
	})
}
