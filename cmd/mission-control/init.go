// ABOUTME: Interactive config writer for the mission-control CLI
// ABOUTME: Prompts for the gateway profile, storage, transport and logging settings

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/mission-control/internal/config"
	"github.com/2389/mission-control/internal/credentials"
	"github.com/2389/mission-control/internal/store"
)

func runInit(ctx context.Context) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("mission-control configuration setup")
	fmt.Println("===================================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", getConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		if !isYes(prompt(reader, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.Default(getDataPath())

	fmt.Println("\n--- Gateway Profile ---")
	cfg.Profile.Name = prompt(reader, "Profile name", cfg.Profile.Name)
	cfg.Profile.BaseURL = prompt(reader, "Gateway URL", "http://127.0.0.1:18789")
	cfg.Profile.DefaultSessionKey = prompt(reader, "Default session key", cfg.Profile.DefaultSessionKey)
	cfg.Profile.Model = prompt(reader, "Default model", cfg.Profile.Model)
	seconds, err := strconv.Atoi(prompt(reader, "Health polling interval (seconds)", strconv.Itoa(cfg.Profile.HealthPollingSeconds)))
	if err != nil {
		return fmt.Errorf("parsing polling interval: %w", err)
	}
	cfg.Profile.HealthPollingSeconds = seconds

	if err := cfg.Profile.Validate(false, ""); err != nil {
		return fmt.Errorf("validating profile: %w", err)
	}

	fmt.Println("\n--- Database Configuration ---")
	cfg.Database.Path = prompt(reader, "SQLite database path", cfg.Database.Path)

	fmt.Println("\n--- Tailscale Configuration ---")
	ts := &cfg.Transport.Tailscale
	ts.Enabled = isYes(prompt(reader, "Reach the gateway over a tailnet?", "no"))
	if ts.Enabled {
		ts.Hostname = prompt(reader, "Tailscale hostname", "mission-control")
		ts.AuthKey = prompt(reader, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		ts.Ephemeral = isYes(prompt(reader, "Ephemeral node?", "yes"))
	}

	fmt.Println("\n--- Logging Configuration ---")
	cfg.Logging.Level = prompt(reader, "Log level (debug/info/warn/error)", cfg.Logging.Level)
	cfg.Logging.Format = prompt(reader, "Log format (text/json)", cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	fmt.Println("\n--- Credentials ---")
	token := prompt(reader, fmt.Sprintf("Gateway token (leave empty to use $%s)", cfg.Credentials.TokenEnv), "")

	if err := config.Save(outputFile, cfg); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if token != "" {
		if err := saveToken(ctx, cfg.Database.Path, token); err != nil {
			return err
		}
	}

	green := color.New(color.FgGreen)
	green.Printf("\n  ✓ Config written to %s\n", outputFile)
	fmt.Printf("  Data directory: %s\n", filepath.Dir(cfg.Database.Path))
	if token != "" {
		green.Println("  ✓ Token stored in the database")
	}
	fmt.Println("\nNext steps:")
	fmt.Println("  mission-control doctor   # verify settings")
	fmt.Println("  mission-control health   # check the gateway")

	return nil
}

// saveToken stores the gateway token in the secrets table of the database.
func saveToken(ctx context.Context, dbPath, token string) error {
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	creds := credentials.New(credentials.Options{Secrets: s})
	return creds.Save(ctx, credentials.TokenKey, token)
}

func isYes(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "yes" || a == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
