// ABOUTME: Gateway connection profile with defaults and validation
// ABOUTME: Validation collects every issue in a fixed order for display

package config

import (
	"fmt"
	"strings"
)

// Profile defaults.
const (
	DefaultProfileName          = "Default"
	DefaultSessionKey           = "agent:main:main"
	DefaultModel                = "openai-codex/gpt-5.3-codex"
	DefaultHealthPollingSeconds = 20
)

// Profile describes how to reach one gateway.
type Profile struct {
	Name                 string `yaml:"name" toml:"name" json:"name"`
	BaseURL              string `yaml:"base_url" toml:"base_url" json:"baseURL"`
	DefaultSessionKey    string `yaml:"default_session_key" toml:"default_session_key" json:"defaultSessionKey"`
	Model                string `yaml:"model" toml:"model" json:"model"`
	HealthPollingSeconds int    `yaml:"health_polling_seconds" toml:"health_polling_seconds" json:"healthPollingSeconds"`
}

// DefaultProfile returns a profile with every default applied and no URL.
func DefaultProfile() Profile {
	return Profile{
		Name:                 DefaultProfileName,
		DefaultSessionKey:    DefaultSessionKey,
		Model:                DefaultModel,
		HealthPollingSeconds: DefaultHealthPollingSeconds,
	}
}

// NormalizedBaseURL is the base URL without surrounding whitespace or
// trailing slashes.
func (p Profile) NormalizedBaseURL() string {
	return strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
}

// ValidationError lists every problem found with a profile.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "invalid profile"
	case 1:
		return e.Issues[0]
	default:
		return fmt.Sprintf("%s (and %d more)", e.Issues[0], len(e.Issues)-1)
	}
}

// First returns the first issue, which is the one shown to users.
func (e *ValidationError) First() string {
	if len(e.Issues) == 0 {
		return ""
	}
	return e.Issues[0]
}

// Validate checks the profile before use. When requireToken is set the
// token must be non-blank. It returns nil or a *ValidationError.
func (p Profile) Validate(requireToken bool, token string) error {
	var issues []string

	baseURL := p.NormalizedBaseURL()
	lower := strings.ToLower(baseURL)
	switch {
	case baseURL == "":
		issues = append(issues, "Gateway URL is required.")
	case !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://"):
		issues = append(issues, "Gateway URL must start with http:// or https://")
	}

	if requireToken && strings.TrimSpace(token) == "" {
		issues = append(issues, "Gateway token is required.")
	}

	if strings.TrimSpace(p.Model) == "" {
		issues = append(issues, "Default model cannot be empty.")
	}

	if strings.TrimSpace(p.DefaultSessionKey) == "" {
		issues = append(issues, "Default session key cannot be empty.")
	}

	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}
