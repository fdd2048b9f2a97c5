// Package config handles configuration loading for mission-control.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment variable
// expansion. The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from MISSION_CONTROL_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/mission-control/config.yaml
//  3. ~/.config/mission-control/config.yaml
//
// A path ending in .toml is parsed as TOML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	transport:
//	  tailscale:
//	    auth_key: "${TS_AUTHKEY}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Gateway profile:
//
//	profile:
//	  name: "Default"
//	  base_url: "http://127.0.0.1:18789"
//	  default_session_key: "agent:main:main"
//	  model: "openai-codex/gpt-5.3-codex"
//	  health_polling_seconds: 20
//
// Database:
//
//	database:
//	  path: "~/.local/share/mission-control/mission-control.db"
//
// Transport:
//
//	transport:
//	  request_timeout: "30s"   # unary calls only, streams are unbounded
//	  session_limit: 100
//	  tailscale:
//	    enabled: false
//	    hostname: "mission-control"
//	    auth_key: "${TS_AUTHKEY}"
//
// Credentials:
//
//	credentials:
//	  token_env: "OPENCLAW_TOKEN"
//	  token_file: "~/.config/mission-control/token"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates the file's structure. The profile is validated separately
// by Profile.Validate, which returns a *ValidationError listing every issue in
// a fixed order; the first issue is the one shown to users.
package config
