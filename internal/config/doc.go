// Package config handles configuration loading for roost.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults rooted at the XDG
// data directory.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from ROOST_CONFIG environment variable
//  2. ~/.config/roost/config.yaml
//
// A missing file is not an error; the defaults apply.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	daemon:
//	  http_addr: "${ROOST_HTTP_ADDR}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	api:
//	  timeout: "30s"
//	daemon:
//	  sync_interval: "2m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Database:
//
//	database:
//	  path: "~/.local/share/roost/roost.db"
//
// Login flow:
//
//	login:
//	  callback_port: 0      # 0 = ephemeral loopback port
//	  checkpoint_path: "~/.local/share/roost/login-checkpoint.toml"
//
// Sync daemon:
//
//	daemon:
//	  http_addr: "127.0.0.1:9470"
//	  sync_interval: "2m"
//	  max_pages: 25
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Metrics:
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
package config
