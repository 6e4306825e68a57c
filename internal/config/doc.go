// Package config handles configuration loading for the zeeking client.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment variable
// expansion, then overridden from ZEEKING_* environment variables. Every key
// has a default, so the client runs without any file at all.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path given with --config
//  2. Path from ZEEKING_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/zeeking/config.yaml (~/.config/zeeking/config.yaml)
//
// Files ending in .toml are decoded as TOML; anything else is YAML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	api:
//	  base_url: "${ZEEKING_BACKEND}/api"
//
// # Environment Overrides
//
// After the file is decoded, these variables replace individual keys:
//
//	ZEEKING_API_BASE_URL, ZEEKING_API_TIMEOUT, ZEEKING_API_RETRIES
//	ZEEKING_STORAGE_PATH
//	ZEEKING_LOGGING_LEVEL, ZEEKING_LOGGING_FORMAT
//	ZEEKING_CHAT_ERROR_FALLBACK, ZEEKING_CHAT_DAILY_LIMIT
//
// # Example
//
//	api:
//	  base_url: "https://zeeking.example.com/api"
//	  timeout: "30s"
//	  retries: 2
//	  paths:
//	    advise: "advise/"
//
//	storage:
//	  path: "/var/lib/zeeking/zeeking.db"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	chat:
//	  daily_limit: 5000
package config
