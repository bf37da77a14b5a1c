// Package config handles configuration loading for socialcore.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion. Missing optional values receive defaults before validation.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from SOCIALCORE_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/socialcore/config.yaml
//  3. ~/.config/socialcore/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	sso:
//	  token_key: "${SOCIALCORE_SSO_KEY}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
//	database:
//	  path: "/var/lib/socialcore/graph.db"
//	  driver: "sqlite"              # sqlite (pure Go) or sqlite3 (cgo)
//
//	sso:
//	  token_key: "${SOCIALCORE_SSO_KEY}"  # 64 hex chars; empty disables SSO
//
//	founder:
//	  username: "founder"
//	  email: "founder@example.com"
//	  password: "${SOCIALCORE_FOUNDER_PASSWORD}"
//
//	session:
//	  mode: "cookie"                # cookie, token, both
//	  keys: ["${SOCIALCORE_COOKIE_KEY}"]
//	  max_age: 2592000
//	  secure: true
//
//	auth:
//	  jwt_secret: "${SOCIALCORE_JWT_SECRET}"  # required for token sessions
//	  token_ttl: "24h"
//
//	admin:
//	  mode: "hash"                  # hash, role, either
//
//	passcode:
//	  backend: "memory"             # memory, file, redis
//	  dir: "/var/lib/socialcore/reminders"
//	  redis_url: "redis://localhost:6379/0"
//	  validity: "7m"
//	  retention: "8m"
//	  single_use: false
//
//	mail:
//	  host: "smtp.example.com:465"  # empty logs messages instead of sending
//	  user: "postmaster"
//	  password: "${SOCIALCORE_SMTP_PASSWORD}"
//	  from_address: "noreply@example.com"
//
//	logging:
//	  level: "info"                 # debug, info, warn, error
//	  format: "text"                # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// Durations use time.ParseDuration syntax.
package config
