// Package config handles configuration loading for coven-tutor.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. The file extension picks the decoder: ".toml" uses TOML, anything
// else YAML. Missing optional values receive defaults before validation.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${COVEN_TUTOR_JWT_SECRET}"
//
// Unset variables expand to an empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	model:
//	  timeout: "45s"
//	session:
//	  dedupe_ttl: "10m"
//
// # Configuration Sections
//
//	database:
//	  path: "./coven-tutor.db"     # required
//
//	model:
//	  provider: "gemini"           # echo (default) or gemini
//	  model: "gemini-2.0-flash"
//	  api_key: "${GEMINI_API_KEY}" # required for gemini
//	  timeout: "60s"
//
//	auth:
//	  jwt_secret: "${COVEN_TUTOR_JWT_SECRET}" # required
//
//	session:
//	  default_language: "Português"
//	  directory_limit: 50
//	  dedupe_ttl: "10m"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text or json
package config
