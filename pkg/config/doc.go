// Package config loads labstock's configuration.
//
// # Overview
//
// Configuration is assembled in layers, each overriding the previous one:
//
//  1. built-in defaults (Default)
//  2. the YAML file named by LABSTOCK_CONFIG
//  3. a .env file in the working directory
//  4. LABSTOCK_* environment variables
//
// The result is validated and then treated as immutable: handlers receive a
// *Config and never re-read the environment.
//
// # Environment
//
// Server settings:
//
//	LABSTOCK_HOST="0.0.0.0"
//	LABSTOCK_PORT="8080"
//	LABSTOCK_REQUEST_TIMEOUT="10s"
//
// Database settings:
//
//	LABSTOCK_DB_DRIVER="postgres"  # postgres, sqlite3
//	LABSTOCK_DB_URL="postgres://localhost/labstock?sslmode=disable"
//	LABSTOCK_DB_MAX_CONNS="20"
//
// Sign-in settings:
//
//	LABSTOCK_SIGNIN_LIMIT_BACKEND="redis"  # memory, redis
//	LABSTOCK_REDIS_URL="redis://localhost:6379/0"
//	LABSTOCK_SESSION_IDLE_TIMEOUT="72h"
//
// Observability settings:
//
//	LABSTOCK_LOG_LEVEL="info"  # debug, info, warn, error
//	LABSTOCK_OTEL_ENABLED="true"
//	LABSTOCK_OTEL_ENDPOINT="otel-collector:4317"
//
// # YAML
//
// Capability names and error message text are usually set from the file:
//
//	permissions:
//	  user_manage: user.manage
//	  item_add: inventory.add
//	messages:
//	  forbidden: "You are not allowed to do that."
package config
