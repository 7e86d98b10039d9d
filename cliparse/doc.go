// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: SQLite path or PostgreSQL connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - AdminKeySalt: Secret for admin key HMAC (required)
  - WalkSlugSalt: Secret for walk sheet slugs (required)
  - IPHashSalt: Secret for uploader IP hashes (default: AdminKeySalt)
  - MaxUploadBytes: Largest accepted register upload (default: 10 MiB)
  - MaxRows: Largest accepted register, in rows (default: 50000)
  - BaseURL: Prefix for walk sheet links
  - OTelEndpoint: OTLP/HTTP endpoint; tracing is off when empty

# CLI Flags

	-p           Server port
	-d           Database URL
	-t           Database type
	-base-url    Public base URL
	-env-file    Dotenv file to load (default: .env)
	-admin-salt  Admin key salt
	-slug-salt   Walk slug salt

# Environment Variables

Values are read from the environment with caarlos0/env, after a dotenv file
(if present) has been loaded with godotenv. Variables already set in the
environment win over the file.

	PORT, DATABASE_URL, DATABASE_TYPE, ADMIN_KEY_SALT, WALK_SLUG_SALT,
	IP_HASH_SALT, MAX_UPLOAD_BYTES, MAX_ROWS, BASE_URL, OTEL_ENDPOINT

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if required values are missing or invalid:

  - DATABASE_URL must be provided
  - DATABASE_TYPE must be sqlite or postgres
  - ADMIN_KEY_SALT must be provided
  - WALK_SLUG_SALT must be provided
*/
package cliparse
