// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the route planner API server.

The server turns an electoral register CSV into a door-to-door walking route:
streets in a chosen order, odd house numbers up one side and even numbers back
down the other, optionally split among canvassers or pairs of canvassers.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=route.db ADMIN_KEY_SALT=... WALK_SLUG_SALT=... go run .

Or with flags:

	go run . -p 3318 -d route.db --admin-salt ... --slug-salt ...

Variables in a .env file in the working directory are loaded first; the
process environment and then flags override them.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC
  - WALK_SLUG_SALT (--slug-salt): Secret for walk sheet slugs

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - BASE_URL (--base-url): Public URL used in walk links
  - IP_HASH_SALT: Salt for uploader IP hashes (default: ADMIN_KEY_SALT)
  - MAX_UPLOAD_BYTES, MAX_ROWS: Register upload limits
  - OTEL_ENDPOINT: OTLP/HTTP collector URL; tracing is off when empty

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (canvasses, team, plan, exports)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, tracing, JSON helpers
  - models: Request/response types
  - register: Electoral register parsing
  - planner: Route sequencing and canvasser assignment
  - export: App CSV, reports and bundles
  - auth: Key and slug generation and validation
  - db: Driver selection and schema creation
  - cliparse: Configuration parsing
  - telemetry: OpenTelemetry setup

The cmd/routeplan command runs the same planning pipeline offline.

See package documentation for each component.
*/
package main
