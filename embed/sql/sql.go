package sql

import _ "embed"

// Schema is the SQLite schema applied by db.Init.
//
//go:embed schema.sql
var Schema string

// PostgresSchema is the equivalent schema for the Postgres task store.
//
//go:embed postgres.sql
var PostgresSchema string
