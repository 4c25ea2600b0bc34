package postgres

import _ "embed"

// Schema is the full DDL for the coordinator's tables.
//
//go:embed schema.sql
var Schema string
