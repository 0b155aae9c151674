package migrations

import "embed"

// FS holds the goose migrations for every supported storage driver, one directory per dialect.
//
//go:embed clickhouse/*.sql sqlite/*.sql
var FS embed.FS
