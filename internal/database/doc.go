// Package database stores audit history in SQLite.
//
// AuditDB keeps every saved audit as a JSON document together with the
// columns needed by history listings (host, start time, scores, page
// counts) and a per-page snapshot table used for trend queries. The
// schema is versioned with goose migrations embedded in the binary and
// applied on Open.
//
// The driver is modernc.org/sqlite, so the database needs no cgo and is
// a single file under the configured data directory.
package database
