// Package journal records run history in a SQLite database: one row per
// pipeline invocation plus one row per processed track, so past runs can be
// inspected after the fact.
package journal
