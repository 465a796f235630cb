// Package catalog persists the media inventory in SQLite: discovered
// assets, duplicate groups and their members, pending deletions, the
// append-only archive-operation log, and scan-run records. The catalog is
// the single source of truth; every mutation runs inside an explicit
// transaction or a single autocommitted statement.
package catalog
