// Package history persists terminal job snapshots in SQLite so completed and
// failed jobs remain inspectable after a restart. The live registry stays in
// memory; the archive only ever sees terminal states.
package history
