// Package jobs is the in-memory registry of dubbing jobs: the single source
// of truth for job state. Mutations go through the store so readers only ever
// observe fully-applied snapshots, and streaming readers can subscribe to
// change notifications instead of polling blindly.
package jobs
