// Package server exposes the dubbing pipeline over HTTP: job submission,
// live progress streaming over SSE, artifact download, and health checks.
// The server enforces single-instance execution with a lock file so two
// daemons never share the staging area.
package server
