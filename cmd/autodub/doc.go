// Package main hosts the autodub CLI entrypoint and command graph.
//
// The Cobra-based command tree starts the dubbing service, verifies the
// external toolchain, lists archived jobs, tails logs, and scaffolds
// configuration. It centralizes configuration resolution and logging setup so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
