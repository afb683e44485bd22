// Package logs reads the service log file for CLI display. It supports
// reading the last N lines of a file and resuming from a byte offset so a
// caller can poll for new lines without rereading the whole file.
package logs
