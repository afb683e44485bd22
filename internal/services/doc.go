// Package services holds the shared plumbing for external collaborator
// wrappers: the error taxonomy used to classify stage failures, context
// annotations for correlation, and the retry helper for transient calls.
package services
