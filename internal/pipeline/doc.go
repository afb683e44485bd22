// Package pipeline drives a dubbing job from URL to rendered output. Each
// job runs on its own goroutine through a fixed forward-only stage sequence,
// publishing progress snapshots through the job store as it goes. Stage
// collaborators are injected as interfaces so tests can run the full state
// machine against fakes.
package pipeline
