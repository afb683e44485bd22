// Package language defines the dubbing targets the pipeline can synthesize.
//
// Each supported language pairs an ISO 639-1 code with the neural voices used
// for synthesis. Display and native names come from golang.org/x/text so the
// registry only has to carry codes and voices.
package language
