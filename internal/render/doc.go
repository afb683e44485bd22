// Package render executes the ffmpeg side of the pipeline: fitting
// synthesized clips into their slots, generating the shared silence base,
// writing the concat list and optional subtitles, and muxing the dubbed
// audio back under the original video stream.
package render
