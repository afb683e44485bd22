// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size)
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//
// Helper methods cover what the dubbing pipeline asks of a source: container
// duration, presence of audio, frame rate (parsed from the r_frame_rate
// rational rather than truncated decimal strings), and sample rates.
package ffprobe
