// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//
// Inspect executes ffprobe and returns a parsed Result; InspectWith accepts a
// Runner so callers can substitute canned output in tests. Helper methods on
// Result expose durations, the primary streams, and concat-relevant stream
// parameters.
package ffprobe
