// Package ffmpeg implements media.Handle on top of the ffmpeg and ffprobe
// command-line tools.
//
// A Toolchain carries binaries, encoder settings, and the command runners;
// Open binds it to a source file and a workspace directory. Every clip,
// frame, and concat list the handle produces is written into that workspace,
// so removing the directory cleans up after a task. Command runners are
// injectable so tests can exercise argument construction without ffmpeg.
package ffmpeg
