// Command resplice re-times a video so that the timing of one subtitle file
// lines up with another.
//
// Subcommands:
//
//	retime   cut, freeze and join the video to follow the target subtitles
//	plan     print the segment plan and per-cue report without touching media
//	analyze  compare two subtitle timelines cue by cue
//	batch    run a TOML manifest of retime tasks in parallel
//	history  list, show and prune recorded runs
//	check    verify ffmpeg, ffprobe and the configured directories
//	config   create or validate the configuration file
package main
