// Package srt reads and writes SubRip subtitle files.
//
// Input bytes are decoded before parsing: a UTF-8 or UTF-16 byte order mark
// wins, valid UTF-8 is taken as-is, and anything else is decoded with a
// configurable legacy charset (GB18030 by default).
package srt
