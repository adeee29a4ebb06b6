// Package media holds the types shared by the splice executor and the
// media-toolchain adapters: execution modes, clips, and stream parameters.
package media

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Mode selects how cuts are made.
type Mode string

const (
	// ModeStreamCopy cuts encoded data without re-encoding. Boundaries snap
	// to keyframes.
	ModeStreamCopy Mode = "stream-copy"
	// ModePrecise re-encodes at cut boundaries for frame accuracy.
	ModePrecise Mode = "precise"
)

// ParseMode resolves a mode name.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "stream-copy", "streamcopy", "copy", "fast", "":
		return ModeStreamCopy, nil
	case "precise", "accurate", "reencode":
		return ModePrecise, nil
	default:
		return "", fmt.Errorf("unknown execution mode %q", value)
	}
}

// Tolerance is the per-op duration error a mode may introduce.
func (m Mode) Tolerance() time.Duration {
	if m == ModePrecise {
		return 50 * time.Millisecond
	}
	return 2 * time.Second
}

// Embed selects how the retimed subtitles travel with the output.
type Embed string

const (
	EmbedNone Embed = "none"
	// EmbedSoft adds the subtitles as a selectable track.
	EmbedSoft Embed = "soft"
	// EmbedHard burns the subtitles into the picture. The video is re-encoded.
	EmbedHard Embed = "hard"
)

// ParseEmbed resolves an embed name. Empty means none.
func ParseEmbed(value string) (Embed, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none", "off", "":
		return EmbedNone, nil
	case "soft", "track":
		return EmbedSoft, nil
	case "hard", "burn", "burn-in":
		return EmbedHard, nil
	default:
		return "", fmt.Errorf("unknown subtitle embed mode %q", value)
	}
}

// MuxRequest describes a subtitle embedding run.
type MuxRequest struct {
	Video     string
	Subtitles string
	Output    string
	Embed     Embed
	// Language is the ISO 639-2 tag of a soft track.
	Language string
}

// Clip is a media file produced inside a task workspace.
type Clip struct {
	Path     string
	Duration time.Duration
}

// StreamInfo describes the parameters that must agree for two clips to be
// concatenated without re-encoding.
type StreamInfo struct {
	VideoCodec    string
	Width         int
	Height        int
	PixelFormat   string
	FrameRate     string
	HasAudio      bool
	AudioCodec    string
	SampleRate    int
	Channels      int
	ChannelLayout string
}

// Mismatch returns a description of the first parameter that differs, or ""
// when the two streams can be concatenated.
func (s StreamInfo) Mismatch(other StreamInfo) string {
	switch {
	case !strings.EqualFold(s.VideoCodec, other.VideoCodec):
		return fmt.Sprintf("video codec %s vs %s", s.VideoCodec, other.VideoCodec)
	case s.Width != other.Width || s.Height != other.Height:
		return fmt.Sprintf("resolution %dx%d vs %dx%d", s.Width, s.Height, other.Width, other.Height)
	case s.PixelFormat != "" && other.PixelFormat != "" && s.PixelFormat != other.PixelFormat:
		return fmt.Sprintf("pixel format %s vs %s", s.PixelFormat, other.PixelFormat)
	case s.HasAudio != other.HasAudio:
		return fmt.Sprintf("audio present %t vs %t", s.HasAudio, other.HasAudio)
	case s.HasAudio && !strings.EqualFold(s.AudioCodec, other.AudioCodec):
		return fmt.Sprintf("audio codec %s vs %s", s.AudioCodec, other.AudioCodec)
	case s.HasAudio && s.SampleRate != other.SampleRate:
		return fmt.Sprintf("sample rate %d vs %d", s.SampleRate, other.SampleRate)
	case s.HasAudio && s.Channels != other.Channels:
		return fmt.Sprintf("channels %d vs %d", s.Channels, other.Channels)
	}
	return ""
}

// Handle is a media source rooted in a task workspace. Every file it
// produces lives in that workspace.
type Handle interface {
	Path() string
	// Probe returns the container duration.
	Probe(ctx context.Context) (time.Duration, error)
	Streams(ctx context.Context) (StreamInfo, error)
	// Extract cuts [start, end) into a new clip.
	Extract(ctx context.Context, start, end time.Duration, mode Mode) (Clip, error)
	// ExtractFrame writes the frame at ts to an image file and returns its path.
	ExtractFrame(ctx context.Context, ts time.Duration) (string, error)
	// Freeze renders a still image as a clip of exactly length, encoded to
	// match like. Audio, when like has it, is silent.
	Freeze(ctx context.Context, frame string, length time.Duration, like StreamInfo) (Clip, error)
	Concat(ctx context.Context, clips []Clip, mode Mode) (Clip, error)
	// Reopen returns a handle over a clip produced by this handle.
	Reopen(clip Clip) Handle
}
