package media

import (
	"testing"
	"time"
)

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":            ModeStreamCopy,
		"stream-copy": ModeStreamCopy,
		"Precise":     ModePrecise,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("lossless"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestParseEmbed(t *testing.T) {
	tests := map[string]Embed{
		"":        EmbedNone,
		"none":    EmbedNone,
		"Soft":    EmbedSoft,
		"burn-in": EmbedHard,
	}
	for in, want := range tests {
		got, err := ParseEmbed(in)
		if err != nil || got != want {
			t.Fatalf("ParseEmbed(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseEmbed("sidecar"); err == nil {
		t.Fatal("expected error for unknown embed mode")
	}
}

func TestTolerance(t *testing.T) {
	if ModePrecise.Tolerance() >= ModeStreamCopy.Tolerance() {
		t.Fatal("precise mode must be tighter than stream copy")
	}
	if ModeStreamCopy.Tolerance() != 2*time.Second {
		t.Fatalf("unexpected stream copy tolerance %s", ModeStreamCopy.Tolerance())
	}
}

func TestMismatch(t *testing.T) {
	base := StreamInfo{VideoCodec: "h264", Width: 1920, Height: 1080, PixelFormat: "yuv420p", HasAudio: true, AudioCodec: "aac", SampleRate: 48000, Channels: 2}
	if m := base.Mismatch(base); m != "" {
		t.Fatalf("expected identical streams to match, got %q", m)
	}
	other := base
	other.Width = 1280
	if m := base.Mismatch(other); m == "" {
		t.Fatal("expected resolution mismatch")
	}
	other = base
	other.HasAudio = false
	if m := base.Mismatch(other); m == "" {
		t.Fatal("expected audio presence mismatch")
	}
	other = base
	other.PixelFormat = ""
	if m := base.Mismatch(other); m != "" {
		t.Fatalf("unknown pixel format should not mismatch, got %q", m)
	}
}
