package ffprobe

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

const probeJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1280, "height": 720,
     "pix_fmt": "yuv420p", "r_frame_rate": "25/1", "avg_frame_rate": "0/0"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000",
     "channels": 2, "channel_layout": "stereo"}
  ],
  "format": {"duration": "12.500000", "size": "2048", "format_name": "mov,mp4"}
}`

func TestInspectWithParsesOutput(t *testing.T) {
	var gotArgs []string
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != "ffprobe" {
			t.Fatalf("unexpected binary %q", name)
		}
		gotArgs = args
		return []byte(probeJSON), nil
	}
	result, err := InspectWith(context.Background(), run, "", "/tmp/in.mp4")
	if err != nil {
		t.Fatalf("InspectWith: %v", err)
	}
	if gotArgs[len(gotArgs)-1] != "/tmp/in.mp4" || gotArgs[len(gotArgs)-2] != "--" {
		t.Fatalf("path must follow --, got %v", gotArgs)
	}
	if result.Duration() != 12500*time.Millisecond {
		t.Fatalf("unexpected duration %s", result.Duration())
	}
	info := result.StreamInfo()
	if info.VideoCodec != "h264" || info.Width != 1280 || info.FrameRate != "25/1" {
		t.Fatalf("unexpected video info %+v", info)
	}
	if !info.HasAudio || info.SampleRate != 48000 || info.Channels != 2 {
		t.Fatalf("unexpected audio info %+v", info)
	}
}

func TestInspectWithPropagatesErrors(t *testing.T) {
	run := func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}
	if _, err := InspectWith(context.Background(), run, "ffprobe", "x.mp4"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := InspectWith(context.Background(), run, "ffprobe", " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.Duration() != 0 {
		t.Fatalf("expected zero duration, got %s", result.Duration())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if info := result.StreamInfo(); info.HasAudio || info.VideoCodec != "" {
		t.Fatalf("expected empty stream info, got %+v", info)
	}
}
