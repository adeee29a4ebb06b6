package srt_test

import (
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	"resplice/internal/cue"
	"resplice/internal/srt"
)

const sample = "1\r\n00:00:01,000 --> 00:00:02,500\r\nHello\r\nthere\r\n\r\n" +
	"garbage block\r\n\r\n" +
	"2\r\n00:00:03.250 --> 00:00:04,000 X1:10 X2:20\r\nBye\r\n"

func TestParseHandlesCRLFAndMalformedBlocks(t *testing.T) {
	text, err := srt.Decode([]byte(sample), "")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cues := srt.Parse(text)
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if cues[0].Start != time.Second || cues[0].End != 2500*time.Millisecond {
		t.Fatalf("unexpected first cue timing: %v", cues[0])
	}
	if cues[0].Text != "Hello\nthere" {
		t.Fatalf("unexpected first cue text %q", cues[0].Text)
	}
	if cues[1].Start != 3250*time.Millisecond || cues[1].End != 4*time.Second {
		t.Fatalf("unexpected second cue timing: %v", cues[1])
	}
}

func TestParseTimestampRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "00:01", "aa:00:00,000", "00:00:00"} {
		if _, err := srt.ParseTimestamp(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00,000"},
		{-time.Second, "00:00:00,000"},
		{3723*time.Second + 45*time.Millisecond, "01:02:03,045"},
	}
	for _, tt := range tests {
		if got := srt.FormatTimestamp(tt.in); got != tt.want {
			t.Fatalf("FormatTimestamp(%s) = %q want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.srt")
	in := []cue.Cue{
		{Index: 1, Start: 0, End: 1500 * time.Millisecond, Text: "one"},
		{Index: 2, Start: 2 * time.Second, End: 3 * time.Second, Text: "two"},
	}
	if err := srt.WriteFile(path, in); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	out, err := srt.ReadFile(path, "")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d cues, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("cue %d = %v want %v", i, out[i], in[i])
		}
	}
}

func TestDecodeUTF16WithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, err := enc.Bytes([]byte("1\n00:00:00,000 --> 00:00:01,000\nhé\n"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	text, err := srt.Decode(data, "")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cues := srt.Parse(text)
	if len(cues) != 1 || cues[0].Text != "hé" {
		t.Fatalf("unexpected cues %v", cues)
	}
}

func TestDecodeFallsBackToLegacyCharset(t *testing.T) {
	data, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte("你好"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	text, err := srt.Decode(data, "gb18030")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if text != "你好" {
		t.Fatalf("Decode = %q", text)
	}
}

func TestValidEncoding(t *testing.T) {
	if !srt.ValidEncoding("windows-1252") {
		t.Fatal("expected windows-1252 to resolve")
	}
	if srt.ValidEncoding("not-a-charset") {
		t.Fatal("expected unknown charset to be rejected")
	}
}
