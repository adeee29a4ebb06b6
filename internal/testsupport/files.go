package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"resplice/internal/cue"
	"resplice/internal/srt"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteSRT renders cues as an SRT file at path.
func WriteSRT(t testing.TB, path string, cues ...cue.Cue) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := srt.WriteFile(path, cues); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
