package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\necho \"present version 1.2\"\necho second line\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	broken := filepath.Join(binDir, "broken")
	if err := os.WriteFile(broken, []byte("#!/bin/sh\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present, VersionArg: "-version"},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Broken", Command: broken, VersionArg: "-version"},
		{Name: "Unset"},
	}

	results := CheckBinaries(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available || results[0].Version != "present version 1.2" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Command != "clearly-not-present-binary" || results[1].Detail == "" {
		t.Fatalf("unexpected missing status %#v", results[1])
	}

	if results[2].Available || results[2].Detail == "" {
		t.Fatalf("expected failing version probe to mark binary unavailable, got %#v", results[2])
	}
	if results[3].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", results[3].Detail)
	}
}

func TestMediaToolchain(t *testing.T) {
	reqs := MediaToolchain("/opt/ffmpeg", "ffprobe")
	if len(reqs) != 2 || reqs[0].Command != "/opt/ffmpeg" || reqs[1].Command != "ffprobe" {
		t.Fatalf("unexpected requirements %#v", reqs)
	}
}
