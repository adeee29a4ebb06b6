package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"resplice/internal/config"
	"resplice/internal/testsupport"
)

const originalSRT = `1
00:00:00,000 --> 00:00:02,000
Hello there

2
00:00:10,000 --> 00:00:12,000
General Kenobi

3
00:00:20,000 --> 00:00:22,000
You are a bold one
`

const targetSRT = `1
00:00:00,000 --> 00:00:02,000
Hello there

2
00:00:08,000 --> 00:00:10,000
General Kenobi

3
00:00:21,000 --> 00:00:23,000
You are a bold one
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	original   string
	target     string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"
	base := testsupport.BaseDir(cfg)

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(base, "config.toml"),
		baseDir:    base,
		original:   filepath.Join(base, "original.srt"),
		target:     filepath.Join(base, "target.srt"),
	}
	writeTestConfig(t, env.configPath, cfg)
	testsupport.WriteFile(t, env.original, originalSRT)
	testsupport.WriteFile(t, env.target, targetSRT)
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, out, substr string) {
	t.Helper()
	if !strings.Contains(out, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, out)
	}
}

func TestCLIConfigInitAndValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", path}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", path}, ""); err == nil {
		t.Fatal("expected config init to refuse to overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", path, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	env := setupCLITestEnv(t)
	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)
}

func TestCLIConfigValidateRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	testsupport.WriteFile(t, path, "[matching]\nstrategy = \"text-similarity\"\nbogus = 1\n")

	_, _, err := runCLI(t, []string{"config", "validate"}, path)
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected load config error, got %v", err)
	}
}

func TestCLIPlanJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"plan", "--original", env.original, "--target", env.target, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	var payload struct {
		Plan struct {
			Strategy string `json:"strategy"`
			Ops      []struct {
				Kind string `json:"kind"`
			} `json:"ops"`
		} `json:"plan"`
		Report struct {
			Matched   int `json:"matched"`
			Unmatched int `json:"unmatched"`
		} `json:"report"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode plan output: %v\n%s", err, out)
	}
	if payload.Plan.Strategy != "text-similarity" {
		t.Fatalf("strategy = %q", payload.Plan.Strategy)
	}
	if payload.Report.Matched != 3 || payload.Report.Unmatched != 0 {
		t.Fatalf("matched/unmatched = %d/%d", payload.Report.Matched, payload.Report.Unmatched)
	}
	if len(payload.Plan.Ops) == 0 {
		t.Fatal("expected ops in plan")
	}
}

func TestCLIPlanCumulativeTable(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"plan", "--original", env.original, "--target", env.target, "--strategy", "cumulative"}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "Strategy: cumulative")
	requireContains(t, out, "Final offset:")
	requireContains(t, out, "trim")
	requireContains(t, out, "freeze")
}

func TestCLIPlanRejectsUnknownStrategy(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"plan", "--original", env.original, "--target", env.target, "--strategy", "telepathy"}, env.configPath)
	if err == nil {
		t.Fatal("expected unknown strategy to fail")
	}
}

func TestCLIAnalyze(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"analyze", "--original", env.original, "--target", env.target}, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	requireContains(t, out, "Compared 3 cues (original 3, target 3)")
	requireContains(t, out, "Cues shifted by more than 0.5s: 2")
	requireContains(t, out, "-2.000")

	out, _, err = runCLI(t, []string{"analyze", "--original", env.original, "--target", env.target, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("analyze --json: %v", err)
	}
	requireContains(t, out, `"compared_count": 3`)
	requireContains(t, out, `"start_diff": -2`)
}

func TestCLIAnalyzeMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"analyze", "--original", filepath.Join(env.baseDir, "nope.srt"), "--target", env.target}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "original subtitles") {
		t.Fatalf("expected original subtitles error, got %v", err)
	}
}

func TestCLIRetimeFailureIsRecorded(t *testing.T) {
	env := setupCLITestEnv(t)
	video := filepath.Join(env.baseDir, "missing.mkv")

	out, _, err := runCLI(t, []string{"retime", video, "--original", env.original, "--target", env.target}, env.configPath)
	if err == nil {
		t.Fatal("expected retime of a missing video to fail")
	}
	requireContains(t, out, "Status: review")

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "review")
	requireContains(t, out, video)

	out, _, err = runCLI(t, []string{"history", "list", "--json", "--status", "succeeded"}, env.configPath)
	if err != nil {
		t.Fatalf("history list --status: %v", err)
	}
	requireContains(t, out, "[]")
}

func TestCLIRetimeRejectsUnknownEmbed(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithEmbed("soft"))

	_, _, err := runCLI(t, []string{"retime", filepath.Join(env.baseDir, "a.mkv"),
		"--original", env.original, "--target", env.target, "--embed", "sidecar"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--embed") {
		t.Fatalf("expected --embed error, got %v", err)
	}

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate with soft embed: %v", err)
	}
	requireContains(t, out, "valid")
}

func TestCLIHistoryEmptyAndPrune(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	out, _, err = runCLI(t, []string{"history", "prune", "--older-than", "7d"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Pruned 0 runs")

	if _, _, err := runCLI(t, []string{"history", "show", "deadbeef"}, env.configPath); err == nil {
		t.Fatal("expected show of unknown id to fail")
	}
}

func TestCLICheck(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "ffmpeg")
	requireContains(t, out, "ffprobe")
	if strings.Contains(out, "FAIL") {
		t.Fatalf("unexpected failing check:\n%s", out)
	}
}

func TestCLIBatchRejectsInvalidManifest(t *testing.T) {
	env := setupCLITestEnv(t)
	manifest := filepath.Join(env.baseDir, "batch.toml")
	testsupport.WriteFile(t, manifest, "[[task]]\nvideo = \"a.mkv\"\noriginal = \"a.srt\"\n")

	_, _, err := runCLI(t, []string{"batch", manifest}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "task[0].target is required") {
		t.Fatalf("expected manifest validation error, got %v", err)
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30d", want: 30 * 24 * time.Hour},
		{in: "12h", want: 12 * time.Hour},
		{in: " 0d ", want: 0},
		{in: "-1h", wantErr: true},
		{in: "xd", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseAge(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseAge(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseAge(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestRenderTSVWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, []string{"A", "B"}, [][]string{{"1", "2"}}, nil)
	if got := buf.String(); got != "A\tB\n1\t2\n" {
		t.Fatalf("printTable = %q", got)
	}
	if rendered := renderTable([]string{"A"}, [][]string{{"x"}}, nil); !strings.Contains(rendered, "╭") {
		t.Fatalf("expected rounded table, got %q", rendered)
	}
}
