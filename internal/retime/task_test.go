package retime_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"resplice/internal/config"
	"resplice/internal/cue"
	"resplice/internal/history"
	"resplice/internal/logging"
	"resplice/internal/retime"
	"resplice/internal/media"
	"resplice/internal/services"
	"resplice/internal/srt"
	"resplice/internal/testsupport"
)

func sec(s float64) time.Duration { return cue.Seconds(s) }

type fixture struct {
	cfg    *config.Config
	fm     *testsupport.FakeMedia
	store  *history.Store
	runner *retime.Runner
	dir    string
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	fm, _ := testsupport.NewFakeMedia(t, sec(1))
	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return &fixture{
		cfg:    cfg,
		fm:     fm,
		store:  store,
		runner: retime.New(cfg, logging.NewNop(), retime.WithHistory(store), retime.WithOpener(fm.Open), retime.WithMuxer(fm)),
		dir:    testsupport.BaseDir(cfg),
	}
}

func (f *fixture) video(name string, d time.Duration) string {
	path := filepath.Join(f.dir, name)
	f.fm.WriteSource(path, d)
	return path
}

func (f *fixture) subtitles(t *testing.T, name string, cues ...cue.Cue) string {
	t.Helper()
	return testsupport.WriteSRT(t, filepath.Join(f.dir, name), cues...)
}

func (f *fixture) assertWorkDirEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("workspace not cleaned up: %v", entries)
	}
}

func mk(index int, start, end float64, text string) cue.Cue {
	return cue.Cue{Index: index, Start: sec(start), End: sec(end), Text: text}
}

func TestRunCumulativeStrategy(t *testing.T) {
	f := newFixture(t, nil)
	video := f.video("episode.mkv", sec(30))
	original := f.subtitles(t, "orig.srt", mk(1, 0, 2, "a"), mk(2, 10, 12, "b"), mk(3, 20, 22, "c"))
	target := f.subtitles(t, "target.srt", mk(1, 0, 2, "a"), mk(2, 8, 10, "b"), mk(3, 21, 23, "c"))

	res, err := f.runner.Run(context.Background(), retime.Request{
		Video: video, Original: original, Target: target, Strategy: "cumulative",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != history.StatusSucceeded {
		t.Fatalf("status = %s", res.Status)
	}
	if want := filepath.Join(f.cfg.Paths.OutputDir, "episode.resplice.mkv"); res.Output != want {
		t.Fatalf("output = %s, want %s", res.Output, want)
	}
	if got, want := testsupport.Describe(t, res.Output), "src:0-8 src:10-20 freeze@18:0-3 src:20-30"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
	if res.Artifact == nil || res.Artifact.FinalOffset != sec(1) || res.Artifact.Realized != sec(31) {
		t.Fatalf("unexpected artifact %+v", res.Artifact)
	}

	saved, err := retime.ReadReport(res.ReportPath)
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}
	if saved.TaskID != res.TaskID || len(saved.Report.Cues) != 3 {
		t.Fatalf("unexpected saved report %+v", saved)
	}

	run, err := f.store.Get(context.Background(), res.TaskID)
	if err != nil {
		t.Fatalf("history Get: %v", err)
	}
	if run.Status != history.StatusSucceeded || run.OpCount != 2 || run.Realized != sec(31) || len(run.Cues) != 3 {
		t.Fatalf("unexpected history run %+v", run)
	}
	f.assertWorkDirEmpty(t)
}

func TestRunCumulativeAlreadyAligned(t *testing.T) {
	for _, allowEmpty := range []bool{true, false} {
		t.Run(fmt.Sprintf("allow_empty=%t", allowEmpty), func(t *testing.T) {
			f := newFixture(t, func(cfg *config.Config) {
				cfg.Plan.AllowEmpty = allowEmpty
			})
			video := f.video("aligned.mkv", sec(30))
			original := f.subtitles(t, "orig.srt", mk(1, 0, 2, "a"), mk(2, 10, 12, "b"))
			target := f.subtitles(t, "target.srt", mk(1, 0, 2, "a"), mk(2, 10.2, 12.2, "b"))

			res, err := f.runner.Run(context.Background(), retime.Request{
				Video: video, Original: original, Target: target, Strategy: "cumulative",
			})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if res.Status != history.StatusSucceeded {
				t.Fatalf("status = %s", res.Status)
			}
			if res.Report.Matched != 2 || res.Report.Unmatched != 0 {
				t.Fatalf("unexpected report %+v", res.Report)
			}
			if res.Artifact == nil || res.Artifact.Versions != 0 || res.Artifact.FinalOffset != 0 {
				t.Fatalf("unexpected artifact %+v", res.Artifact)
			}
			if got := testsupport.Describe(t, res.Output); got != "src:0-30" {
				t.Fatalf("output = %q", got)
			}
			if _, err := os.Stat(video); err != nil {
				t.Fatalf("source must survive: %v", err)
			}
			f.assertWorkDirEmpty(t)
		})
	}
}

func TestRunEmbedsSubtitles(t *testing.T) {
	tests := []struct {
		name     string
		embed    media.Embed
		strategy string
		video    string
		original []cue.Cue
		target   []cue.Cue
		output   string
		subs     []cue.Cue
	}{
		{
			name:     "cumulative soft track",
			embed:    media.EmbedSoft,
			strategy: "cumulative",
			video:    "episode.mkv",
			original: []cue.Cue{mk(1, 0, 2, "a"), mk(2, 10, 12, "b"), mk(3, 20, 22, "c")},
			target:   []cue.Cue{mk(11, 0, 2, "a"), mk(12, 8, 10, "b"), mk(13, 21, 23, "c")},
			output:   "src:0-8 src:10-20 freeze@18:0-3 src:20-30",
			subs:     []cue.Cue{mk(1, 0, 2, "a"), mk(2, 8, 10, "b"), mk(3, 21, 23, "c")},
		},
		{
			name:     "text similarity burn-in",
			embed:    media.EmbedHard,
			strategy: "text-similarity",
			video:    "movie.mp4",
			original: []cue.Cue{mk(1, 0, 2, "hello there"), mk(2, 6, 8, "general kenobi")},
			target:   []cue.Cue{mk(1, 0, 2, "hello there"), mk(2, 2, 4, "general kenobi")},
			output:   "src:0-2 src:6-8",
			subs:     []cue.Cue{mk(1, 0, 2, "hello there"), mk(2, 2, 4, "general kenobi")},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, func(cfg *config.Config) {
				cfg.Output.EmbedSubtitles = string(tc.embed)
			})
			video := f.video(tc.video, sec(30))
			original := f.subtitles(t, "orig.srt", tc.original...)
			target := f.subtitles(t, "target.srt", tc.target...)

			res, err := f.runner.Run(context.Background(), retime.Request{
				Video: video, Original: original, Target: target, Strategy: tc.strategy,
			})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if res.Status != history.StatusSucceeded || res.Embed != tc.embed {
				t.Fatalf("status = %s embed = %s", res.Status, res.Embed)
			}
			if res.Artifact == nil || res.Artifact.Path != res.Output {
				t.Fatalf("artifact not published at output: %+v", res.Artifact)
			}
			if got := testsupport.Describe(t, res.Output); got != tc.output {
				t.Fatalf("output = %q, want %q", got, tc.output)
			}
			muxes := f.fm.Muxes()
			if len(muxes) != 1 {
				t.Fatalf("expected one mux, got %d", len(muxes))
			}
			if muxes[0].Request.Embed != tc.embed || muxes[0].Request.Language != "und" {
				t.Fatalf("unexpected mux request %+v", muxes[0].Request)
			}
			if want := srt.Format(tc.subs); muxes[0].Subtitles != want {
				t.Fatalf("subtitles = %q, want %q", muxes[0].Subtitles, want)
			}
			f.assertWorkDirEmpty(t)
		})
	}
}

func TestRunWithoutEmbedSkipsMux(t *testing.T) {
	f := newFixture(t, nil)
	video := f.video("episode.mkv", sec(30))
	original := f.subtitles(t, "orig.srt", mk(1, 0, 2, "a"), mk(2, 10, 12, "b"))
	target := f.subtitles(t, "target.srt", mk(1, 0, 2, "a"), mk(2, 8, 10, "b"))

	res, err := f.runner.Run(context.Background(), retime.Request{
		Video: video, Original: original, Target: target, Strategy: "cumulative",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Embed != "" || len(f.fm.Muxes()) != 0 || f.fm.Count("mux") != 0 {
		t.Fatalf("mux ran with embedding off: %+v", f.fm.Muxes())
	}
}

func TestRunTextSimilarity(t *testing.T) {
	f := newFixture(t, nil)
	video := f.video("movie.mp4", sec(20))
	original := f.subtitles(t, "orig.srt", mk(1, 0, 2, "hello there"), mk(2, 6, 8, "general kenobi"))
	target := f.subtitles(t, "target.srt", mk(1, 0, 2, "hello there"), mk(2, 2, 4, "general kenobi"))

	res, err := f.runner.Run(context.Background(), retime.Request{
		Name: "movie", Video: video, Original: original, Target: target,
		Output: filepath.Join(f.dir, "custom", "movie.mp4"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Report.Matched != 2 || res.Report.Unmatched != 0 {
		t.Fatalf("unexpected report %+v", res.Report)
	}
	if res.Artifact.Realized != res.Artifact.Planned {
		t.Fatalf("realized %s != planned %s", res.Artifact.Realized, res.Artifact.Planned)
	}
	if _, err := os.Stat(res.Output); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	runs, err := f.store.List(context.Background(), history.ListOptions{})
	if err != nil || len(runs) != 1 || runs[0].TaskName != "movie" {
		t.Fatalf("history list = %+v, %v", runs, err)
	}
	f.assertWorkDirEmpty(t)
}

func TestRunUnmatchedCues(t *testing.T) {
	tests := []struct {
		name       string
		policy     string
		allowEmpty bool
		wantStatus history.Status
		wantErr    error
	}{
		{"fail policy", "fail", true, history.StatusReview, services.ErrUnmatchedCue},
		{"drop with empty allowed", "drop", true, history.StatusEmpty, nil},
		{"drop with empty refused", "drop", false, history.StatusReview, services.ErrUnmatchedCue},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, func(cfg *config.Config) {
				cfg.Plan.UnmatchedPolicy = tc.policy
				cfg.Plan.AllowEmpty = tc.allowEmpty
			})
			video := f.video("clip.mkv", sec(10))
			original := f.subtitles(t, "orig.srt", mk(1, 0, 2, "aaaa"), mk(2, 3, 5, "aaaa"))
			target := f.subtitles(t, "target.srt", mk(1, 0, 2, "zzzz"), mk(2, 3, 5, "zzzz"))

			res, err := f.runner.Run(context.Background(), retime.Request{Video: video, Original: original, Target: target})
			if tc.wantErr == nil && err != nil {
				t.Fatalf("Run: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if res.Status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", res.Status, tc.wantStatus)
			}
			if res.Report.Unmatched != 2 {
				t.Fatalf("unexpected report %+v", res.Report)
			}
			if _, err := os.Stat(res.Output); !os.IsNotExist(err) {
				t.Fatalf("no artifact expected, stat err = %v", err)
			}
			run, err := f.store.Get(context.Background(), res.TaskID)
			if err != nil || run.Status != tc.wantStatus {
				t.Fatalf("history = %+v, %v", run, err)
			}
			f.assertWorkDirEmpty(t)
		})
	}
}

func TestRunDryRun(t *testing.T) {
	f := newFixture(t, nil)
	video := f.video("clip.mkv", sec(10))
	subs := f.subtitles(t, "subs.srt", mk(1, 1, 2, "line"))

	res, err := f.runner.Run(context.Background(), retime.Request{Video: video, Original: subs, Target: subs, DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Plan == nil || len(res.Plan.Ops) == 0 {
		t.Fatalf("expected a plan, got %+v", res.Plan)
	}
	if res.Artifact != nil || res.ReportPath != "" {
		t.Fatalf("dry run produced output: %+v", res)
	}
	if f.fm.Count("extract") != 0 {
		t.Fatal("dry run must not cut media")
	}
	runs, _ := f.store.List(context.Background(), history.ListOptions{})
	if len(runs) != 0 {
		t.Fatalf("dry run recorded history: %+v", runs)
	}
}

func TestRunInputErrors(t *testing.T) {
	f := newFixture(t, nil)
	video := f.video("clip.mkv", sec(10))
	subs := f.subtitles(t, "subs.srt", mk(1, 1, 2, "line"))

	tests := []struct {
		name    string
		req     retime.Request
		wantErr error
	}{
		{"missing video", retime.Request{Video: filepath.Join(f.dir, "nope.mkv"), Original: subs, Target: subs}, services.ErrNotFound},
		{"missing subtitles", retime.Request{Video: video, Original: filepath.Join(f.dir, "nope.srt"), Target: subs}, services.ErrNotFound},
		{"output over source", retime.Request{Video: video, Original: subs, Target: subs, Output: video}, services.ErrValidation},
		{"bad strategy", retime.Request{Video: video, Original: subs, Target: subs, Strategy: "psychic"}, services.ErrValidation},
		{"bad mode", retime.Request{Video: video, Original: subs, Target: subs, Mode: "lossy"}, services.ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := f.runner.Run(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if res.Status != history.StatusReview || res.ErrorKind == "" {
				t.Fatalf("unexpected result %+v", res)
			}
		})
	}
}

func TestRunCanceled(t *testing.T) {
	f := newFixture(t, nil)
	f.fm.Block = "extract"
	video := f.video("clip.mkv", sec(10))
	subs := f.subtitles(t, "subs.srt", mk(1, 1, 2, "line"))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	res, err := f.runner.Run(ctx, retime.Request{Video: video, Original: subs, Target: subs})
	if !errors.Is(err, services.ErrCanceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	run, gerr := f.store.Get(context.Background(), res.TaskID)
	if gerr != nil || run.Status != history.StatusCanceled {
		t.Fatalf("history = %+v, %v", run, gerr)
	}
	f.assertWorkDirEmpty(t)
}
