package retime

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"resplice/internal/config"
	"resplice/internal/cue"
	"resplice/internal/history"
	"resplice/internal/logging"
	"resplice/internal/match"
	"resplice/internal/media"
	"resplice/internal/media/ffmpeg"
	"resplice/internal/metrics"
	"resplice/internal/plan"
	"resplice/internal/services"
	"resplice/internal/splice"
	"resplice/internal/srt"
)

// Opener binds a media source to a task workspace.
type Opener func(source, workDir string) media.Handle

// Request describes one retime task.
type Request struct {
	Name     string
	Video    string
	Original string
	Target   string
	// Output defaults to <video>.resplice<ext> in the output directory.
	Output   string
	Strategy string
	Mode     string
	// DryRun stops after planning.
	DryRun bool
}

// Result is the outcome of a task. It is also the content of the report file.
type Result struct {
	TaskID     string           `json:"task_id"`
	Name       string           `json:"name,omitempty"`
	Status     history.Status   `json:"status,omitempty"`
	Video      string           `json:"video"`
	Original   string           `json:"original"`
	Target     string           `json:"target"`
	Output     string           `json:"output,omitempty"`
	ReportPath string           `json:"report_path,omitempty"`
	Strategy   match.Strategy   `json:"strategy,omitempty"`
	Mode       media.Mode       `json:"mode,omitempty"`
	Embed      media.Embed      `json:"embed,omitempty"`
	Plan       *plan.Plan       `json:"plan,omitempty"`
	Report     plan.Report      `json:"report"`
	Artifact   *splice.Artifact `json:"artifact,omitempty"`
	Error      string           `json:"error,omitempty"`
	ErrorKind  string           `json:"error_kind,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Elapsed is the task wall time.
func (r Result) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the task ended without error.
func (r Result) Succeeded() bool {
	return r.Status == history.StatusSucceeded || r.Status == history.StatusEmpty
}

// Runner executes tasks. It is safe for concurrent use.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *history.Store
	open     Opener
	muxer    splice.Muxer
	executor *splice.Executor
}

// Option customizes a Runner.
type Option func(*Runner)

// WithHistory records every non-dry run in store.
func WithHistory(store *history.Store) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithOpener replaces the ffmpeg-backed media handles.
func WithOpener(open Opener) Option {
	return func(r *Runner) {
		if open != nil {
			r.open = open
		}
	}
}

// WithMuxer replaces the ffmpeg subtitle muxer.
func WithMuxer(m splice.Muxer) Option {
	return func(r *Runner) {
		if m != nil {
			r.muxer = m
		}
	}
}

// New constructs a runner from cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	tc := ffmpeg.New(logger, ffmpeg.Options{
		Binary:      cfg.FFmpegBinary(),
		ProbeBinary: cfg.FFprobeBinary(),
		VideoCodec:  cfg.Execution.VideoCodec,
		CRF:         cfg.Execution.CRF,
		Preset:      cfg.Execution.Preset,
	})
	r := &Runner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "retime"),
		open: func(source, workDir string) media.Handle {
			return tc.Open(source, workDir)
		},
		muxer: tc,
		executor: splice.NewExecutor(logger, splice.Options{
			ExtractTimeout: cfg.ExtractTimeout(),
			ConcatTimeout:  cfg.ConcatTimeout(),
		}).WithObserver(metrics.NewSpliceObserver()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one task. The returned Result is populated on failure too;
// err carries the classified cause.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	res := Result{
		TaskID:    uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Video:     req.Video,
		Original:  req.Original,
		Target:    req.Target,
		StartedAt: time.Now().UTC(),
	}
	ctx = services.WithTaskID(ctx, res.TaskID)

	err := r.resolve(req, &res)
	if err == nil {
		ctx = services.WithStrategy(ctx, string(res.Strategy))
	}
	logger := logging.WithContext(ctx, r.logger)
	started := false
	if err == nil && !req.DryRun {
		started = r.recordStart(ctx, logger, res)
	}
	if err == nil {
		err = r.run(ctx, logger, req, &res)
	}
	r.finalize(ctx, logger, req, &res, started, err)
	return res, err
}

// resolve fills strategy, mode and output path.
func (r *Runner) resolve(req Request, res *Result) error {
	strategyName := firstNonEmpty(req.Strategy, r.cfg.Matching.Strategy)
	strategy, err := match.ParseStrategy(strategyName)
	if err != nil {
		return services.Wrap(services.ErrValidation, "retime", "resolve", "strategy", err)
	}
	mode, err := media.ParseMode(firstNonEmpty(req.Mode, r.cfg.Execution.Mode))
	if err != nil {
		return services.Wrap(services.ErrValidation, "retime", "resolve", "mode", err)
	}
	res.Strategy, res.Mode = strategy, mode

	for _, p := range []struct{ name, path string }{
		{"video", req.Video}, {"original subtitles", req.Original}, {"target subtitles", req.Target},
	} {
		if strings.TrimSpace(p.path) == "" {
			return services.Wrap(services.ErrValidation, "retime", "resolve", p.name+" path is required", nil)
		}
	}

	res.Output = strings.TrimSpace(req.Output)
	if res.Output == "" {
		res.Output = DefaultOutputPath(req.Video, r.cfg.Paths.OutputDir)
	}
	if filepath.Clean(res.Output) == filepath.Clean(req.Video) {
		return services.Wrap(services.ErrValidation, "retime", "resolve", "output would overwrite the source video", nil)
	}
	return nil
}

// DefaultOutputPath returns <name>.resplice<ext> in dir, or beside video when
// dir is empty.
func DefaultOutputPath(video, dir string) string {
	ext := filepath.Ext(video)
	name := strings.TrimSuffix(filepath.Base(video), ext) + ".resplice" + ext
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(video)
	}
	return filepath.Join(dir, name)
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, req Request, res *Result) error {
	original, err := r.loadCues(req.Original)
	if err != nil {
		return err
	}
	target, err := r.loadCues(req.Target)
	if err != nil {
		return err
	}
	if _, err := os.Stat(req.Video); err != nil {
		return services.Wrap(services.ErrNotFound, "retime", "load", "video "+req.Video, err)
	}

	ws, err := splice.NewWorkspace(r.cfg.Paths.WorkDir, res.TaskID)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "retime", "workspace", "", err)
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Warn("workspace cleanup failed",
				logging.String("workspace", ws.Dir()),
				logging.Error(err),
				logging.String(logging.FieldEventType, "workspace_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "remove the directory by hand"),
				logging.String(logging.FieldImpact, "scratch clips remain on disk"),
			)
		}
	}()
	src := r.open(req.Video, ws.Dir())

	probeCtx, cancel := context.WithTimeout(ctx, r.cfg.ExtractTimeout())
	duration, err := src.Probe(probeCtx)
	cancel()
	if err != nil {
		return err
	}

	cfg, err := r.cfg.PlanConfig()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "retime", "plan", "", err)
	}
	cfg.MediaDuration = duration
	p, report, err := plan.Build(target, original, res.Strategy, cfg)
	res.Report = report
	if err != nil {
		return err
	}
	res.Plan = p

	counts := p.Counts()
	logger.Info("plan built",
		logging.String(logging.FieldEventType, "plan_built"),
		logging.Int("matched", report.Matched),
		logging.Int("unmatched", report.Unmatched),
		logging.Int("copy_ops", counts[plan.OpCopy]),
		logging.Int("freeze_ops", counts[plan.OpFreeze]),
		logging.Int("trim_ops", counts[plan.OpTrim]),
		logging.Duration("media_duration", duration),
		logging.Duration("planned_duration", p.OutputDuration()),
	)
	for _, d := range report.Diagnostics {
		logging.WarnWithContext(logger, d.Message, d.Kind,
			logging.Int(logging.FieldCueIndex, d.Target),
			logging.String(logging.FieldImpact, "cue timing is approximate"),
		)
	}

	if req.DryRun {
		return nil
	}
	// An iterative plan with matches and no edits means the timelines already
	// agree within the threshold; the source is published as is.
	if p.Empty() && !(p.Iterative && report.Matched > 0) {
		if !r.cfg.Plan.AllowEmpty {
			return services.Wrap(services.ErrUnmatchedCue, "retime", "plan", "no target cue produced an op", nil)
		}
		logging.WarnWithContext(logger, "plan is empty; no output written", "empty_plan",
			logging.String(logging.FieldErrorHint, "check that the subtitle files belong to this video"),
			logging.String(logging.FieldImpact, "no artifact produced"),
		)
		res.Status = history.StatusEmpty
		return nil
	}

	embed, err := r.cfg.Embed()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "retime", "embed", "output.embed_subtitles", err)
	}
	var cues []cue.Cue
	if embed != media.EmbedNone {
		if cues = plan.OutputCues(p, report, target, original); len(cues) == 0 {
			logger.Warn("no cues to embed",
				logging.String(logging.FieldEventType, "embed_skipped"),
				logging.String(logging.FieldErrorHint, "check the match report for unmatched cues"),
				logging.String(logging.FieldImpact, "output published without subtitles"),
			)
			embed = media.EmbedNone
		}
	}
	dest := res.Output
	if embed != media.EmbedNone {
		dest = filepath.Join(ws.Dir(), "spliced"+filepath.Ext(res.Output))
	}

	var art splice.Artifact
	if p.Iterative {
		art, err = r.executor.ExecuteIterative(ctx, target, original, cfg.Threshold, src, res.Mode, dest)
		if err == nil && art.FinalOffset != p.FinalOffset {
			logger.Warn("iterative offset diverged from plan",
				logging.Duration("planned_offset", p.FinalOffset),
				logging.Duration("final_offset", art.FinalOffset),
				logging.String(logging.FieldEventType, "offset_divergence"),
				logging.String(logging.FieldErrorHint, "rerun with --dry-run and compare the plan"),
				logging.String(logging.FieldImpact, "output length differs from the report"),
			)
		}
	} else {
		art, err = r.executor.Execute(ctx, p, src, res.Mode, dest)
	}
	if err != nil {
		return err
	}
	if embed != media.EmbedNone {
		if err := r.embed(ctx, ws.Dir(), embed, cues, &art, res.Output); err != nil {
			return err
		}
		res.Embed = embed
	}
	res.Artifact = &art
	res.Status = history.StatusSucceeded
	return nil
}

// embed writes cues as the output's subtitle file, muxes it into the spliced
// video and publishes the result at output.
func (r *Runner) embed(ctx context.Context, dir string, embed media.Embed, cues []cue.Cue, art *splice.Artifact, output string) error {
	subs := filepath.Join(dir, "output.srt")
	if err := srt.WriteFile(subs, cues); err != nil {
		return services.Wrap(services.ErrConfiguration, "retime", "embed", "write output subtitles", err)
	}
	req := media.MuxRequest{
		Video:     art.Path,
		Subtitles: subs,
		Output:    filepath.Join(dir, "muxed"+filepath.Ext(output)),
		Embed:     embed,
		Language:  r.cfg.Output.SubtitleLanguage,
	}
	return r.executor.Embed(ctx, r.muxer, req, art, output)
}

func (r *Runner) loadCues(path string) (*cue.Index, error) {
	cues, err := srt.ReadFile(path, r.cfg.Subtitles.FallbackEncoding)
	if err != nil {
		marker := services.ErrValidation
		if errors.Is(err, os.ErrNotExist) {
			marker = services.ErrNotFound
		}
		return nil, services.Wrap(marker, "retime", "load", path, err)
	}
	idx, err := cue.NewIndex(cues)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "retime", "load", path, err)
	}
	return idx, nil
}

// finalize settles status, writes the report file, and records history and
// metrics.
func (r *Runner) finalize(ctx context.Context, logger *slog.Logger, req Request, res *Result, started bool, err error) {
	res.FinishedAt = time.Now().UTC()
	if err != nil {
		res.Status = services.FailureStatus(err)
		res.Error = err.Error()
		res.ErrorKind = services.Kind(err)
		logging.ErrorWithContext(logger, "retime failed", "task_failed",
			logging.String("status", string(res.Status)),
			logging.String("error_kind", res.ErrorKind),
			logging.Error(err),
		)
	}
	if req.DryRun {
		return
	}

	if res.Output != "" {
		if werr := writeReport(res); werr != nil {
			logger.Warn("report not written",
				logging.Error(werr),
				logging.String(logging.FieldEventType, "report_write_failed"),
				logging.String(logging.FieldErrorHint, "check that the output directory is writable"),
				logging.String(logging.FieldImpact, "per-cue report unavailable on disk"),
			)
		}
	}
	if started {
		r.recordFinish(ctx, logger, res)
	}

	metrics.ObserveRun(string(res.Strategy), string(res.Status), res.Elapsed(), cueCounts(res.Report))
	if path := r.cfg.Metrics.TextfilePath; path != "" {
		if merr := metrics.WriteTextfile(path); merr != nil {
			logger.Debug("metrics textfile not written", logging.Error(merr))
		}
	}
	if err == nil {
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "task_complete"),
			logging.String("status", string(res.Status)),
			logging.Duration("elapsed", res.Elapsed()),
		}
		if res.Artifact != nil {
			attrs = append(attrs,
				logging.String("output", res.Artifact.Path),
				logging.Duration("drift", res.Artifact.Drift()),
			)
		}
		logger.Info("retime finished", logging.Args(attrs...)...)
	}
}

func cueCounts(report plan.Report) map[string]int {
	counts := make(map[string]int)
	for _, c := range report.Cues {
		counts[string(c.Status)]++
	}
	return counts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
