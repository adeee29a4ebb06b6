package splice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"resplice/internal/logging"
	"resplice/internal/media"
	"resplice/internal/plan"
	"resplice/internal/services"
)

// MediaHandle is the media source the executor cuts from.
type MediaHandle = media.Handle

const (
	DefaultExtractTimeout = 300 * time.Second
	DefaultConcatTimeout  = 600 * time.Second
)

// DiagnosticDurationDrift marks an artifact whose probed length strays from
// the plan by more than the mode allows.
const DiagnosticDurationDrift = "duration_drift"

// Observer receives per-op timings.
type Observer interface {
	ObserveOp(kind string, duration time.Duration, err error)
	ObserveDrift(drift time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveOp(string, time.Duration, error) {}
func (nopObserver) ObserveDrift(time.Duration)             {}

// Options bounds each external operation.
type Options struct {
	ExtractTimeout time.Duration
	ConcatTimeout  time.Duration
}

// Diagnostic is a non-fatal finding about a published artifact.
type Diagnostic struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Artifact is a published output.
type Artifact struct {
	Path     string        `json:"path"`
	Planned  time.Duration `json:"planned"`
	Realized time.Duration `json:"realized"`
	Ops      int           `json:"ops"`
	// Versions counts the intermediate versions an iterative run produced.
	Versions    int           `json:"versions,omitempty"`
	FinalOffset time.Duration `json:"final_offset,omitempty"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
}

// Drift is the signed difference between realized and planned length.
func (a Artifact) Drift() time.Duration {
	return a.Realized - a.Planned
}

// Executor runs plans. It holds no per-task state and may be shared.
type Executor struct {
	logger   *slog.Logger
	opts     Options
	observer Observer
}

// NewExecutor constructs an executor, filling unset timeouts with defaults.
func NewExecutor(logger *slog.Logger, opts Options) *Executor {
	if opts.ExtractTimeout <= 0 {
		opts.ExtractTimeout = DefaultExtractTimeout
	}
	if opts.ConcatTimeout <= 0 {
		opts.ConcatTimeout = DefaultConcatTimeout
	}
	return &Executor{
		logger:   logging.NewComponentLogger(logger, "splice"),
		opts:     opts,
		observer: nopObserver{},
	}
}

// WithObserver attaches a metrics observer.
func (e *Executor) WithObserver(o Observer) *Executor {
	if o != nil {
		e.observer = o
	}
	return e
}

// Execute realizes p from src and publishes the result at dest. An empty
// iterative plan means the timelines already agree; the source is published
// unchanged.
func (e *Executor) Execute(ctx context.Context, p *plan.Plan, src MediaHandle, mode media.Mode, dest string) (Artifact, error) {
	logger := logging.WithContext(ctx, e.logger)
	if p.Iterative {
		v, err := e.probeVersion(ctx, src)
		if err != nil {
			return Artifact{}, err
		}
		planned := func() time.Duration { return v.Duration + p.FinalOffset }
		return e.runEdits(ctx, logger, v, slices.All(p.Ops), mode, dest, planned)
	}
	if p.Empty() {
		return Artifact{}, &Error{Op: -1, Kind: "plan",
			Err: services.Wrap(services.ErrValidation, "splice", "execute", "plan has no ops", nil)}
	}

	clips := make([]media.Clip, len(p.Ops))
	defer func() { removeClips(clips, "") }()

	// Copies run first so freeze clips can be encoded like them.
	var ref *media.StreamInfo
	for i, op := range p.Ops {
		if op.Kind == plan.OpFreeze {
			continue
		}
		err := e.step(ctx, e.opts.ExtractTimeout, i, string(op.Kind), func(opCtx context.Context) error {
			if op.Kind != plan.OpCopy {
				return services.Wrap(services.ErrValidation, "splice", "execute",
					fmt.Sprintf("%s op in a non-iterative plan", op.Kind), nil)
			}
			clip, err := src.Extract(opCtx, op.Start, op.End, mode)
			if err != nil {
				return err
			}
			clips[i] = clip
			if ref == nil {
				if info, serr := src.Reopen(clip).Streams(opCtx); serr == nil {
					ref = &info
				}
			}
			return nil
		})
		if err != nil {
			return Artifact{}, err
		}
		logger.Debug("op executed",
			logging.Int(logging.FieldOpIndex, i),
			logging.String("op", op.String()),
			logging.String("clip", clips[i].Path),
		)
	}
	for i, op := range p.Ops {
		if op.Kind != plan.OpFreeze {
			continue
		}
		err := e.step(ctx, e.opts.ExtractTimeout, i, string(op.Kind), func(opCtx context.Context) error {
			like, err := reference(opCtx, ref, src)
			if err != nil {
				return err
			}
			clips[i], err = e.freeze(opCtx, src, op.At, op.Length, like)
			return err
		})
		if err != nil {
			return Artifact{}, err
		}
		logger.Debug("op executed",
			logging.Int(logging.FieldOpIndex, i),
			logging.String("op", op.String()),
			logging.String("clip", clips[i].Path),
		)
	}

	var out media.Clip
	err := e.step(ctx, e.opts.ConcatTimeout, -1, "concat", func(opCtx context.Context) error {
		if err := joinable(opCtx, src, clips); err != nil {
			return err
		}
		var err error
		out, err = src.Concat(opCtx, clips, mode)
		return err
	})
	if err != nil {
		return Artifact{}, err
	}
	defer removeIfScratch(out.Path, clips, src.Path())

	art := Artifact{Path: dest, Planned: p.OutputDuration(), Ops: len(p.Ops)}
	if err := e.finish(ctx, logger, src.Reopen(out), mode, &art); err != nil {
		return Artifact{}, err
	}
	return art, nil
}

// joinable checks that every clip carries the stream parameters of the first,
// since concat never re-encodes.
func joinable(ctx context.Context, src MediaHandle, clips []media.Clip) error {
	if len(clips) < 2 {
		return nil
	}
	first, err := src.Reopen(clips[0]).Streams(ctx)
	if err != nil {
		return err
	}
	for i, c := range clips[1:] {
		got, err := src.Reopen(c).Streams(ctx)
		if err != nil {
			return err
		}
		if diff := first.Mismatch(got); diff != "" {
			return services.Wrap(services.ErrFormatMismatch, "splice", "concat",
				fmt.Sprintf("clip %d does not match clip 0: %s", i+1, diff), nil)
		}
	}
	return nil
}

// step runs one external operation under its own deadline.
func (e *Executor) step(ctx context.Context, timeout time.Duration, idx int, kind string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: idx, Kind: kind, Err: services.Wrap(services.ErrCanceled, "splice", kind, "task canceled", err)}
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	err := fn(opCtx)
	if err != nil {
		err = classify(ctx, opCtx, kind, timeout, err)
	}
	e.observer.ObserveOp(kind, time.Since(started), err)
	if err != nil {
		return &Error{Op: idx, Kind: kind, Err: err}
	}
	return nil
}

// freeze renders a still of the frame at ts and checks that the resulting
// clip can be joined with like.
func (e *Executor) freeze(ctx context.Context, h MediaHandle, ts, length time.Duration, like media.StreamInfo) (media.Clip, error) {
	frame, err := h.ExtractFrame(ctx, ts)
	if err != nil {
		return media.Clip{}, err
	}
	defer os.Remove(frame)

	clip, err := h.Freeze(ctx, frame, length, like)
	if err != nil {
		return media.Clip{}, err
	}
	got, err := h.Reopen(clip).Streams(ctx)
	if err != nil {
		_ = os.Remove(clip.Path)
		return media.Clip{}, err
	}
	if diff := like.Mismatch(got); diff != "" {
		_ = os.Remove(clip.Path)
		return media.Clip{}, services.Wrap(services.ErrFormatMismatch, "splice", "freeze",
			"freeze clip does not match main stream: "+diff, nil)
	}
	return clip, nil
}

// reference returns the stream parameters freeze clips must match: the first
// extracted clip when there is one, otherwise the source.
func reference(ctx context.Context, ref *media.StreamInfo, src MediaHandle) (media.StreamInfo, error) {
	if ref != nil {
		return *ref, nil
	}
	return src.Streams(ctx)
}

// finish probes the produced file, records drift, and publishes it.
func (e *Executor) finish(ctx context.Context, logger *slog.Logger, out MediaHandle, mode media.Mode, art *Artifact) error {
	err := e.step(ctx, e.opts.ExtractTimeout, -1, "probe", func(opCtx context.Context) error {
		var err error
		art.Realized, err = out.Probe(opCtx)
		return err
	})
	if err != nil {
		return err
	}

	drift := art.Drift()
	e.observer.ObserveDrift(drift)
	ops := max(art.Ops, 1)
	if bound := mode.Tolerance() * time.Duration(ops); drift > bound || -drift > bound {
		msg := fmt.Sprintf("realized %s vs planned %s exceeds %s tolerance for %d ops", art.Realized, art.Planned, mode, ops)
		art.Diagnostics = append(art.Diagnostics, Diagnostic{Kind: DiagnosticDurationDrift, Message: msg})
		logging.WarnWithContext(logger, "output duration drifted from plan", "duration_drift",
			logging.Duration("planned", art.Planned),
			logging.Duration("realized", art.Realized),
			logging.String(logging.FieldErrorHint, "use precise mode for frame-accurate cuts"),
			logging.String(logging.FieldImpact, "subtitle sync may be off by the drift amount"),
		)
	}

	if err := e.step(ctx, e.opts.ConcatTimeout, -1, "publish", func(opCtx context.Context) error {
		return Publish(opCtx, out.Path(), art.Path)
	}); err != nil {
		return err
	}
	logger.Info("artifact published",
		logging.String("path", art.Path),
		logging.Duration("planned", art.Planned),
		logging.Duration("realized", art.Realized),
		logging.Int("ops", art.Ops),
	)
	return nil
}

// removeClips deletes scratch clips, sparing keep.
func removeClips(clips []media.Clip, keep string) {
	for _, c := range clips {
		if c.Path != "" && c.Path != keep {
			_ = os.Remove(c.Path)
		}
	}
}

// removeIfScratch deletes path unless it is one of clips (already handled)
// or the source itself.
func removeIfScratch(path string, clips []media.Clip, source string) {
	if path == "" || path == source {
		return
	}
	for _, c := range clips {
		if c.Path == path {
			return
		}
	}
	_ = os.Remove(path)
}
