package splice

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"time"

	"resplice/internal/cue"
	"resplice/internal/logging"
	"resplice/internal/media"
	"resplice/internal/offset"
	"resplice/internal/plan"
	"resplice/internal/services"
)

// Version is one immutable state of the media during iterative editing.
// Generation 0 is the untouched source.
type Version struct {
	Gen      int
	Handle   MediaHandle
	Duration time.Duration
}

// ExecuteIterative walks original and target cues pairwise through an offset
// tracker and applies each trim or freeze to the latest version as soon as
// the tracker decides it. The returned artifact carries the final offset.
func (e *Executor) ExecuteIterative(ctx context.Context, target, original *cue.Index, threshold time.Duration, src MediaHandle, mode media.Mode, dest string) (Artifact, error) {
	logger := logging.WithContext(ctx, e.logger)
	v, err := e.probeVersion(ctx, src)
	if err != nil {
		return Artifact{}, err
	}

	tracker := offset.NewTracker(threshold)
	pairs := min(original.Len(), target.Len())
	edits := func(yield func(int, plan.Op) bool) {
		for i := 0; i < pairs; i++ {
			step := tracker.Step(original.At(i), target.At(i))
			if step.Clamped {
				logging.WarnWithContext(logger, "trim clamped at previous edit", "insufficient_source",
					logging.Int(logging.FieldCueIndex, target.At(i).Index),
					logging.Duration("requested", step.Requested),
					logging.Duration("applied", step.Amount),
					logging.String(logging.FieldImpact, "cue remains late by the clamped amount"),
				)
			}
			var op plan.Op
			switch step.Action {
			case offset.ActionTrim:
				op = plan.Trim(step.Position, step.Amount, i)
			case offset.ActionFreeze:
				op = plan.Freeze(step.Position, step.Amount, i)
			default:
				continue
			}
			if !yield(i, op) {
				return
			}
		}
	}

	planned := func() time.Duration { return v.Duration + tracker.Offset() }
	art, err := e.runEdits(ctx, logger, v, edits, mode, dest, planned)
	if err != nil {
		return Artifact{}, err
	}
	art.FinalOffset = tracker.Offset()
	return art, nil
}

func (e *Executor) probeVersion(ctx context.Context, h MediaHandle) (Version, error) {
	v := Version{Handle: h}
	err := e.step(ctx, e.opts.ExtractTimeout, -1, "probe", func(opCtx context.Context) error {
		var err error
		v.Duration, err = h.Probe(opCtx)
		return err
	})
	return v, err
}

// runEdits threads versions through edits and publishes the last one.
// Superseded intermediate versions are deleted as soon as they are replaced.
func (e *Executor) runEdits(ctx context.Context, logger *slog.Logger, v Version, edits iter.Seq2[int, plan.Op], mode media.Mode, dest string, planned func() time.Duration) (Artifact, error) {
	cur := v
	defer func() {
		if cur.Gen > 0 {
			_ = os.Remove(cur.Handle.Path())
		}
	}()

	for i, op := range edits {
		next, err := e.apply(ctx, i, op, cur, mode)
		if err != nil {
			return Artifact{}, err
		}
		if cur.Gen > 0 {
			_ = os.Remove(cur.Handle.Path())
		}
		cur = next
		logger.Debug("edit applied",
			logging.Int(logging.FieldOpIndex, i),
			logging.String("op", op.String()),
			logging.Int("generation", cur.Gen),
			logging.Duration("duration", cur.Duration),
		)
	}

	art := Artifact{Path: dest, Planned: planned(), Ops: cur.Gen, Versions: cur.Gen}
	if err := e.finish(ctx, logger, cur.Handle, mode, &art); err != nil {
		return Artifact{}, err
	}
	return art, nil
}

// apply produces the version that results from one trim or freeze.
//
//	trim    concat(extract(0, at-length), extract(at, end))
//	freeze  concat(extract(0, at), freeze(frame(at), length), extract(at, end))
func (e *Executor) apply(ctx context.Context, idx int, op plan.Op, cur Version, mode media.Mode) (Version, error) {
	h := cur.Handle
	var parts []media.Clip
	var out media.Clip
	defer func() { removeClips(parts, out.Path) }()

	err := e.step(ctx, e.opts.ExtractTimeout, idx, string(op.Kind), func(opCtx context.Context) error {
		if op.Length <= 0 {
			return services.Wrap(services.ErrValidation, "splice", string(op.Kind), "non-positive edit length", nil)
		}
		switch op.Kind {
		case plan.OpTrim:
			cut := min(op.At-op.Length, cur.Duration)
			if cut < 0 {
				return services.Wrap(services.ErrInsufficientSource, "splice", "trim",
					fmt.Sprintf("trim of %s before %s starts before the media", op.Length, op.At), nil)
			}
			if cut > 0 {
				head, err := h.Extract(opCtx, 0, cut, mode)
				if err != nil {
					return err
				}
				parts = append(parts, head)
			}
			if op.At < cur.Duration {
				tail, err := h.Extract(opCtx, op.At, cur.Duration, mode)
				if err != nil {
					return err
				}
				parts = append(parts, tail)
			}
			if len(parts) == 0 {
				return services.Wrap(services.ErrInsufficientSource, "splice", "trim", "edit would leave no media", nil)
			}
			return nil

		case plan.OpFreeze:
			at := max(min(op.At, cur.Duration), 0)
			var head, tail *media.Clip
			if at > 0 {
				clip, err := h.Extract(opCtx, 0, at, mode)
				if err != nil {
					return err
				}
				parts = append(parts, clip)
				head = &parts[len(parts)-1]
			}
			if at < cur.Duration {
				clip, err := h.Extract(opCtx, at, cur.Duration, mode)
				if err != nil {
					return err
				}
				parts = append(parts, clip)
				tail = &parts[len(parts)-1]
			}

			var ref *media.StreamInfo
			for _, c := range []*media.Clip{head, tail} {
				if c == nil {
					continue
				}
				if info, err := h.Reopen(*c).Streams(opCtx); err == nil {
					ref = &info
					break
				}
			}
			like, err := reference(opCtx, ref, h)
			if err != nil {
				return err
			}
			frozen, err := e.freeze(opCtx, h, at, op.Length, like)
			if err != nil {
				return err
			}
			if head != nil {
				parts = append(parts[:1], append([]media.Clip{frozen}, parts[1:]...)...)
			} else {
				parts = append([]media.Clip{frozen}, parts...)
			}
			return nil

		default:
			return services.Wrap(services.ErrValidation, "splice", "edit",
				fmt.Sprintf("%s op in an iterative plan", op.Kind), nil)
		}
	})
	if err != nil {
		return Version{}, err
	}

	err = e.step(ctx, e.opts.ConcatTimeout, idx, "concat", func(opCtx context.Context) error {
		var err error
		out, err = h.Concat(opCtx, parts, mode)
		return err
	})
	if err != nil {
		return Version{}, err
	}

	next := Version{Gen: cur.Gen + 1, Handle: h.Reopen(out)}
	err = e.step(ctx, e.opts.ExtractTimeout, idx, "probe", func(opCtx context.Context) error {
		var err error
		next.Duration, err = next.Handle.Probe(opCtx)
		return err
	})
	if err != nil {
		_ = os.Remove(out.Path)
		return Version{}, err
	}
	return next, nil
}
