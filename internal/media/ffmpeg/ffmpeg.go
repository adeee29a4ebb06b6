package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"

	"resplice/internal/logging"
	"resplice/internal/media/ffprobe"
	"resplice/internal/services"
)

const (
	defaultBinary = "ffmpeg"
	defaultPreset = "fast"
	defaultCRF    = 23
	// minOutputBytes is the smallest file accepted as a real clip.
	minOutputBytes = 1000
)

// CommandRunner executes an external command to completion.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Options configures the toolchain.
type Options struct {
	Binary      string
	ProbeBinary string
	// VideoCodec is the encoder used for precise extraction.
	VideoCodec string
	CRF        int
	Preset     string
}

// Toolchain runs ffmpeg and ffprobe on behalf of media handles.
type Toolchain struct {
	logger *slog.Logger
	opts   Options
	run    CommandRunner
	probe  ffprobe.Runner
	seq    atomic.Int64
}

// New constructs a toolchain, filling unset options with defaults.
func New(logger *slog.Logger, opts Options) *Toolchain {
	if strings.TrimSpace(opts.Binary) == "" {
		opts.Binary = defaultBinary
	}
	if strings.TrimSpace(opts.ProbeBinary) == "" {
		opts.ProbeBinary = "ffprobe"
	}
	if strings.TrimSpace(opts.VideoCodec) == "" {
		opts.VideoCodec = "libx264"
	}
	if opts.CRF <= 0 {
		opts.CRF = defaultCRF
	}
	if strings.TrimSpace(opts.Preset) == "" {
		opts.Preset = defaultPreset
	}
	return &Toolchain{
		logger: logging.NewComponentLogger(logger, "ffmpeg"),
		opts:   opts,
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom ffmpeg runner for tests.
func (t *Toolchain) WithCommandRunner(r CommandRunner) *Toolchain {
	if t != nil && r != nil {
		t.run = r
	}
	return t
}

// WithProbeRunner allows injecting a custom ffprobe runner for tests.
func (t *Toolchain) WithProbeRunner(r ffprobe.Runner) *Toolchain {
	if t != nil && r != nil {
		t.probe = r
	}
	return t
}

// Options returns the effective settings.
func (t *Toolchain) Options() Options {
	return t.opts
}

// Open binds the toolchain to a source file. Produced files land in workDir.
func (t *Toolchain) Open(source, workDir string) *Handle {
	return &Handle{tc: t, path: source, workDir: workDir, ext: containerExt(source)}
}

// nextPath allocates a unique file name in dir.
func (t *Toolchain) nextPath(dir, prefix, ext string) string {
	n := t.seq.Add(1)
	return filepath.Join(dir, fmt.Sprintf("%s-%04d%s", prefix, n, ext))
}

func (t *Toolchain) exec(ctx context.Context, op string, args ...string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	t.logger.Debug("running ffmpeg",
		logging.String("op", op),
		logging.String("args", strings.Join(full, " ")),
	)
	if err := t.run(ctx, t.opts.Binary, full...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg %s: %w", op, ctxErr)
		}
		return services.Wrap(services.ErrExtraction, "ffmpeg", op, "ffmpeg command failed", err)
	}
	return nil
}

// verifyOutput rejects missing or truncated files.
func verifyOutput(op, path string, minBytes int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrExtraction, "ffmpeg", op, "output missing", err)
	}
	if info.Size() <= minBytes {
		return services.Wrap(services.ErrExtraction, "ffmpeg", op,
			fmt.Sprintf("output %s too small (%d bytes)", filepath.Base(path), info.Size()), nil)
	}
	return nil
}

func containerExt(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp4", ".mkv", ".mov", ".m4v", ".webm", ".ts":
		return ext
	default:
		return ".mp4"
	}
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
