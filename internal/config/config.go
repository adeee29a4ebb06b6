package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"resplice/internal/match"
	"resplice/internal/media"
	"resplice/internal/plan"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	HistoryDB string `toml:"history_db"`
}

// Matching contains the cue matcher tunables.
type Matching struct {
	Strategy                  string  `toml:"strategy"`
	Window                    int     `toml:"window"`
	TextWeight                float64 `toml:"text_weight"`
	DurationWeight            float64 `toml:"duration_weight"`
	AcceptThreshold           float64 `toml:"accept_threshold"`
	MinTextSimilarity         float64 `toml:"min_text_similarity"`
	NearestMaxDistanceSeconds float64 `toml:"nearest_max_distance_seconds"`
	MinOverlapSeconds         float64 `toml:"min_overlap_seconds"`
	Exclusive                 bool    `toml:"exclusive"`
}

// Plan contains segment plan policies.
type Plan struct {
	UnmatchedPolicy string  `toml:"unmatched_policy"`
	MergeGapSeconds float64 `toml:"merge_gap_seconds"`
	ExtendToNextCue bool    `toml:"extend_to_next_cue"`
	// AllowEmpty treats a plan with no ops as a successful run with no output.
	AllowEmpty bool `toml:"allow_empty"`
}

// Cumulative contains the offset tracker tolerance.
type Cumulative struct {
	ThresholdSeconds float64 `toml:"threshold_seconds"`
}

// Execution contains splice executor and ffmpeg settings.
type Execution struct {
	Mode                  string `toml:"mode"`
	FFmpegBinary          string `toml:"ffmpeg_binary"`
	FFprobeBinary         string `toml:"ffprobe_binary"`
	ExtractTimeoutSeconds int    `toml:"extract_timeout_seconds"`
	ConcatTimeoutSeconds  int    `toml:"concat_timeout_seconds"`
	MaxParallel           int    `toml:"max_parallel"`
	MinFreeGiB            int    `toml:"min_free_gib"`
	VideoCodec            string `toml:"video_codec"`
	CRF                   int    `toml:"crf"`
	Preset                string `toml:"preset"`
}

// Subtitles contains SRT decoding settings.
type Subtitles struct {
	FallbackEncoding string `toml:"fallback_encoding"`
}

// Output controls what travels with a published video.
type Output struct {
	// EmbedSubtitles is none, soft (a subtitle track) or hard (burned in).
	EmbedSubtitles   string `toml:"embed_subtitles"`
	SubtitleLanguage string `toml:"subtitle_language"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics contains the optional Prometheus textfile export location.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Config encapsulates all configuration values for resplice.
//
// Configuration sections by subsystem:
//   - Paths: work, output, log, and history locations
//   - Matching: cue matcher strategy and scoring weights
//   - Plan: unmatched-cue policy and copy merging
//   - Cumulative: offset tracker tolerance
//   - Execution: ffmpeg binaries, codec, timeouts, and batch limits
//   - Subtitles: SRT charset fallback
//   - Output: subtitle embedding in published videos
//   - Logging: log format and level
//   - Metrics: Prometheus textfile export
type Config struct {
	Paths      Paths      `toml:"paths"`
	Matching   Matching   `toml:"matching"`
	Plan       Plan       `toml:"plan"`
	Cumulative Cumulative `toml:"cumulative"`
	Execution  Execution  `toml:"execution"`
	Subtitles  Subtitles  `toml:"subtitles"`
	Output     Output     `toml:"output"`
	Logging    Logging    `toml:"logging"`
	Metrics    Metrics    `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("resplice.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work, log, and history directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, c.Paths.LogDir}
	if c.Paths.HistoryDB != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.HistoryDB))
	}
	if c.Paths.OutputDir != "" {
		dirs = append(dirs, c.Paths.OutputDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for cutting and joining.
func (c *Config) FFmpegBinary() string {
	if v := strings.TrimSpace(c.Execution.FFmpegBinary); v != "" {
		return v
	}
	return defaultFFmpegBinary
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	if v := strings.TrimSpace(c.Execution.FFprobeBinary); v != "" {
		return v
	}
	return defaultFFprobeBinary
}

// MatchConfig converts the [matching] section into matcher settings.
func (c *Config) MatchConfig() (match.Config, error) {
	strategy, err := match.ParseStrategy(c.Matching.Strategy)
	if err != nil {
		return match.Config{}, err
	}
	return match.Config{
		Strategy:           strategy,
		Window:             c.Matching.Window,
		TextWeight:         c.Matching.TextWeight,
		DurationWeight:     c.Matching.DurationWeight,
		AcceptThreshold:    c.Matching.AcceptThreshold,
		MinTextSimilarity:  c.Matching.MinTextSimilarity,
		NearestMaxDistance: seconds(c.Matching.NearestMaxDistanceSeconds),
		MinOverlap:         seconds(c.Matching.MinOverlapSeconds),
		Exclusive:          c.Matching.Exclusive,
	}, nil
}

// PlanConfig converts the [matching], [plan] and [cumulative] sections into
// plan builder settings.
func (c *Config) PlanConfig() (plan.Config, error) {
	mc, err := c.MatchConfig()
	if err != nil {
		return plan.Config{}, err
	}
	policy, err := plan.ParsePolicy(c.Plan.UnmatchedPolicy)
	if err != nil {
		return plan.Config{}, err
	}
	return plan.Config{
		Match:           mc,
		Unmatched:       policy,
		MergeGap:        seconds(c.Plan.MergeGapSeconds),
		ExtendToNextCue: c.Plan.ExtendToNextCue,
		Threshold:       seconds(c.Cumulative.ThresholdSeconds),
	}, nil
}

// Mode returns the configured execution mode.
func (c *Config) Mode() (media.Mode, error) {
	return media.ParseMode(c.Execution.Mode)
}

// Embed returns the configured subtitle embedding.
func (c *Config) Embed() (media.Embed, error) {
	return media.ParseEmbed(c.Output.EmbedSubtitles)
}

// ExtractTimeout bounds a single extract or freeze operation.
func (c *Config) ExtractTimeout() time.Duration {
	return time.Duration(c.Execution.ExtractTimeoutSeconds) * time.Second
}

// ConcatTimeout bounds a single concat operation.
func (c *Config) ConcatTimeout() time.Duration {
	return time.Duration(c.Execution.ConcatTimeoutSeconds) * time.Second
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second)).Round(time.Millisecond)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
