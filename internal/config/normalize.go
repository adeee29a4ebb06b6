package config

import (
	"fmt"
	"os"
	"strings"

	"resplice/internal/match"
	"resplice/internal/media"
	"resplice/internal/plan"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeMatching(); err != nil {
		return err
	}
	c.normalizeExecution()
	c.normalizeOutput()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.HistoryDB, err = expandPath(strings.TrimSpace(c.Paths.HistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeMatching() error {
	if strategy, err := match.ParseStrategy(c.Matching.Strategy); err == nil {
		c.Matching.Strategy = string(strategy)
	}
	if policy, err := plan.ParsePolicy(c.Plan.UnmatchedPolicy); err == nil {
		c.Plan.UnmatchedPolicy = string(policy)
	}
	return nil
}

func (c *Config) normalizeExecution() {
	if c.Execution.FFmpegBinary == "" || c.Execution.FFmpegBinary == defaultFFmpegBinary {
		if value, ok := os.LookupEnv("RESPLICE_FFMPEG"); ok && strings.TrimSpace(value) != "" {
			c.Execution.FFmpegBinary = strings.TrimSpace(value)
		}
	}
	if c.Execution.FFprobeBinary == "" || c.Execution.FFprobeBinary == defaultFFprobeBinary {
		if value, ok := os.LookupEnv("RESPLICE_FFPROBE"); ok && strings.TrimSpace(value) != "" {
			c.Execution.FFprobeBinary = strings.TrimSpace(value)
		}
	}
	if mode, err := media.ParseMode(c.Execution.Mode); err == nil {
		c.Execution.Mode = string(mode)
	}
	if c.Execution.MaxParallel <= 0 {
		c.Execution.MaxParallel = defaultMaxParallel()
	}
	c.Execution.VideoCodec = strings.TrimSpace(c.Execution.VideoCodec)
	if c.Execution.VideoCodec == "" {
		c.Execution.VideoCodec = defaultVideoCodec
	}
	c.Execution.Preset = strings.TrimSpace(c.Execution.Preset)
	if c.Execution.Preset == "" {
		c.Execution.Preset = defaultPreset
	}
	c.Subtitles.FallbackEncoding = strings.TrimSpace(c.Subtitles.FallbackEncoding)
	if c.Subtitles.FallbackEncoding == "" {
		c.Subtitles.FallbackEncoding = defaultFallbackEncoding
	}
}

func (c *Config) normalizeOutput() {
	if embed, err := media.ParseEmbed(c.Output.EmbedSubtitles); err == nil {
		c.Output.EmbedSubtitles = string(embed)
	}
	c.Output.SubtitleLanguage = strings.ToLower(strings.TrimSpace(c.Output.SubtitleLanguage))
	if c.Output.SubtitleLanguage == "" {
		c.Output.SubtitleLanguage = defaultSubtitleLanguage
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
