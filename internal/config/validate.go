package config

import (
	"errors"
	"fmt"

	"resplice/internal/media"
	"resplice/internal/plan"
	"resplice/internal/srt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validatePlan(); err != nil {
		return err
	}
	if err := c.validateExecution(); err != nil {
		return err
	}
	if !srt.ValidEncoding(c.Subtitles.FallbackEncoding) {
		return fmt.Errorf("subtitles.fallback_encoding: unknown encoding %q", c.Subtitles.FallbackEncoding)
	}
	if _, err := c.Embed(); err != nil {
		return fmt.Errorf("output.embed_subtitles: %w", err)
	}
	if n := len(c.Output.SubtitleLanguage); n != 3 {
		return fmt.Errorf("output.subtitle_language: want a three-letter code, got %q", c.Output.SubtitleLanguage)
	}
	return c.validateLogging()
}

func (c *Config) validateMatching() error {
	mc, err := c.MatchConfig()
	if err != nil {
		return fmt.Errorf("matching.strategy: %w", err)
	}
	if err := mc.Validate(); err != nil {
		return fmt.Errorf("matching: %w", err)
	}
	return nil
}

func (c *Config) validatePlan() error {
	if _, err := plan.ParsePolicy(c.Plan.UnmatchedPolicy); err != nil {
		return fmt.Errorf("plan.unmatched_policy: %w", err)
	}
	if c.Plan.MergeGapSeconds < 0 {
		return errors.New("plan.merge_gap_seconds must be >= 0")
	}
	if c.Cumulative.ThresholdSeconds < 0 {
		return errors.New("cumulative.threshold_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateExecution() error {
	if _, err := media.ParseMode(c.Execution.Mode); err != nil {
		return fmt.Errorf("execution.mode: %w", err)
	}
	if c.Execution.ExtractTimeoutSeconds <= 0 {
		return errors.New("execution.extract_timeout_seconds must be positive")
	}
	if c.Execution.ConcatTimeoutSeconds <= 0 {
		return errors.New("execution.concat_timeout_seconds must be positive")
	}
	if c.Execution.MinFreeGiB < 0 {
		return errors.New("execution.min_free_gib must be >= 0")
	}
	if c.Execution.CRF < 0 || c.Execution.CRF > 63 {
		return errors.New("execution.crf must be between 0 and 63")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
