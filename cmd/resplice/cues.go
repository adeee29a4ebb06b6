package main

import (
	"fmt"
	"strings"

	"resplice/internal/config"
	"resplice/internal/cue"
	"resplice/internal/srt"
)

func loadIndex(cfg *config.Config, path string) (*cue.Index, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("subtitle path is required")
	}
	cues, err := srt.ReadFile(path, cfg.Subtitles.FallbackEncoding)
	if err != nil {
		return nil, err
	}
	idx, err := cue.NewIndex(cues)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

func loadPair(cfg *config.Config, original, target string) (*cue.Index, *cue.Index, error) {
	orig, err := loadIndex(cfg, original)
	if err != nil {
		return nil, nil, fmt.Errorf("original subtitles: %w", err)
	}
	tgt, err := loadIndex(cfg, target)
	if err != nil {
		return nil, nil, fmt.Errorf("target subtitles: %w", err)
	}
	return orig, tgt, nil
}
