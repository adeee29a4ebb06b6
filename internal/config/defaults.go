package config

import "runtime"

const (
	defaultConfigPath            = "~/.config/resplice/config.toml"
	defaultWorkDir               = "~/.local/share/resplice/work"
	defaultLogDir                = "~/.local/share/resplice/logs"
	defaultHistoryDB             = "~/.local/share/resplice/history.db"
	defaultStrategy              = "text-similarity"
	defaultUnmatchedPolicy       = "drop"
	defaultMergeGapSeconds       = 0.5
	defaultThresholdSeconds      = 0.5
	defaultMode                  = "stream-copy"
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultExtractTimeoutSeconds = 300
	defaultConcatTimeoutSeconds  = 600
	defaultMinFreeGiB            = 5
	defaultVideoCodec            = "libx264"
	defaultCRF                   = 23
	defaultPreset                = "fast"
	defaultFallbackEncoding      = "gb18030"
	defaultEmbedSubtitles        = "none"
	defaultSubtitleLanguage      = "und"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Matching: Matching{
			Strategy:          defaultStrategy,
			Window:            10,
			TextWeight:        0.7,
			DurationWeight:    0.3,
			AcceptThreshold:   0.4,
			MinOverlapSeconds: 0.3,
			Exclusive:         true,
		},
		Plan: Plan{
			UnmatchedPolicy: defaultUnmatchedPolicy,
			MergeGapSeconds: defaultMergeGapSeconds,
			ExtendToNextCue: true,
			AllowEmpty:      true,
		},
		Cumulative: Cumulative{
			ThresholdSeconds: defaultThresholdSeconds,
		},
		Execution: Execution{
			Mode:                  defaultMode,
			FFmpegBinary:          defaultFFmpegBinary,
			FFprobeBinary:         defaultFFprobeBinary,
			ExtractTimeoutSeconds: defaultExtractTimeoutSeconds,
			ConcatTimeoutSeconds:  defaultConcatTimeoutSeconds,
			MaxParallel:           defaultMaxParallel(),
			MinFreeGiB:            defaultMinFreeGiB,
			VideoCodec:            defaultVideoCodec,
			CRF:                   defaultCRF,
			Preset:                defaultPreset,
		},
		Subtitles: Subtitles{
			FallbackEncoding: defaultFallbackEncoding,
		},
		Output: Output{
			EmbedSubtitles:   defaultEmbedSubtitles,
			SubtitleLanguage: defaultSubtitleLanguage,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultMaxParallel() int {
	if n := runtime.NumCPU() / 2; n > 1 {
		return n
	}
	return 1
}
