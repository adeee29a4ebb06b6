package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"resplice/internal/logging"
	"resplice/internal/media"
	"resplice/internal/services"
)

const defaultSubtitleLanguage = "und"

// MuxSubtitles writes req.Video with req.Subtitles embedded to req.Output.
// A soft embed copies every stream and adds a subtitle track; a hard embed
// burns the cues into the picture with the configured encoder.
func (t *Toolchain) MuxSubtitles(ctx context.Context, req media.MuxRequest) error {
	if t == nil {
		return fmt.Errorf("toolchain not initialized")
	}
	if strings.TrimSpace(req.Video) == "" || strings.TrimSpace(req.Output) == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", "mux", "video and output paths are required", nil)
	}
	if _, err := os.Stat(req.Subtitles); err != nil {
		return services.Wrap(services.ErrNotFound, "ffmpeg", "mux", "subtitle file "+req.Subtitles, err)
	}

	var args []string
	switch req.Embed {
	case media.EmbedSoft:
		args = softMuxArgs(req)
	case media.EmbedHard:
		args = t.burnArgs(req)
	default:
		return services.Wrap(services.ErrValidation, "ffmpeg", "mux",
			fmt.Sprintf("embed mode %q does not mux", req.Embed), nil)
	}

	t.logger.Debug("embedding subtitles",
		logging.String("video", req.Video),
		logging.String("subtitles", req.Subtitles),
		logging.String("embed", string(req.Embed)),
	)
	if err := t.exec(ctx, "mux", args...); err != nil {
		_ = os.Remove(req.Output)
		return err
	}
	if err := verifyOutput("mux", req.Output, minOutputBytes); err != nil {
		_ = os.Remove(req.Output)
		return err
	}
	return nil
}

func softMuxArgs(req media.MuxRequest) []string {
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = defaultSubtitleLanguage
	}
	return []string{
		"-i", req.Video,
		"-i", req.Subtitles,
		"-map", "0:v:0",
		"-map", "0:a:0?",
		"-map", "1:s:0",
		"-c", "copy",
		"-c:s", subtitleCodec(req.Output),
		"-metadata:s:s:0", "language=" + lang,
		req.Output,
	}
}

func (t *Toolchain) burnArgs(req media.MuxRequest) []string {
	opts := t.opts
	args := []string{
		"-i", req.Video,
		"-vf", "subtitles=" + filterPath(req.Subtitles),
		"-c:v", opts.VideoCodec,
	}
	if tunable(opts.VideoCodec) {
		args = append(args, "-preset", opts.Preset, "-crf", strconv.Itoa(opts.CRF))
	}
	return append(args, "-c:a", "copy", req.Output)
}

// subtitleCodec picks a text subtitle codec the output container accepts.
func subtitleCodec(output string) string {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".mkv":
		return "srt"
	case ".webm":
		return "webvtt"
	default:
		return "mov_text"
	}
}

// filterPath quotes a path for use as a filtergraph option value.
func filterPath(path string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	return "'" + r.Replace(path) + "'"
}
