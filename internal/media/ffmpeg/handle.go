package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"resplice/internal/logging"
	"resplice/internal/media"
	"resplice/internal/media/ffprobe"
	"resplice/internal/services"
)

// frameBackoff keeps frame grabs inside the decodable range.
const frameBackoff = 100 * time.Millisecond

// Handle is a media.Handle backed by a file on disk.
type Handle struct {
	tc      *Toolchain
	path    string
	workDir string
	ext     string

	mu     sync.Mutex
	probed *ffprobe.Result
}

var _ media.Handle = (*Handle)(nil)

func (h *Handle) Path() string { return h.path }

// WorkDir is where the handle writes its clips.
func (h *Handle) WorkDir() string { return h.workDir }

func (h *Handle) inspect(ctx context.Context) (ffprobe.Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.probed != nil {
		return *h.probed, nil
	}
	res, err := ffprobe.InspectWith(ctx, h.tc.probe, h.tc.opts.ProbeBinary, h.path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ffprobe.Result{}, fmt.Errorf("ffprobe inspect: %w", ctxErr)
		}
		return ffprobe.Result{}, services.Wrap(services.ErrExternalTool, "ffprobe", "inspect", h.path, err)
	}
	h.probed = &res
	return res, nil
}

// Probe returns the container duration.
func (h *Handle) Probe(ctx context.Context) (time.Duration, error) {
	res, err := h.inspect(ctx)
	if err != nil {
		return 0, err
	}
	d := res.Duration()
	if d <= 0 {
		return 0, services.Wrap(services.ErrExtraction, "ffprobe", "duration", "no usable duration for "+h.path, nil)
	}
	return d, nil
}

func (h *Handle) Streams(ctx context.Context) (media.StreamInfo, error) {
	res, err := h.inspect(ctx)
	if err != nil {
		return media.StreamInfo{}, err
	}
	return res.StreamInfo(), nil
}

// Extract cuts [start, end) from the source. Stream copy snaps to keyframes;
// precise mode re-encodes with the configured codec.
func (h *Handle) Extract(ctx context.Context, start, end time.Duration, mode media.Mode) (media.Clip, error) {
	if start < 0 || end <= start {
		return media.Clip{}, services.Wrap(services.ErrValidation, "ffmpeg", "extract",
			fmt.Sprintf("invalid range %s-%s", start, end), nil)
	}
	out := h.tc.nextPath(h.workDir, "clip", h.ext)
	args := []string{
		"-ss", seconds(start),
		"-i", h.path,
		"-t", seconds(end - start),
		"-map", "0:v:0",
		"-map", "0:a:0?",
	}
	args = append(args, h.encodeArgs(mode)...)
	args = append(args, out)

	if err := h.tc.exec(ctx, "extract", args...); err != nil {
		return media.Clip{}, err
	}
	if err := verifyOutput("extract", out, minOutputBytes); err != nil {
		return media.Clip{}, err
	}
	return media.Clip{Path: out, Duration: end - start}, nil
}

func (h *Handle) encodeArgs(mode media.Mode) []string {
	if mode != media.ModePrecise {
		return []string{"-c", "copy", "-avoid_negative_ts", "1"}
	}
	opts := h.tc.opts
	args := []string{"-c:v", opts.VideoCodec}
	if tunable(opts.VideoCodec) {
		args = append(args, "-preset", opts.Preset, "-crf", strconv.Itoa(opts.CRF))
	}
	return append(args, "-c:a", "aac")
}

// ExtractFrame grabs the frame at ts as a PNG. Timestamps at or past the end
// of the source are pulled back slightly so a frame always decodes.
func (h *Handle) ExtractFrame(ctx context.Context, ts time.Duration) (string, error) {
	if d, err := h.Probe(ctx); err == nil && ts > d-frameBackoff {
		ts = d - frameBackoff
	}
	if ts < 0 {
		ts = 0
	}
	out := h.tc.nextPath(h.workDir, "frame", ".png")
	if err := h.tc.exec(ctx, "frame", "-ss", seconds(ts), "-i", h.path, "-frames:v", "1", "-update", "1", out); err != nil {
		return "", err
	}
	if err := verifyOutput("frame", out, 0); err != nil {
		return "", err
	}
	return out, nil
}

// Freeze loops a still frame for length, encoded to match like so it can be
// joined with stream-copied clips.
func (h *Handle) Freeze(ctx context.Context, frame string, length time.Duration, like media.StreamInfo) (media.Clip, error) {
	if length <= 0 {
		return media.Clip{}, services.Wrap(services.ErrValidation, "ffmpeg", "freeze", "non-positive length", nil)
	}
	venc, err := videoEncoder(like.VideoCodec)
	if err != nil {
		return media.Clip{}, err
	}
	rate := like.FrameRate
	if rate == "" {
		rate = "25"
	}

	args := []string{"-loop", "1", "-framerate", rate, "-i", frame}
	var aenc string
	if like.HasAudio {
		if aenc, err = audioEncoder(like.AudioCodec); err != nil {
			return media.Clip{}, err
		}
		args = append(args, "-f", "lavfi", "-i", anullsrc(like))
	}
	args = append(args, "-t", seconds(length), "-map", "0:v:0")
	if like.HasAudio {
		args = append(args, "-map", "1:a:0")
	}

	filters := make([]string, 0, 2)
	if like.Width > 0 && like.Height > 0 {
		filters = append(filters, fmt.Sprintf("scale=%d:%d", like.Width, like.Height))
	}
	pix := like.PixelFormat
	if pix == "" {
		pix = "yuv420p"
	}
	filters = append(filters, "format="+pix)
	args = append(args, "-vf", strings.Join(filters, ","), "-r", rate, "-c:v", venc)
	if tunable(venc) {
		args = append(args, "-preset", h.tc.opts.Preset, "-crf", strconv.Itoa(h.tc.opts.CRF))
	}
	if like.HasAudio {
		args = append(args, "-c:a", aenc)
		if like.Channels > 0 {
			args = append(args, "-ac", strconv.Itoa(like.Channels))
		}
	}

	out := h.tc.nextPath(h.workDir, "freeze", h.ext)
	args = append(args, out)
	if err := h.tc.exec(ctx, "freeze", args...); err != nil {
		return media.Clip{}, err
	}
	if err := verifyOutput("freeze", out, minOutputBytes); err != nil {
		return media.Clip{}, err
	}
	return media.Clip{Path: out, Duration: length}, nil
}

// Concat joins clips with the concat demuxer. Clips are never re-encoded
// here; precise mode already produced uniform streams.
func (h *Handle) Concat(ctx context.Context, clips []media.Clip, mode media.Mode) (media.Clip, error) {
	if len(clips) == 0 {
		return media.Clip{}, services.Wrap(services.ErrValidation, "ffmpeg", "concat", "no clips", nil)
	}
	if len(clips) == 1 {
		return clips[0], nil
	}

	list := h.tc.nextPath(h.workDir, "concat", ".txt")
	var b strings.Builder
	var total time.Duration
	for _, clip := range clips {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(clip.Path, "'", `'\''`))
		total += clip.Duration
	}
	if err := os.WriteFile(list, []byte(b.String()), 0o644); err != nil {
		return media.Clip{}, services.Wrap(services.ErrExtraction, "ffmpeg", "concat", "write concat list", err)
	}
	defer os.Remove(list)

	out := h.tc.nextPath(h.workDir, "concat", h.ext)
	if err := h.tc.exec(ctx, "concat", "-f", "concat", "-safe", "0", "-i", list, "-c", "copy", out); err != nil {
		return media.Clip{}, err
	}
	if err := verifyOutput("concat", out, minOutputBytes); err != nil {
		return media.Clip{}, err
	}
	h.tc.logger.Debug("concatenated clips",
		logging.Int("clips", len(clips)),
		logging.String("mode", string(mode)),
		logging.Duration("duration", total),
	)
	return media.Clip{Path: out, Duration: total}, nil
}

// Reopen returns a handle over a clip in the same workspace.
func (h *Handle) Reopen(clip media.Clip) media.Handle {
	return h.tc.Open(clip.Path, h.workDir)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func tunable(encoder string) bool {
	return encoder == "libx264" || encoder == "libx265"
}

func anullsrc(like media.StreamInfo) string {
	layout := like.ChannelLayout
	if layout == "" {
		switch like.Channels {
		case 1:
			layout = "mono"
		case 6:
			layout = "5.1"
		default:
			layout = "stereo"
		}
	}
	rate := like.SampleRate
	if rate <= 0 {
		rate = 48000
	}
	return fmt.Sprintf("anullsrc=channel_layout=%s:sample_rate=%d", layout, rate)
}

func videoEncoder(codec string) (string, error) {
	switch strings.ToLower(codec) {
	case "h264":
		return "libx264", nil
	case "hevc", "h265":
		return "libx265", nil
	case "vp9":
		return "libvpx-vp9", nil
	case "av1":
		return "libsvtav1", nil
	case "mpeg4":
		return "mpeg4", nil
	default:
		return "", services.Wrap(services.ErrFormatMismatch, "ffmpeg", "freeze",
			fmt.Sprintf("no encoder for video codec %q", codec), nil)
	}
}

func audioEncoder(codec string) (string, error) {
	switch strings.ToLower(codec) {
	case "aac":
		return "aac", nil
	case "opus":
		return "libopus", nil
	case "mp3":
		return "libmp3lame", nil
	case "vorbis":
		return "libvorbis", nil
	case "ac3", "eac3", "flac", "pcm_s16le":
		return strings.ToLower(codec), nil
	default:
		return "", services.Wrap(services.ErrFormatMismatch, "ffmpeg", "freeze",
			fmt.Sprintf("no encoder for audio codec %q", codec), nil)
	}
}
