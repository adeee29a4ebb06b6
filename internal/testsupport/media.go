package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"resplice/internal/media"
)

// Segment is a span of some source timeline. Fake media files are a list of
// segments, one per line, so every cut and join shows up in the content.
type Segment struct {
	Label      string
	Start, End time.Duration
}

func (s Segment) length() time.Duration { return s.End - s.Start }

// FakeMedia implements media.Handle over plain text files. Extract, Freeze
// and Concat rewrite segment lists instead of running a toolchain.
type FakeMedia struct {
	t   testing.TB
	Dir string

	// Block makes the named operation wait for its context.
	Block string
	// Fail makes the named operation return the error.
	Fail map[string]error
	// Pad is appended to every multi-clip concat to simulate drift.
	Pad time.Duration
	// Main describes extracted clips. Source, when set, describes files opened
	// with Open, as when precise mode re-encodes clips away from the input
	// format. Labeled overrides both for clips whose first segment has that
	// label.
	Main    media.StreamInfo
	Source  *media.StreamInfo
	Labeled map[string]media.StreamInfo
	// Frozen, when set, is what every freeze clip reports regardless of the
	// format it was asked to match.
	Frozen *media.StreamInfo

	mu      sync.Mutex
	seq     int
	calls   []string
	encoded map[string]media.StreamInfo
	muxes   []Mux
}

// Mux is one recorded subtitle embed.
type Mux struct {
	Request media.MuxRequest
	// Subtitles is the SRT content handed to the muxer.
	Subtitles string
}

// NewFakeMedia writes a source file of the given duration and returns a
// handle over it.
func NewFakeMedia(t testing.TB, duration time.Duration) (*FakeMedia, media.Handle) {
	t.Helper()
	fm := &FakeMedia{
		t:   t,
		Dir: t.TempDir(),
		Main: media.StreamInfo{
			VideoCodec: "h264", Width: 1920, Height: 1080, PixelFormat: "yuv420p",
			HasAudio: true, AudioCodec: "aac", SampleRate: 48000, Channels: 2,
		},
	}
	path := filepath.Join(fm.Dir, "source.fake")
	fm.WriteSource(path, duration)
	return fm, fm.Open(path, fm.Dir)
}

// WriteSource creates a single-segment source file at path.
func (fm *FakeMedia) WriteSource(path string, duration time.Duration) {
	fm.write(path, []Segment{{Label: "src", Start: 0, End: duration}})
}

// WriteSegments creates a source file made of segs.
func (fm *FakeMedia) WriteSegments(path string, segs ...Segment) {
	fm.write(path, segs)
}

// Open returns a handle over source whose products land in workDir.
func (fm *FakeMedia) Open(source, workDir string) media.Handle {
	return &fakeHandle{fm: fm, path: source, dir: workDir, source: true}
}

// Encoded returns the format a freeze clip at path was asked to match.
func (fm *FakeMedia) Encoded(path string) (media.StreamInfo, bool) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	info, ok := fm.encoded[path]
	return info, ok
}

// MuxSubtitles copies req.Video to req.Output and records the request along
// with the subtitle text it carried.
func (fm *FakeMedia) MuxSubtitles(ctx context.Context, req media.MuxRequest) error {
	if _, err := fm.record("mux", filepath.Dir(req.Output)); err != nil {
		return err
	}
	if err := fm.wait(ctx, "mux"); err != nil {
		return err
	}
	data, err := os.ReadFile(req.Video)
	if err != nil {
		return err
	}
	subs, err := os.ReadFile(req.Subtitles)
	if err != nil {
		return err
	}
	if err := os.WriteFile(req.Output, data, 0o644); err != nil {
		return err
	}
	fm.mu.Lock()
	fm.muxes = append(fm.muxes, Mux{Request: req, Subtitles: string(subs)})
	fm.mu.Unlock()
	return nil
}

// Muxes returns the subtitle embeds run so far.
func (fm *FakeMedia) Muxes() []Mux {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return append([]Mux(nil), fm.muxes...)
}

// Count returns how many times the named operation ran.
func (fm *FakeMedia) Count(kind string) int {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	n := 0
	for _, c := range fm.calls {
		if c == kind {
			n++
		}
	}
	return n
}

// Scratch lists files other than source.fake left in dir.
func (fm *FakeMedia) Scratch(dir string) []string {
	fm.t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		fm.t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		if e.Name() != "source.fake" {
			names = append(names, e.Name())
		}
	}
	return names
}

// Describe renders a fake media file as "label:start-end" spans in seconds.
func Describe(t testing.TB, path string) string {
	t.Helper()
	segs, err := readSegments(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, fmt.Sprintf("%s:%g-%g", s.Label, s.Start.Seconds(), s.End.Seconds()))
	}
	return strings.Join(parts, " ")
}

func (fm *FakeMedia) record(kind, dir string) (string, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	fm.calls = append(fm.calls, kind)
	fm.seq++
	return filepath.Join(dir, fmt.Sprintf("%s-%03d.fake", kind, fm.seq)), fm.Fail[kind]
}

func (fm *FakeMedia) wait(ctx context.Context, kind string) error {
	if fm.Block != kind {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (fm *FakeMedia) write(path string, segs []Segment) {
	fm.t.Helper()
	var b strings.Builder
	for _, s := range segs {
		fmt.Fprintf(&b, "%s %d %d\n", s.Label, s.Start.Milliseconds(), s.End.Milliseconds())
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		fm.t.Fatalf("write fake media: %v", err)
	}
}

func readSegments(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var segs []Segment
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed segment %q", line)
		}
		start, _ := strconv.ParseInt(fields[1], 10, 64)
		end, _ := strconv.ParseInt(fields[2], 10, 64)
		segs = append(segs, Segment{
			Label: fields[0],
			Start: time.Duration(start) * time.Millisecond,
			End:   time.Duration(end) * time.Millisecond,
		})
	}
	return segs, nil
}

func total(segs []Segment) time.Duration {
	var d time.Duration
	for _, s := range segs {
		d += s.length()
	}
	return d
}

type fakeHandle struct {
	fm     *FakeMedia
	path   string
	dir    string
	source bool
}

func (h *fakeHandle) Path() string { return h.path }

func (h *fakeHandle) Probe(ctx context.Context) (time.Duration, error) {
	if _, err := h.fm.record("probe", h.dir); err != nil {
		return 0, err
	}
	segs, err := readSegments(h.path)
	if err != nil {
		return 0, err
	}
	return total(segs), nil
}

func (h *fakeHandle) Streams(ctx context.Context) (media.StreamInfo, error) {
	segs, err := readSegments(h.path)
	if err != nil {
		return media.StreamInfo{}, err
	}
	if len(segs) == 1 && strings.HasPrefix(segs[0].Label, "freeze") {
		if h.fm.Frozen != nil {
			return *h.fm.Frozen, nil
		}
		if info, ok := h.fm.Encoded(h.path); ok {
			return info, nil
		}
	}
	if len(segs) > 0 {
		if info, ok := h.fm.Labeled[segs[0].Label]; ok {
			return info, nil
		}
	}
	if h.source && h.fm.Source != nil {
		return *h.fm.Source, nil
	}
	return h.fm.Main, nil
}

func (h *fakeHandle) Extract(ctx context.Context, start, end time.Duration, mode media.Mode) (media.Clip, error) {
	out, err := h.fm.record("extract", h.dir)
	if err != nil {
		return media.Clip{}, err
	}
	if err := h.fm.wait(ctx, "extract"); err != nil {
		return media.Clip{}, err
	}
	segs, err := readSegments(h.path)
	if err != nil {
		return media.Clip{}, err
	}
	var cut []Segment
	var pos time.Duration
	for _, s := range segs {
		lo, hi := max(start, pos), min(end, pos+s.length())
		if lo < hi {
			cut = append(cut, Segment{Label: s.Label, Start: s.Start + lo - pos, End: s.Start + hi - pos})
		}
		pos += s.length()
	}
	h.fm.write(out, cut)
	return media.Clip{Path: out, Duration: total(cut)}, nil
}

func (h *fakeHandle) ExtractFrame(ctx context.Context, ts time.Duration) (string, error) {
	out, err := h.fm.record("frame", h.dir)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(out, []byte(strconv.FormatFloat(ts.Seconds(), 'g', -1, 64)), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

func (h *fakeHandle) Freeze(ctx context.Context, frame string, length time.Duration, like media.StreamInfo) (media.Clip, error) {
	out, err := h.fm.record("freeze", h.dir)
	if err != nil {
		return media.Clip{}, err
	}
	if err := h.fm.wait(ctx, "freeze"); err != nil {
		return media.Clip{}, err
	}
	ts, err := os.ReadFile(frame)
	if err != nil {
		return media.Clip{}, err
	}
	h.fm.write(out, []Segment{{Label: "freeze@" + string(ts), Start: 0, End: length}})
	h.fm.mu.Lock()
	if h.fm.encoded == nil {
		h.fm.encoded = make(map[string]media.StreamInfo)
	}
	h.fm.encoded[out] = like
	h.fm.mu.Unlock()
	return media.Clip{Path: out, Duration: length}, nil
}

func (h *fakeHandle) Concat(ctx context.Context, clips []media.Clip, mode media.Mode) (media.Clip, error) {
	out, err := h.fm.record("concat", h.dir)
	if err != nil {
		return media.Clip{}, err
	}
	if err := h.fm.wait(ctx, "concat"); err != nil {
		return media.Clip{}, err
	}
	if len(clips) == 1 {
		return clips[0], nil
	}
	var joined []Segment
	for _, c := range clips {
		segs, err := readSegments(c.Path)
		if err != nil {
			return media.Clip{}, err
		}
		joined = append(joined, segs...)
	}
	if h.fm.Pad > 0 {
		joined = append(joined, Segment{Label: "pad", Start: 0, End: h.fm.Pad})
	}
	h.fm.write(out, joined)
	return media.Clip{Path: out, Duration: total(joined)}, nil
}

func (h *fakeHandle) Reopen(clip media.Clip) media.Handle {
	return &fakeHandle{fm: h.fm, path: clip.Path, dir: h.dir}
}
