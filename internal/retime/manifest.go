package retime

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"resplice/internal/match"
	"resplice/internal/media"
	"resplice/internal/services"
)

// Manifest lists the tasks of a batch run.
//
//	[defaults]
//	strategy = "nearest-time"
//	output_dir = "out"
//
//	[[task]]
//	name = "ep01"
//	video = "ep01.mkv"
//	original = "ep01.orig.srt"
//	target = "ep01.srt"
type Manifest struct {
	Defaults Defaults `toml:"defaults"`
	Tasks    []Task   `toml:"task" validate:"required,min=1,dive"`
}

// Defaults apply to every task that leaves the field empty.
type Defaults struct {
	Strategy  string `toml:"strategy" validate:"omitempty,strategy"`
	Mode      string `toml:"mode" validate:"omitempty,mode"`
	OutputDir string `toml:"output_dir"`
}

// Task is one manifest entry.
type Task struct {
	Name     string `toml:"name"`
	Video    string `toml:"video" validate:"required"`
	Original string `toml:"original" validate:"required"`
	Target   string `toml:"target" validate:"required"`
	Output   string `toml:"output"`
	Strategy string `toml:"strategy" validate:"omitempty,strategy"`
	Mode     string `toml:"mode" validate:"omitempty,mode"`
}

var manifestValidator = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("toml"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("strategy", func(fl validator.FieldLevel) bool {
		_, err := match.ParseStrategy(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("mode", func(fl validator.FieldLevel) bool {
		_, err := media.ParseMode(fl.Field().String())
		return err == nil
	})
	return v
}()

// LoadManifest decodes and validates a batch manifest. Relative paths are
// resolved against the manifest's directory. outputDir stands in for an unset
// [defaults] output_dir, the way paths.output_dir does for a single retime;
// empty keeps outputs beside their videos.
func LoadManifest(path, outputDir string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "batch", "load manifest", path, err)
	}
	var m Manifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, services.Wrap(services.ErrValidation, "batch", "parse manifest", path, err)
	}
	if strings.TrimSpace(m.Defaults.OutputDir) == "" {
		m.Defaults.OutputDir = outputDir
	}
	m.resolve(filepath.Dir(path))
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) resolve(base string) {
	abs := func(p string) string {
		if p = strings.TrimSpace(p); p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	m.Defaults.OutputDir = abs(m.Defaults.OutputDir)
	for i := range m.Tasks {
		t := &m.Tasks[i]
		t.Video = abs(t.Video)
		t.Original = abs(t.Original)
		t.Target = abs(t.Target)
		t.Output = abs(t.Output)
	}
}

// Validate checks field rules and rejects tasks that would publish to the
// same output.
func (m *Manifest) Validate() error {
	if err := manifestValidator.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return services.Wrap(services.ErrValidation, "batch", "validate manifest", "", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s %s", fieldPath(fe), friendlyMessage(fe)))
		}
		sort.Strings(msgs)
		return services.Wrap(services.ErrValidation, "batch", "validate manifest", strings.Join(msgs, "; "), nil)
	}

	seen := make(map[string]int, len(m.Tasks))
	for i, req := range m.Requests() {
		out := filepath.Clean(req.Output)
		if j, dup := seen[out]; dup {
			return services.Wrap(services.ErrValidation, "batch", "validate manifest",
				fmt.Sprintf("task[%d] and task[%d] both write %s", j, i, out), nil)
		}
		seen[out] = i
	}
	return nil
}

// Requests expands tasks into retime requests with defaults applied.
func (m *Manifest) Requests() []Request {
	out := make([]Request, 0, len(m.Tasks))
	for i, t := range m.Tasks {
		name := t.Name
		if name == "" {
			name = fmt.Sprintf("task-%d", i+1)
		}
		output := t.Output
		if output == "" {
			output = DefaultOutputPath(t.Video, m.Defaults.OutputDir)
		}
		out = append(out, Request{
			Name:     name,
			Video:    t.Video,
			Original: t.Original,
			Target:   t.Target,
			Output:   output,
			Strategy: firstNonEmpty(t.Strategy, m.Defaults.Strategy),
			Mode:     firstNonEmpty(t.Mode, m.Defaults.Mode),
		})
	}
	return out
}

// fieldPath drops the root struct name: "Manifest.task[0].video" becomes
// "task[0].video".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("needs at least %s entries", fe.Param())
	case "strategy":
		return fmt.Sprintf("must be one of %v", match.Strategies)
	case "mode":
		return "must be stream-copy or precise"
	default:
		return "is invalid"
	}
}
