package splice

import (
	"fmt"
	"os"
	"strings"
)

// Workspace is a task-scoped scratch directory. Every clip a task produces
// lives here; Close removes it on success and failure alike.
type Workspace struct {
	dir string
}

// NewWorkspace creates a fresh directory under root. An empty root uses the
// system temp directory.
func NewWorkspace(root, label string) (*Workspace, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create work root: %w", err)
		}
	}
	pattern := "resplice-*"
	if label = sanitizeLabel(label); label != "" {
		pattern = "resplice-" + label + "-*"
	}
	dir, err := os.MkdirTemp(root, pattern)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace path.
func (w *Workspace) Dir() string {
	return w.dir
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	if w == nil || w.dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}

func sanitizeLabel(label string) string {
	label = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return -1
		}
	}, label)
	if len(label) > 8 {
		label = label[:8]
	}
	return label
}
