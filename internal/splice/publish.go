package splice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"resplice/internal/services"
)

const lockRetryDelay = 250 * time.Millisecond

// Publish copies src to dest atomically. The copy is written to a temporary
// file beside dest, synced, and renamed over dest while holding dest.lock,
// so concurrent publishers to one destination serialize and readers never
// observe a partial file. The lock file is left in place.
func Publish(ctx context.Context, src, dest string) error {
	if src == "" || dest == "" {
		return services.Wrap(services.ErrValidation, "splice", "publish", "empty source or destination", nil)
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	lock := flock.New(dest + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock destination: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock destination %s: not acquired", dest)
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := copyInto(tmp, src); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("rename output into place: %w", err)
	}
	committed = true
	return syncDir(dir)
}

func copyInto(dst *os.File, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer in.Close()
	if info, err := in.Stat(); err == nil {
		_ = dst.Chmod(info.Mode().Perm() | 0o644)
	}
	if _, err := io.Copy(dst, in); err != nil {
		return fmt.Errorf("copy artifact: %w", err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open destination directory: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("sync destination directory: %w", err)
	}
	return nil
}
