package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Bios-Marcel/wastebasket/v2"
)

// Trasher sends items to a recoverable trash.
type Trasher interface {
	Trash(ctx context.Context, path string) error
}

// SystemTrash returns the trash of the running OS: the freedesktop trash
// on Linux and BSD, the Finder trash on macOS, the Recycle Bin on Windows.
func SystemTrash() Trasher {
	return osTrash{send: wastebasket.Trash}
}

type osTrash struct {
	send func(paths ...string) error
}

func (t osTrash) Trash(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(abs); err != nil {
		return fmt.Errorf("failed to move to trash: %w", err)
	}
	if err := t.send(abs); err != nil {
		return fmt.Errorf("failed to move to trash: %w", err)
	}
	return nil
}
