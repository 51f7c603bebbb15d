package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tenantfs/internal/shared/paths"
	"go.uber.org/zap"
)

// Delete removes a file or a directory tree
func (c *Catalog) Delete(ctx context.Context, tenantID, path string) (err error) {
	timer := monitoring.NewTimer(c.Metrics, "delete")
	defer func() { timer.Stop(err) }()

	p, err := c.resolveTarget(ctx, tenantID, path)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(p.Abs); err != nil {
		return pathError("delete", p, err)
	}
	if err := os.RemoveAll(p.Abs); err != nil {
		return pathError("delete", p, err)
	}

	c.Logger.Debug("entry deleted", zap.String("tenant", tenantID), zap.String("path", p.Logical))
	return nil
}

// Rename moves from to to within one tenant. The destination must not exist;
// its parent directories are created as needed.
func (c *Catalog) Rename(ctx context.Context, tenantID, from, to string) (_ Entry, err error) {
	timer := monitoring.NewTimer(c.Metrics, "rename")
	defer func() { timer.Stop(err) }()

	src, err := c.resolveTarget(ctx, tenantID, from)
	if err != nil {
		return Entry{}, err
	}
	dst, err := c.resolveTarget(ctx, tenantID, to)
	if err != nil {
		return Entry{}, err
	}

	if _, err := os.Lstat(src.Abs); err != nil {
		return Entry{}, pathError("rename", src, err)
	}
	if _, err := os.Lstat(dst.Abs); err == nil {
		return Entry{}, fmt.Errorf("rename %s: %w", dst.Logical, ErrAlreadyExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Entry{}, pathError("rename", dst, err)
	}
	if paths.Within(src.Abs, dst.Abs) {
		return Entry{}, fmt.Errorf("%w: cannot move %s into itself", ErrInvalidPath, src.Logical)
	}

	if err := os.MkdirAll(filepath.Dir(dst.Abs), 0o755); err != nil {
		return Entry{}, pathError("rename", dst, err)
	}
	if err := os.Rename(src.Abs, dst.Abs); err != nil {
		return Entry{}, pathError("rename", src, err)
	}

	info, err := os.Lstat(dst.Abs)
	if err != nil {
		return Entry{}, pathError("rename", dst, err)
	}
	return c.newEntry(dst, info), nil
}
