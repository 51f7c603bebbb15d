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

// Catalog is the directory catalog of tenant files
type Catalog struct {
	*FilesystemOps
}

// NewCatalog creates a catalog over ops
func NewCatalog(ops *FilesystemOps) *Catalog {
	return &Catalog{FilesystemOps: ops}
}

// Read reads file contents
func (c *Catalog) Read(ctx context.Context, tenantID, path string) (_ *FileContent, err error) {
	timer := monitoring.NewTimer(c.Metrics, "read")
	defer func() { timer.Stop(err) }()

	p, err := c.resolve(ctx, tenantID, path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p.Abs)
	if err != nil {
		return nil, pathError("read", p, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("read %s: %w", p.Logical, ErrIsADirectory)
	}
	if info.Size() > c.Limits.MaxReadSize {
		return nil, fmt.Errorf("read %s: %w: %d bytes exceeds limit of %d",
			p.Logical, ErrTooLarge, info.Size(), c.Limits.MaxReadSize)
	}

	data, err := os.ReadFile(p.Abs)
	if err != nil {
		return nil, pathError("read", p, err)
	}

	content := &FileContent{
		Entry:    c.newEntry(p, info),
		Data:     data,
		MimeType: detectMIME(data),
	}
	content.Size = int64(len(data))
	if content.Editable {
		content.Charset = detectCharset(data)
	}
	return content, nil
}

// Write writes data to a file, creating parents and replacing any previous content
func (c *Catalog) Write(ctx context.Context, tenantID, path string, data []byte) (_ Entry, err error) {
	timer := monitoring.NewTimer(c.Metrics, "write")
	defer func() { timer.Stop(err) }()

	p, err := c.resolveTarget(ctx, tenantID, path)
	if err != nil {
		return Entry{}, err
	}
	return c.write(p, data)
}

func (c *Catalog) write(p paths.SandboxedPath, data []byte) (Entry, error) {
	if info, err := os.Stat(p.Abs); err == nil && info.IsDir() {
		return Entry{}, fmt.Errorf("write %s: %w", p.Logical, ErrIsADirectory)
	}
	if err := os.MkdirAll(filepath.Dir(p.Abs), 0o755); err != nil {
		return Entry{}, pathError("write", p, err)
	}
	if err := c.writeFileAtomic(p.Abs, data, 0o644); err != nil {
		return Entry{}, pathError("write", p, err)
	}

	info, err := os.Stat(p.Abs)
	if err != nil {
		return Entry{}, pathError("write", p, err)
	}
	c.Logger.Debug("file written",
		zap.String("tenant", p.TenantID),
		zap.String("path", p.Logical),
		zap.Int("size", len(data)))
	return c.newEntry(p, info), nil
}

// writeFileAtomic writes to a sibling temp file, syncs it and renames it over path
func (c *Catalog) writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp := filepath.Join(filepath.Dir(path), c.IDs.TempFileName(filepath.Base(path)))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Create creates an empty file or directory. The target must not exist.
func (c *Catalog) Create(ctx context.Context, tenantID, path string, kind EntryKind) (_ Entry, err error) {
	timer := monitoring.NewTimer(c.Metrics, "create")
	defer func() { timer.Stop(err) }()

	if kind != KindFile && kind != KindDirectory {
		return Entry{}, fmt.Errorf("create %s: unknown entry kind %q", path, kind)
	}

	p, err := c.resolveTarget(ctx, tenantID, path)
	if err != nil {
		return Entry{}, err
	}
	if _, err := os.Lstat(p.Abs); err == nil {
		return Entry{}, fmt.Errorf("create %s: %w", p.Logical, ErrAlreadyExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Entry{}, pathError("create", p, err)
	}

	if err := os.MkdirAll(filepath.Dir(p.Abs), 0o755); err != nil {
		return Entry{}, pathError("create", p, err)
	}

	switch kind {
	case KindDirectory:
		err = os.Mkdir(p.Abs, 0o755)
	default:
		var f *os.File
		f, err = os.OpenFile(p.Abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			err = f.Close()
		}
	}
	if err != nil {
		return Entry{}, pathError("create", p, err)
	}

	info, err := os.Stat(p.Abs)
	if err != nil {
		return Entry{}, pathError("create", p, err)
	}
	return c.newEntry(p, info), nil
}
