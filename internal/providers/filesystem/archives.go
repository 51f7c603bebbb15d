package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tenantfs/internal/shared/paths"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Extractor unpacks archives into a destination directory without ever
// writing outside it. Callers must hold the destination's coordinator lock.
type Extractor struct {
	*FilesystemOps
}

// NewExtractor creates an extractor over ops
func NewExtractor(ops *FilesystemOps) *Extractor {
	return &Extractor{FilesystemOps: ops}
}

// extractionJob carries the state of one Extract call
type extractionJob struct {
	archive     string
	destination string
	workspace   string
	format      ArchiveFormat

	files    []string
	rejected []string

	relocated []string
	created   []string
	written   atomic.Int64
}

// Extract unpacks archivePath into destinationDir. Entries are first written
// to a temp workspace under destinationDir and then renamed into place. On
// failure every relocated file is removed again and the error is returned.
// The archive itself is left alone.
func (e *Extractor) Extract(ctx context.Context, archivePath, destinationDir string) (_ *ExtractionResult, err error) {
	started := time.Now()
	job := &extractionJob{
		archive:     filepath.Clean(archivePath),
		destination: filepath.Clean(destinationDir),
	}

	format, ok := DetectArchiveFormat(job.archive)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedArchive, filepath.Base(job.archive))
	}
	job.format = format

	logger := e.Logger.With(
		zap.String("archive", filepath.Base(job.archive)),
		zap.String("destination", job.destination),
		zap.String("format", string(format)))

	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		e.Metrics.RecordExtraction(string(format), status, time.Since(started))
	}()

	if err := verifyContent(job.archive, format); err != nil {
		return nil, err
	}

	if err := e.createWorkspace(job); err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(job.workspace); rmErr != nil {
			logger.Error("failed to remove temp workspace", zap.String("workspace", job.workspace), zap.Error(rmErr))
		}
	}()

	if err := e.unpack(ctx, job, logger); err != nil {
		return nil, err
	}

	files := dedupeLast(job.files)
	if err := e.relocate(job, files); err != nil {
		e.rollback(job, logger)
		return nil, err
	}

	e.Metrics.RecordEntries(len(files), len(job.rejected))
	logger.Info("archive extracted",
		zap.Int("files", len(files)),
		zap.Int("rejected", len(job.rejected)),
		zap.Int64("bytes", job.written.Load()),
		zap.Duration("duration", time.Since(started)))

	return &ExtractionResult{Files: files, Rejected: job.rejected}, nil
}

func (e *Extractor) createWorkspace(job *extractionJob) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		workspace := filepath.Join(job.destination, e.IDs.WorkspaceName(paths.TempWorkspacePrefix))
		if err = os.Mkdir(workspace, 0o700); err == nil {
			job.workspace = workspace
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			break
		}
	}
	return fmt.Errorf("create temp workspace: %w", err)
}

// unpack streams accepted entries into the workspace in a single pass
func (e *Extractor) unpack(ctx context.Context, job *extractionJob, logger *logging.Logger) error {
	reader, err := openArchive(job.archive, job.format)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	var g errgroup.Group
	g.SetLimit(e.Limits.ExtractConcurrency)
	concurrent := reader.RandomAccess()

	for {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return err
		}

		entry, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = g.Wait()
			return fmt.Errorf("read archive: %w", err)
		}

		if entry.Mode.IsDir() {
			continue
		}
		if !entry.Mode.IsRegular() {
			logger.Debug("skipping non-regular entry", zap.String("entry", entry.Name), zap.String("mode", entry.Mode.String()))
			job.rejected = append(job.rejected, entry.Name)
			continue
		}

		rel, ok := e.acceptEntry(job, entry.Name)
		if !ok {
			job.rejected = append(job.rejected, entry.Name)
			continue
		}
		job.files = append(job.files, rel)

		if concurrent {
			g.Go(func() error { return e.writeEntry(job, rel, entry) })
			continue
		}
		if err := e.writeEntry(job, rel, entry); err != nil {
			return err
		}
	}

	return g.Wait()
}

// acceptEntry validates an entry name and returns its cleaned slash
// separated path relative to the workspace.
func (e *Extractor) acceptEntry(job *extractionJob, name string) (string, bool) {
	normalized := strings.ReplaceAll(name, `\`, "/")
	switch {
	case normalized == "",
		strings.ContainsRune(normalized, 0),
		strings.HasPrefix(normalized, "/"),
		hasDriveLetter(normalized):
		e.rejectEscape(job, name)
		return "", false
	}

	rel := path.Clean(normalized)
	if rel == "." {
		return "", false
	}
	if paths.IsReserved(rel) {
		e.Logger.Warn("archive entry uses a reserved name", zap.String("entry", name))
		return "", false
	}

	target, err := paths.Join(job.workspace, filepath.FromSlash(rel))
	if err != nil || target == job.workspace {
		e.rejectEscape(job, name)
		return "", false
	}
	// The archive is removed once extraction settles, so nothing may land on or under it.
	if paths.Within(job.archive, filepath.Join(job.destination, filepath.FromSlash(rel))) {
		e.Logger.Warn("archive entry would replace the archive", zap.String("entry", name))
		return "", false
	}
	return rel, true
}

// hasDriveLetter reports names such as "C:" or "c:/windows"
func hasDriveLetter(name string) bool {
	if len(name) < 2 || name[1] != ':' {
		return false
	}
	c := name[0]
	if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
		return false
	}
	return len(name) == 2 || name[2] == '/'
}

func (e *Extractor) rejectEscape(job *extractionJob, name string) {
	e.Logger.Security("archive_entry_escape",
		zap.String("archive", filepath.Base(job.archive)),
		zap.String("entry", name))
	e.Metrics.RecordPathEscape("archive")
}

// writeEntry streams one entry into the workspace, replacing any earlier
// entry with the same name.
func (e *Extractor) writeEntry(job *extractionJob, rel string, entry *archiveEntry) error {
	target := filepath.Join(job.workspace, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("extract %s: %w", rel, err)
	}

	src, err := entry.open()
	if err != nil {
		return fmt.Errorf("extract %s: %w", rel, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("extract %s: %w", rel, err)
	}

	_, err = io.Copy(dst, &budgetReader{r: src, job: job, limit: e.Limits.MaxExtractBytes})
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("extract %s: %w", rel, err)
	}
	return nil
}

// budgetReader fails once the job has written more than limit bytes in total
type budgetReader struct {
	r     io.Reader
	job   *extractionJob
	limit int64
}

func (b *budgetReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if n > 0 && b.job.written.Add(int64(n)) > b.limit && b.limit > 0 {
		return n, fmt.Errorf("%w: archive expands beyond %d bytes", ErrTooLarge, b.limit)
	}
	return n, err
}

// relocate moves extracted files from the workspace into the destination
func (e *Extractor) relocate(job *extractionJob, files []string) error {
	for _, rel := range files {
		local := filepath.FromSlash(rel)
		src := filepath.Join(job.workspace, local)
		if !paths.Within(job.workspace, src) {
			return fmt.Errorf("relocate %s: source escapes workspace", rel)
		}
		dst, err := paths.Join(job.destination, local)
		if err != nil || dst == job.destination {
			return fmt.Errorf("relocate %s: target escapes destination", rel)
		}

		if err := mkdirTracked(job.destination, filepath.Dir(dst), &job.created); err != nil {
			return fmt.Errorf("relocate %s: %w", rel, err)
		}
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("relocate %s: %w", rel, err)
		}
		job.relocated = append(job.relocated, dst)
	}
	return nil
}

// mkdirTracked creates dir and any missing parents up to root, recording
// each directory it creates. Existing non-directories, symlinks included,
// are an error.
func mkdirTracked(root, dir string, created *[]string) error {
	if dir == root {
		return nil
	}
	info, err := os.Lstat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s: %w", filepath.Base(dir), ErrNotADirectory)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := mkdirTracked(root, filepath.Dir(dir), created); err != nil {
		return err
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return err
	}
	*created = append(*created, dir)
	return nil
}

// rollback removes relocated files and prunes directories the job created
func (e *Extractor) rollback(job *extractionJob, logger *logging.Logger) {
	e.Metrics.IncRollbacks()
	logger.Warn("rolling back partial extraction", zap.Int("relocated", len(job.relocated)))

	for _, file := range job.relocated {
		if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("rollback failed to remove file", zap.String("file", file), zap.Error(err))
		}
	}
	for i := len(job.created) - 1; i >= 0; i-- {
		// only removes directories that are empty again
		_ = os.Remove(job.created[i])
	}
}

// dedupeLast removes repeated paths, keeping the position of the last occurrence
func dedupeLast(files []string) []string {
	seen := make(map[string]bool, len(files))
	out := make([]string, 0, len(files))
	for i := len(files) - 1; i >= 0; i-- {
		if seen[files[i]] {
			continue
		}
		seen[files[i]] = true
		out = append(out, files[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
