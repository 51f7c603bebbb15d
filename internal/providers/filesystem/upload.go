package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tenantfs/internal/shared/paths"
	"go.uber.org/zap"
)

// Pipeline stores uploads and optionally extracts archives in place
type Pipeline struct {
	*FilesystemOps
	catalog     *Catalog
	coordinator *Coordinator
	extractor   *Extractor
}

// NewPipeline wires a pipeline from its collaborators
func NewPipeline(catalog *Catalog, coordinator *Coordinator, extractor *Extractor) *Pipeline {
	return &Pipeline{
		FilesystemOps: catalog.FilesystemOps,
		catalog:       catalog,
		coordinator:   coordinator,
		extractor:     extractor,
	}
}

// Upload writes data to relativePath. When autoExtract is set and the name
// has an archive extension, the archive is extracted into its own directory
// and then deleted. A failed extraction also deletes the archive, leaves no
// extracted files behind and returns *ExtractionFailedError.
func (p *Pipeline) Upload(ctx context.Context, tenantID, relativePath string, data []byte, autoExtract bool) (_ *UploadResult, err error) {
	timer := monitoring.NewTimer(p.Metrics, "upload")
	defer func() { timer.Stop(err) }()

	target, err := p.resolveTarget(ctx, tenantID, relativePath)
	if err != nil {
		return nil, err
	}
	if _, err := p.catalog.write(target, data); err != nil {
		return nil, err
	}

	result := &UploadResult{
		FileName:       target.Base(),
		Path:           target.Logical,
		Size:           int64(len(data)),
		MimeType:       detectMIME(data),
		Checksum:       checksum(data),
		ExtractedFiles: []string{},
	}
	if !autoExtract || !IsArchive(target.Base()) {
		return result, nil
	}

	destination := target.Parent()
	var extracted *ExtractionResult
	err = p.coordinator.RunExclusive(ctx, destination.Abs, func(ctx context.Context) error {
		defer p.removeArchive(target)
		res, err := p.extractor.Extract(ctx, target.Abs, destination.Abs)
		extracted = res
		return err
	})
	if errors.Is(err, ErrLockAcquisitionFailed) {
		p.removeArchive(target)
	}
	if err != nil {
		p.Logger.Warn("upload extraction failed",
			zap.String("tenant", tenantID),
			zap.String("archive", target.Logical),
			zap.Error(err))
		return nil, &ExtractionFailedError{Archive: target.Logical, Err: err}
	}

	result.ExtractedFiles = extracted.Files
	result.RejectedEntries = extracted.Rejected
	return result, nil
}

func (p *Pipeline) removeArchive(target paths.SandboxedPath) {
	if err := os.Remove(target.Abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		p.Logger.Error("failed to remove archive",
			zap.String("tenant", target.TenantID),
			zap.String("archive", target.Logical),
			zap.Error(err))
	}
}

// SweepStaleWorkspaces removes temp workspaces in dir older than olderThan,
// left behind by a process that died mid-extraction. It holds the lock of
// dir, so no live workspace can be swept. It returns the removed logical paths.
func (p *Pipeline) SweepStaleWorkspaces(ctx context.Context, tenantID, dir string, olderThan time.Duration) (_ []string, err error) {
	timer := monitoring.NewTimer(p.Metrics, "sweep")
	defer func() { timer.Stop(err) }()

	target, err := p.resolve(ctx, tenantID, dir)
	if err != nil {
		return nil, err
	}

	removed := []string{}
	err = p.coordinator.RunExclusive(ctx, target.Abs, func(context.Context) error {
		dirents, err := os.ReadDir(target.Abs)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return pathError("sweep", target, err)
		}

		cutoff := time.Now().Add(-olderThan)
		for _, d := range dirents {
			if !d.IsDir() || !strings.HasPrefix(d.Name(), paths.TempWorkspacePrefix) {
				continue
			}
			info, err := d.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			child, err := target.Child(d.Name())
			if err != nil {
				continue
			}
			if err := os.RemoveAll(child.Abs); err != nil {
				return fmt.Errorf("sweep %s: %w", child.Logical, err)
			}
			p.Logger.Info("removed stale workspace",
				zap.String("tenant", tenantID),
				zap.String("workspace", child.Logical),
				zap.Time("modified", info.ModTime()))
			removed = append(removed, child.Logical)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(removed)
	return removed, nil
}
