package filesystem

import (
	"strings"
	"time"

	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tenantfs/internal/shared/id"
	"github.com/GriffinCanCode/tenantfs/internal/shared/paths"
)

// EntryKind distinguishes files from directories
type EntryKind string

const (
	KindFile      EntryKind = "file"
	KindDirectory EntryKind = "directory"
)

// Entry is a listing row. It is recomputed on every call and never cached.
type Entry struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Kind      EntryKind `json:"kind"`
	Size      int64     `json:"size"`
	Modified  time.Time `json:"modified"`
	Extension string    `json:"extension,omitempty"`
	Editable  bool      `json:"editable"`
}

// IsDir reports whether the entry is a directory
func (e Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

// FileContent is the result of a read
type FileContent struct {
	Entry
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
	// Charset is only detected for editable files
	Charset string `json:"charset,omitempty"`
}

// ExtractionResult lists what an extraction produced, relative to its destination
type ExtractionResult struct {
	Files    []string `json:"files"`
	Rejected []string `json:"rejected"`
}

// UploadResult describes a completed upload
type UploadResult struct {
	FileName        string   `json:"file_name"`
	Path            string   `json:"path"`
	Size            int64    `json:"size"`
	MimeType        string   `json:"mime_type"`
	Checksum        string   `json:"checksum"`
	ExtractedFiles  []string `json:"extracted_files"`
	RejectedEntries []string `json:"rejected_entries,omitempty"`
}

// Limits bounds catalog and extraction work
type Limits struct {
	MaxReadSize        int64
	SearchLimit        int
	EditableExtensions []string
	ExtractConcurrency int
	// MaxExtractBytes caps the uncompressed size of one extraction; 0 disables the cap
	MaxExtractBytes int64
}

// DefaultLimits returns the limits of config.Default
func DefaultLimits() Limits {
	return LimitsFromConfig(config.Default())
}

// LimitsFromConfig extracts limits from application configuration
func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		MaxReadSize:        cfg.Files.MaxReadSize,
		SearchLimit:        cfg.Files.SearchLimit,
		EditableExtensions: cfg.Files.EditableExtensions,
		ExtractConcurrency: cfg.Extract.Concurrency,
		MaxExtractBytes:    cfg.Extract.MaxBytes,
	}
}

// FilesystemOps provides common filesystem operation helpers
type FilesystemOps struct {
	Sandbox *paths.Sandbox
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
	Limits  Limits
	// IDs names temp files and workspaces
	IDs *id.Generator

	editable map[string]bool
}

// NewFilesystemOps creates the shared helpers. logger and metrics may be nil.
func NewFilesystemOps(sandbox *paths.Sandbox, logger *logging.Logger, metrics *monitoring.Metrics, limits Limits) *FilesystemOps {
	if logger == nil {
		logger = logging.NewNop()
	}
	if limits.ExtractConcurrency < 1 {
		limits.ExtractConcurrency = 1
	}

	editable := make(map[string]bool, len(limits.EditableExtensions))
	for _, ext := range limits.EditableExtensions {
		editable[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	return &FilesystemOps{
		Sandbox:  sandbox,
		Logger:   logger,
		Metrics:  metrics,
		Limits:   limits,
		IDs:      id.Default(),
		editable: editable,
	}
}
