package filesystem

import (
	"context"
	"time"

	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tenantfs/internal/shared/paths"
	"github.com/GriffinCanCode/tenantfs/internal/tenant"
)

// Options configures a Service
type Options struct {
	// Resolver answers tenant root lookups
	Resolver tenant.RootResolver
	// Config defaults to config.Default()
	Config  *config.Config
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// Service is the filesystem surface for tenant files
type Service struct {
	roots       *tenant.Roots
	catalog     *Catalog
	coordinator *Coordinator
	pipeline    *Pipeline
	logger      *logging.Logger
}

// NewService wires the catalog, coordinator, extractor and upload pipeline
// behind one tenant root cache.
func NewService(opts Options) *Service {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("filesystem")

	roots := tenant.NewRoots(opts.Resolver, tenant.Options{
		MaxFailures: cfg.Tenants.LookupMaxFailures,
		Cooldown:    cfg.Tenants.LookupCooldown,
		Logger:      logger,
		Metrics:     opts.Metrics,
	})

	ops := NewFilesystemOps(paths.NewSandbox(roots), logger, opts.Metrics, LimitsFromConfig(cfg))
	catalog := NewCatalog(ops)
	coordinator := NewCoordinator(logger, opts.Metrics)

	return &Service{
		roots:       roots,
		catalog:     catalog,
		coordinator: coordinator,
		pipeline:    NewPipeline(catalog, coordinator, NewExtractor(ops)),
		logger:      logger,
	}
}

// List lists dir, creating it if absent
func (s *Service) List(ctx context.Context, tenantID, dir string) ([]Entry, error) {
	return s.catalog.List(ctx, tenantID, dir)
}

// Read reads a file
func (s *Service) Read(ctx context.Context, tenantID, path string) (*FileContent, error) {
	return s.catalog.Read(ctx, tenantID, path)
}

// Write replaces a file's content
func (s *Service) Write(ctx context.Context, tenantID, path string, data []byte) (Entry, error) {
	return s.catalog.Write(ctx, tenantID, path, data)
}

// Create creates an empty file or directory
func (s *Service) Create(ctx context.Context, tenantID, path string, kind EntryKind) (Entry, error) {
	return s.catalog.Create(ctx, tenantID, path, kind)
}

// Delete removes a file or directory tree
func (s *Service) Delete(ctx context.Context, tenantID, path string) error {
	return s.catalog.Delete(ctx, tenantID, path)
}

// Rename moves an entry within a tenant
func (s *Service) Rename(ctx context.Context, tenantID, from, to string) (Entry, error) {
	return s.catalog.Rename(ctx, tenantID, from, to)
}

// Search finds entries by case-insensitive name substring
func (s *Service) Search(ctx context.Context, tenantID, dir, pattern string) ([]Entry, error) {
	return s.catalog.Search(ctx, tenantID, dir, pattern)
}

// Glob finds entries by doublestar pattern
func (s *Service) Glob(ctx context.Context, tenantID, dir, pattern string) ([]Entry, error) {
	return s.catalog.Glob(ctx, tenantID, dir, pattern)
}

// DiskUsage returns the bytes used by a tenant's files
func (s *Service) DiskUsage(ctx context.Context, tenantID string) (int64, error) {
	return s.catalog.DiskUsage(ctx, tenantID)
}

// Upload stores a file and optionally extracts it
func (s *Service) Upload(ctx context.Context, tenantID, path string, data []byte, autoExtract bool) (*UploadResult, error) {
	return s.pipeline.Upload(ctx, tenantID, path, data, autoExtract)
}

// SweepStaleWorkspaces removes leftover temp workspaces in dir
func (s *Service) SweepStaleWorkspaces(ctx context.Context, tenantID, dir string, olderThan time.Duration) ([]string, error) {
	return s.pipeline.SweepStaleWorkspaces(ctx, tenantID, dir, olderThan)
}

// InvalidateTenant forgets a tenant's cached root after it was moved or deleted
func (s *Service) InvalidateTenant(tenantID string) {
	s.roots.Invalidate(tenantID)
}
