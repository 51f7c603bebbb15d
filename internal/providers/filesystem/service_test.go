package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tenantfs/internal/tenant"
	"github.com/GriffinCanCode/tenantfs/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestServiceRoundTrip(t *testing.T) {
	base := t.TempDir()
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	svc := NewService(Options{
		Resolver: tenant.VolumeResolver{Base: base},
		Config:   config.Default(),
		Logger:   logging.NewNop(),
		Metrics:  metrics,
	})
	ctx := context.Background()

	usage, err := svc.DiskUsage(ctx, tenantA)
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage)

	_, err = svc.Write(ctx, tenantA, "notes/todo.md", []byte("- ship it"))
	require.NoError(t, err)

	content, err := svc.Read(ctx, tenantA, "notes/todo.md")
	require.NoError(t, err)
	assert.Equal(t, "- ship it", string(content.Data))

	_, err = svc.Create(ctx, tenantA, "empty", KindDirectory)
	require.NoError(t, err)

	_, err = svc.Rename(ctx, tenantA, "notes/todo.md", "notes/done.md")
	require.NoError(t, err)

	entries, err := svc.List(ctx, tenantA, "notes")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "notes/done.md", entries[0].Path)

	found, err := svc.Search(ctx, tenantA, "", "DONE")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	globbed, err := svc.Glob(ctx, tenantA, "", "**/*.md")
	require.NoError(t, err)
	assert.Len(t, globbed, 1)

	result, err := svc.Upload(ctx, tenantA, "backup.zip", testutil.BuildZip(t,
		testutil.File("world/level.dat", "0123456789"),
	), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"world/level.dat"}, result.ExtractedFiles)

	usage, err = svc.DiskUsage(ctx, tenantA)
	require.NoError(t, err)
	assert.Equal(t, int64(len("- ship it")+10), usage)

	require.NoError(t, svc.Delete(ctx, tenantA, "notes"))
	swept, err := svc.SweepStaleWorkspaces(ctx, tenantA, "", 0)
	require.NoError(t, err)
	assert.Empty(t, swept)

	assert.Equal(t, float64(1), promtest.ToFloat64(metrics.ExtractionsTotal.WithLabelValues("zip", "success")))
	assert.Greater(t, promtest.ToFloat64(metrics.RootCache.WithLabelValues("hit")), float64(0))
}

func TestServiceInvalidateTenant(t *testing.T) {
	base := t.TempDir()
	oldRoot := filepath.Join(base, "old")
	newRoot := filepath.Join(base, "new")
	resolver := new(testutil.MockRootResolver)
	resolver.On("ResolveRoot", mock.Anything, tenantA).Return(oldRoot, nil).Once()
	resolver.On("ResolveRoot", mock.Anything, tenantA).Return(newRoot, nil).Once()

	svc := NewService(Options{Resolver: resolver})
	ctx := context.Background()

	_, err := svc.Write(ctx, tenantA, "a.txt", []byte("old"))
	require.NoError(t, err)
	_, err = svc.Write(ctx, tenantA, "b.txt", []byte("still old"))
	require.NoError(t, err)

	svc.InvalidateTenant(tenantA)
	_, err = svc.Write(ctx, tenantA, "a.txt", []byte("new"))
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(oldRoot, "b.txt"))
	data, err := os.ReadFile(filepath.Join(newRoot, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	resolver.AssertExpectations(t)
}

func TestServiceUnknownTenant(t *testing.T) {
	dir, err := tenant.NewDirectory(map[string]string{tenantA: t.TempDir()})
	require.NoError(t, err)
	svc := NewService(Options{Resolver: dir})

	_, err = svc.List(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
}
