package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tenantfs/internal/shared/paths"
	"github.com/GriffinCanCode/tenantfs/internal/testutil"
	"github.com/stretchr/testify/require"
)

const (
	tenantA   = "srv-A"
	tenantA2  = "srv-A2"
	tenantNew = "srv-new"
)

// testEnv lays out tenant roots as siblings under one base directory so
// tests can verify nothing was written next to a root.
type testEnv struct {
	base  string
	root  string
	ops   *FilesystemOps
	cat   *Catalog
	roots testutil.StaticRoots
}

func newTestEnv(t *testing.T, mutate ...func(*Limits)) *testEnv {
	t.Helper()
	base := t.TempDir()
	roots := testutil.StaticRoots{
		tenantA:   filepath.Join(base, "srv-A"),
		tenantA2:  filepath.Join(base, "srv-A2"),
		tenantNew: filepath.Join(base, "srv-new"),
	}
	require.NoError(t, os.MkdirAll(roots[tenantA], 0o755))
	require.NoError(t, os.MkdirAll(roots[tenantA2], 0o755))

	limits := DefaultLimits()
	for _, m := range mutate {
		m(&limits)
	}
	ops := NewFilesystemOps(paths.NewSandbox(roots), logging.NewNop(), nil, limits)

	return &testEnv{
		base:  base,
		root:  roots[tenantA],
		ops:   ops,
		cat:   NewCatalog(ops),
		roots: roots,
	}
}

func (e *testEnv) path(rel string) string {
	return filepath.Join(e.root, filepath.FromSlash(rel))
}

func writeArchive(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// workspaces lists temp workspaces directly inside dir
func workspaces(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, paths.TempWorkspacePrefix+"*"))
	require.NoError(t, err)
	return matches
}
