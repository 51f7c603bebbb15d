// Package testutil provides testing utilities shared by package tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRootResolver is a mock implementation of tenant.RootResolver.
type MockRootResolver struct {
	mock.Mock
}

// ResolveRoot mocks the ResolveRoot method.
func (m *MockRootResolver) ResolveRoot(ctx context.Context, tenantID string) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

// NewMockRootResolver creates a resolver that answers each tenant in roots.
// Unlisted tenants are left unconfigured so the test can add its own expectations.
func NewMockRootResolver(t *testing.T, roots map[string]string) *MockRootResolver {
	t.Helper()
	m := new(MockRootResolver)
	for id, root := range roots {
		m.On("ResolveRoot", mock.Anything, id).Return(root, nil).Maybe()
	}
	return m
}

// StaticRoots is a map-backed root lookup for tests that do not care about caching.
type StaticRoots map[string]string

// Root implements paths.RootLookup.
func (s StaticRoots) Root(_ context.Context, tenantID string) (string, error) {
	root, ok := s[tenantID]
	if !ok {
		return "", os.ErrNotExist
	}
	return root, nil
}

// WriteFiles creates files under dir. Keys are slash separated relative paths.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// Tree lists every file and directory under dir as sorted slash separated
// relative paths. Directories carry a trailing slash.
func Tree(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}
		out = append(out, rel)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}
