package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/tenantfs/internal/providers/filesystem"
	"github.com/GriffinCanCode/tenantfs/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolverPrefersTenantsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "tenants.yaml")
	require.NoError(t, os.WriteFile(file, []byte("tenants:\n  srv-A: roots/a\n"), 0o644))

	resolver, err := newResolver(options{tenantsFile: file, volumesDir: "/ignored"})
	require.NoError(t, err)
	root, err := resolver.ResolveRoot(context.Background(), "srv-A")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "roots", "a"), root)

	resolver, err = newResolver(options{volumesDir: dir})
	require.NoError(t, err)
	assert.IsType(t, tenant.VolumeResolver{}, resolver)

	_, err = newResolver(options{})
	assert.Equal(t, 2, exitCode(err))
}

func TestRunRejectsBadInvocations(t *testing.T) {
	assert.Equal(t, 2, exitCode(run([]string{"ls"})))
	assert.Equal(t, 2, exitCode(run([]string{"--tenant", "srv-A"})))
	assert.Equal(t, 2, exitCode(run([]string{"--tenant", "srv-A", "--volumes-dir", t.TempDir(), "frobnicate"})))
	assert.Equal(t, 2, exitCode(run([]string{"--tenant", "srv-A", "--volumes-dir", t.TempDir(), "mv", "a"})))
}

func TestRunCommands(t *testing.T) {
	volumes := t.TempDir()
	base := []string{"--tenant", "srv-A", "--volumes-dir", volumes, "--log-level", "error"}
	runWith := func(args ...string) error {
		return run(append(append([]string{}, base...), args...))
	}

	require.NoError(t, runWith("mkdir", "backups"))
	require.NoError(t, runWith("touch", "backups/notes.txt"))
	require.NoError(t, runWith("mv", "backups/notes.txt", "notes.txt"))
	require.NoError(t, runWith("ls"))
	require.NoError(t, runWith("find", "notes"))
	require.NoError(t, runWith("glob", "**/*.txt"))
	require.NoError(t, runWith("du"))
	require.NoError(t, runWith("sweep", "backups"))
	require.NoError(t, runWith("rm", "notes.txt"))
	assert.NoFileExists(t, filepath.Join(volumes, "srv-A", "notes.txt"))

	err := runWith("cat", "missing.txt")
	assert.True(t, errors.Is(err, filesystem.ErrNotFound))
	assert.Equal(t, 3, exitCode(err))
}
