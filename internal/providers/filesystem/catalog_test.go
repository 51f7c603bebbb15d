package filesystem

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/GriffinCanCode/tenantfs/internal/shared/paths"
	"github.com/GriffinCanCode/tenantfs/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRejectsEscapes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.WriteFiles(t, env.base, map[string]string{"srv-A2/secret.txt": "secret"})
	before := testutil.Tree(t, env.base)

	escapes := []string{
		"../srv-A2/secret.txt",
		"../../etc/passwd",
		"a/../../srv-A2/x",
		"..",
		"a/../..",
	}

	for _, p := range escapes {
		t.Run(p, func(t *testing.T) {
			ops := map[string]func() error{
				"list":   func() error { _, err := env.cat.List(ctx, tenantA, p); return err },
				"read":   func() error { _, err := env.cat.Read(ctx, tenantA, p); return err },
				"write":  func() error { _, err := env.cat.Write(ctx, tenantA, p, []byte("x")); return err },
				"create": func() error { _, err := env.cat.Create(ctx, tenantA, p, KindFile); return err },
				"delete": func() error { return env.cat.Delete(ctx, tenantA, p) },
				"rename": func() error { _, err := env.cat.Rename(ctx, tenantA, p, "moved"); return err },
				"search": func() error { _, err := env.cat.Search(ctx, tenantA, p, "s"); return err },
				"glob":   func() error { _, err := env.cat.Glob(ctx, tenantA, p, "*"); return err },
			}
			for name, op := range ops {
				err := op()
				var escape *paths.PathEscapeError
				assert.True(t, errors.As(err, &escape), "%s: expected PathEscapeError, got %v", name, err)
			}
		})
	}

	assert.Equal(t, before, testutil.Tree(t, env.base), "escaping operations must not touch the disk")
}

func TestCatalogListCreatesMissingDirectory(t *testing.T) {
	env := newTestEnv(t)

	entries, err := env.cat.List(context.Background(), tenantA, "plugins/config")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.DirExists(t, env.path("plugins/config"))
}

func TestCatalogListOrdering(t *testing.T) {
	env := newTestEnv(t)
	testutil.WriteFiles(t, env.root, map[string]string{
		"b.txt":                      "bb",
		"A.json":                     "{}",
		"zeta/x":                     "",
		"alpha/y":                    "",
		".temp-extract-1-abc/hidden": "",
		"data.bin":                   "\x00\x01",
	})

	entries, err := env.cat.List(context.Background(), tenantA, "/")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"alpha", "zeta", "A.json", "b.txt", "data.bin"}, names)

	assert.Equal(t, KindDirectory, entries[0].Kind)
	assert.Equal(t, "alpha", entries[0].Path)
	assert.False(t, entries[0].Editable)

	bTxt := entries[3]
	assert.Equal(t, KindFile, bTxt.Kind)
	assert.Equal(t, int64(2), bTxt.Size)
	assert.Equal(t, "txt", bTxt.Extension)
	assert.True(t, bTxt.Editable)
	assert.False(t, entries[4].Editable)
}

func TestCatalogListFile(t *testing.T) {
	env := newTestEnv(t)
	testutil.WriteFiles(t, env.root, map[string]string{"file.txt": "x"})

	_, err := env.cat.List(context.Background(), tenantA, "file.txt")
	assert.ErrorIs(t, err, ErrNotADirectory)
}

func TestCatalogRead(t *testing.T) {
	env := newTestEnv(t, func(l *Limits) { l.MaxReadSize = 16 })
	ctx := context.Background()
	testutil.WriteFiles(t, env.root, map[string]string{
		"server.properties": "motd=hello\n",
		"big.log":           strings.Repeat("x", 17),
		"dir/child":         "",
	})

	content, err := env.cat.Read(ctx, tenantA, "server.properties")
	require.NoError(t, err)
	assert.Equal(t, "motd=hello\n", string(content.Data))
	assert.Equal(t, "server.properties", content.Path)
	assert.True(t, content.Editable)
	assert.True(t, strings.HasPrefix(content.MimeType, "text/plain"))
	assert.NotEmpty(t, content.Charset)

	_, err = env.cat.Read(ctx, tenantA, "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.cat.Read(ctx, tenantA, "dir")
	assert.ErrorIs(t, err, ErrIsADirectory)

	_, err = env.cat.Read(ctx, tenantA, "big.log")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCatalogWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entry, err := env.cat.Write(ctx, tenantA, "world/level.dat", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, "world/level.dat", entry.Path)
	assert.Equal(t, int64(5), entry.Size)

	_, err = env.cat.Write(ctx, tenantA, "world/level.dat", []byte("second!"))
	require.NoError(t, err)

	data, err := os.ReadFile(env.path("world/level.dat"))
	require.NoError(t, err)
	assert.Equal(t, "second!", string(data))
	assert.Equal(t, []string{"world/", "world/level.dat"}, testutil.Tree(t, env.root),
		"no temp files may remain after a write")

	_, err = env.cat.Write(ctx, tenantA, "world", []byte("x"))
	assert.ErrorIs(t, err, ErrIsADirectory)

	_, err = env.cat.Write(ctx, tenantA, "world/level.dat/nested", []byte("x"))
	assert.ErrorIs(t, err, ErrNotADirectory)

	_, err = env.cat.Write(ctx, tenantA, "", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = env.cat.Write(ctx, tenantA, ".temp-extract-123-abc/f", []byte("x"))
	assert.ErrorIs(t, err, paths.ErrReservedName)
}

func TestCatalogCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entry, err := env.cat.Create(ctx, tenantA, "plugins/new.yml", KindFile)
	require.NoError(t, err)
	assert.Equal(t, KindFile, entry.Kind)
	assert.Equal(t, int64(0), entry.Size)

	entry, err = env.cat.Create(ctx, tenantA, "backups", KindDirectory)
	require.NoError(t, err)
	assert.True(t, entry.IsDir())
	assert.DirExists(t, env.path("backups"))

	_, err = env.cat.Create(ctx, tenantA, "plugins/new.yml", KindFile)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = env.cat.Create(ctx, tenantA, "backups", KindFile)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = env.cat.Create(ctx, tenantA, "link", EntryKind("symlink"))
	assert.Error(t, err)
}

func TestCatalogDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.WriteFiles(t, env.root, map[string]string{
		"logs/latest.log":   "x",
		"logs/old/1.log.gz": "y",
		"server.properties": "z",
	})

	require.NoError(t, env.cat.Delete(ctx, tenantA, "logs"))
	assert.NoDirExists(t, env.path("logs"))

	require.NoError(t, env.cat.Delete(ctx, tenantA, "server.properties"))
	assert.NoFileExists(t, env.path("server.properties"))

	assert.ErrorIs(t, env.cat.Delete(ctx, tenantA, "server.properties"), ErrNotFound)
	assert.ErrorIs(t, env.cat.Delete(ctx, tenantA, "/"), ErrInvalidPath)
	assert.ErrorIs(t, env.cat.Delete(ctx, tenantA, "a/.."), ErrInvalidPath)
	assert.DirExists(t, env.root)
}

func TestCatalogRename(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testutil.WriteFiles(t, env.root, map[string]string{
		"world/level.dat": "level",
		"other.txt":       "o",
	})

	entry, err := env.cat.Rename(ctx, tenantA, "world", "backups/2024/world")
	require.NoError(t, err)
	assert.Equal(t, "backups/2024/world", entry.Path)
	assert.FileExists(t, env.path("backups/2024/world/level.dat"))
	assert.NoDirExists(t, env.path("world"))

	_, err = env.cat.Rename(ctx, tenantA, "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.cat.Rename(ctx, tenantA, "other.txt", "backups")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = env.cat.Rename(ctx, tenantA, "backups", "backups/inner")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = env.cat.Rename(ctx, tenantA, "/", "moved")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = env.cat.Rename(ctx, tenantA, "other.txt", ".temp-extract-1-a")
	assert.ErrorIs(t, err, paths.ErrReservedName)
}

func TestCatalogUnknownTenant(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.cat.List(context.Background(), "ghost", "/")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
