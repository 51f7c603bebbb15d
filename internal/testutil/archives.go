package testutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"io"
	"os"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
)

// ArchiveEntry describes one entry of a generated archive.
type ArchiveEntry struct {
	Name    string
	Body    string
	Dir     bool
	Symlink string
	// Hardlink is only honored by BuildTar
	Hardlink string
}

// File is shorthand for a regular file entry.
func File(name, body string) ArchiveEntry {
	return ArchiveEntry{Name: name, Body: body}
}

// BuildZip returns a zip archive holding entries in order. Names are written
// verbatim so tests can produce hostile archives.
func BuildZip(t *testing.T, entries ...ArchiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		header := &zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: time.Unix(1700000000, 0)}
		switch {
		case e.Dir:
			header.SetMode(os.ModeDir | 0o755)
		case e.Symlink != "":
			header.SetMode(os.ModeSymlink | 0o777)
		default:
			header.SetMode(0o644)
		}
		w, err := zw.CreateHeader(header)
		require.NoError(t, err)
		body := e.Body
		if e.Symlink != "" {
			body = e.Symlink
		}
		if !e.Dir {
			_, err = io.WriteString(w, body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// BuildTar returns a tar archive compressed with compression
// ("none", "gzip", "zstd" or "lz4").
func BuildTar(t *testing.T, compression string, entries ...ArchiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer

	var out io.WriteCloser
	switch compression {
	case "", "none":
		out = nopWriteCloser{&buf}
	case "gzip":
		out = gzip.NewWriter(&buf)
	case "zstd":
		zw, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		out = zw
	case "lz4":
		out = lz4.NewWriter(&buf)
	default:
		t.Fatalf("unknown compression %q", compression)
	}

	tw := tar.NewWriter(out)
	for _, e := range entries {
		header := &tar.Header{Name: e.Name, Mode: 0o644, ModTime: time.Unix(1700000000, 0)}
		switch {
		case e.Dir:
			header.Typeflag = tar.TypeDir
			header.Mode = 0o755
		case e.Symlink != "":
			header.Typeflag = tar.TypeSymlink
			header.Linkname = e.Symlink
		case e.Hardlink != "":
			header.Typeflag = tar.TypeLink
			header.Linkname = e.Hardlink
		default:
			header.Typeflag = tar.TypeReg
			header.Size = int64(len(e.Body))
		}
		require.NoError(t, tw.WriteHeader(header))
		if header.Typeflag == tar.TypeReg {
			_, err := io.WriteString(tw, e.Body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, out.Close())
	return buf.Bytes()
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
