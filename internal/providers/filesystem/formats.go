package filesystem

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ArchiveFormat identifies a supported archive container and compression
type ArchiveFormat string

const (
	FormatZip     ArchiveFormat = "zip"
	FormatTar     ArchiveFormat = "tar"
	FormatTarGzip ArchiveFormat = "tar.gz"
	FormatTarZstd ArchiveFormat = "tar.zst"
	FormatTarLZ4  ArchiveFormat = "tar.lz4"
)

// Longer suffixes first so ".tar.gz" wins over ".gz".
var archiveSuffixes = []struct {
	suffix string
	format ArchiveFormat
}{
	{".tar.gz", FormatTarGzip},
	{".tar.zst", FormatTarZstd},
	{".tar.lz4", FormatTarLZ4},
	{".tgz", FormatTarGzip},
	{".tzst", FormatTarZstd},
	{".zip", FormatZip},
	{".tar", FormatTar},
}

// DetectArchiveFormat classifies name by extension, ignoring case
func DetectArchiveFormat(name string) (ArchiveFormat, bool) {
	lower := strings.ToLower(name)
	for _, s := range archiveSuffixes {
		if strings.HasSuffix(lower, s.suffix) && len(lower) > len(s.suffix) {
			return s.format, true
		}
	}
	return "", false
}

// IsArchive reports whether name has a supported archive extension
func IsArchive(name string) bool {
	_, ok := DetectArchiveFormat(name)
	return ok
}

// verifyContent checks that the file content matches what the extension
// claims for formats with a reliable signature.
func verifyContent(archivePath string, format ArchiveFormat) error {
	var want string
	switch format {
	case FormatZip:
		want = "application/zip"
	case FormatTarGzip:
		want = "application/gzip"
	default:
		return nil
	}

	mtype, err := mimetype.DetectFile(archivePath)
	if err != nil {
		return fmt.Errorf("detect archive content: %w", err)
	}
	if !hasMIME(mtype, want) {
		return fmt.Errorf("%w: %s content is %s", ErrUnsupportedArchive, format, mtype.String())
	}
	return nil
}

// archiveEntry is one member of an archive. open must be called before the
// next call to Next for streaming readers.
type archiveEntry struct {
	Name string
	Mode fs.FileMode
	open func() (io.ReadCloser, error)
}

// archiveReader iterates entries in archive order. Next returns io.EOF at the end.
type archiveReader interface {
	Next() (*archiveEntry, error)
	// RandomAccess reports whether entries may be opened concurrently
	RandomAccess() bool
	Close() error
}

func openArchive(archivePath string, format ArchiveFormat) (archiveReader, error) {
	if format == FormatZip {
		return openZip(archivePath)
	}
	return openTar(archivePath, format)
}

type zipReader struct {
	rc    *zip.ReadCloser
	files []*zip.File
	next  int
}

// openZip reads the central directory. When a name occurs more than once
// only its last occurrence is kept, in the position of that occurrence.
func openZip(archivePath string) (*zipReader, error) {
	rc, err := zip.OpenReader(archivePath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, err
	}

	last := make(map[string]int, len(rc.File))
	for i, f := range rc.File {
		last[entryKey(f.Name)] = i
	}
	files := make([]*zip.File, 0, len(last))
	for i, f := range rc.File {
		if last[entryKey(f.Name)] == i {
			files = append(files, f)
		}
	}
	return &zipReader{rc: rc, files: files}, nil
}

func (r *zipReader) Next() (*archiveEntry, error) {
	if r.next >= len(r.files) {
		return nil, io.EOF
	}
	f := r.files[r.next]
	r.next++

	mode := f.Mode()
	if strings.HasSuffix(f.Name, "/") {
		mode |= fs.ModeDir
	}
	return &archiveEntry{Name: f.Name, Mode: mode, open: f.Open}, nil
}

func (r *zipReader) RandomAccess() bool { return true }

func (r *zipReader) Close() error { return r.rc.Close() }

type tarReader struct {
	file       *os.File
	decompress io.Closer
	tr         *tar.Reader
}

func openTar(archivePath string, format ArchiveFormat) (*tarReader, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}

	r := &tarReader{file: f}
	var src io.Reader = f
	switch format {
	case FormatTarGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		src, r.decompress = gz, gz
	case FormatTarZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		src, r.decompress = zr, closerFunc(func() error { zr.Close(); return nil })
	case FormatTarLZ4:
		src = lz4.NewReader(f)
	case FormatTar:
	default:
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedArchive, format)
	}

	r.tr = tar.NewReader(src)
	return r, nil
}

func (r *tarReader) Next() (*archiveEntry, error) {
	header, err := r.tr.Next()
	if errors.Is(err, tar.ErrInsecurePath) {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return &archiveEntry{
		Name: header.Name,
		Mode: tarMode(header),
		open: func() (io.ReadCloser, error) { return io.NopCloser(r.tr), nil },
	}, nil
}

// tarMode is the header's file mode with hard links and other typeflags that
// carry no fs type bits marked irregular.
func tarMode(header *tar.Header) fs.FileMode {
	mode := header.FileInfo().Mode()
	switch header.Typeflag {
	case tar.TypeReg, '\x00', tar.TypeDir:
		return mode
	}
	if mode.IsRegular() {
		mode |= fs.ModeIrregular
	}
	return mode
}

func (r *tarReader) RandomAccess() bool { return false }

func (r *tarReader) Close() error {
	if r.decompress != nil {
		r.decompress.Close()
	}
	return r.file.Close()
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// entryKey normalizes an entry name for duplicate detection
func entryKey(name string) string {
	return path.Clean(strings.ReplaceAll(name, `\`, "/"))
}
