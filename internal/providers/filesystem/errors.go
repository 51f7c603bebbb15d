package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"github.com/GriffinCanCode/tenantfs/internal/shared/paths"
)

var (
	ErrNotFound              = errors.New("no such file or directory")
	ErrAlreadyExists         = errors.New("already exists")
	ErrIsADirectory          = errors.New("is a directory")
	ErrNotADirectory         = errors.New("not a directory")
	ErrTooLarge              = errors.New("too large")
	ErrInvalidPath           = errors.New("invalid path")
	ErrUnsupportedArchive    = errors.New("unsupported archive format")
	ErrLockAcquisitionFailed = errors.New("destination lock not acquired")
)

// ExtractionFailedError reports an upload whose archive could not be
// extracted. The archive has been removed and no partial output remains.
type ExtractionFailedError struct {
	Archive string
	Err     error
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("extraction of %s failed: %v", e.Archive, e.Err)
}

func (e *ExtractionFailedError) Unwrap() error {
	return e.Err
}

// pathError maps an os error on p to the package's sentinels
func pathError(op string, p paths.SandboxedPath, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s %s: %w", op, p.Logical, ErrNotFound)
	case errors.Is(err, fs.ErrExist), errors.Is(err, syscall.ENOTEMPTY):
		return fmt.Errorf("%s %s: %w", op, p.Logical, ErrAlreadyExists)
	case errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%s %s: %w", op, p.Logical, ErrNotADirectory)
	case errors.Is(err, syscall.EISDIR):
		return fmt.Errorf("%s %s: %w", op, p.Logical, ErrIsADirectory)
	default:
		return fmt.Errorf("%s %s: %w", op, p.Logical, err)
	}
}
