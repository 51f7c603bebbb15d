package paths

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TempWorkspacePrefix names the transient directories created while an
// archive is being extracted. Tenants may not create paths using it.
const TempWorkspacePrefix = ".temp-extract-"

// ErrReservedName is returned when a path uses a name reserved for internal use.
var ErrReservedName = errors.New("path uses a reserved name")

// PathEscapeError reports a path that would resolve outside its tenant root.
type PathEscapeError struct {
	TenantID string
	Path     string
}

func (e *PathEscapeError) Error() string {
	if e.TenantID == "" {
		return fmt.Sprintf("path %q escapes its root", e.Path)
	}
	return fmt.Sprintf("path %q escapes root of tenant %s", e.Path, e.TenantID)
}

// IsPathEscape reports whether err is or wraps a *PathEscapeError.
func IsPathEscape(err error) bool {
	var escape *PathEscapeError
	return errors.As(err, &escape)
}

// RootLookup returns the absolute root directory of a tenant.
type RootLookup interface {
	Root(ctx context.Context, tenantID string) (string, error)
}

// SandboxedPath pairs a tenant-relative logical path with its absolute location.
type SandboxedPath struct {
	TenantID string
	Root     string
	// Logical is slash separated and relative to Root; "." is the root itself.
	Logical string
	Abs     string
}

// IsRoot reports whether the path is the tenant root itself.
func (p SandboxedPath) IsRoot() bool {
	return p.Abs == p.Root
}

// Parent returns the sandboxed parent directory. The parent of the root is the root.
func (p SandboxedPath) Parent() SandboxedPath {
	if p.IsRoot() {
		return p
	}
	abs := filepath.Dir(p.Abs)
	return SandboxedPath{
		TenantID: p.TenantID,
		Root:     p.Root,
		Logical:  logical(p.Root, abs),
		Abs:      abs,
	}
}

// Child returns the sandboxed path of name inside p.
func (p SandboxedPath) Child(name string) (SandboxedPath, error) {
	abs, err := Join(p.Abs, name)
	if err != nil {
		return SandboxedPath{}, &PathEscapeError{TenantID: p.TenantID, Path: name}
	}
	return SandboxedPath{
		TenantID: p.TenantID,
		Root:     p.Root,
		Logical:  logical(p.Root, abs),
		Abs:      abs,
	}, nil
}

// Base returns the last element of the path.
func (p SandboxedPath) Base() string {
	return filepath.Base(p.Abs)
}

func (p SandboxedPath) String() string {
	return p.Logical
}

// Sandbox resolves tenant-relative paths against cached tenant roots.
type Sandbox struct {
	roots RootLookup
}

// NewSandbox creates a sandbox backed by roots.
func NewSandbox(roots RootLookup) *Sandbox {
	return &Sandbox{roots: roots}
}

// Resolve maps relativePath into the tenant's root. It fails with a
// *PathEscapeError when the cleaned result is outside the root.
func (s *Sandbox) Resolve(ctx context.Context, tenantID, relativePath string) (SandboxedPath, error) {
	root, err := s.roots.Root(ctx, tenantID)
	if err != nil {
		return SandboxedPath{}, err
	}
	root = filepath.Clean(root)

	abs, err := Join(root, relativePath)
	if err != nil {
		return SandboxedPath{}, &PathEscapeError{TenantID: tenantID, Path: relativePath}
	}

	return SandboxedPath{
		TenantID: tenantID,
		Root:     root,
		Logical:  logical(root, abs),
		Abs:      abs,
	}, nil
}

var errEscape = errors.New("path escapes root")

// Join joins rel onto root lexically and verifies the result stays within root.
// A leading separator in rel is treated as relative to root.
func Join(root, rel string) (string, error) {
	if strings.ContainsRune(rel, 0) {
		return "", errEscape
	}
	root = filepath.Clean(root)
	joined := filepath.Join(root, rel)
	if !Within(root, joined) {
		return "", errEscape
	}
	return joined, nil
}

// Within reports whether candidate equals root or is one of its descendants.
// The comparison is segment exact, so "/srv/tenant-12" is not within "/srv/tenant-1".
func Within(root, candidate string) bool {
	root = filepath.Clean(root)
	candidate = filepath.Clean(candidate)
	if candidate == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(candidate, prefix)
}

// IsReserved reports whether any segment of the slash separated path uses
// the temp workspace prefix.
func IsReserved(p string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(p), "/") {
		if strings.HasPrefix(segment, TempWorkspacePrefix) {
			return true
		}
	}
	return false
}

// CheckReserved returns ErrReservedName when p uses a reserved segment.
func CheckReserved(p SandboxedPath) error {
	if IsReserved(p.Logical) {
		return fmt.Errorf("%w: %s", ErrReservedName, p.Logical)
	}
	return nil
}

func logical(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "."
	}
	return filepath.ToSlash(rel)
}
