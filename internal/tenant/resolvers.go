package tenant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// ValidateID rejects ids that cannot name a single directory.
func ValidateID(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	if filepath.IsAbs(tenantID) {
		return fmt.Errorf("tenant ID cannot be an absolute path")
	}
	if tenantID == "." || tenantID == ".." ||
		filepath.Clean(tenantID) != tenantID ||
		strings.ContainsAny(tenantID, `/\`) ||
		strings.ContainsRune(tenantID, 0) {
		return fmt.Errorf("tenant ID contains invalid path components")
	}
	return nil
}

// VolumeResolver places every tenant root directly under Base.
type VolumeResolver struct {
	Base string
}

// ResolveRoot returns Base/tenantID. Ids that are not a single path
// segment are reported as unknown tenants.
func (v VolumeResolver) ResolveRoot(_ context.Context, tenantID string) (string, error) {
	if err := ValidateID(tenantID); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTenantNotFound, tenantID, err)
	}
	base, err := filepath.Abs(v.Base)
	if err != nil {
		return "", fmt.Errorf("volumes dir: %w", err)
	}
	return filepath.Join(base, tenantID), nil
}

// Directory is a fixed tenant id to root mapping.
type Directory struct {
	roots map[string]string
}

type directoryFile struct {
	Tenants map[string]string `yaml:"tenants" toml:"tenants"`
}

// NewDirectory creates a directory from an explicit mapping. Roots must be absolute.
func NewDirectory(roots map[string]string) (*Directory, error) {
	d := &Directory{roots: make(map[string]string, len(roots))}
	for id, root := range roots {
		if err := ValidateID(id); err != nil {
			return nil, fmt.Errorf("tenant %q: %w", id, err)
		}
		if !filepath.IsAbs(root) {
			return nil, fmt.Errorf("tenant %s: root %q is not absolute", id, root)
		}
		d.roots[id] = filepath.Clean(root)
	}
	return d, nil
}

// LoadDirectory reads a tenants file. The format follows the extension
// (.yaml, .yml or .toml). Relative roots are resolved against the file's directory.
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tenants file: %w", err)
	}

	var file directoryFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	case ".toml":
		err = toml.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("unsupported tenants file format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse tenants file %s: %w", path, err)
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	roots := make(map[string]string, len(file.Tenants))
	for id, root := range file.Tenants {
		if root == "" {
			return nil, fmt.Errorf("tenant %s: empty root", id)
		}
		if !filepath.IsAbs(root) {
			root = filepath.Join(base, root)
		}
		roots[id] = root
	}
	return NewDirectory(roots)
}

// ResolveRoot returns the configured root or ErrTenantNotFound.
func (d *Directory) ResolveRoot(_ context.Context, tenantID string) (string, error) {
	root, ok := d.roots[tenantID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
	}
	return root, nil
}

// IDs returns the configured tenant ids in sorted order.
func (d *Directory) IDs() []string {
	ids := make([]string, 0, len(d.roots))
	for id := range d.roots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
