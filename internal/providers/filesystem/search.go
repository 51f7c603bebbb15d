package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tenantfs/internal/shared/paths"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
)

// Search finds entries under dir whose name contains pattern, ignoring case.
// Results are sorted by path and capped at Limits.SearchLimit.
func (c *Catalog) Search(ctx context.Context, tenantID, dir, pattern string) (_ []Entry, err error) {
	timer := monitoring.NewTimer(c.Metrics, "search")
	defer func() { timer.Stop(err) }()

	p, ok, err := c.searchRoot(ctx, tenantID, dir)
	if err != nil || !ok {
		return []Entry{}, err
	}

	needle := strings.ToLower(pattern)
	var mu sync.Mutex
	matches := []Entry{}
	conf := fastwalk.Config{Follow: false}

	err = fastwalk.Walk(&conf, p.Abs, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || path == p.Abs {
			return nil
		}
		if paths.IsReserved(d.Name()) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if !strings.Contains(strings.ToLower(d.Name()), needle) {
			return nil
		}

		entry, ok := c.walkEntry(p, path, d)
		if !ok {
			return nil
		}
		mu.Lock()
		matches = append(matches, entry)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", p.Logical, err)
	}

	return c.capResults(matches), nil
}

// Glob finds entries under dir whose dir-relative slash path matches a
// doublestar pattern such as "**/*.yml".
func (c *Catalog) Glob(ctx context.Context, tenantID, dir, pattern string) (_ []Entry, err error) {
	timer := monitoring.NewTimer(c.Metrics, "glob")
	defer func() { timer.Stop(err) }()

	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("glob %q: %w", pattern, doublestar.ErrBadPattern)
	}

	p, ok, err := c.searchRoot(ctx, tenantID, dir)
	if err != nil || !ok {
		return []Entry{}, err
	}

	matches := []Entry{}
	fsys := os.DirFS(p.Abs)
	err = doublestar.GlobWalk(fsys, pattern, func(rel string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if paths.IsReserved(rel) {
			if d.IsDir() {
				return doublestar.SkipDir
			}
			return nil
		}
		if entry, ok := c.walkEntry(p, filepath.Join(p.Abs, filepath.FromSlash(rel)), d); ok {
			matches = append(matches, entry)
		}
		return nil
	}, doublestar.WithNoFollow())
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", p.Logical, err)
	}

	return c.capResults(matches), nil
}

// DiskUsage sums the sizes of all regular files under the tenant root.
// A root that does not exist yet uses zero bytes.
func (c *Catalog) DiskUsage(ctx context.Context, tenantID string) (_ int64, err error) {
	timer := monitoring.NewTimer(c.Metrics, "disk_usage")
	defer func() { timer.Stop(err) }()

	root, ok, err := c.searchRoot(ctx, tenantID, "")
	if err != nil || !ok {
		return 0, err
	}

	var total atomic.Int64
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root.Abs, func(path string, d os.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total.Add(info.Size())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("disk usage: %w", err)
	}
	return total.Load(), nil
}

// searchRoot resolves dir for a walk. ok is false when dir does not exist.
func (c *Catalog) searchRoot(ctx context.Context, tenantID, dir string) (paths.SandboxedPath, bool, error) {
	p, err := c.resolve(ctx, tenantID, dir)
	if err != nil {
		return p, false, err
	}
	info, err := os.Stat(p.Abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return p, false, nil
	case err != nil:
		return p, false, pathError("search", p, err)
	case !info.IsDir():
		return p, false, fmt.Errorf("search %s: %w", p.Logical, ErrNotADirectory)
	}
	return p, true, nil
}

// walkEntry converts a walked path below base into an Entry
func (c *Catalog) walkEntry(base paths.SandboxedPath, path string, d fs.DirEntry) (Entry, bool) {
	rel, err := filepath.Rel(base.Abs, path)
	if err != nil {
		return Entry{}, false
	}
	child, err := base.Child(rel)
	if err != nil {
		return Entry{}, false
	}
	info, err := d.Info()
	if err != nil {
		return Entry{}, false
	}
	return c.newEntry(child, info), true
}

func (c *Catalog) capResults(entries []Entry) []Entry {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	if limit := c.Limits.SearchLimit; limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
