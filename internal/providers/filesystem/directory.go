package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/GriffinCanCode/tenantfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tenantfs/internal/shared/paths"
)

// List lists a directory, creating it first if it does not exist.
// Directories sort before files, then entries sort by name.
func (c *Catalog) List(ctx context.Context, tenantID, dir string) (_ []Entry, err error) {
	timer := monitoring.NewTimer(c.Metrics, "list")
	defer func() { timer.Stop(err) }()

	p, err := c.resolve(ctx, tenantID, dir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p.Abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(p.Abs, 0o755); err != nil {
			return nil, pathError("list", p, err)
		}
		return []Entry{}, nil
	case err != nil:
		return nil, pathError("list", p, err)
	case !info.IsDir():
		return nil, fmt.Errorf("list %s: %w", p.Logical, ErrNotADirectory)
	}

	dirents, err := os.ReadDir(p.Abs)
	if err != nil {
		return nil, pathError("list", p, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if paths.IsReserved(d.Name()) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			// removed since ReadDir
			continue
		}
		child, err := p.Child(d.Name())
		if err != nil {
			continue
		}
		entries = append(entries, c.newEntry(child, info))
	}

	sortEntries(entries)
	return entries, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		if la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name); la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
}
