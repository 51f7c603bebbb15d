// Package paths resolves tenant-relative paths into absolute paths that are
// guaranteed to stay inside the tenant's root directory.
//
// # Resolution
//
// Resolution is lexical: the relative path is joined to the root and cleaned,
// then compared segment by segment against the root. Symbolic links are not
// canonicalized.
//
//	/srv/volumes/
//	  ├── tenant-1/    (root of tenant-1)
//	  └── tenant-12/   (never reachable from tenant-1)
//
// # Usage
//
//	sandbox := paths.NewSandbox(roots)
//
//	p, err := sandbox.Resolve(ctx, "tenant-1", "world/level.dat")
//	if paths.IsPathEscape(err) {
//	    // reject, log as a security event
//	}
//
//	// Shared predicate for archive extraction
//	if !paths.Within(workspace, target) {
//	    // drop entry
//	}
package paths
