/*
Package filesystem implements sandboxed file access for tenants.

# Components

  - Catalog: list, read, write, create, delete, rename, search, glob, disk usage
  - Coordinator: FIFO mutual exclusion per destination directory
  - Extractor: zip and tar family extraction through a temp workspace
  - Pipeline: upload then optional extraction, with archive cleanup
  - Service: the facade wiring them behind one tenant root cache

Every operation resolves its path through paths.Sandbox first and fails with
*paths.PathEscapeError before touching the disk if the path leaves the
tenant root.

# Extraction

	upload ─▶ write archive ─▶ RunExclusive(parent) ─▶ Extract ─▶ remove archive
	                                                    │
	                   .temp-extract-<millis>-<rand>/ ◀─┤ stream + validate entries
	                   destination/                    ◀─┘ rename into place

Entries whose cleaned name would land outside the workspace are dropped and
reported in ExtractionResult.Rejected. Symlinks and devices are never
materialized. If relocation fails part way, relocated files are removed and
directories the job created are pruned.

Supported formats: .zip, .tar, .tar.gz, .tgz, .tar.zst, .tzst, .tar.lz4.

# Errors

Sentinels are matched with errors.Is: ErrNotFound, ErrAlreadyExists,
ErrIsADirectory, ErrNotADirectory, ErrTooLarge, ErrInvalidPath,
ErrUnsupportedArchive, ErrLockAcquisitionFailed. Upload wraps extraction
failures in *ExtractionFailedError.
*/
package filesystem
