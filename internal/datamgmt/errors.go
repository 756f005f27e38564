package datamgmt

import "errors"

var (
	// ErrExportFailed means no snapshot could be assembled. No partial
	// snapshot is ever returned alongside it.
	ErrExportFailed = errors.New("export failed")
	// ErrImportFailed means the snapshot was rejected before any write.
	ErrImportFailed = errors.New("import failed: invalid file")
	// ErrDeleteFailed means at least one known key could not be removed.
	ErrDeleteFailed = errors.New("delete failed")
)
