package zfs

import "context"

// DatasetEntry is a name/mountpoint pair as reported by the backend before
// classification.
type DatasetEntry struct {
	Name       string
	Mountpoint string
}

// Backend is the narrow storage-subsystem surface the engine consumes. The
// CLI implementation shells out to zpool/zfs; tests use a fake.
type Backend interface {
	// ListImportable enumerates pools the host considers importable.
	ListImportable(ctx context.Context) ([]string, error)
	// ImportReadOnly peek-imports a pool: read-only, no datasets mounted.
	ImportReadOnly(ctx context.Context, pool string) error
	// Export releases a previously imported pool.
	Export(ctx context.Context, pool string) error
	// Health returns the raw health string from pool status.
	Health(ctx context.Context, pool string) (string, error)
	// Properties returns all pool property name/value pairs.
	Properties(ctx context.Context, pool string) (map[string]string, error)
	// ListDatasets lists datasets in the pool, recursively.
	ListDatasets(ctx context.Context, pool string) ([]DatasetEntry, error)
	// MountReadOnly mounts one dataset read-only at dir.
	MountReadOnly(ctx context.Context, dataset, dir string) error
	// Unmount unmounts whatever is mounted at dir.
	Unmount(ctx context.Context, dir string) error
}
