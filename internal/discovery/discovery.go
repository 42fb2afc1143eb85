package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/SWORDIntel/Z-FORGE/internal/zfs"
)

// DiscoveryError means the storage subsystem could not be queried at all.
// Per-pool and per-dataset failures degrade locally and never surface as one.
type DiscoveryError struct {
	Err error
}

func (e *DiscoveryError) Error() string { return fmt.Sprintf("pool discovery: %v", e.Err) }
func (e *DiscoveryError) Unwrap() error { return e.Err }

// Engine enumerates importable pools, peek-imports each one, reads back its
// metadata and classifies candidate root datasets. Pools are processed one at
// a time; every successful import is paired with an export on every exit path.
type Engine struct {
	backend    zfs.Backend
	classifier *Classifier
	log        zerolog.Logger
}

func NewEngine(backend zfs.Backend, classifier *Classifier, log zerolog.Logger) *Engine {
	return &Engine{backend: backend, classifier: classifier, log: log}
}

// Discover returns the full pool report keyed by pool name. It fails only
// when the importable-pool list itself cannot be obtained; a pool that cannot
// be inspected is logged and omitted from the report.
func (e *Engine) Discover(ctx context.Context) (map[string]*zfs.Pool, error) {
	names, err := e.backend.ListImportable(ctx)
	if err != nil {
		return nil, &DiscoveryError{Err: err}
	}
	e.log.Info().Int("count", len(names)).Msg("importable pools enumerated")

	pools := make(map[string]*zfs.Pool, len(names))
	for _, name := range names {
		pool, err := e.inspect(ctx, name)
		if err != nil {
			e.log.Warn().Str("pool", name).Err(err).Msg("pool inspection failed, skipping")
			continue
		}
		pools[pool.Name] = pool
	}
	return pools, nil
}

// inspect imports one pool read-only, reads its metadata and exports it again
// before returning, regardless of which step failed.
func (e *Engine) inspect(ctx context.Context, name string) (pool *zfs.Pool, err error) {
	if err := e.backend.ImportReadOnly(ctx, name); err != nil {
		return nil, err
	}
	defer func() {
		if exportErr := e.backend.Export(ctx, name); exportErr != nil {
			e.log.Error().Str("pool", name).Err(exportErr).Msg("pool export failed")
			if err == nil {
				err = exportErr
				pool = nil
			}
		}
	}()

	health, err := e.backend.Health(ctx, name)
	if err != nil {
		return nil, err
	}
	props, err := e.backend.Properties(ctx, name)
	if err != nil {
		return nil, err
	}
	entries, err := e.backend.ListDatasets(ctx, name)
	if err != nil {
		return nil, err
	}

	p := &zfs.Pool{
		Name:       name,
		Status:     zfs.StatusFromHealth(health),
		Health:     health,
		Properties: props,
		Datasets:   make([]zfs.Dataset, 0, len(entries)),
	}
	for _, entry := range entries {
		ds := zfs.Dataset{Name: entry.Name, Mountpoint: entry.Mountpoint}
		if IsRootCandidate(entry) {
			prior, empty, cerr := e.classifier.Classify(ctx, entry)
			if cerr != nil {
				// degrade to "not a prior install", keep scanning
				e.log.Warn().Str("dataset", entry.Name).Err(cerr).Msg("root probe failed")
			} else {
				ds.IsPriorInstall = prior
				ds.IsEmpty = empty
			}
		}
		p.Datasets = append(p.Datasets, ds)
	}
	e.log.Info().
		Str("pool", name).
		Str("health", health).
		Int("datasets", len(p.Datasets)).
		Bool("priorInstall", p.HasPriorInstall()).
		Msg("pool inspected")
	return p, nil
}

// IsRootCandidate reports whether a dataset could hold an operating-system
// root and is therefore worth probing. Boot-environment layouts keep roots
// under <pool>/ROOT/<name>; anything mounted at / qualifies regardless.
func IsRootCandidate(entry zfs.DatasetEntry) bool {
	return entry.Mountpoint == "/" || strings.Contains(entry.Name, "/ROOT/")
}
