package discovery

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/SWORDIntel/Z-FORGE/internal/zfs"
)

// markerPaths are probed relative to the dataset mount; any one of them marks
// the dataset as a prior Proxmox VE installation.
var markerPaths = []string{
	"etc/pve",
	"usr/bin/pvecm",
	"etc/proxmox-ve-release",
}

// Classifier mounts candidate root datasets read-only at a private temporary
// mountpoint and probes for installation markers. The mountpoint is created
// fresh per probe and removed on every exit path.
type Classifier struct {
	backend zfs.Backend
	baseDir string
	log     zerolog.Logger
}

func NewClassifier(backend zfs.Backend, log zerolog.Logger) *Classifier {
	return &Classifier{backend: backend, baseDir: os.TempDir(), log: log}
}

// Classify probes one dataset. prior reports a detected prior installation,
// empty reports a mounted filesystem with no content at all.
func (c *Classifier) Classify(ctx context.Context, entry zfs.DatasetEntry) (prior, empty bool, err error) {
	mnt, err := os.MkdirTemp(c.baseDir, "zforge-probe-")
	if err != nil {
		return false, false, err
	}
	defer func() {
		if rmErr := os.Remove(mnt); rmErr != nil {
			c.log.Warn().Str("dir", mnt).Err(rmErr).Msg("probe mountpoint not removed")
		}
	}()

	if err := c.backend.MountReadOnly(ctx, entry.Name, mnt); err != nil {
		return false, false, err
	}
	defer func() {
		if umErr := c.backend.Unmount(ctx, mnt); umErr != nil {
			c.log.Error().Str("dataset", entry.Name).Err(umErr).Msg("probe unmount failed")
			if err == nil {
				err = umErr
			}
		}
	}()

	for _, marker := range markerPaths {
		if _, statErr := os.Stat(filepath.Join(mnt, marker)); statErr == nil {
			c.log.Debug().Str("dataset", entry.Name).Str("marker", marker).Msg("prior install marker found")
			prior = true
			break
		}
	}
	if !prior {
		names, readErr := readDirNames(mnt)
		if readErr == nil && len(names) == 0 {
			empty = true
		}
	}
	return prior, empty, err
}

func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
