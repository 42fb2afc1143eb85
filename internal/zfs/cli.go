package zfs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/SWORDIntel/Z-FORGE/pkg/shell"
)

const (
	queryTimeout = 10 * time.Second
	// import/export touch every member device and can stall on spun-down disks
	importTimeout = 60 * time.Second
	mountTimeout  = 15 * time.Second
)

// CLI implements Backend by shelling out to zpool, zfs and mount.
type CLI struct {
	run shell.Runner
	log zerolog.Logger
}

func NewCLI(run shell.Runner, log zerolog.Logger) *CLI {
	if run == nil {
		run = shell.Exec{}
	}
	return &CLI{run: run, log: log}
}

func (c *CLI) ListImportable(ctx context.Context) ([]string, error) {
	// Make sure the kernel module is present first; `zpool import` exits
	// non-zero both when zfs.ko is missing and when no pools exist.
	if res, err := c.run.Run(ctx, queryTimeout, "modprobe", "zfs"); err != nil && res.Code != 0 {
		c.log.Warn().Str("stderr", string(res.Stderr)).Msg("modprobe zfs failed")
	}
	res, err := c.run.Run(ctx, importTimeout, "zpool", "import")
	if err != nil && res.Code < 0 {
		return nil, fmt.Errorf("zpool import scan: %w", err)
	}
	return parseImportList(res.Lines()), nil
}

func (c *CLI) ImportReadOnly(ctx context.Context, pool string) error {
	res, err := c.run.Run(ctx, importTimeout, "zpool", "import", "-o", "readonly=on", "-N", pool)
	if err != nil {
		return fmt.Errorf("zpool import %s: %w: %s", pool, err, strings.TrimSpace(string(res.Stderr)))
	}
	c.log.Debug().Str("pool", pool).Msg("pool imported read-only")
	return nil
}

func (c *CLI) Export(ctx context.Context, pool string) error {
	res, err := c.run.Run(ctx, importTimeout, "zpool", "export", pool)
	if err != nil {
		return fmt.Errorf("zpool export %s: %w: %s", pool, err, strings.TrimSpace(string(res.Stderr)))
	}
	c.log.Debug().Str("pool", pool).Msg("pool exported")
	return nil
}

func (c *CLI) Health(ctx context.Context, pool string) (string, error) {
	res, err := c.run.Run(ctx, queryTimeout, "zpool", "status", pool)
	if err != nil {
		return "", fmt.Errorf("zpool status %s: %w", pool, err)
	}
	return parseHealth(res.Lines()), nil
}

func (c *CLI) Properties(ctx context.Context, pool string) (map[string]string, error) {
	res, err := c.run.Run(ctx, queryTimeout, "zpool", "get", "all", pool, "-H", "-o", "property,value")
	if err != nil {
		return nil, fmt.Errorf("zpool get all %s: %w", pool, err)
	}
	return parseProperties(res.Lines()), nil
}

func (c *CLI) ListDatasets(ctx context.Context, pool string) ([]DatasetEntry, error) {
	res, err := c.run.Run(ctx, queryTimeout, "zfs", "list", "-r", "-H", "-o", "name,mountpoint", pool)
	if err != nil {
		return nil, fmt.Errorf("zfs list %s: %w", pool, err)
	}
	return parseDatasets(res.Lines()), nil
}

func (c *CLI) MountReadOnly(ctx context.Context, dataset, dir string) error {
	res, err := c.run.Run(ctx, mountTimeout, "mount", "-t", "zfs", "-o", "ro,zfsutil", dataset, dir)
	if err != nil {
		return fmt.Errorf("mount %s: %w: %s", dataset, err, strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}

func (c *CLI) Unmount(ctx context.Context, dir string) error {
	res, err := c.run.Run(ctx, mountTimeout, "umount", dir)
	if err != nil {
		return fmt.Errorf("umount %s: %w: %s", dir, err, strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}

// parseImportList extracts pool names from `zpool import` output lines of the
// form "  pool: rpool".
func parseImportList(lines []string) []string {
	pools := []string{}
	for _, ln := range lines {
		trimmed := strings.TrimSpace(ln)
		if !strings.HasPrefix(trimmed, "pool:") {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(trimmed, "pool:"))
		if name != "" {
			pools = append(pools, name)
		}
	}
	return pools
}

// parseHealth pulls the value of the "state:" line from `zpool status`.
func parseHealth(lines []string) string {
	for _, ln := range lines {
		trimmed := strings.TrimSpace(ln)
		if strings.HasPrefix(trimmed, "state:") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "state:"))
		}
	}
	return ""
}

// parseProperties parses `zpool get -H -o property,value` tab-separated rows.
func parseProperties(lines []string) map[string]string {
	props := map[string]string{}
	for _, ln := range lines {
		parts := strings.SplitN(ln, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		props[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return props
}

// parseDatasets parses `zfs list -H -o name,mountpoint` rows.
func parseDatasets(lines []string) []DatasetEntry {
	out := []DatasetEntry{}
	for _, ln := range lines {
		parts := strings.SplitN(ln, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		out = append(out, DatasetEntry{
			Name:       strings.TrimSpace(parts[0]),
			Mountpoint: strings.TrimSpace(parts[1]),
		})
	}
	return out
}
