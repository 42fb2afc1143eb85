package zfs

// Status is the coarse pool state derived from zpool health.
type Status string

const (
	StatusOnline   Status = "online"
	StatusDegraded Status = "degraded"
	StatusFaulted  Status = "faulted"
	StatusUnknown  Status = "unknown"
)

// StatusFromHealth maps a zpool health string (state: line) to a Status.
func StatusFromHealth(health string) Status {
	switch health {
	case "ONLINE":
		return StatusOnline
	case "DEGRADED":
		return StatusDegraded
	case "FAULTED", "UNAVAIL", "REMOVED":
		return StatusFaulted
	default:
		return StatusUnknown
	}
}

// Pool is a discovered storage pool. Instances are built by the discovery
// engine while the pool is peek-imported and remain valid after export; they
// are snapshots, not live handles.
type Pool struct {
	Name       string            `json:"name"`
	Status     Status            `json:"status"`
	Health     string            `json:"health"`
	Properties map[string]string `json:"properties"`
	Datasets   []Dataset         `json:"datasets"`
}

// Dataset is one filesystem inside a pool.
type Dataset struct {
	Name           string `json:"name"`
	Mountpoint     string `json:"mountpoint"`
	IsPriorInstall bool   `json:"isPriorInstall"`
	IsEmpty        bool   `json:"isEmpty"`
}

// HasPriorInstall reports whether any dataset in the pool was classified as a
// previous installation root.
func (p *Pool) HasPriorInstall() bool {
	for _, ds := range p.Datasets {
		if ds.IsPriorInstall {
			return true
		}
	}
	return false
}

// FindDataset returns the dataset with the given fully-qualified name.
func (p *Pool) FindDataset(name string) (Dataset, bool) {
	for _, ds := range p.Datasets {
		if ds.Name == name {
			return ds, true
		}
	}
	return Dataset{}, false
}
