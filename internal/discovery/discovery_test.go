package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/SWORDIntel/Z-FORGE/internal/zfs"
)

type fakeBackend struct {
	pools        []string
	listErr      error
	importErr    map[string]error
	health       map[string]string
	props        map[string]map[string]string
	datasets     map[string][]zfs.DatasetEntry
	datasetsErr  map[string]error
	priorInstall map[string]bool // dataset name -> has markers when mounted
	mountErr     map[string]error

	imports int
	exports int
	mounted map[string]string // dir -> dataset
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		importErr:    map[string]error{},
		health:       map[string]string{},
		props:        map[string]map[string]string{},
		datasets:     map[string][]zfs.DatasetEntry{},
		datasetsErr:  map[string]error{},
		priorInstall: map[string]bool{},
		mountErr:     map[string]error{},
		mounted:      map[string]string{},
	}
}

func (f *fakeBackend) ListImportable(ctx context.Context) ([]string, error) {
	return f.pools, f.listErr
}

func (f *fakeBackend) ImportReadOnly(ctx context.Context, pool string) error {
	if err := f.importErr[pool]; err != nil {
		return err
	}
	f.imports++
	return nil
}

func (f *fakeBackend) Export(ctx context.Context, pool string) error {
	f.exports++
	return nil
}

func (f *fakeBackend) Health(ctx context.Context, pool string) (string, error) {
	h, ok := f.health[pool]
	if !ok {
		return "ONLINE", nil
	}
	return h, nil
}

func (f *fakeBackend) Properties(ctx context.Context, pool string) (map[string]string, error) {
	return f.props[pool], nil
}

func (f *fakeBackend) ListDatasets(ctx context.Context, pool string) ([]zfs.DatasetEntry, error) {
	if err := f.datasetsErr[pool]; err != nil {
		return nil, err
	}
	return f.datasets[pool], nil
}

func (f *fakeBackend) MountReadOnly(ctx context.Context, dataset, dir string) error {
	if err := f.mountErr[dataset]; err != nil {
		return err
	}
	if f.priorInstall[dataset] {
		if err := os.MkdirAll(filepath.Join(dir, "etc", "pve"), 0o755); err != nil {
			return err
		}
	}
	f.mounted[dir] = dataset
	return nil
}

func (f *fakeBackend) Unmount(ctx context.Context, dir string) error {
	delete(f.mounted, dir)
	// leave the dir as mount would: empty again
	return os.RemoveAll(filepath.Join(dir, "etc"))
}

func newEngine(f *fakeBackend) *Engine {
	log := zerolog.Nop()
	return NewEngine(f, NewClassifier(f, log), log)
}

func TestDiscoverClassifiesPriorInstall(t *testing.T) {
	f := newFakeBackend()
	f.pools = []string{"rpool"}
	f.health["rpool"] = "ONLINE"
	f.datasets["rpool"] = []zfs.DatasetEntry{
		{Name: "rpool", Mountpoint: "/rpool"},
		{Name: "rpool/ROOT/pve", Mountpoint: "/"},
		{Name: "rpool/data", Mountpoint: "/rpool/data"},
	}
	f.priorInstall["rpool/ROOT/pve"] = true

	pools, err := newEngine(f).Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	p := pools["rpool"]
	if p == nil {
		t.Fatalf("rpool missing from report")
	}
	if p.Status != zfs.StatusOnline {
		t.Fatalf("status = %s", p.Status)
	}
	ds, ok := p.FindDataset("rpool/ROOT/pve")
	if !ok || !ds.IsPriorInstall {
		t.Fatalf("rpool/ROOT/pve not classified as prior install: %+v", ds)
	}
	if other, _ := p.FindDataset("rpool/data"); other.IsPriorInstall {
		t.Fatalf("rpool/data wrongly classified")
	}
	if f.exports != f.imports {
		t.Fatalf("exports %d != imports %d", f.exports, f.imports)
	}
}

func TestDiscoverExportsOnDatasetListError(t *testing.T) {
	f := newFakeBackend()
	f.pools = []string{"a", "b", "c"}
	f.datasetsErr["b"] = errors.New("io error")

	pools, err := newEngine(f).Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if _, ok := pools["b"]; ok {
		t.Fatalf("failed pool should be omitted")
	}
	if len(pools) != 2 {
		t.Fatalf("pools = %d, want 2", len(pools))
	}
	if f.exports != f.imports {
		t.Fatalf("exports %d != imports %d", f.exports, f.imports)
	}
}

func TestDiscoverProbeFailureDegrades(t *testing.T) {
	f := newFakeBackend()
	f.pools = []string{"rpool"}
	f.datasets["rpool"] = []zfs.DatasetEntry{
		{Name: "rpool/ROOT/pve", Mountpoint: "/"},
	}
	f.mountErr["rpool/ROOT/pve"] = errors.New("mount busy")

	pools, err := newEngine(f).Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	ds, ok := pools["rpool"].FindDataset("rpool/ROOT/pve")
	if !ok {
		t.Fatalf("dataset missing")
	}
	if ds.IsPriorInstall {
		t.Fatalf("probe failure must degrade to isPriorInstall=false")
	}
	if f.exports != f.imports {
		t.Fatalf("exports %d != imports %d", f.exports, f.imports)
	}
}

func TestDiscoverImportFailureSkipsPool(t *testing.T) {
	f := newFakeBackend()
	f.pools = []string{"good", "bad"}
	f.importErr["bad"] = errors.New("device gone")

	pools, err := newEngine(f).Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(pools) != 1 {
		t.Fatalf("pools = %d, want 1", len(pools))
	}
	if f.exports != f.imports {
		t.Fatalf("exports %d != imports %d", f.exports, f.imports)
	}
}

func TestDiscoverListFailureIsFatal(t *testing.T) {
	f := newFakeBackend()
	f.listErr = errors.New("zfs module not loaded")

	_, err := newEngine(f).Discover(context.Background())
	var de *DiscoveryError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DiscoveryError", err)
	}
}

func TestIsRootCandidate(t *testing.T) {
	cases := []struct {
		entry zfs.DatasetEntry
		want  bool
	}{
		{zfs.DatasetEntry{Name: "rpool/ROOT/pve", Mountpoint: "none"}, true},
		{zfs.DatasetEntry{Name: "rpool/data", Mountpoint: "/"}, true},
		{zfs.DatasetEntry{Name: "rpool/ROOT", Mountpoint: "none"}, false},
		{zfs.DatasetEntry{Name: "rpool/data/vm-100-disk-0", Mountpoint: "none"}, false},
	}
	for _, tc := range cases {
		if got := IsRootCandidate(tc.entry); got != tc.want {
			t.Fatalf("IsRootCandidate(%+v) = %v, want %v", tc.entry, got, tc.want)
		}
	}
}

func TestClassifierEmptyDataset(t *testing.T) {
	f := newFakeBackend()
	c := NewClassifier(f, zerolog.Nop())
	prior, empty, err := c.Classify(context.Background(), zfs.DatasetEntry{Name: "tank/ROOT/new", Mountpoint: "/"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if prior {
		t.Fatalf("unexpected prior install")
	}
	if !empty {
		t.Fatalf("expected empty dataset")
	}
}
