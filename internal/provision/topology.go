package provision

import "fmt"

// RaidKind is the redundancy arrangement of the disks backing a new pool.
type RaidKind string

const (
	Stripe RaidKind = "stripe"
	Mirror RaidKind = "mirror"
	RaidZ1 RaidKind = "raidz1"
	RaidZ2 RaidKind = "raidz2"
	RaidZ3 RaidKind = "raidz3"
)

// minDisks is the floor enforced on selections. Deliberately stricter than
// the zpool technical minimum (raidz1 accepts 2 devices, raidz2 3, raidz3 4):
// the practical floors below are the ones a sane installation should use.
var minDisks = map[RaidKind]int{
	Stripe: 1,
	Mirror: 2,
	RaidZ1: 3,
	RaidZ2: 4,
	RaidZ3: 5,
}

var displayName = map[RaidKind]string{
	Stripe: "Stripe",
	Mirror: "Mirror",
	RaidZ1: "RaidZ1",
	RaidZ2: "RaidZ2",
	RaidZ3: "RaidZ3",
}

// Keyword is the vdev keyword emitted in the create command. Stripe has none:
// bare disks form a stripe.
func (k RaidKind) Keyword() string {
	if k == Stripe {
		return ""
	}
	return string(k)
}

// Topology is a requested vdev layout. Disks keep caller order; Cache and Log
// are optional L2ARC / SLOG device groups.
type Topology struct {
	Kind  RaidKind `json:"kind"`
	Disks []string `json:"disks"`
	Cache []string `json:"cache,omitempty"`
	Log   []string `json:"log,omitempty"`
}

// Validate checks the layout against the minimum disk counts. It returns the
// first violated rule; it never repairs the request.
func (t Topology) Validate() *ValidationError {
	min, ok := minDisks[t.Kind]
	if !ok {
		return &ValidationError{
			Field:   "topology.kind",
			Rule:    "raid.unknown",
			Message: fmt.Sprintf("unknown raid layout %q", string(t.Kind)),
		}
	}
	for _, d := range t.Disks {
		if d == "" {
			return &ValidationError{
				Field:   "topology.disks",
				Rule:    "disk.empty",
				Message: "disk device identifiers must be non-empty",
			}
		}
	}
	if len(t.Disks) < min {
		return &ValidationError{
			Field:   "topology.disks",
			Rule:    "raid.minDisks",
			Message: fmt.Sprintf("%s requires at least %d disks, %d were selected", displayName[t.Kind], min, len(t.Disks)),
		}
	}
	return nil
}

// ValidatePoolName enforces the conservative pool naming rule: non-empty,
// starts with a letter, letters/digits/underscore/hyphen/dot only, and must
// not end in a hyphen.
func ValidatePoolName(name string) *ValidationError {
	bad := func(rule, msg string) *ValidationError {
		return &ValidationError{Field: "poolName", Rule: rule, Message: msg}
	}
	if name == "" {
		return bad("name.empty", "pool name must not be empty")
	}
	first := name[0]
	if !isLetter(first) {
		return bad("name.firstChar", "pool name must start with a letter")
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isLetter(c) || c >= '0' && c <= '9' || c == '_' || c == '-' || c == '.' {
			continue
		}
		return bad("name.charset", fmt.Sprintf("pool name contains invalid character %q", string(c)))
	}
	if name[len(name)-1] == '-' {
		return bad("name.trailingHyphen", "pool name must not end in a hyphen")
	}
	return nil
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
