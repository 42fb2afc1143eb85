package provision

import (
	"fmt"
	"sort"
)

// CommandPlan is the single artifact handed to the external executor. Tokens
// are the zpool arguments in exact order; the grammar is a stable wire
// contract:
//
//	create -f [-R <altroot>] -m <mountpoint> (-o <k>=<v>)* (-O <k>=<v>)*
//	    <pool> [<raidKeyword>] <disk>... [cache <dev>...] [log <dev>...]
type CommandPlan struct {
	Tokens      []string `json:"tokens"`
	Pool        string   `json:"pool"`
	AltRoot     string   `json:"altroot,omitempty"`
	RootDataset string   `json:"rootDataset,omitempty"`
}

// BuildPlan assembles the create invocation. Pool-level properties precede
// dataset-level ones; within each group keys are emitted sorted so identical
// input yields identical tokens. Disks keep caller order.
//
// Empty pool name or disk list is a bug in the caller: the topology and name
// validators guard those before a plan is ever requested.
func BuildPlan(pool string, topo Topology, poolProps, datasetProps map[string]string, mountpoint, altroot string) (*CommandPlan, error) {
	if pool == "" {
		return nil, &PlanAssertionError{Reason: "empty pool name"}
	}
	if len(topo.Disks) == 0 {
		return nil, &PlanAssertionError{Reason: "empty disk list"}
	}
	if mountpoint == "" {
		mountpoint = "none"
	}

	tokens := []string{"create", "-f"}
	if altroot != "" {
		tokens = append(tokens, "-R", altroot)
	}
	tokens = append(tokens, "-m", mountpoint)
	for _, k := range sortedKeys(poolProps) {
		tokens = append(tokens, "-o", fmt.Sprintf("%s=%s", k, poolProps[k]))
	}
	for _, k := range sortedKeys(datasetProps) {
		tokens = append(tokens, "-O", fmt.Sprintf("%s=%s", k, datasetProps[k]))
	}
	tokens = append(tokens, pool)
	if kw := topo.Kind.Keyword(); kw != "" {
		tokens = append(tokens, kw)
	}
	tokens = append(tokens, topo.Disks...)
	if len(topo.Cache) > 0 {
		tokens = append(tokens, "cache")
		tokens = append(tokens, topo.Cache...)
	}
	if len(topo.Log) > 0 {
		tokens = append(tokens, "log")
		tokens = append(tokens, topo.Log...)
	}

	return &CommandPlan{Tokens: tokens, Pool: pool, AltRoot: altroot}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
