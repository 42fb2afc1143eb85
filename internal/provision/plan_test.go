package provision

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlanMirrorWithAltroot(t *testing.T) {
	plan, err := BuildPlan(
		"bpool",
		Topology{Kind: Mirror, Disks: []string{"d1", "d2"}},
		map[string]string{"ashift": "12"},
		nil,
		"none",
		"/mnt",
	)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"create", "-f", "-R", "/mnt", "-m", "none", "-o", "ashift=12", "bpool", "mirror", "d1", "d2"},
		plan.Tokens,
	)
	assert.Equal(t, "bpool", plan.Pool)
	assert.Equal(t, "/mnt", plan.AltRoot)
}

func TestBuildPlanStripeOmitsKeyword(t *testing.T) {
	plan, err := BuildPlan("tank", Topology{Kind: Stripe, Disks: []string{"sda"}}, nil, nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"create", "-f", "-m", "none", "tank", "sda"}, plan.Tokens)
}

func TestBuildPlanDiskOrderPreserved(t *testing.T) {
	disks := []string{"sdz", "sda", "sdm"}
	plan, err := BuildPlan("tank", Topology{Kind: RaidZ1, Disks: disks}, nil, nil, "none", "")
	require.NoError(t, err)
	idx := -1
	for i, tok := range plan.Tokens {
		if tok == "raidz1" {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0, "raid keyword missing")
	assert.Equal(t, disks, plan.Tokens[idx+1:idx+4], "disks must follow the raid keyword in caller order")
}

func TestBuildPlanPoolPropsPrecedeDatasetProps(t *testing.T) {
	plan, err := BuildPlan(
		"rpool",
		Topology{Kind: Stripe, Disks: []string{"sda"}},
		map[string]string{"autotrim": "on", "ashift": "12"},
		map[string]string{"compression": "zstd-3", "atime": "off"},
		"none",
		"/mnt/install",
	)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"create", "-f", "-R", "/mnt/install", "-m", "none",
		"-o", "ashift=12", "-o", "autotrim=on",
		"-O", "atime=off", "-O", "compression=zstd-3",
		"rpool", "sda",
	}, plan.Tokens)
}

func TestBuildPlanCacheAndLogGroups(t *testing.T) {
	plan, err := BuildPlan(
		"tank",
		Topology{Kind: Mirror, Disks: []string{"sda", "sdb"}, Cache: []string{"nvme0n1"}, Log: []string{"nvme1n1"}},
		nil, nil, "none", "",
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"create", "-f", "-m", "none", "tank", "mirror", "sda", "sdb", "cache", "nvme0n1", "log", "nvme1n1"}, plan.Tokens)
}

func TestBuildPlanIdempotent(t *testing.T) {
	build := func() *CommandPlan {
		plan, err := BuildPlan(
			"rpool",
			Topology{Kind: RaidZ2, Disks: []string{"a", "b", "c", "d"}},
			map[string]string{"ashift": "12"},
			map[string]string{"compression": "zstd-3", "xattr": "sa", "atime": "off"},
			"none",
			"/mnt",
		)
		require.NoError(t, err)
		return plan
	}
	assert.Equal(t, build(), build())
}

func TestBuildPlanAssertions(t *testing.T) {
	var ae *PlanAssertionError

	_, err := BuildPlan("", Topology{Kind: Stripe, Disks: []string{"sda"}}, nil, nil, "none", "")
	require.Error(t, err)
	assert.True(t, errors.As(err, &ae))

	_, err = BuildPlan("tank", Topology{Kind: Stripe}, nil, nil, "none", "")
	require.Error(t, err)
	assert.True(t, errors.As(err, &ae))
}
