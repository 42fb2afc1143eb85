package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SWORDIntel/Z-FORGE/internal/fsatomic"
	"github.com/SWORDIntel/Z-FORGE/internal/provision"
	"github.com/SWORDIntel/Z-FORGE/pkg/shell"
)

type recordingRunner struct {
	calls [][]string
	fail  bool
}

func (r *recordingRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (shell.Result, error) {
	call := append([]string{name}, args...)
	r.calls = append(r.calls, call)
	if r.fail {
		return shell.Result{Code: 1, Stderr: []byte("boom")}, errors.New("exit status 1")
	}
	return shell.Result{}, nil
}

func testPlan(t *testing.T) *provision.CommandPlan {
	t.Helper()
	plan, err := provision.BuildPlan(
		"rpool",
		provision.Topology{Kind: provision.Mirror, Disks: []string{"sda", "sdb"}},
		map[string]string{"ashift": "12"},
		nil,
		"none",
		"/mnt",
	)
	require.NoError(t, err)
	return plan
}

func TestRegistryRejectsUnknownStep(t *testing.T) {
	_, err := New("kernel-acquire", Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pipeline step")
}

func TestRegistryIDs(t *testing.T) {
	assert.Equal(t, []string{StepPoolDetect, StepZpoolProvision}, IDs())
}

func TestRunProvisionInvokesZpool(t *testing.T) {
	runner := &recordingRunner{}
	deps := Deps{Log: zerolog.Nop(), Runner: runner, Plan: testPlan(t)}
	spec := BuildSpec{
		Workspace: t.TempDir(),
		Steps:     []StepSpec{{ID: StepZpoolProvision}},
	}
	rec, err := Run(context.Background(), spec, deps, nil)
	require.NoError(t, err)
	assert.True(t, rec.OK)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "zpool", runner.calls[0][0])
	assert.Equal(t, deps.Plan.Tokens, runner.calls[0][1:])

	var onDisk RunRecord
	ok, err := fsatomic.LoadJSON(JournalPath(spec.Workspace), &onDisk)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ok", onDisk.Steps[0].Status)
}

func TestRunJournalsFailure(t *testing.T) {
	runner := &recordingRunner{fail: true}
	deps := Deps{Log: zerolog.Nop(), Runner: runner, Plan: testPlan(t)}
	spec := BuildSpec{
		Workspace: t.TempDir(),
		Steps:     []StepSpec{{ID: StepZpoolProvision}},
	}
	rec, err := Run(context.Background(), spec, deps, nil)
	require.Error(t, err)
	assert.False(t, rec.OK)
	assert.Equal(t, "error", rec.Steps[0].Status)
	assert.Contains(t, rec.Steps[0].Message, "boom")
}

func TestRunResumeSkipsCompletedSteps(t *testing.T) {
	runner := &recordingRunner{}
	deps := Deps{Log: zerolog.Nop(), Runner: runner, Plan: testPlan(t)}
	spec := BuildSpec{
		Workspace: t.TempDir(),
		Steps:     []StepSpec{{ID: StepZpoolProvision}},
	}
	resume := &RunRecord{ID: "prev", Steps: []StepRecord{{ID: StepZpoolProvision, Status: "ok"}}}
	rec, err := Run(context.Background(), spec, deps, resume)
	require.NoError(t, err)
	assert.True(t, rec.OK)
	assert.Equal(t, "prev", rec.ID)
	assert.Empty(t, runner.calls, "completed step must not run again")
}

func TestRunProvisionWithoutPlanFails(t *testing.T) {
	deps := Deps{Log: zerolog.Nop(), Runner: &recordingRunner{}}
	spec := BuildSpec{
		Workspace: t.TempDir(),
		Steps:     []StepSpec{{ID: StepZpoolProvision}},
	}
	_, err := Run(context.Background(), spec, deps, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command plan staged")
}

func TestLoadSpec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "build_spec.yml")
	data := "" +
		"workspace: /tmp/zforge\n" +
		"steps:\n" +
		"  - id: pool-detect\n" +
		"  - id: zpool-provision\n" +
		"    enabled: false\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	spec, err := LoadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/zforge", spec.Workspace)
	assert.Equal(t, []string{StepPoolDetect}, spec.EnabledIDs())
}

func TestLoadSpecRejectsUnknownStep(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "build_spec.yml")
	data := "workspace: /tmp/zforge\nsteps:\n  - id: warp-drive\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	_, err := LoadSpec(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown step "warp-drive"`)
}

func TestLoadSpecRejectsSchemaViolations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "build_spec.yml")
	data := "workspace: /tmp/zforge\nsteps: []\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	_, err := LoadSpec(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid build spec")
}
