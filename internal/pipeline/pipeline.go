package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/SWORDIntel/Z-FORGE/internal/discovery"
	"github.com/SWORDIntel/Z-FORGE/internal/provision"
	"github.com/SWORDIntel/Z-FORGE/internal/zfs"
	"github.com/SWORDIntel/Z-FORGE/pkg/shell"
)

// Step is one stage of a build run.
type Step interface {
	ID() string
	Execute(ctx context.Context, run *Context) error
}

// Deps holds the collaborators steps are built from. Plan is the validated
// command plan a provisioning run stages before it starts.
type Deps struct {
	Log       zerolog.Logger
	Runner    shell.Runner
	Discovery *discovery.Engine
	Plan      *provision.CommandPlan
}

// Context carries the state one run accumulates across steps.
type Context struct {
	Workspace string
	Pools     map[string]*zfs.Pool
	Plan      *provision.CommandPlan
}

// Factory builds a step instance for one run.
type Factory func(Deps) Step

// Step identifiers. The registry below is the closed set of steps this
// binary can execute; unknown identifiers are rejected up front instead of
// being resolved by name at run time.
const (
	StepPoolDetect     = "pool-detect"
	StepZpoolProvision = "zpool-provision"
)

var registry = map[string]Factory{
	StepPoolDetect:     newPoolDetectStep,
	StepZpoolProvision: newZpoolProvisionStep,
}

// New builds the step registered under id.
func New(id string, deps Deps) (Step, error) {
	factory, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline step %q", id)
	}
	return factory(deps), nil
}

// IDs returns the registered step identifiers, sorted.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
