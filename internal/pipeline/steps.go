package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/SWORDIntel/Z-FORGE/internal/discovery"
	"github.com/SWORDIntel/Z-FORGE/pkg/shell"
)

// poolDetectStep runs pool discovery and stores the report on the run
// context for later steps.
type poolDetectStep struct {
	engine *discovery.Engine
	log    zerolog.Logger
}

func newPoolDetectStep(deps Deps) Step {
	return &poolDetectStep{engine: deps.Discovery, log: deps.Log}
}

func (s *poolDetectStep) ID() string { return StepPoolDetect }

func (s *poolDetectStep) Execute(ctx context.Context, run *Context) error {
	pools, err := s.engine.Discover(ctx)
	if err != nil {
		return err
	}
	run.Pools = pools
	s.log.Info().Int("pools", len(pools)).Msg("pool detection finished")
	return nil
}

// zpoolProvisionStep hands a validated command plan to zpool. The plan must
// have been produced by the selection validator earlier in the run.
type zpoolProvisionStep struct {
	runner shell.Runner
	log    zerolog.Logger
}

const provisionTimeout = 5 * time.Minute

func newZpoolProvisionStep(deps Deps) Step {
	return &zpoolProvisionStep{runner: deps.Runner, log: deps.Log}
}

func (s *zpoolProvisionStep) ID() string { return StepZpoolProvision }

func (s *zpoolProvisionStep) Execute(ctx context.Context, run *Context) error {
	if run.Plan == nil {
		return fmt.Errorf("no command plan staged for provisioning")
	}
	s.log.Info().Str("pool", run.Plan.Pool).Strs("tokens", run.Plan.Tokens).Msg("creating pool")
	res, err := s.runner.Run(ctx, provisionTimeout, "zpool", run.Plan.Tokens...)
	if err != nil {
		return fmt.Errorf("zpool %s: %w: %s", run.Plan.Tokens[0], err, strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}
