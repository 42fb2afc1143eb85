package provision

import (
	"fmt"
	"strconv"

	"github.com/SWORDIntel/Z-FORGE/internal/zfs"
)

// Mode says how an existing pool is to be used.
type Mode string

const (
	ModeNew       Mode = "new"       // create a fresh root dataset
	ModeReplace   Mode = "replace"   // replace a previous installation
	ModeAlongside Mode = "alongside" // dual-boot next to the existing root
)

// UseExisting targets a pool found by discovery. Dataset is the path below
// the pool, e.g. "ROOT/pve".
type UseExisting struct {
	Pool    string `json:"pool"`
	Dataset string `json:"dataset"`
	Mode    Mode   `json:"mode"`
}

// CreateNew requests a brand-new pool.
type CreateNew struct {
	PoolName    string            `json:"poolName"`
	Topology    Topology          `json:"topology"`
	Properties  PropertyIntent    `json:"properties"`
	Ashift      int               `json:"ashift,omitempty"`
	PoolProps   map[string]string `json:"poolProps,omitempty"` // extra -o pairs, e.g. autotrim
	RootDataset string            `json:"rootDataset,omitempty"`
	Mountpoint  string            `json:"mountpoint,omitempty"` // defaults to none
	AltRoot     string            `json:"altroot,omitempty"`
}

// SelectionRequest is the full form state the decision function consumes.
// Exactly one of UseExisting / CreateNew must be set.
type SelectionRequest struct {
	UseExisting *UseExisting     `json:"useExisting,omitempty"`
	CreateNew   *CreateNew       `json:"createNew,omitempty"`
	Encryption  EncryptionIntent `json:"encryption"`
}

type State string

const (
	StateReady    State = "ready"
	StateRejected State = "rejected"
)

// ReuseDescriptor is the accepted outcome for an existing-pool selection.
type ReuseDescriptor struct {
	Pool       string            `json:"pool"`
	Dataset    string            `json:"dataset"` // fully qualified
	Mode       Mode              `json:"mode"`
	Properties map[string]string `json:"properties,omitempty"` // encryption props for the new root
}

// Result is the structured outcome of one validation pass. Rejections carry
// every violated rule; Ready carries exactly one of Plan or Reuse.
type Result struct {
	State    State             `json:"state"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	Plan     *CommandPlan      `json:"plan,omitempty"`
	Reuse    *ReuseDescriptor  `json:"reuse,omitempty"`
}

// ValidateAndPlan is the top-level decision function. It is pure: it only
// reads the discovered pool report, collects every violated rule, and either
// rejects or produces the provisioning artifact. Calling it twice with the
// same input yields the same result.
func ValidateAndPlan(req SelectionRequest, pools map[string]*zfs.Pool) Result {
	switch {
	case req.UseExisting == nil && req.CreateNew == nil:
		return rejected(ValidationError{
			Field:   "request",
			Rule:    "request.empty",
			Message: "either an existing-pool target or a new-pool layout must be selected",
		})
	case req.UseExisting != nil && req.CreateNew != nil:
		return rejected(ValidationError{
			Field:   "request",
			Rule:    "request.ambiguous",
			Message: "existing-pool target and new-pool layout are mutually exclusive",
		})
	case req.UseExisting != nil:
		return validateExisting(req.UseExisting, req.Encryption, pools)
	default:
		return validateCreate(req.CreateNew, req.Encryption)
	}
}

func validateExisting(sel *UseExisting, enc EncryptionIntent, pools map[string]*zfs.Pool) Result {
	errs := []ValidationError{}
	warns := []string{}

	encErrs, encWarns := enc.Validate()
	errs = append(errs, encErrs...)
	warns = append(warns, encWarns...)

	pool, ok := pools[sel.Pool]
	if !ok {
		errs = append(errs, ValidationError{
			Field:   "pool",
			Rule:    "pool.unknown",
			Message: fmt.Sprintf("pool %q was not found by discovery", sel.Pool),
		})
		return Result{State: StateRejected, Errors: errs, Warnings: warns}
	}
	if pool.Status == zfs.StatusDegraded {
		warns = append(warns, fmt.Sprintf("pool %q is degraded; installation will proceed on reduced redundancy", pool.Name))
	}
	if pool.Status == zfs.StatusFaulted {
		errs = append(errs, ValidationError{
			Field:   "pool",
			Rule:    "pool.faulted",
			Message: fmt.Sprintf("pool %q is faulted and cannot be used", pool.Name),
		})
	}
	if sel.Dataset == "" {
		errs = append(errs, ValidationError{
			Field:   "dataset",
			Rule:    "dataset.empty",
			Message: "target dataset name must not be empty",
		})
	}

	full := sel.Pool + "/" + sel.Dataset
	switch sel.Mode {
	case ModeReplace:
		if !pool.HasPriorInstall() {
			errs = append(errs, ValidationError{
				Field:   "mode",
				Rule:    "replace.noPriorInstall",
				Message: "no existing installation found to replace",
			})
		}
	case ModeNew:
		if _, exists := pool.FindDataset(full); exists {
			errs = append(errs, ValidationError{
				Field:   "dataset",
				Rule:    "dataset.exists",
				Message: fmt.Sprintf("dataset %q already exists, choose a different name or mode", full),
			})
		}
	case ModeAlongside:
		// the alongside flow proposes a fresh suffix itself, no duplicate rule
	default:
		errs = append(errs, ValidationError{
			Field:   "mode",
			Rule:    "mode.unknown",
			Message: fmt.Sprintf("unknown installation mode %q", string(sel.Mode)),
		})
	}

	if len(errs) > 0 {
		return Result{State: StateRejected, Errors: errs, Warnings: warns}
	}
	return Result{
		State:    StateReady,
		Warnings: warns,
		Reuse: &ReuseDescriptor{
			Pool:       sel.Pool,
			Dataset:    full,
			Mode:       sel.Mode,
			Properties: enc.Properties(),
		},
	}
}

func validateCreate(sel *CreateNew, enc EncryptionIntent) Result {
	// Topology and naming first; their failure short-circuits before any
	// property compilation or plan building happens.
	errs := []ValidationError{}
	if verr := ValidatePoolName(sel.PoolName); verr != nil {
		errs = append(errs, *verr)
	}
	if verr := sel.Topology.Validate(); verr != nil {
		errs = append(errs, *verr)
	}
	if len(errs) > 0 {
		return Result{State: StateRejected, Errors: errs}
	}

	warns := []string{}
	errs = append(errs, ValidateIntent(sel.Properties)...)
	encErrs, encWarns := enc.Validate()
	errs = append(errs, encErrs...)
	warns = append(warns, encWarns...)
	if len(errs) > 0 {
		return Result{State: StateRejected, Errors: errs, Warnings: warns}
	}

	datasetProps := Compile(sel.Properties)
	for k, v := range enc.Properties() {
		datasetProps[k] = v
	}

	poolProps := map[string]string{}
	for k, v := range sel.PoolProps {
		poolProps[k] = v
	}
	if sel.Ashift > 0 {
		poolProps["ashift"] = strconv.Itoa(sel.Ashift)
	}

	plan, err := BuildPlan(sel.PoolName, sel.Topology, poolProps, datasetProps, sel.Mountpoint, sel.AltRoot)
	if err != nil {
		// validators above make this unreachable; surface it as a bug, not
		// as user feedback
		panic(err)
	}
	if sel.RootDataset != "" {
		plan.RootDataset = sel.PoolName + "/" + sel.RootDataset
	}
	return Result{State: StateReady, Warnings: warns, Plan: plan}
}

func rejected(errs ...ValidationError) Result {
	return Result{State: StateRejected, Errors: errs}
}
