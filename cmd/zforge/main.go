// Command zforge is the operator CLI for the provisioning engine: it scans
// for importable pools, validates a selection into a command plan and runs
// the build pipeline against a workspace.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"

	"github.com/SWORDIntel/Z-FORGE/internal/config"
	"github.com/SWORDIntel/Z-FORGE/internal/discovery"
	"github.com/SWORDIntel/Z-FORGE/internal/fsatomic"
	"github.com/SWORDIntel/Z-FORGE/internal/pipeline"
	"github.com/SWORDIntel/Z-FORGE/internal/provision"
	"github.com/SWORDIntel/Z-FORGE/internal/zfs"
	"github.com/SWORDIntel/Z-FORGE/pkg/shell"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "zforge",
		Short:         "ZFS provisioning engine for Proxmox VE installs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		discoverCmd(&verbose),
		planCmd(),
		runCmd(&verbose),
		stepsCmd(),
		presetsCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func newEngine(log zerolog.Logger) *discovery.Engine {
	backend := zfs.NewCLI(shell.Exec{}, log)
	return discovery.NewEngine(backend, discovery.NewClassifier(backend, log), log)
}

func discoverCmd(verbose *bool) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan for importable ZFS pools and classify their roots",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(*verbose)
			pools, err := newEngine(log).Discover(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(pools)
			}
			printPools(pools)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "machine-readable output")
	return cmd
}

func printPools(pools map[string]*zfs.Pool) {
	if len(pools) == 0 {
		color.Yellow("No importable pools found.")
		return
	}
	names := make([]string, 0, len(pools))
	for name := range pools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pool := pools[name]
		switch pool.Status {
		case zfs.StatusOnline:
			color.Green("%s  %s", pool.Name, pool.Health)
		case zfs.StatusDegraded:
			color.Yellow("%s  %s", pool.Name, pool.Health)
		default:
			color.Red("%s  %s", pool.Name, pool.Health)
		}
		for _, ds := range pool.Datasets {
			tag := ""
			if ds.IsPriorInstall {
				tag = "  [prior install]"
			} else if ds.IsEmpty {
				tag = "  [empty]"
			}
			fmt.Printf("  %s  %s%s\n", ds.Name, ds.Mountpoint, tag)
		}
	}
}

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan FILE",
		Short: "Validate a selection file and print the resulting command plan",
		Long:  "FILE holds a JSON selection request; pass - to read it from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readSelection(args[0])
			if err != nil {
				return err
			}
			log := newLogger(false)
			pools := map[string]*zfs.Pool{}
			if req.UseExisting != nil {
				if pools, err = newEngine(log).Discover(cmd.Context()); err != nil {
					return err
				}
			}

			result := provision.ValidateAndPlan(*req, pools)
			for _, w := range result.Warnings {
				color.Yellow("warning: %s", w)
			}
			if result.State == provision.StateRejected {
				for _, e := range result.Errors {
					color.Red("%s: %s", e.Field, e.Message)
				}
				return fmt.Errorf("selection rejected (%d problems)", len(result.Errors))
			}
			if result.Reuse != nil {
				color.Green("reuse pool %s, dataset %s (%s mode)", result.Reuse.Pool, result.Reuse.Dataset, result.Reuse.Mode)
				return nil
			}
			color.Green("zpool %s", strings.Join(result.Plan.Tokens, " "))
			return nil
		},
	}
}

func readSelection(path string) (*provision.SelectionRequest, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var req provision.SelectionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("selection file: %w", err)
	}
	return &req, nil
}

func runCmd(verbose *bool) *cobra.Command {
	var specPath, selectionPath string
	var resume bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the build pipeline described by the build spec",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(*verbose)
			if specPath == "" {
				specPath = config.Load(os.Getenv("ZFORGE_CONFIG")).BuildSpecPath
			}
			spec, err := pipeline.LoadSpec(specPath)
			if err != nil {
				return err
			}

			deps := pipeline.Deps{Log: log, Runner: shell.Exec{}, Discovery: newEngine(log)}
			if selectionPath != "" {
				req, err := readSelection(selectionPath)
				if err != nil {
					return err
				}
				pools := map[string]*zfs.Pool{}
				if req.UseExisting != nil {
					if pools, err = deps.Discovery.Discover(cmd.Context()); err != nil {
						return err
					}
				}
				result := provision.ValidateAndPlan(*req, pools)
				if result.State == provision.StateRejected {
					for _, e := range result.Errors {
						color.Red("%s: %s", e.Field, e.Message)
					}
					return fmt.Errorf("selection rejected (%d problems)", len(result.Errors))
				}
				deps.Plan = result.Plan
			}

			var prior *pipeline.RunRecord
			if resume {
				var rec pipeline.RunRecord
				exists, err := fsatomic.LoadJSON(pipeline.JournalPath(spec.Workspace), &rec)
				if err != nil {
					return err
				}
				if !exists {
					return fmt.Errorf("no journal to resume at %s", pipeline.JournalPath(spec.Workspace))
				}
				prior = &rec
			}

			rec, err := pipeline.Run(cmd.Context(), spec, deps, prior)
			if err != nil {
				color.Red("run %s failed: %v", rec.ID, err)
				return err
			}
			color.Green("run %s completed, journal at %s", rec.ID, pipeline.JournalPath(spec.Workspace))
			return nil
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "build spec path (default from daemon config)")
	cmd.Flags().StringVar(&selectionPath, "selection", "", "JSON selection request to stage a provisioning plan")
	cmd.Flags().BoolVar(&resume, "resume", false, "skip steps already completed in the workspace journal")
	return cmd
}

func stepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List the pipeline steps this binary can execute",
		Run: func(cmd *cobra.Command, args []string) {
			for _, id := range pipeline.IDs() {
				fmt.Println(id)
			}
		},
	}
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "Show the dataset property presets and the host ARC recommendation",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range []provision.Preset{provision.PresetGeneral, provision.PresetVirtualHost, provision.PresetBulkStorage} {
				color.Cyan("%s", p)
				props := provision.PresetProperties(p)
				keys := make([]string, 0, len(props))
				for k := range props {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Printf("  %s=%s\n", k, props[k])
				}
			}
			if vm, err := mem.VirtualMemory(); err == nil {
				fmt.Printf("host memory %d MiB, recommended ARC ceiling %d MiB\n",
					vm.Total>>20, provision.RecommendArcMax(vm.Total)>>20)
			}
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("zforge %s (commit: %s)\n", version, commit)
		},
	}
}
