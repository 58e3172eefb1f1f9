// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package cmd provides the command line interface for the driver
// (spec.md §6): flags resolve into a driver.Options, the root command's
// RunE hands that to driver.Run, and the result (or a fatal error) drives
// the process exit code.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"multivers/internal/app"
	"multivers/internal/driver"
	"multivers/internal/driverrors"
	"multivers/internal/progress"
	"multivers/internal/util"
)

var colorOptions = []string{"auto", "always", "never"}

// gVersion is overwritten by ldflags at release build time.
var gVersion = "9.9.9"

const (
	flagManifestPathName = "manifest-path"
	flagTargetDirName    = "target-dir"
	flagCargoName        = "cargo"
)

var (
	flagDebug     bool
	flagLogStdOut bool

	flagTarget        string
	flagPrint         string
	flagCPUs          []string
	flagExcludeFeats  []string
	flagProfile       string
	flagColor         string
	flagOutDir        string
	flagRunnerVersion string
	flagManifestPath  string
	flagTargetDir     string
	flagCargo         string
)

var gLogFile *os.File

var examples = []string{
	fmt.Sprintf("  Build for the host, auto-detecting CPU profiles:   $ %s", app.Name),
	fmt.Sprintf("  Build for an explicit target:                      $ %s --target x86_64-unknown-linux-gnu", app.Name),
	fmt.Sprintf("  List the feature tokens a target exposes:          $ %s --print cpu-features --target x86_64-unknown-linux-gnu", app.Name),
	fmt.Sprintf("  Exclude a feature from every compiled profile:     $ %s --exclude-cpu-features avx512f", app.Name),
	fmt.Sprintf("  Pass extra flags through to the inner compiler:    $ %s -- --locked", app.Name),
}

var rootCmd = &cobra.Command{
	Use:   app.Name,
	Short: "Build one native executable with self-selecting, CPU-optimized variants",
	Long: `multivers compiles a program once per CPU-feature profile worth
targeting, deduplicates byte-identical outputs, and packages the survivors
into a single portable executable. At startup, that executable detects the
host CPU's feature set and launches whichever compiled variant best matches
it — without shipping one binary per microarchitecture.`,
	Example:           strings.Join(examples, "\n"),
	Version:           gVersion,
	SilenceUsage:      true,
	PersistentPreRunE: initializeLogging,
	RunE:              runBuild,
}

func init() {
	rootCmd.Flags().StringVar(&flagTarget, app.FlagTargetName, "", "target triple to build for (default: host)")
	rootCmd.Flags().StringVar(&flagPrint, app.FlagPrintName, "", `print-only mode; the only recognised value is "cpu-features"`)
	rootCmd.Flags().StringSliceVar(&flagCPUs, app.FlagCPUsName, nil, "explicit CPU list, bypassing toolchain enumeration")
	rootCmd.Flags().StringSliceVar(&flagExcludeFeats, app.FlagExcludeFeatures, nil, "CPU features to exclude from every profile")
	rootCmd.Flags().StringVar(&flagProfile, app.FlagProfileName, "release", `build profile ("release", "dev", ...); "dev" writes to the debug directory`)
	rootCmd.Flags().StringVar(&flagColor, app.FlagColorName, "auto", "colorize progress output: auto|always|never")
	rootCmd.Flags().StringVar(&flagOutDir, app.FlagOutDirName, "", "directory the final artifact is copied to (default: cwd)")
	rootCmd.Flags().StringVar(&flagRunnerVersion, app.FlagRunnerVersionName, "", "accepted but not used: the embedded runner is always built from this module's runner/ source")
	rootCmd.Flags().StringVar(&flagManifestPath, flagManifestPathName, "Cargo.toml", "path to the project's manifest")
	rootCmd.Flags().StringVar(&flagTargetDir, flagTargetDirName, "", "override the toolchain's intermediate directory")
	rootCmd.Flags().StringVar(&flagCargo, flagCargoName, "", `toolchain entry point (default: $CARGO or "cargo")`)

	rootCmd.PersistentFlags().BoolVar(&flagDebug, app.FlagDebugName, false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagLogStdOut, app.FlagLogStdOutName, false, "write logs to stdout instead of a log file")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	cobra.EnableCommandSorting = false
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func initializeLogging(cmd *cobra.Command, args []string) error {
	var logOpts slog.HandlerOptions
	if flagDebug {
		logOpts.Level = slog.LevelDebug
		logOpts.AddSource = true
	} else {
		logOpts.Level = slog.LevelWarn
	}
	if flagLogStdOut {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &logOpts)))
		return nil
	}
	var err error
	gLogFile, err = os.OpenFile(app.Name+".log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) // #nosec G302
	if err != nil {
		return errors.Wrapf(driverrors.ErrIOFailure, "opening log file: %v", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(gLogFile, &logOpts)))
	return nil
}

// runBuild resolves cobra flags into a driver.Options and drives the
// Driver's end-to-end pipeline (spec.md §2).
func runBuild(cmd *cobra.Command, args []string) error {
	defer func() {
		if gLogFile != nil {
			_ = gLogFile.Close()
		}
	}()

	if flagPrint != "" && flagPrint != app.PrintCPUFeatures {
		return errors.Wrapf(driverrors.ErrConfigError, "unrecognised --print value %q (expected %q)", flagPrint, app.PrintCPUFeatures)
	}
	if !util.StringInList(flagColor, colorOptions) {
		return errors.Wrapf(driverrors.ErrConfigError, "unrecognised --color value %q (expected one of %v)", flagColor, colorOptions)
	}

	var cpus []string
	if cmd.Flags().Changed(app.FlagCPUsName) {
		cpus = flagCPUs
		if cpus == nil {
			cpus = []string{}
		}
	}

	passthrough := passthroughArgs(cmd, args)

	opts := driver.Options{
		Target:              flagTarget,
		ManifestPath:        flagManifestPath,
		Profile:             flagProfile,
		CPUs:                cpus,
		ExcludedCPUFeatures: flagExcludeFeats,
		OutDir:              flagOutDir,
		TargetDir:           flagTargetDir,
		PassthroughArgs:     passthrough,
		RunnerVersion:       flagRunnerVersion,
		Print:               flagPrint,
		CargoCommand:        flagCargo,
		Progress:            newProgress(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting build", slog.String("target", flagTarget), slog.String("profile", flagProfile))
	result, err := driver.Run(ctx, opts)
	if err != nil {
		slog.Error("build failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	if opts.Print != "" {
		return nil
	}

	slog.Info("build complete", slog.String("output", result.OutputPath), slog.Int("variants", result.VariantCount), slog.Bool("ran_runner", result.RanRunner))
	if result.RanRunner {
		fmt.Printf("Built %s (%d variants, runner-selected at startup)\n", result.OutputPath, result.VariantCount)
	} else {
		fmt.Printf("Built %s (single variant, runner skipped)\n", result.OutputPath)
	}
	return nil
}

// passthroughArgs returns the raw arguments following "--" on the
// command line, forwarded verbatim to the inner compiler (spec.md §6).
func passthroughArgs(cmd *cobra.Command, args []string) []string {
	dashAt := cmd.ArgsLenAtDash()
	if dashAt < 0 || dashAt > len(args) {
		return nil
	}
	return args[dashAt:]
}

// newProgress builds the spinner used by the Variant Builder, honouring
// --color: "never" disables it, "always" forces it on, "auto" follows
// whether stderr is a terminal.
func newProgress() *progress.MultiSpinner {
	switch flagColor {
	case "never":
		return nil
	case "always":
		return progress.NewMultiSpinner()
	default:
		if term.IsTerminal(int(os.Stderr.Fd())) {
			return progress.NewMultiSpinner()
		}
		return nil
	}
}

func exitCodeFor(err error) int {
	if errors.Is(err, driverrors.ErrConfigError) {
		return 2
	}
	return 1
}
