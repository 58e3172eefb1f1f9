// Package driver implements the Driver's end-to-end pipeline: Toolchain
// Probe → Feature Model → Variant Builder (parallel) → Build
// Deduplicator → Manifest → Runner Build Step (or the Single-Variant
// Shortcut) → final artifact.
package driver

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"multivers/internal/dedup"
	"multivers/internal/driverrors"
	"multivers/internal/features"
	"multivers/internal/manifest"
	"multivers/internal/packagemeta"
	"multivers/internal/progress"
	"multivers/internal/toolchain"
	"multivers/internal/util"
	"multivers/internal/variant"
)

// Options is the Driver's behavioural CLI surface (spec.md §6), resolved
// from flags and defaults before Run is called.
type Options struct {
	Target          string   // default = host, resolved via Probe.DefaultTarget
	ManifestPath    string   // project manifest (Cargo.toml-equivalent)
	Profile         string   // default "release"; "dev" writes to "debug"
	CPUs            []string // explicit CPU list; non-nil and empty is a ConfigError
	ExcludedCPUFeatures []string
	OutDir          string // directory the final artifact is copied to
	TargetDir       string // intermediate directory override, passed through
	PassthroughArgs []string
	RunnerVersion   string
	Print           string // "" or app.PrintCPUFeatures

	CargoCommand string
	MetadataPath string // path to the optional multivers.yaml sidecar

	Progress *progress.MultiSpinner // optional; nil disables spinner output
}

// Result reports what the Driver produced, for callers (cmd/root.go) that
// want to print a final summary.
type Result struct {
	OutputPath  string
	VariantCount int
	RanRunner   bool // false when the Single-Variant Shortcut fired
}

// Run executes the full pipeline described by spec.md §2's control flow.
func Run(ctx context.Context, opts Options) (Result, error) {
	probe := newProbe(opts.CargoCommand)

	target := opts.Target
	if target == "" {
		var err error
		target, err = probe.DefaultTarget()
		if err != nil {
			return Result{}, errors.Wrap(driverrors.ErrConfigError, err.Error())
		}
	}
	opts.Target = target

	if opts.Print == printCPUFeatures {
		return Result{}, printFeatureUnion(probe, target, opts.ExcludedCPUFeatures)
	}

	manifestPath, err := util.AbsPath(opts.ManifestPath)
	if err != nil {
		return Result{}, errors.Wrap(driverrors.ErrIOFailure, err.Error())
	}
	if exists, err := util.FileExists(manifestPath); err != nil {
		return Result{}, errors.Wrap(driverrors.ErrConfigError, err.Error())
	} else if !exists {
		return Result{}, errors.Wrapf(driverrors.ErrConfigError, "manifest not found: %s", manifestPath)
	}
	opts.ManifestPath = manifestPath

	catalogue, err := buildCatalogue(probe, target, opts)
	if err != nil {
		return Result{}, err
	}

	profileSets := features.Enumerate(catalogue, opts.ExcludedCPUFeatures)
	if len(profileSets) == 0 {
		return Result{}, errors.Wrap(driverrors.ErrConfigError, "empty set of CPU features")
	}

	variants, err := buildVariants(ctx, opts, profileSets)
	if err != nil {
		return Result{}, err
	}

	survivors := dedup.Dedup(variants)

	entries := make(map[string]features.FeatureSet, len(survivors))
	for _, v := range survivors {
		entries[v.Path] = v.Features
	}
	man, err := manifest.New(entries)
	if err != nil {
		return Result{}, err
	}

	if len(man.Records) == 1 {
		outputPath, err := shortcut(man.Records[0], opts)
		if err != nil {
			return Result{}, err
		}
		return Result{OutputPath: outputPath, VariantCount: 1, RanRunner: false}, nil
	}

	outputPath, err := buildRunner(ctx, man, opts, target)
	if err != nil {
		return Result{}, err
	}
	return Result{OutputPath: outputPath, VariantCount: len(man.Records), RanRunner: true}, nil
}

const printCPUFeatures = "cpu-features"

func newProbe(command string) *toolchain.Probe {
	p := toolchain.NewProbe()
	if command != "" {
		p.Command = command
	}
	return p
}

// printFeatureUnion implements spec.md §6's print-only mode: dump the
// union of all enumerable feature tokens for target, one per line, sorted.
func printFeatureUnion(probe *toolchain.Probe, target string, excluded []string) error {
	catalogue, err := buildCatalogue(probe, target, Options{Target: target, ExcludedCPUFeatures: excluded})
	if err != nil {
		return err
	}
	union := make(map[string]struct{})
	for _, fs := range catalogue {
		for _, f := range fs.Without(excluded).Features() {
			union[f] = struct{}{}
		}
	}
	tokens := make([]string, 0, len(union))
	for f := range union {
		tokens = append(tokens, f)
	}
	sort.Strings(tokens)
	for _, t := range tokens {
		fmt.Println(t)
	}
	return nil
}

// buildCatalogue resolves the CPU list (explicit override, sidecar
// override, or full toolchain enumeration, in that priority) and queries
// features for each, skipping (and logging) any CPU whose feature probe
// fails — a per-CPU toolchain failure is recoverable.
func buildCatalogue(probe *toolchain.Probe, target string, opts Options) (features.CpuCatalogue, error) {
	cpus, err := resolveCPUs(probe, target, opts)
	if err != nil {
		return nil, err
	}

	catalogue := make(features.CpuCatalogue, len(cpus))
	for _, cpu := range cpus {
		fs, err := probe.FeaturesFor(target, cpu)
		if err != nil {
			if driverrors.Recoverable(err) {
				slog.Warn("skipping cpu after toolchain failure", slog.String("cpu", cpu), slog.String("error", err.Error()))
				continue
			}
			return nil, err
		}
		catalogue[cpu] = fs
	}
	return catalogue, nil
}

func resolveCPUs(probe *toolchain.Probe, target string, opts Options) ([]string, error) {
	if opts.CPUs != nil {
		if len(opts.CPUs) == 0 {
			return nil, errors.Wrap(driverrors.ErrConfigError, "--cpus was given an empty list")
		}
		return opts.CPUs, nil
	}

	metadataPath := opts.MetadataPath
	if metadataPath == "" {
		metadataPath = packagemeta.SidecarFileName
	}
	meta, err := packagemeta.Load(metadataPath)
	if err != nil {
		return nil, err
	}
	arch, _, _ := strings.Cut(target, "-")
	if cpus, ok := meta.CpusFor(arch); ok {
		if len(cpus) == 0 {
			return nil, errors.Wrap(driverrors.ErrConfigError, "multivers.yaml gave an empty cpu list")
		}
		return cpus, nil
	}

	return probe.CPUsFor(target)
}

// buildVariants compiles one variant per FeatureSet, up to
// runtime.NumCPU() at a time. A single profile's toolchain failure is
// logged and that profile dropped; the Driver aborts only when every
// profile fails.
func buildVariants(ctx context.Context, opts Options, profileSets []features.FeatureSet) ([]variant.Variant, error) {
	spinner := opts.Progress
	for _, fs := range profileSets {
		if spinner != nil {
			_ = spinner.AddSpinner(fs.Key())
		}
	}
	if spinner != nil {
		spinner.Start()
		defer spinner.Finish()
	}

	type outcome struct {
		v   variant.Variant
		err error
	}

	// /Brepro strips timestamps from MSVC link output so byte-identical
	// variants hash equal in the Build Deduplicator.
	var extraRustflags string
	if strings.Contains(opts.Target, "windows-msvc") {
		extraRustflags = "-Clink-arg=/Brepro"
	}

	sem := make(chan struct{}, max(1, runtime.NumCPU()))
	results := make([]outcome, len(profileSets))
	var wg sync.WaitGroup
	for i, fs := range profileSets {
		wg.Add(1)
		go func(i int, fs features.FeatureSet) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if spinner != nil {
				_ = spinner.Status(fs.Key(), "compiling")
			}
			buildOpts := variant.BuildOptions{
				Command:         opts.CargoCommand,
				Target:          opts.Target,
				ManifestPath:    opts.ManifestPath,
				Profile:         opts.Profile,
				TargetDir:       opts.TargetDir,
				ExtraRustflags:  extraRustflags,
				PassthroughArgs: opts.PassthroughArgs,
			}
			v, err := variant.Build(ctx, buildOpts, fs)
			if spinner != nil {
				if err != nil {
					_ = spinner.Status(fs.Key(), "failed")
				} else {
					_ = spinner.Status(fs.Key(), "done")
				}
			}
			results[i] = outcome{v: v, err: err}
		}(i, fs)
	}
	wg.Wait()

	variants := make([]variant.Variant, 0, len(results))
	failures := 0
	for _, r := range results {
		if r.err != nil {
			if !driverrors.Recoverable(r.err) {
				return nil, r.err
			}
			slog.Warn("variant build failed, skipping profile", slog.String("error", r.err.Error()))
			failures++
			continue
		}
		variants = append(variants, r.v)
	}
	if len(variants) == 0 {
		return nil, errors.Wrapf(driverrors.ErrToolchainFailure, "all %d profile builds failed", failures)
	}
	return variants, nil
}

// resolveOutDir expands "~" and resolves outDir to an absolute path,
// defaulting to the current working directory when unset.
func resolveOutDir(outDir string) (string, error) {
	if outDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(driverrors.ErrIOFailure, err.Error())
		}
		return cwd, nil
	}
	abs, err := util.AbsPath(outDir)
	if err != nil {
		return "", errors.Wrap(driverrors.ErrIOFailure, err.Error())
	}
	return abs, nil
}

// shortcut implements spec.md §4.8: with exactly one surviving record,
// skip the Runner entirely and copy that binary straight to the output.
func shortcut(record manifest.Record, opts Options) (string, error) {
	outputName := filepath.Base(record.Path)
	outDir, err := resolveOutDir(opts.OutDir)
	if err != nil {
		return "", err
	}
	if err := util.CreateIfNotExists(outDir, 0o755); err != nil {
		return "", errors.Wrap(driverrors.ErrIOFailure, err.Error())
	}
	outputPath := filepath.Join(outDir, outputName)
	if err := util.Copy(record.Path, outputPath); err != nil {
		return "", errors.Wrapf(driverrors.ErrIOFailure, "copying single variant to %s: %v", outputPath, err)
	}
	if err := os.Chmod(outputPath, 0o755); err != nil { // #nosec G302
		return "", errors.Wrap(driverrors.ErrIOFailure, err.Error())
	}
	return outputPath, nil
}
