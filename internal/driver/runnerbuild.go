package driver

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"multivers/internal/driverrors"
	"multivers/internal/manifest"
	"multivers/internal/util"
)

// callerFile reports the source file this function is compiled from,
// used to locate the module root relative to internal/driver at runtime
// without relying on the process's working directory.
func callerFile() (pc uintptr, file string, line int, ok bool) {
	return runtime.Caller(1)
}

// manifestEnvVar is the environment variable the Runner Build Step reads
// the Manifest path from (spec.md §6).
const manifestEnvVar = "MULTIVERS_BUILDS_DESCRIPTION_PATH"

// runnerModulePath is this module's import path for the embedded runner
// program, used to locate its source and invoke `go build` against it.
const runnerModulePath = "multivers/runner"

// buildRunner writes the Manifest to disk, runs the Runner Build Step
// generator (runner/gen) to embed a builds.bin next to the Runner's
// source, `go build`s the Runner, and copies the resulting executable to
// the output directory.
//
// This is the Go-native equivalent of Rust's build.rs pre-code-generation
// task: the generator writes its output where //go:embed can see it
// (runner/builds.bin) instead of into an out-of-tree OUT_DIR, since
// go:embed requires the embedded file to exist relative to the package
// at compile time.
func buildRunner(ctx context.Context, man *manifest.Manifest, opts Options, target string) (string, error) {
	workDir := opts.TargetDir
	if workDir == "" {
		var err error
		workDir, err = os.MkdirTemp("", "multivers-manifest-*")
		if err != nil {
			return "", errors.Wrap(driverrors.ErrIOFailure, err.Error())
		}
		defer os.RemoveAll(workDir) // #nosec G104 -- best-effort cleanup
	} else {
		abs, err := util.AbsPath(workDir)
		if err != nil {
			return "", errors.Wrap(driverrors.ErrIOFailure, err.Error())
		}
		if err := util.CreateIfNotExists(abs, 0o755); err != nil {
			return "", errors.Wrap(driverrors.ErrIOFailure, err.Error())
		}
		if _, err := util.DirectoryExists(abs); err != nil {
			return "", errors.Wrapf(driverrors.ErrConfigError, "--target-dir: %v", err)
		}
		workDir = abs
	}
	manifestPath := filepath.Join(workDir, "builds.json")
	if err := man.Write(manifestPath); err != nil {
		return "", err
	}

	runnerDir, err := runnerSourceDir()
	if err != nil {
		return "", err
	}
	builtInBin := filepath.Join(workDir, runnerBinaryName())

	genCmd := exec.CommandContext(ctx, "go", "run", runnerModulePath+"/gen") // #nosec G204
	genCmd.Env = append(os.Environ(), manifestEnvVar+"="+manifestPath)
	genCmd.Dir = runnerDir
	genCmd.Stdout = os.Stderr
	genCmd.Stderr = os.Stderr
	if err := genCmd.Run(); err != nil {
		return "", errors.Wrapf(driverrors.ErrIOFailure, "runner build step failed: %v", err)
	}

	buildCmd := exec.CommandContext(ctx, "go", "build", "-trimpath", "-o", builtInBin, runnerModulePath) // #nosec G204
	buildCmd.Env = goBuildEnv(target)
	buildCmd.Stdout = os.Stderr
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		return "", errors.Wrapf(driverrors.ErrIOFailure, "building runner: %v", err)
	}

	outDir, err := resolveOutDir(opts.OutDir)
	if err != nil {
		return "", err
	}
	if err := util.CreateIfNotExists(outDir, 0o755); err != nil {
		return "", errors.Wrap(driverrors.ErrIOFailure, err.Error())
	}
	outputPath := filepath.Join(outDir, runnerBinaryName())
	if err := util.Copy(builtInBin, outputPath); err != nil {
		return "", errors.Wrapf(driverrors.ErrIOFailure, "copying runner to %s: %v", outputPath, err)
	}
	if err := os.Chmod(outputPath, 0o755); err != nil { // #nosec G302
		return "", errors.Wrap(driverrors.ErrIOFailure, err.Error())
	}
	return outputPath, nil
}

func runnerBinaryName() string {
	if runtime.GOOS == "windows" {
		return "multivers-runner.exe"
	}
	return "multivers-runner"
}

// goBuildEnv sets GOOS/GOARCH on the child `go build` from target's
// first two dash-separated components, so the Runner matches the
// variants it will select among.
func goBuildEnv(target string) []string {
	env := os.Environ()
	parts := strings.SplitN(target, "-", 2)
	if len(parts) == 0 {
		return env
	}
	goarch := mapArch(parts[0])
	if goarch == "" {
		return env
	}
	env = append(env, "GOARCH="+goarch)
	if strings.Contains(target, "windows") {
		env = append(env, "GOOS=windows")
	} else if strings.Contains(target, "darwin") || strings.Contains(target, "apple") {
		env = append(env, "GOOS=darwin")
	} else {
		env = append(env, "GOOS=linux")
	}
	return env
}

func mapArch(triple string) string {
	switch triple {
	case "x86_64":
		return "amd64"
	case "aarch64", "arm64":
		return "arm64"
	case "i686", "i386":
		return "386"
	default:
		return ""
	}
}

// runnerSourceDir locates this module's runner/ directory so `go run
// <module>/gen` executes with the right working directory (go:embed
// paths are resolved relative to the package, not the caller's cwd, but
// `go generate`-style tools still need a stable place to run from for
// logging and relative manifest lookups).
func runnerSourceDir() (string, error) {
	_, file, _, ok := callerFile()
	if !ok {
		return "", errors.Wrap(driverrors.ErrIOFailure, "unable to determine module root")
	}
	// this file lives at <module root>/internal/driver/runnerbuild.go
	return filepath.Join(filepath.Dir(file), "..", "..", "runner"), nil
}
