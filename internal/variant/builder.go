// Package variant defines the compiled-binary record the Variant Builder
// produces for one profile and the Build Deduplicator consumes, and the
// Variant Builder itself: one toolchain invocation per FeatureSet.
package variant

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"multivers/internal/driverrors"
	"multivers/internal/features"
)

// BuildOptions configures one profile's toolchain invocation. It is
// shared, read-only, across every concurrent worker the Driver starts.
type BuildOptions struct {
	// Command is the toolchain entry point, e.g. "cargo". Defaults to the
	// CARGO environment variable, or "cargo".
	Command string
	// Target is the explicit target triple; required, so RUSTFLAGS never
	// leaks into build-scripts compiled for the host (spec.md §4.3).
	Target string
	// ManifestPath is the project manifest (Cargo.toml-equivalent) to
	// build.
	ManifestPath string
	// Profile is the build profile, e.g. "release" or "dev".
	Profile string
	// TargetDir overrides the toolchain's intermediate directory, shared
	// safely across profiles since the toolchain keys intermediates on
	// feature flags.
	TargetDir string
	// ExtraRustflags is appended ahead of the per-profile
	// -Ctarget-feature= flag, e.g. "/Brepro" passthrough on Windows/MSVC.
	ExtraRustflags string
	// PassthroughArgs are raw arguments forwarded after "--" on the
	// driver's own CLI.
	PassthroughArgs []string
}

func (o BuildOptions) command() string {
	if o.Command != "" {
		return o.Command
	}
	if c := os.Getenv("CARGO"); c != "" {
		return c
	}
	return "cargo"
}

func (o BuildOptions) profile() string {
	if o.Profile == "" {
		return "release"
	}
	return o.Profile
}

// ProfileDir returns the directory name the toolchain writes profile
// output to: the "dev" profile writes to "debug", everything else writes
// to its own name.
func ProfileDir(profile string) string {
	if profile == "" || profile == "dev" {
		return "debug"
	}
	return profile
}

// compilerMessage mirrors the handful of fields this package reads out of
// the toolchain's --message-format=json stream; unknown fields are
// ignored by encoding/json.
type compilerMessage struct {
	Reason     string   `json:"reason"`
	Executable *string  `json:"executable"`
	Profile    struct{ Test bool } `json:"profile"`
	Target     struct {
		CrateTypes []string `json:"crate_types"`
		Kind       []string `json:"kind"`
	} `json:"target"`
	Message struct {
		Rendered string `json:"rendered"`
	} `json:"message"`
}

func isBinArtifact(m compilerMessage) bool {
	if m.Reason != "compiler-artifact" || m.Profile.Test || m.Executable == nil {
		return false
	}
	return len(m.Target.CrateTypes) == 1 && m.Target.CrateTypes[0] == "bin" &&
		len(m.Target.Kind) == 1 && m.Target.Kind[0] == "bin"
}

// Build invokes the toolchain once for fs: target triple set explicitly,
// RUSTFLAGS appended with -Ctarget-feature=<compiler flag form>, streams
// the structured build output looking for the first bin artifact that
// isn't a test, reads its bytes fully into memory.
func Build(ctx context.Context, opts BuildOptions, fs features.FeatureSet) (Variant, error) {
	flagForm := fs.CompilerFlagForm()
	rustflags := strings.TrimSpace(opts.ExtraRustflags)
	if flagForm != "" {
		if rustflags != "" {
			rustflags += " "
		}
		rustflags += "-Ctarget-feature=" + flagForm
	}

	args := []string{
		"rustc",
		"--profile=" + opts.profile(),
		"--target", opts.Target,
		"--message-format=json",
		"--manifest-path", opts.ManifestPath,
	}
	if opts.TargetDir != "" {
		args = append(args, "--target-dir", opts.TargetDir)
	}
	if len(opts.PassthroughArgs) > 0 {
		args = append(args, "--")
		args = append(args, opts.PassthroughArgs...)
	}

	cmd := exec.CommandContext(ctx, opts.command(), args...) // #nosec G204
	cmd.Env = append(os.Environ(), "RUSTFLAGS="+rustflags)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Variant{}, errors.Wrap(driverrors.ErrToolchainFailure, err.Error())
	}
	var stderrBuf strings.Builder
	cmd.Stderr = &stderrBuf

	slog.Debug("building variant", slog.String("target_features", flagForm), slog.String("cmd", cmd.String()))

	if err := cmd.Start(); err != nil {
		return Variant{}, errors.Wrapf(driverrors.ErrToolchainFailure, "starting %s: %v", opts.command(), err)
	}

	var executablePath string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg compilerMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			continue // not every line is a recognised message shape
		}
		if msg.Reason == "compiler-message" && msg.Message.Rendered != "" {
			fmt.Fprint(os.Stderr, msg.Message.Rendered)
			continue
		}
		if executablePath == "" && isBinArtifact(msg) {
			executablePath = *msg.Executable
		}
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		return Variant{}, errors.Wrapf(driverrors.ErrToolchainFailure, "%s %s (stderr: %s): %v", opts.command(), strings.Join(args, " "), strings.TrimSpace(stderrBuf.String()), waitErr)
	}
	if executablePath == "" {
		return Variant{}, errors.Wrap(driverrors.ErrConfigError, "No binary package detected. Only binaries can be built using cargo multivers.")
	}

	bytes, err := os.ReadFile(executablePath) // #nosec G304
	if err != nil {
		// a compile that reported success but whose artifact cannot be
		// read indicates filesystem breakage, not a toolchain failure.
		return Variant{}, errors.Wrapf(driverrors.ErrIOFailure, "reading variant artifact %s: %v", executablePath, err)
	}

	return Variant{Features: fs, Path: executablePath, Bytes: bytes}, nil
}
