// Command multivers-runner is the Runner (spec.md §4.6): the small
// program a multi-variant build embeds in place of the user's binary. At
// startup it detects the host CPU's features, selects the best matching
// compiled variant from its embedded build table, reconstructs that
// variant's bytes, and hands off execution to them.
//
// It runs before any meaningful amount of this program's own logic: the
// entry point does exactly one decompression, at most one bsdiff patch,
// and one platform exec call, deliberately avoiding anything heavier so
// that the handoff stays on the Runner Core's single, sequential path
// described in spec.md §4.6 and §5.
package main

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	_ "embed"
	"fmt"
	"os"

	"multivers/internal/cpufeatures"
	"multivers/internal/driverrors"
	"multivers/internal/embedbuild"
	"multivers/runner/platformexec"
)

// builds.bin ships as a checked-in empty placeholder (an empty Source, no
// Patches) so this package always compiles; runner/gen overwrites it with
// the real build table immediately before the Driver builds this binary.
//
//go:embed builds.bin
var embeddedBuilds []byte

// source and patches are the process-lifetime build table, constructed
// once in init() so every Patches[i].SourceRef points at the single
// package-level source value — the Go stand-in for the typed constant
// table spec.md §9 describes (no heap cycle: source is never reachable
// from itself, only pointed at).
var (
	source  embedbuild.EmbeddedBuild
	patches []embedbuild.EmbeddedBuild
)

func init() {
	table, err := embedbuild.Unmarshal(embeddedBuilds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: corrupt embedded build table: %v\n", err)
		os.Exit(1)
	}
	source = embedbuild.EmbeddedBuild{Compressed: table.Source.Compressed, Features: table.Source.Features}
	patches = make([]embedbuild.EmbeddedBuild, len(table.Patches))
	for i, p := range table.Patches {
		patches[i] = embedbuild.EmbeddedBuild{Compressed: p.Compressed, Features: p.Features, SourceRef: &source}
	}
}

func main() {
	host := cpufeatures.HostFeatures()

	selected, ok := embedbuild.Find(embedbuild.Table{Source: source, Patches: patches}, host)
	if !ok {
		fmt.Fprintln(os.Stderr, "Error: no embedded build matches this CPU's feature set")
		os.Exit(exitCodeFor(driverrors.ErrNoMatch))
	}

	payload, err := embedbuild.Reconstruct(selected)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to reconstruct selected build: %v\n", err)
		os.Exit(exitCodeFor(err))
	}

	err = platformexec.Exec(os.Args, os.Environ(), payload)
	// On Linux, a successful Exec never returns; any return here is a
	// failure. On other platforms, the selected variant's exit code comes
	// back wrapped in a *platformexec.ExitError, which is not itself an
	// application failure.
	var exitErr *platformexec.ExitError
	if err != nil {
		if asExitError(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: exec failed: %v\n", err)
		os.Exit(exitCodeFor(driverrors.ErrExecFailure))
	}
}

func asExitError(err error, target **platformexec.ExitError) bool {
	if ee, ok := err.(*platformexec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

// exitCodeFor maps the Runner's error kinds to a nonzero process exit
// code; the exact value is not part of the Driver/Runner contract beyond
// "non-zero on any fatal error" (spec.md §6).
func exitCodeFor(err error) int {
	switch {
	case err == driverrors.ErrNoMatch:
		return 1
	case err == driverrors.ErrExecFailure:
		return 2
	default:
		return 1
	}
}
