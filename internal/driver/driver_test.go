package driver

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"multivers/internal/driverrors"
)

// writeManifest drops a minimal Cargo.toml-equivalent manifest in a fresh
// temp directory and returns its path, satisfying driver.Run's
// file-existence check before it ever shells out to the toolchain.
func writeManifest(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "Cargo.toml")
	require.NoError(t, os.WriteFile(path, []byte("[package]\nname = \"fixture\"\n"), 0o644))
	return path
}

// fakeCargo writes a single shell script standing in for `cargo` that
// answers both calling conventions the Driver uses it with: the
// Toolchain Probe's `rustc -- --print=cfg ...` (the literal "--" lands in
// $2) gets featureLines echoed back as its cfg report; the Variant
// Builder's `rustc --profile=... --message-format=json ...` (no leading
// "--") gets one compiler-artifact message pointing at a binary written
// with artifactContents. Skips on non-Unix since the script is a shebang
// file.
func fakeCargo(t *testing.T, featureLines, artifactContents string) (command, artifactPath string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake cargo script requires a POSIX shell")
	}
	dir := t.TempDir()
	artifactPath = filepath.Join(dir, "emitted-binary")
	require.NoError(t, os.WriteFile(artifactPath, []byte(artifactContents), 0o755))

	script := fmt.Sprintf(`#!/bin/sh
if [ "$2" = "--" ]; then
%s
  exit 0
fi
echo '{"reason":"compiler-artifact","profile":{"test":false},"target":{"crate_types":["bin"],"kind":["bin"]},"executable":%q}'
exit 0
`, featureLines, artifactPath)
	path := filepath.Join(dir, "cargo")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path, artifactPath
}

// fakeCargoNoArtifact behaves like fakeCargo for the toolchain probe, but
// the variant-build invocation exits clean without emitting a
// compiler-artifact message, the no-bin-package scenario (spec.md §8 E6).
func fakeCargoNoArtifact(t *testing.T, featureLines string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake cargo script requires a POSIX shell")
	}
	dir := t.TempDir()
	script := fmt.Sprintf(`#!/bin/sh
if [ "$2" = "--" ]; then
%s
  exit 0
fi
exit 0
`, featureLines)
	path := filepath.Join(dir, "cargo")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestRunFailsWithConfigErrorWhenCatalogueReducesToEmpty(t *testing.T) {
	command, _ := fakeCargo(t, `  echo 'target_feature="avx2"'`, "unused")
	opts := Options{
		Target:              "x86_64-unknown-linux-gnu",
		ManifestPath:        writeManifest(t),
		CargoCommand:        command,
		CPUs:                []string{"alderlake"},
		ExcludedCPUFeatures: []string{"avx2"},
		OutDir:              t.TempDir(),
	}

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	require.ErrorIs(t, err, driverrors.ErrConfigError)
}

func TestRunTakesSingleVariantShortcut(t *testing.T) {
	command, _ := fakeCargo(t, `  echo 'target_feature="avx2"'`, "fake-executable-bytes")
	outDir := t.TempDir()
	opts := Options{
		Target:       "x86_64-unknown-linux-gnu",
		ManifestPath: writeManifest(t),
		CargoCommand: command,
		CPUs:         []string{"alderlake"},
		OutDir:       outDir,
	}

	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.False(t, result.RanRunner)
	require.Equal(t, 1, result.VariantCount)
	require.True(t, strings.HasPrefix(result.OutputPath, outDir))

	contents, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	require.Equal(t, "fake-executable-bytes", string(contents))
}

func TestRunFailsWithConfigErrorWhenNoBinaryArtifact(t *testing.T) {
	command := fakeCargoNoArtifact(t, `  echo 'target_feature="avx2"'`)
	opts := Options{
		Target:       "x86_64-unknown-linux-gnu",
		ManifestPath: writeManifest(t),
		CargoCommand: command,
		CPUs:         []string{"alderlake"},
		OutDir:       t.TempDir(),
	}

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	require.ErrorIs(t, err, driverrors.ErrConfigError)
	require.Contains(t, err.Error(), "No binary package detected. Only binaries can be built using cargo multivers.")
}
