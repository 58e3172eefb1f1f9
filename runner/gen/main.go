// Command gen is the Runner Build Step (spec.md §4.5): it runs immediately
// before the Driver builds the Runner, reading the Manifest path from
// MULTIVERS_BUILDS_DESCRIPTION_PATH and writing runner/builds.bin, the
// blob the Runner embeds via //go:embed and its init() decodes into the
// Runner's package-level source/patches table.
package main

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"

	"multivers/internal/bsdiff"
	"multivers/internal/bz2"
	"multivers/internal/driverrors"
	"multivers/internal/embedbuild"
	"multivers/internal/manifest"
)

const manifestEnvVar = "MULTIVERS_BUILDS_DESCRIPTION_PATH"

// outputFile is relative to this program's working directory, which the
// Driver sets to runner/ before invoking `go run multivers/runner/gen` (see
// internal/driver/runnerbuild.go), so the generated blob lands right next
// to the //go:embed directive in runner/main.go.
const outputFile = "builds.bin"

func main() {
	if err := run(); err != nil {
		slog.Error("runner build step failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	manifestPath := os.Getenv(manifestEnvVar)
	if manifestPath == "" {
		// spec.md §4.5: absent Manifest emits a zero-length Source and an
		// empty Patches array; the Runner will fail to find a match and
		// exit with an error at launch, rather than the generator failing.
		return writeEmptyTable()
	}

	man, err := manifest.Read(manifestPath)
	if err != nil {
		return err
	}
	if len(man.Records) == 0 {
		return writeEmptyTable()
	}

	// spec.md §4.5 step 1-2: sort descending (Manifest.Read already does
	// this defensively) and pop the last entry as the Base.
	baseRecord := man.Records[len(man.Records)-1]
	patchRecords := man.Records[:len(man.Records)-1]

	baseBytes, err := os.ReadFile(baseRecord.Path) // #nosec G304
	if err != nil {
		return fmt.Errorf("%w: reading base %s: %v", driverrors.ErrIOFailure, baseRecord.Path, err)
	}
	sourceBlob, err := bz2.Compress(baseBytes, bz2.MaxLevel)
	if err != nil {
		return err
	}

	table := embedbuild.Table{
		Source: embedbuild.EmbeddedBuild{Compressed: sourceBlob, Features: baseRecord.Features},
	}
	for _, rec := range patchRecords {
		targetBytes, err := os.ReadFile(rec.Path) // #nosec G304
		if err != nil {
			return fmt.Errorf("%w: reading variant %s: %v", driverrors.ErrIOFailure, rec.Path, err)
		}
		// The patch blob is embedded exactly as bsdiff.Diff returns it.
		// Neither this step nor internal/bsdiff compresses it: Diff writes
		// its control, add and extra blocks uncompressed.
		patchBlob, err := bsdiff.Diff(baseBytes, targetBytes)
		if err != nil {
			return fmt.Errorf("%w: diffing %s against base: %v", driverrors.ErrPatchFailure, rec.Path, err)
		}
		table.Patches = append(table.Patches, embedbuild.EmbeddedBuild{Compressed: patchBlob, Features: rec.Features})
	}

	return writeTable(table)
}

func writeEmptyTable() error {
	return writeTable(embedbuild.Table{})
}

func writeTable(table embedbuild.Table) error {
	data, err := embedbuild.Marshal(table)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputFile, data, 0o644); err != nil { // #nosec G306
		return fmt.Errorf("%w: writing %s: %v", driverrors.ErrIOFailure, outputFile, err)
	}
	return nil
}
