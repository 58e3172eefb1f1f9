// Package driverrors defines the error taxonomy shared by the driver's
// components, so callers can branch on error kind with errors.Is/errors.As
// instead of matching strings.
package driverrors

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "errors"

// Sentinel error kinds. Wrap these with github.com/pkg/errors.Wrap (or
// fmt.Errorf with %w) to attach call-site context while keeping the kind
// discoverable via errors.Is.
var (
	// ErrToolchainFailure indicates the native toolchain exited non-zero or
	// produced unparseable output. Recoverable: the offending profile is
	// skipped unless every profile fails.
	ErrToolchainFailure = errors.New("toolchain failure")

	// ErrIOFailure indicates reading or writing a variant or the manifest
	// failed. Always fatal.
	ErrIOFailure = errors.New("i/o failure")

	// ErrPatchFailure indicates bsdiff/bspatch rejected its inputs. Always
	// fatal: it means corrupt bytes or a bug.
	ErrPatchFailure = errors.New("patch failure")

	// ErrNoMatch indicates no EmbeddedBuild's FeatureSet is a subset of the
	// host's features at runtime.
	ErrNoMatch = errors.New("no build matches the host's CPU features")

	// ErrExecFailure indicates the platform exec primitive failed after the
	// payload was materialised.
	ErrExecFailure = errors.New("exec failure")

	// ErrConfigError indicates a pre-compilation configuration problem: an
	// empty explicit CPU list, an unparsable target triple, or a catalogue
	// that reduces to zero non-empty feature sets.
	ErrConfigError = errors.New("configuration error")
)

// Recoverable reports whether err represents a condition the Driver may
// continue past (currently: only a single profile's toolchain failure).
func Recoverable(err error) bool {
	return errors.Is(err, ErrToolchainFailure)
}
