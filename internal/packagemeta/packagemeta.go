// Package packagemeta reads the optional multivers.yaml sidecar that lets a
// project pin the exact CPU list considered for one architecture, instead
// of the full catalogue the toolchain would otherwise offer.
//
// A Cargo-based toolchain carries this as a `[package.metadata.multivers.*]`
// table inside Cargo.toml; a standalone Go module has no such manifest
// metadata section to piggy-back on, so the override lives in its own YAML
// file read via gopkg.in/yaml.v2, the same library the teacher uses for its
// own sidecar configuration.
package packagemeta

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"multivers/internal/driverrors"
)

// SidecarFileName is the file the Driver looks for in the working
// directory before falling back to the toolchain's full CPU catalogue.
const SidecarFileName = "multivers.yaml"

// TargetOverride restricts the CPU list considered for one architecture.
// A nil Cpus means "no override", distinct from an empty, explicit list
// (which the Driver rejects as a ConfigError).
type TargetOverride struct {
	Cpus []string `yaml:"cpus"`
}

// Metadata is the parsed contents of a multivers.yaml sidecar: a map from
// architecture name (the first dash-separated component of a target
// triple, e.g. "x86_64") to its override.
type Metadata struct {
	Targets map[string]TargetOverride
}

// rawDocument mirrors the sidecar's top-level shape:
//
//	x86_64:
//	  cpus: [alderlake, skylake, sandybridge, ivybridge]
//	aarch64:
//	  cpus: [neoverse-n1]
type rawDocument map[string]TargetOverride

// Load reads and parses path. A missing file is not an error: it returns a
// nil Metadata, meaning "no override in effect".
func Load(path string) (*Metadata, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(driverrors.ErrIOFailure, "reading %s: %v", path, err)
	}

	var doc rawDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(driverrors.ErrConfigError, "parsing %s: %v", path, err)
	}
	if len(doc) == 0 {
		return nil, nil
	}
	return &Metadata{Targets: doc}, nil
}

// CpusFor returns the overriding CPU list for the given architecture, and
// whether an override was present. The architecture argument is the
// dash-separated first component of a target triple (e.g. "x86_64" out of
// "x86_64-unknown-linux-gnu").
func (m *Metadata) CpusFor(arch string) ([]string, bool) {
	if m == nil {
		return nil, false
	}
	override, ok := m.Targets[arch]
	if !ok || override.Cpus == nil {
		return nil, false
	}
	return override.Cpus, true
}
