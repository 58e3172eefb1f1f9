// Package embedbuild defines the Runner's compile-time build table and
// the selection algorithm the Runner Core uses to pick a variant at
// process start: walk the patches most-demanding first, return the first
// whose feature requirements are a subset of the host's.
package embedbuild

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// EmbeddedBuild is one compiled variant as baked into the Runner binary:
// either the Base (SourceRef nil, Compressed holds a bzip2 blob) or a
// patch against the Base (SourceRef points at it, Compressed holds a
// bsdiff blob).
type EmbeddedBuild struct {
	Compressed []byte
	Features   []string
	SourceRef  *EmbeddedBuild
}

// Table is the Runner's full build listing: the Base and the patches
// against it, patches ordered most-demanding first (matching Manifest
// order).
type Table struct {
	Source  EmbeddedBuild
	Patches []EmbeddedBuild
}

// Find returns the first entry (checking Patches before falling back to
// Source) whose Features are all present in hostFeatures, and whether a
// match was found.
//
// A patch whose feature list is a strict subset of another patch's, while
// the two differ in reconstructed bytes, is still handled correctly: the
// more specific (listed earlier, by Manifest order) entry is tried first
// and wins, since Find returns on the first subset match.
func Find(table Table, hostFeatures map[string]struct{}) (*EmbeddedBuild, bool) {
	for i := range table.Patches {
		if isSubset(table.Patches[i].Features, hostFeatures) {
			return &table.Patches[i], true
		}
	}
	if isSubset(table.Source.Features, hostFeatures) {
		return &table.Source, true
	}
	return nil, false
}

func isSubset(required []string, host map[string]struct{}) bool {
	for _, f := range required {
		if _, ok := host[f]; !ok {
			return false
		}
	}
	return true
}
