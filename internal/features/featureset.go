// Package features canonicalises the toolchain's per-CPU feature reports
// into the sorted, deduplicated FeatureSets the Driver builds, and renders
// the compiler flag form the Variant Builder passes to the toolchain.
//
// A FeatureSet behaves like an ordered set with structural equality, which
// Go has no built-in type for. Set membership and subset/difference logic
// go through github.com/deckarep/golang-set/v2, the set implementation the
// teacher itself depends on; FeatureSet caches the canonical, sorted,
// comma-joined form alongside it for the ordering and map-keying spec.md
// §3 requires (the "BTreeSet"-shaped half of the contract golang-set's
// unordered Set[T] doesn't provide on its own).
package features

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// FeatureSet is a sorted set of CPU feature tokens (e.g. "avx2", "sse4.2").
// Two FeatureSets are equal iff they contain the same elements; use Key()
// wherever Go needs a comparable/hashable value (map keys, equality checks).
type FeatureSet struct {
	set      mapset.Set[string]
	features []string
}

// New builds a FeatureSet from an unsorted, possibly-duplicated slice of
// feature tokens.
func New(tokens []string) FeatureSet {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, t := range tokens {
		if t == "" {
			continue
		}
		set.Add(t)
	}
	sorted := set.ToSlice()
	slices.Sort(sorted)
	return FeatureSet{set: set, features: sorted}
}

// Features returns the sorted feature tokens. The caller must not mutate
// the returned slice.
func (fs FeatureSet) Features() []string {
	return fs.features
}

// Len returns the cardinality of the set.
func (fs FeatureSet) Len() int {
	return len(fs.features)
}

// Key returns the canonical, sorted, comma-joined representation used for
// equality and as a map key — the Go stand-in for BTreeSet's structural
// equality.
func (fs FeatureSet) Key() string {
	return strings.Join(fs.features, ",")
}

// Equal reports whether two FeatureSets contain the same elements.
func (fs FeatureSet) Equal(other FeatureSet) bool {
	return fs.Key() == other.Key()
}

// Without returns a new FeatureSet with every feature in excluded removed.
func (fs FeatureSet) Without(excluded []string) FeatureSet {
	if len(excluded) == 0 {
		return fs
	}
	drop := mapset.NewThreadUnsafeSet[string](excluded...)
	kept := fs.setOrEmpty().Difference(drop)
	sorted := kept.ToSlice()
	slices.Sort(sorted)
	return FeatureSet{set: kept, features: sorted}
}

// IsEmpty reports whether the set has no features.
func (fs FeatureSet) IsEmpty() bool {
	return len(fs.features) == 0
}

// Subset reports whether every feature in fs is present in host.
func (fs FeatureSet) Subset(host FeatureSet) bool {
	return fs.setOrEmpty().IsSubset(host.setOrEmpty())
}

// setOrEmpty returns fs's backing set, or an empty one for a zero-value
// FeatureSet{} (constructed outside New, e.g. as a struct literal default).
func (fs FeatureSet) setOrEmpty() mapset.Set[string] {
	if fs.set == nil {
		return mapset.NewThreadUnsafeSet[string]()
	}
	return fs.set
}

// CompilerFlagForm joins the sorted features as "+f1,+f2,…", the canonical
// argument given to the compiler's target-feature selector
// (-Ctarget-feature=…).
func (fs FeatureSet) CompilerFlagForm() string {
	if len(fs.features) == 0 {
		return ""
	}
	parts := make([]string, len(fs.features))
	for i, f := range fs.features {
		parts[i] = "+" + f
	}
	return strings.Join(parts, ",")
}
