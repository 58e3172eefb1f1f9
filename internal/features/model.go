package features

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "sort"

// CpuCatalogue maps a toolchain-recognised CPU name (e.g. "alderlake") to
// the FeatureSet the toolchain reports for it. Built once per target
// triple by internal/toolchain.
type CpuCatalogue map[string]FeatureSet

// Enumerate removes every feature in excluded from each CPU's FeatureSet,
// drops CPUs whose remaining set is empty, and returns the sorted,
// deduplicated list of remaining FeatureSets.
//
// Sort order here is by descending cardinality then by Key(), giving a
// deterministic result for a fixed catalogue and exclusion set; the
// Manifest (manifest.New) sorts the post-dedup records by the same rule
// once bytes are known.
func Enumerate(catalogue CpuCatalogue, excluded []string) []FeatureSet {
	seen := make(map[string]FeatureSet)
	for _, fs := range catalogue {
		reduced := fs.Without(excluded)
		if reduced.IsEmpty() {
			continue
		}
		seen[reduced.Key()] = reduced
	}
	out := make([]FeatureSet, 0, len(seen))
	for _, fs := range seen {
		out = append(out, fs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Len() != out[j].Len() {
			return out[i].Len() > out[j].Len()
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}
