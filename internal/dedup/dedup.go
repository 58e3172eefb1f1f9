// Package dedup implements the Build Deduplicator: it collapses variants
// that compiled to byte-identical output, keeping the one reachable from
// the largest set of hosts (the smallest feature set among the tied
// group), and orders the survivors for runtime priority.
package dedup

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"crypto/sha3"
	"sort"

	"multivers/internal/variant"
)

// hashed pairs a Variant with the hash of its bytes, computed once so the
// sort comparator never re-hashes.
type hashed struct {
	v    variant.Variant
	hash [32]byte
}

// Dedup collapses byte-identical variants and returns the survivors
// sorted by feature cardinality descending — the order in which the
// Runner should try them at runtime.
//
// Algorithm: hash every variant's bytes (SHA3-256), sort by
// (hash ascending, cardinality ascending), collapse runs of equal hash to
// their first (smallest-featureset) element, then re-sort survivors by
// cardinality descending.
func Dedup(variants []variant.Variant) []variant.Variant {
	if len(variants) == 0 {
		return nil
	}

	hashedVariants := make([]hashed, len(variants))
	for i, v := range variants {
		hashedVariants[i] = hashed{v: v, hash: sha3.Sum256(v.Bytes)}
	}

	sort.Slice(hashedVariants, func(i, j int) bool {
		if hashedVariants[i].hash != hashedVariants[j].hash {
			return lessHash(hashedVariants[i].hash, hashedVariants[j].hash)
		}
		return hashedVariants[i].v.Features.Len() < hashedVariants[j].v.Features.Len()
	})

	survivors := make([]variant.Variant, 0, len(hashedVariants))
	survivors = append(survivors, hashedVariants[0].v)
	lastHash := hashedVariants[0].hash
	for _, hv := range hashedVariants[1:] {
		if hv.hash == lastHash {
			continue
		}
		survivors = append(survivors, hv.v)
		lastHash = hv.hash
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Features.Len() > survivors[j].Features.Len()
	})
	return survivors
}

func lessHash(a, b [32]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
