// Package variant defines the compiled-binary record the Variant Builder
// produces for one profile and the Build Deduplicator consumes.
package variant

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "multivers/internal/features"

// Variant is one successfully compiled profile: the feature set it was
// built for, the path the toolchain emitted it to, and its bytes read
// fully into memory.
type Variant struct {
	Features features.FeatureSet
	Path     string
	Bytes    []byte
}
