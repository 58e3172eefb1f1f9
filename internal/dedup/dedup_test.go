package dedup

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"testing"

	"github.com/stretchr/testify/require"

	"multivers/internal/features"
	"multivers/internal/variant"
)

func TestDedupCollapsesIdenticalBytesToSmallestFeatureSet(t *testing.T) {
	sameBytes := []byte("identical machine code")
	variants := []variant.Variant{
		{Features: features.New([]string{"avx2", "bmi2", "sse4.2"}), Path: "/tmp/a", Bytes: sameBytes},
		{Features: features.New([]string{"sse4.2"}), Path: "/tmp/b", Bytes: sameBytes},
		{Features: features.New([]string{"avx2", "sse4.2"}), Path: "/tmp/c", Bytes: sameBytes},
	}

	out := Dedup(variants)
	require.Len(t, out, 1)
	require.Equal(t, "/tmp/b", out[0].Path)
}

func TestDedupPreservesDistinctBytes(t *testing.T) {
	variants := []variant.Variant{
		{Features: features.New([]string{"avx2", "bmi2"}), Path: "/tmp/a", Bytes: []byte("variant a")},
		{Features: features.New([]string{"sse4.2"}), Path: "/tmp/b", Bytes: []byte("variant b")},
	}

	out := Dedup(variants)
	require.Len(t, out, 2)
}

func TestDedupOrdersSurvivorsByCardinalityDescending(t *testing.T) {
	variants := []variant.Variant{
		{Features: features.New([]string{"sse4.2"}), Path: "/tmp/base", Bytes: []byte("base bytes")},
		{Features: features.New([]string{"avx2", "bmi2", "sse4.2"}), Path: "/tmp/rich", Bytes: []byte("rich bytes")},
		{Features: features.New([]string{"avx2", "sse4.2"}), Path: "/tmp/mid", Bytes: []byte("mid bytes")},
	}

	out := Dedup(variants)
	require.Len(t, out, 3)
	for i := 1; i < len(out); i++ {
		require.LessOrEqual(t, out[i].Features.Len(), out[i-1].Features.Len())
	}
	require.Equal(t, "/tmp/rich", out[0].Path)
	require.Equal(t, "/tmp/base", out[2].Path)
}

func TestDedupEmptyInput(t *testing.T) {
	require.Nil(t, Dedup(nil))
}
