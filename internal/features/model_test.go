package features

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnumerateCanonicalises(t *testing.T) {
	catalogue := CpuCatalogue{
		"alderlake":   New([]string{"avx2", "bmi2", "sse4.2", "xsave"}),
		"raptorlake":  New([]string{"xsave", "avx2", "sse4.2", "bmi2"}), // identical to alderlake once sorted
		"sandybridge": New([]string{"sse4.2", "xsave"}),
		"pentium4":    New([]string{"xsave"}),
	}

	result := Enumerate(catalogue, nil)

	// pairwise non-equal
	for i := range result {
		for j := range result {
			if i == j {
				continue
			}
			require.False(t, result[i].Equal(result[j]), "sets %d and %d should not be equal", i, j)
		}
	}

	// sorted by cardinality descending
	for i := 1; i < len(result); i++ {
		require.LessOrEqual(t, result[i].Len(), result[i-1].Len())
	}

	// alderlake/raptorlake collapse to a single 4-feature set
	require.Equal(t, 3, len(result))
	require.Equal(t, 4, result[0].Len())
}

func TestEnumerateAppliesExclusions(t *testing.T) {
	catalogue := CpuCatalogue{
		"alderlake": New([]string{"avx2", "bmi2", "sse4.2"}),
		"haswell":   New([]string{"avx2", "bmi2"}),
	}

	result := Enumerate(catalogue, []string{"bmi2"})

	for _, fs := range result {
		for _, excluded := range []string{"bmi2"} {
			require.NotContains(t, fs.Features(), excluded)
		}
	}
}

func TestEnumerateDropsEmptyAfterExclusion(t *testing.T) {
	catalogue := CpuCatalogue{
		"bareMinimum": New([]string{"sse"}),
		"richer":      New([]string{"sse", "avx2"}),
	}

	result := Enumerate(catalogue, []string{"sse"})
	require.Len(t, result, 1)
	require.Equal(t, []string{"avx2"}, result[0].Features())
}

func TestCompilerFlagForm(t *testing.T) {
	fs := New([]string{"sse4.2", "avx2", "bmi2"})
	require.Equal(t, "+avx2,+bmi2,+sse4.2", fs.CompilerFlagForm())
}

func TestSubset(t *testing.T) {
	host := New([]string{"avx2", "bmi2", "sse4.2", "xsave"})
	require.True(t, New([]string{"avx2", "bmi2"}).Subset(host))
	require.True(t, New(nil).Subset(host))
	require.False(t, New([]string{"avx512f"}).Subset(host))
}
