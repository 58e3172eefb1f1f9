// Package cpufeatures detects the host CPU's feature set at Runner
// startup and translates it into the lower-case, dotted token vocabulary
// the Toolchain Probe reports (e.g. "avx2", "sse4.2"), so it can be
// compared directly against an EmbeddedBuild's Features list.
package cpufeatures

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// dottedOverrides maps cpuid.v2 feature names to the toolchain's token
// spelling. Only SSE4 and SSE42 differ from a plain lower-casing; the other
// entries equal their lower-cased form. Anything not listed here is
// translated by a straight strings.ToLower.
var dottedOverrides = map[string]string{
	"SSE3":     "sse3",
	"SSSE3":    "ssse3",
	"SSE4":     "sse4.1",
	"SSE42":    "sse4.2",
	"AVX512F":  "avx512f",
	"AVX512BW": "avx512bw",
	"AVX512CD": "avx512cd",
	"AVX512DQ": "avx512dq",
	"AVX512VL": "avx512vl",
}

// HostFeatures returns the set of feature tokens the running process's
// CPU supports, in the toolchain's token vocabulary, suitable for
// embedbuild.Find's hostFeatures argument.
func HostFeatures() map[string]struct{} {
	raw := cpuid.CPU.FeatureSet().Strings()
	out := make(map[string]struct{}, len(raw))
	for _, name := range raw {
		out[Translate(name)] = struct{}{}
	}
	return out
}

// Translate converts one cpuid.v2 feature name (e.g. "SSE42", "AVX2") into
// the lower-case, dotted token the toolchain uses (e.g. "sse4.2", "avx2").
func Translate(cpuidName string) string {
	if dotted, ok := dottedOverrides[cpuidName]; ok {
		return dotted
	}
	return strings.ToLower(cpuidName)
}
