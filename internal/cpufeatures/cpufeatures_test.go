package cpufeatures

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranslateKnownOverrides(t *testing.T) {
	require.Equal(t, "sse4.2", Translate("SSE42"))
	require.Equal(t, "sse4.1", Translate("SSE4"))
	require.Equal(t, "avx512f", Translate("AVX512F"))
}

func TestTranslateFallsBackToLowercase(t *testing.T) {
	require.Equal(t, "avx2", Translate("AVX2"))
	require.Equal(t, "bmi2", Translate("BMI2"))
}

func TestHostFeaturesReturnsLowercaseTokens(t *testing.T) {
	host := HostFeatures()
	for token := range host {
		require.Equal(t, token, strings.ToLower(token), "token %q must already be lower-case", token)
	}
}
